package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(copyRequestsTotal, copyNotificationsTotal, statusPollsTotal)
}

var (
	copyRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copy_requests_total",
			Help: "Copy submissions, by result (queued, invalid, rejected, error).",
		},
		[]string{"result"},
	)

	copyNotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copy_notifications_total",
			Help: "Completion notifications, by result (sent, failed).",
		},
		[]string{"result"},
	)

	statusPollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copy_status_polls_total",
			Help: "Status polls, by result (ok, limited, error).",
		},
		[]string{"result"},
	)
)

func IncCopyRequest(result string) {
	copyRequestsTotal.WithLabelValues(norm(result)).Inc()
}

func IncNotification(result string) {
	copyNotificationsTotal.WithLabelValues(norm(result)).Inc()
}

func IncStatusPoll(result string) {
	statusPollsTotal.WithLabelValues(norm(result)).Inc()
}
