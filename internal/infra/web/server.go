package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"course-copy/internal/domain/ports/usecase"
)

// PollLimiter throttles status polls per requester.
type PollLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type Server struct {
	submitUC  usecase.CopyRequestUseCase
	statusUC  usecase.CopyStatusUseCase
	listingUC usecase.CopyListingUseCase
	auth      *AuthManager
	limiter   PollLimiter
	pollLimit int
	log       *zerolog.Logger
	srv       *http.Server
}

func NewServer(
	submitUC usecase.CopyRequestUseCase,
	statusUC usecase.CopyStatusUseCase,
	listingUC usecase.CopyListingUseCase,
	auth *AuthManager,
	limiter PollLimiter,
	pollLimit int,
	logger *zerolog.Logger,
) *Server {
	compLog := logger.With().Str("component", "HTTPServer").Logger()
	return &Server{
		submitUC:  submitUC,
		statusUC:  statusUC,
		listingUC: listingUC,
		auth:      auth,
		limiter:   limiter,
		pollLimit: pollLimit,
		log:       &compLog,
	}
}

// Routes builds the router for the copy API.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID, Recover(s.log), RequestLog(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/copies", func(r chi.Router) {
		r.Use(s.auth.Middleware, Timeout(15*time.Second))
		r.Post("/", s.handleSubmit)
		r.Get("/", s.handleList)
		r.Get("/status", s.handleStatus)
	})
	return r
}

// Start blocks serving on port until Shutdown.
func (s *Server) Start(port int) error {
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Int("port", port).Msg("HTTP server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
