package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"course-copy/internal/domain"
	"course-copy/internal/domain/model"
	"course-copy/internal/infra/logging"
	"course-copy/internal/infra/metrics"
	red "course-copy/internal/infra/redis"
	"course-copy/internal/usecase"
)

type submitResponse struct {
	ExportJobID string `json:"export_job_id"`
	ImportJobID string `json:"import_job_id"`
}

type statusResponse struct {
	Items []model.JobStatusView `json:"items"`
	Done  bool                  `json:"done"`
}

type listResponse struct {
	Items []*model.CopyOperation `json:"items"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	requester, _ := requesterFrom(r.Context())

	var req model.CopyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.IncCopyRequest("invalid")
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.OwnerID = requester.UserID

	task, err := s.submitUC.Submit(r.Context(), &req)
	if err != nil {
		status := statusFor(err)
		switch status {
		case http.StatusInternalServerError:
			metrics.IncCopyRequest("error")
			l := logging.With(r.Context(), s.log)
			l.Error().Err(err).Str("course_id", req.SourceCourseID).Msg("copy submit failed")
		case http.StatusBadRequest:
			metrics.IncCopyRequest("invalid")
		default:
			metrics.IncCopyRequest("rejected")
		}
		writeError(w, status, err.Error())
		return
	}
	metrics.IncCopyRequest("queued")
	writeJSON(w, http.StatusCreated, submitResponse{ExportJobID: task.ExportJobID, ImportJobID: task.ImportJobID})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	requester, _ := requesterFrom(r.Context())

	if s.limiter != nil && s.pollLimit > 0 {
		ok, err := s.limiter.Allow(r.Context(), red.PollKey(requester.UserID), s.pollLimit, time.Minute)
		if err != nil {
			// fail open
			l := logging.With(r.Context(), s.log)
			l.Warn().Err(err).Msg("poll limiter unavailable")
		} else if !ok {
			metrics.IncStatusPoll("limited")
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "too many status requests")
			return
		}
	}

	views, err := s.statusUC.GetStatus(r.Context(), requester, r.URL.Query()["job_id"])
	if err != nil {
		metrics.IncStatusPoll("error")
		writeError(w, statusFor(err), err.Error())
		return
	}
	if views == nil {
		views = []model.JobStatusView{}
	}
	metrics.IncStatusPoll("ok")
	writeJSON(w, http.StatusOK, statusResponse{Items: views, Done: usecase.AllTerminal(views)})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	requester, _ := requesterFrom(r.Context())

	ops, err := s.listingUC.ListForUser(r.Context(), requester.UserID, r.URL.Query().Get("course_id"))
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			l := logging.With(r.Context(), s.log)
			l.Error().Err(err).Msg("list copies failed")
		}
		writeError(w, status, err.Error())
		return
	}
	if ops == nil {
		ops = []*model.CopyOperation{}
	}
	writeJSON(w, http.StatusOK, listResponse{Items: ops})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrCategoryNotFound):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrShortNameTaken), errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
