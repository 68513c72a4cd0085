package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"vidmill/internal/domain"
	"vidmill/internal/infrastructure/logger"
	"vidmill/internal/service"
)

// Lifecycle is the slice of the job facade the HTTP layer needs.
type Lifecycle interface {
	Submit(caller domain.Identity, req service.SubmitRequest) (*domain.JobRecord, error)
	Reprocess(caller domain.Identity, id string, format domain.Format, resolution domain.Resolution, options *domain.ProcessingOptions) error
	Delete(caller domain.Identity, id string) error
	Get(caller domain.Identity, id string) (*domain.JobRecord, error)
	List(caller domain.Identity, filter service.ListFilter) ([]*domain.JobRecord, error)
}

type Handlers struct {
	lifecycle Lifecycle
}

func NewHandlers(lifecycle Lifecycle) *Handlers {
	return &Handlers{lifecycle: lifecycle}
}

// jobResponse is the wire shape of a job record, with the size rendered as a
// display string alongside the raw byte count.
type jobResponse struct {
	*domain.JobRecord
	SizeLabel   string `json:"size_label"`
	SubmittedAt string `json:"submitted_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

func toJobResponse(job *domain.JobRecord) jobResponse {
	resp := jobResponse{
		JobRecord:   job,
		SizeLabel:   job.SizeLabel(),
		SubmittedAt: job.SubmittedAt.Format(time.RFC3339),
	}
	if !job.CompletedAt.IsZero() {
		resp.CompletedAt = job.CompletedAt.Format(time.RFC3339)
	}
	return resp
}

type submitRequest struct {
	FileName   string                    `json:"file_name"`
	SizeBytes  int64                     `json:"size_bytes"`
	Duration   string                    `json:"duration"`
	Format     domain.Format             `json:"format"`
	Resolution domain.Resolution         `json:"resolution"`
	Options    *domain.ProcessingOptions `json:"options"`
}

func (h *Handlers) SubmitJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "malformed submission")
			return
		}

		job, err := h.lifecycle.Submit(callerIdentity(r), service.SubmitRequest{
			FileName:   req.FileName,
			SizeBytes:  req.SizeBytes,
			Duration:   req.Duration,
			Format:     req.Format,
			Resolution: req.Resolution,
			Options:    req.Options,
		})
		if err != nil && !errors.Is(err, domain.ErrPersistence) {
			writeDomainError(w, err)
			return
		}
		if err != nil {
			// Record exists in memory; the durable copy catches up on the
			// next write.
			logger.Warn.Printf("job %s accepted but not persisted: %v", job.ID, err)
		}

		writeJSON(w, http.StatusCreated, toJobResponse(job))
	}
}

type reprocessRequest struct {
	Format     domain.Format             `json:"format"`
	Resolution domain.Resolution         `json:"resolution"`
	Options    *domain.ProcessingOptions `json:"options"`
}

func (h *Handlers) ReprocessJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		var req reprocessRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "malformed reprocess request")
			return
		}

		err := h.lifecycle.Reprocess(callerIdentity(r), id, req.Format, req.Resolution, req.Options)
		if err != nil && !errors.Is(err, domain.ErrPersistence) {
			writeDomainError(w, err)
			return
		}
		if err != nil {
			logger.Warn.Printf("job %s reprocess accepted but not persisted: %v", id, err)
		}

		w.WriteHeader(http.StatusAccepted)
	}
}

func (h *Handlers) DeleteJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		err := h.lifecycle.Delete(callerIdentity(r), id)
		if err != nil && !errors.Is(err, domain.ErrPersistence) {
			writeDomainError(w, err)
			return
		}
		if err != nil {
			logger.Warn.Printf("job %s deleted but removal not persisted: %v", id, err)
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handlers) GetJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := h.lifecycle.Get(callerIdentity(r), r.PathValue("id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toJobResponse(job))
	}
}

func (h *Handlers) ListJobs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := service.ListFilter{
			Status: domain.JobStatus(r.URL.Query().Get("status")),
			Query:  r.URL.Query().Get("q"),
		}

		jobs, err := h.lifecycle.List(callerIdentity(r), filter)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		out := make([]jobResponse, 0, len(jobs))
		for _, job := range jobs {
			out = append(out, toJobResponse(job))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error.Printf("encode response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps the error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeJSONError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrAlreadyProcessing):
		writeJSONError(w, http.StatusConflict, err.Error())
	default:
		logger.Error.Printf("unhandled error: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}
