package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"vidmill/internal/domain"
	"vidmill/internal/infrastructure/logger"
	"vidmill/internal/store"
)

// SubmitRequest carries the metadata of a newly submitted source asset.
type SubmitRequest struct {
	FileName   string                    `validate:"required"`
	SizeBytes  int64                     `validate:"gte=0"`
	Duration   string                    `validate:"-"`
	Format     domain.Format             `validate:"required,oneof=mp4 avi mkv"`
	Resolution domain.Resolution         `validate:"required,oneof=480p 720p 1080p"`
	Options    *domain.ProcessingOptions `validate:"-"`
}

type reprocessRequest struct {
	Format     domain.Format     `validate:"required,oneof=mp4 avi mkv"`
	Resolution domain.Resolution `validate:"required,oneof=480p 720p 1080p"`
}

// ListFilter narrows List results for the search and tab views.
type ListFilter struct {
	Status domain.JobStatus
	Query  string
}

// LifecycleService is the only operation surface intended for external
// callers. It translates identity checks into Unauthorized failures and
// delegates state changes to the store and scheduler.
type LifecycleService struct {
	jobs      *store.JobStore
	scheduler *Scheduler
	validate  *validator.Validate
}

func NewLifecycleService(jobs *store.JobStore, scheduler *Scheduler) *LifecycleService {
	return &LifecycleService{
		jobs:      jobs,
		scheduler: scheduler,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Submit validates the request, creates the pending record and schedules its
// asynchronous processing. It returns as soon as the record is stored; a
// persistence write failure is returned alongside the created record and does
// not cancel processing.
func (s *LifecycleService) Submit(caller domain.Identity, req SubmitRequest) (*domain.JobRecord, error) {
	if caller.ID == "" {
		return nil, fmt.Errorf("%w: submission requires a caller identity", domain.ErrUnauthorized)
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	job, err := domain.NewJobRecord(caller.ID, req.FileName, req.SizeBytes, req.Format, req.Resolution, req.Options)
	if err != nil {
		return nil, err
	}
	if req.Duration != "" {
		job.DurationLabel = req.Duration
	}

	insertErr := s.jobs.Insert(job)
	if insertErr != nil && !errors.Is(insertErr, domain.ErrPersistence) {
		return nil, insertErr
	}

	if err := s.scheduler.Begin(job.ID); err != nil {
		return nil, err
	}

	logger.Info.Printf("job %s submitted: file=%s owner=%s", job.ID, logger.Sanitize(req.FileName), caller.ID)
	return job, insertErr
}

// Reprocess re-runs a terminal job with new encoding parameters. Only the
// owner or an admin may request it.
func (s *LifecycleService) Reprocess(caller domain.Identity, id string, format domain.Format, resolution domain.Resolution, options *domain.ProcessingOptions) error {
	job, err := s.jobs.Get(id)
	if err != nil {
		return err
	}
	if !job.VisibleTo(caller) {
		return fmt.Errorf("%w: job %s does not belong to caller %s", domain.ErrUnauthorized, id, caller.ID)
	}
	if err := s.validate.Struct(reprocessRequest{Format: format, Resolution: resolution}); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	if err := s.scheduler.Reprocess(id, format, resolution, options); err != nil {
		return err
	}

	logger.Info.Printf("job %s reprocessing: format=%s resolution=%s", id, format, resolution)
	return nil
}

// Delete removes a job. A transition already scheduled for the job becomes a
// no-op when it later fires.
func (s *LifecycleService) Delete(caller domain.Identity, id string) error {
	job, err := s.jobs.Get(id)
	if err != nil {
		return err
	}
	if !job.VisibleTo(caller) {
		return fmt.Errorf("%w: job %s does not belong to caller %s", domain.ErrUnauthorized, id, caller.ID)
	}

	if err := s.jobs.Remove(id); err != nil {
		return err
	}
	logger.Info.Printf("job %s deleted by %s", id, caller.ID)
	return nil
}

// Get returns one job if the caller may see it.
func (s *LifecycleService) Get(caller domain.Identity, id string) (*domain.JobRecord, error) {
	job, err := s.jobs.Get(id)
	if err != nil {
		return nil, err
	}
	if !job.VisibleTo(caller) {
		return nil, fmt.Errorf("%w: job %s does not belong to caller %s", domain.ErrUnauthorized, id, caller.ID)
	}
	return job, nil
}

// List returns the caller's jobs (all jobs for admins), optionally filtered
// by status and free-text query.
func (s *LifecycleService) List(caller domain.Identity, filter ListFilter) ([]*domain.JobRecord, error) {
	if caller.ID == "" {
		return nil, fmt.Errorf("%w: listing requires a caller identity", domain.ErrUnauthorized)
	}

	var preds []func(*domain.JobRecord) bool
	if filter.Status != "" {
		preds = append(preds, store.StatusIs(filter.Status))
	}
	if filter.Query != "" {
		preds = append(preds, store.MatchesQuery(filter.Query))
	}
	if len(preds) == 0 {
		return s.jobs.ListFor(caller), nil
	}
	return s.jobs.ListFiltered(caller, store.And(preds...)), nil
}
