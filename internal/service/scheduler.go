package service

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"vidmill/internal/artifact"
	"vidmill/internal/domain"
	"vidmill/internal/infrastructure/logger"
	"vidmill/internal/port"
	"vidmill/internal/store"
)

// TimerFactory schedules fn after delay and returns a cancel function. The
// production factory wraps time.AfterFunc; tests substitute one that fires
// synchronously.
type TimerFactory func(delay time.Duration, fn func()) (cancel func())

func realTimer(delay time.Duration, fn func()) func() {
	t := time.AfterFunc(delay, fn)
	return func() { t.Stop() }
}

// SchedulerConfig bounds the randomized delays that stand in for queueing
// latency and processing work.
type SchedulerConfig struct {
	QueueDelayMin   time.Duration
	QueueDelayMax   time.Duration
	ProcessDelayMin time.Duration
	ProcessDelayMax time.Duration
}

// Scheduler drives job records through the state machine
//
//	Pending -> Processing -> Completed | Failed
//
// with the terminal states re-enterable via Reprocess. It guarantees at most
// one in-flight transition per job id and strict per-job ordering; transitions
// of different jobs may fire in any order.
type Scheduler struct {
	store    *store.JobStore
	gen      *artifact.Generator
	notifier port.Notifier
	cfg      SchedulerConfig
	timer    TimerFactory

	mu       sync.Mutex
	inflight map[string]*inflightRun
}

// inflightRun identifies one pass through the pipeline. Scheduled callbacks
// carry the run that armed them and stand down when the map no longer points
// at it, so a timer that fired just before being cancelled cannot act on a
// successor run or delete its bookkeeping.
type inflightRun struct {
	cancel func()
}

// NewScheduler wires the state machine driver. A nil timer factory means real
// timers.
func NewScheduler(jobs *store.JobStore, gen *artifact.Generator, notifier port.Notifier, cfg SchedulerConfig, timer TimerFactory) *Scheduler {
	if timer == nil {
		timer = realTimer
	}
	return &Scheduler{
		store:    jobs,
		gen:      gen,
		notifier: notifier,
		cfg:      cfg,
		timer:    timer,
		inflight: make(map[string]*inflightRun),
	}
}

// Begin schedules the async Pending -> Processing transition for a freshly
// inserted job. The caller is not blocked on any processing work.
func (s *Scheduler) Begin(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inflight[id]; busy {
		return fmt.Errorf("%w: %s", domain.ErrAlreadyProcessing, id)
	}

	run := &inflightRun{}
	run.cancel = s.timer(s.queueDelay(), func() { s.advance(id, run) })
	s.inflight[id] = run
	return nil
}

// Reprocess re-enters the pipeline from a terminal state. The flip to
// Processing and the format/resolution/options update happen synchronously;
// completion fires later through the usual artifact path. A persistence
// failure is reported to the caller but does not stop the reprocess.
func (s *Scheduler) Reprocess(id string, format domain.Format, resolution domain.Resolution, options *domain.ProcessingOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inflight[id]; busy {
		return fmt.Errorf("%w: %s", domain.ErrAlreadyProcessing, id)
	}

	var notTerminal bool
	_, err := s.store.Update(id, func(j *domain.JobRecord) {
		if !j.Status.IsTerminal() {
			notTerminal = true
			return
		}
		j.Status = domain.JobStatusProcessing
		j.Format = format
		j.Resolution = resolution
		j.Options = options
	})
	if err != nil && !isPersistence(err) {
		return err
	}
	if notTerminal {
		return fmt.Errorf("%w: %s", domain.ErrAlreadyProcessing, id)
	}

	s.notify(id, port.Event{Type: port.EventTypeStatus, Status: string(domain.JobStatusProcessing), Message: "reprocessing started"})
	run := &inflightRun{}
	run.cancel = s.timer(s.processDelay(), func() { s.complete(id, run) })
	s.inflight[id] = run
	return err
}

// MarkFailed accepts an external failure report (for example a real
// transcoder) for a job that is currently processing. Any scheduled
// completion for the job is cancelled.
func (s *Scheduler) MarkFailed(id, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var notProcessing bool
	_, err := s.store.Update(id, func(j *domain.JobRecord) {
		if j.Status != domain.JobStatusProcessing {
			notProcessing = true
			return
		}
		j.Status = domain.JobStatusFailed
	})
	if err != nil && !isPersistence(err) {
		return err
	}
	if notProcessing {
		return fmt.Errorf("%w: job %s is not processing", domain.ErrInvalidInput, id)
	}

	if run, ok := s.inflight[id]; ok {
		run.cancel()
		delete(s.inflight, id)
	}
	s.notify(id, port.Event{Type: port.EventTypeError, Status: string(domain.JobStatusFailed), Message: reason})
	return err
}

// Resume reschedules jobs left mid-pipeline by a previous run: pending jobs
// restart from the queue delay, processing jobs go straight to completion.
func (s *Scheduler) Resume() {
	resumable := s.store.ListFiltered(domain.Identity{Role: domain.RoleAdmin}, func(j *domain.JobRecord) bool {
		return !j.Status.IsTerminal()
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range resumable {
		if _, busy := s.inflight[job.ID]; busy {
			continue
		}
		switch job.Status {
		case domain.JobStatusPending:
			id := job.ID
			run := &inflightRun{}
			run.cancel = s.timer(s.queueDelay(), func() { s.advance(id, run) })
			s.inflight[id] = run
		case domain.JobStatusProcessing:
			id := job.ID
			run := &inflightRun{}
			run.cancel = s.timer(s.processDelay(), func() { s.complete(id, run) })
			s.inflight[id] = run
		}
	}
	if len(resumable) > 0 {
		logger.Info.Printf("resumed %d in-flight jobs", len(resumable))
	}
}

// advance performs the scheduled Pending -> Processing flip.
func (s *Scheduler) advance(id string, run *inflightRun) {
	if !s.isCurrent(id, run) {
		return
	}

	_, err := s.store.Update(id, func(j *domain.JobRecord) {
		j.Status = domain.JobStatusProcessing
	})
	switch {
	case err == nil:
	case isPersistence(err):
		logger.Warn.Printf("job %s: processing flip not persisted: %v", id, err)
	default:
		// Job deleted while queued. The transition is a no-op.
		s.finish(id, run)
		return
	}

	s.notify(id, port.Event{Type: port.EventTypeStatus, Status: string(domain.JobStatusProcessing), Message: "processing started"})

	s.mu.Lock()
	if s.inflight[id] == run {
		run.cancel = s.timer(s.processDelay(), func() { s.complete(id, run) })
	}
	s.mu.Unlock()
}

// complete performs the scheduled Processing -> Completed transition,
// deriving artifacts from the options requested at the most recent
// (re)submission. Thumbnail and subtitle references are overwritten with
// whatever the generator produced, so a run with those options off clears the
// previous run's artifacts. There is no caller to report errors to: the
// in-memory flip always lands, a failed durable write is only logged, and a
// job deleted or failed while the timer was pending leaves the record
// untouched. No path leaves a live job stuck in Processing.
func (s *Scheduler) complete(id string, run *inflightRun) {
	if !s.isCurrent(id, run) {
		return
	}
	defer s.finish(id, run)

	var (
		features []string
		aborted  bool
	)
	_, err := s.store.Update(id, func(j *domain.JobRecord) {
		if j.Status != domain.JobStatusProcessing {
			// Failed externally while the timer was pending.
			aborted = true
			return
		}
		out := s.gen.Generate(j)
		j.Status = domain.JobStatusCompleted
		j.CompletedAt = time.Now().UTC()
		j.ProcessedFileName = out.ProcessedFileName
		j.SizeBytes = out.SizeBytes
		j.ShareLink = out.ShareLink
		j.ThumbnailSet = out.ThumbnailSet
		j.SubtitleRef = out.SubtitleRef
		features = j.Options.Enabled()
	})
	switch {
	case err == nil:
	case isPersistence(err):
		logger.Warn.Printf("job %s: completion not persisted: %v", id, err)
	default:
		// Deleted mid-processing; nothing to resurrect.
		return
	}
	if aborted {
		return
	}

	s.notify(id, port.Event{
		Type:     port.EventTypeCompleted,
		Status:   string(domain.JobStatusCompleted),
		Message:  "processing completed",
		Features: features,
	})
}

// finish clears the in-flight entry, but only while it still belongs to this
// run. A superseding run's entry is left alone.
func (s *Scheduler) finish(id string, run *inflightRun) {
	s.mu.Lock()
	if s.inflight[id] == run {
		delete(s.inflight, id)
	}
	s.mu.Unlock()
}

func (s *Scheduler) isCurrent(id string, run *inflightRun) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight[id] == run
}

func (s *Scheduler) notify(id string, event port.Event) {
	if s.notifier != nil {
		s.notifier.Notify(id, event)
	}
}

func (s *Scheduler) queueDelay() time.Duration {
	return randDelay(s.cfg.QueueDelayMin, s.cfg.QueueDelayMax)
}

func (s *Scheduler) processDelay() time.Duration {
	return randDelay(s.cfg.ProcessDelayMin, s.cfg.ProcessDelayMax)
}

func randDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + rand.N(max-min)
}

func isPersistence(err error) bool {
	return errors.Is(err, domain.ErrPersistence)
}
