package service

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidmill/internal/artifact"
	"vidmill/internal/domain"
	"vidmill/internal/port"
	"vidmill/internal/store"
)

// timerPump is a TimerFactory that queues callbacks instead of arming real
// timers. Tests fire them explicitly, so transitions run deterministically.
type timerPump struct {
	mu    sync.Mutex
	queue []*pumpEntry
}

type pumpEntry struct {
	fn        func()
	cancelled bool
}

func (p *timerPump) factory(_ time.Duration, fn func()) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry := &pumpEntry{fn: fn}
	p.queue = append(p.queue, entry)
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		entry.cancelled = true
	}
}

// fire runs the oldest pending callback. Returns false when nothing fired.
func (p *timerPump) fire() bool {
	p.mu.Lock()
	var fn func()
	for len(p.queue) > 0 {
		entry := p.queue[0]
		p.queue = p.queue[1:]
		if !entry.cancelled {
			fn = entry.fn
			break
		}
	}
	p.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}

func (p *timerPump) drain() {
	for p.fire() {
	}
}

// take removes the oldest pending callback without running it, emulating a
// timer that has already fired but whose callback has not yet executed.
func (p *timerPump) take(t *testing.T) func() {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) > 0 {
		entry := p.queue[0]
		p.queue = p.queue[1:]
		if !entry.cancelled {
			return entry.fn
		}
	}
	t.Fatal("no pending callback to take")
	return nil
}

// recordingNotifier captures every event delivered through the hook.
type recordingNotifier struct {
	mu     sync.Mutex
	events []JobEvent
}

func (n *recordingNotifier) Notify(jobID string, event port.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, JobEvent{JobID: jobID, Event: event})
}

func (n *recordingNotifier) forJob(jobID string) []port.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []port.Event
	for _, e := range n.events {
		if e.JobID == jobID {
			out = append(out, e.Event)
		}
	}
	return out
}

type nullAdapter struct{}

func (nullAdapter) LoadAll() ([]*domain.JobRecord, error) { return nil, nil }
func (nullAdapter) SaveAll([]*domain.JobRecord) error     { return nil }

type engine struct {
	jobs      *store.JobStore
	scheduler *Scheduler
	pump      *timerPump
	notifier  *recordingNotifier
}

func newTestEngine(t *testing.T) *engine {
	t.Helper()

	jobs, err := store.NewJobStore(nullAdapter{})
	require.NoError(t, err)
	for _, job := range jobs.ListFor(domain.Identity{Role: domain.RoleAdmin}) {
		require.NoError(t, jobs.Remove(job.ID))
	}

	pump := &timerPump{}
	notifier := &recordingNotifier{}
	gen := artifact.NewGenerator("https://drive.example.com", "https://placehold.example.com", "https://subs.example.com")
	cfg := SchedulerConfig{
		QueueDelayMin: 3 * time.Second, QueueDelayMax: 8 * time.Second,
		ProcessDelayMin: 3 * time.Second, ProcessDelayMax: 5 * time.Second,
	}

	return &engine{
		jobs:      jobs,
		scheduler: NewScheduler(jobs, gen, notifier, cfg, pump.factory),
		pump:      pump,
		notifier:  notifier,
	}
}

func (e *engine) submit(t *testing.T, options *domain.ProcessingOptions, sizeBytes int64) *domain.JobRecord {
	t.Helper()
	job, err := domain.NewJobRecord("owner-1", "clip.mp4", sizeBytes, domain.FormatMP4, domain.Resolution720p, options)
	require.NoError(t, err)
	require.NoError(t, e.jobs.Insert(job))
	require.NoError(t, e.scheduler.Begin(job.ID))
	return job
}

func (e *engine) status(t *testing.T, id string) domain.JobStatus {
	t.Helper()
	job, err := e.jobs.Get(id)
	require.NoError(t, err)
	return job.Status
}

func TestScheduler_SubmittedJobReachesTerminalStateInOrder(t *testing.T) {
	e := newTestEngine(t)
	job := e.submit(t, nil, 1000)

	assert.Equal(t, domain.JobStatusPending, e.status(t, job.ID))

	require.True(t, e.pump.fire())
	assert.Equal(t, domain.JobStatusProcessing, e.status(t, job.ID), "processing is never skipped")

	require.True(t, e.pump.fire())
	got, err := e.jobs.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.False(t, got.CompletedAt.IsZero())
	assert.NotEmpty(t, got.ShareLink)
	assert.Equal(t, "clip_720p.mp4", got.ProcessedFileName)
}

func TestScheduler_EndToEndWithOptions(t *testing.T) {
	// Submit with compression and thumbnails on a 100 MB asset.
	e := newTestEngine(t)
	job := e.submit(t, &domain.ProcessingOptions{Compression: true, Thumbnails: true}, 100_000_000)

	e.pump.drain()

	got, err := e.jobs.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.InDelta(t, 70_000_000, got.SizeBytes, 1, "size is 70%% of the original")
	assert.Len(t, got.ThumbnailSet, 3)
	assert.Empty(t, got.SubtitleRef, "subtitles were not requested")

	events := e.notifier.forJob(job.ID)
	require.Len(t, events, 2)
	assert.Equal(t, port.EventTypeStatus, events[0].Type)
	assert.Equal(t, port.EventTypeCompleted, events[1].Type)
	assert.Equal(t, []string{"compression", "thumbnail generation"}, events[1].Features)
}

func TestScheduler_ReprocessWhileProcessing(t *testing.T) {
	e := newTestEngine(t)
	job := e.submit(t, nil, 1000)
	require.True(t, e.pump.fire())
	require.Equal(t, domain.JobStatusProcessing, e.status(t, job.ID))

	err := e.scheduler.Reprocess(job.ID, domain.FormatMKV, domain.Resolution480p, nil)
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessing)

	// The original completion is unaffected.
	e.pump.drain()
	got, getErr := e.jobs.Get(job.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.Equal(t, domain.FormatMP4, got.Format, "busy reprocess must not touch the record")
}

func TestScheduler_ReprocessWhilePending(t *testing.T) {
	e := newTestEngine(t)
	job := e.submit(t, nil, 1000)

	err := e.scheduler.Reprocess(job.ID, domain.FormatMKV, domain.Resolution480p, nil)
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessing)
}

func TestScheduler_ReprocessFromCompleted(t *testing.T) {
	e := newTestEngine(t)
	job := e.submit(t, nil, 1000)
	e.pump.drain()

	first, err := e.jobs.Get(job.ID)
	require.NoError(t, err)
	require.Equal(t, domain.JobStatusCompleted, first.Status)

	opts := &domain.ProcessingOptions{Subtitles: true}
	require.NoError(t, e.scheduler.Reprocess(job.ID, domain.FormatMKV, domain.Resolution1080p, opts))

	// Flip to processing is synchronous, before the async completion.
	mid, err := e.jobs.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, mid.Status)
	assert.Equal(t, domain.FormatMKV, mid.Format)
	assert.Equal(t, domain.Resolution1080p, mid.Resolution)

	e.pump.drain()

	got, err := e.jobs.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.True(t, strings.HasSuffix(got.SubtitleRef, job.ID+".vtt"))
	assert.NotEqual(t, first.ShareLink, got.ShareLink, "share link is fresh per completion")
	assert.True(t, got.CompletedAt.After(first.CompletedAt) || got.CompletedAt.Equal(first.CompletedAt))
	assert.Equal(t, first.SubmittedAt, got.SubmittedAt, "submission time never changes")
	assert.Equal(t, first.Title, got.Title, "title is never regenerated")
}

func TestScheduler_ReprocessWithoutOptionsClearsArtifacts(t *testing.T) {
	// Artifact fields reflect the options of the most recent successful
	// completion, so a run without thumbnails or subtitles must drop the
	// previous run's references rather than carry them forward.
	e := newTestEngine(t)
	job := e.submit(t, &domain.ProcessingOptions{Thumbnails: true, Subtitles: true}, 1000)
	e.pump.drain()

	first, err := e.jobs.Get(job.ID)
	require.NoError(t, err)
	require.Len(t, first.ThumbnailSet, 3)
	require.NotEmpty(t, first.SubtitleRef)

	require.NoError(t, e.scheduler.Reprocess(job.ID, domain.FormatMP4, domain.Resolution720p, nil))
	e.pump.drain()

	got, err := e.jobs.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.Empty(t, got.ThumbnailSet, "thumbnails were not requested this run")
	assert.Empty(t, got.SubtitleRef, "subtitles were not requested this run")
}

func TestScheduler_CompressionDoesNotCompound(t *testing.T) {
	// Open question resolved as non-compounding: every completion recomputes
	// from the original upload size, so a second compressing run still yields
	// 0.7×S rather than 0.49×S.
	e := newTestEngine(t)
	compress := &domain.ProcessingOptions{Compression: true}
	job := e.submit(t, compress, 100_000_000)
	e.pump.drain()

	got, err := e.jobs.Get(job.ID)
	require.NoError(t, err)
	require.InDelta(t, 70_000_000, got.SizeBytes, 1)

	require.NoError(t, e.scheduler.Reprocess(job.ID, domain.FormatMP4, domain.Resolution720p, compress))
	e.pump.drain()

	got, err = e.jobs.Get(job.ID)
	require.NoError(t, err)
	assert.InDelta(t, 70_000_000, got.SizeBytes, 1)
	assert.Equal(t, int64(100_000_000), got.OriginalSizeBytes)
}

func TestScheduler_DeleteMidProcessing(t *testing.T) {
	e := newTestEngine(t)
	job := e.submit(t, nil, 1000)
	require.True(t, e.pump.fire())
	require.Equal(t, domain.JobStatusProcessing, e.status(t, job.ID))

	require.NoError(t, e.jobs.Remove(job.ID))

	// The scheduled completion fires into the void.
	e.pump.drain()

	_, err := e.jobs.Get(job.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "completion must not resurrect the record")

	// The job id is free again for bookkeeping.
	require.NoError(t, e.jobs.Insert(job))
	assert.NoError(t, e.scheduler.Begin(job.ID))
}

func TestScheduler_DeleteWhilePending(t *testing.T) {
	e := newTestEngine(t)
	job := e.submit(t, nil, 1000)

	require.NoError(t, e.jobs.Remove(job.ID))
	e.pump.drain()

	_, err := e.jobs.Get(job.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestScheduler_MarkFailed(t *testing.T) {
	t.Run("fails a processing job and cancels its completion", func(t *testing.T) {
		e := newTestEngine(t)
		job := e.submit(t, nil, 1000)
		require.True(t, e.pump.fire())

		require.NoError(t, e.scheduler.MarkFailed(job.ID, "transcoder crashed"))

		e.pump.drain()
		assert.Equal(t, domain.JobStatusFailed, e.status(t, job.ID), "cancelled completion must not overwrite the failure")

		events := e.notifier.forJob(job.ID)
		last := events[len(events)-1]
		assert.Equal(t, port.EventTypeError, last.Type)
		assert.Equal(t, "transcoder crashed", last.Message)
	})

	t.Run("failed jobs can be reprocessed", func(t *testing.T) {
		e := newTestEngine(t)
		job := e.submit(t, nil, 1000)
		require.True(t, e.pump.fire())
		require.NoError(t, e.scheduler.MarkFailed(job.ID, "boom"))

		require.NoError(t, e.scheduler.Reprocess(job.ID, domain.FormatAVI, domain.Resolution480p, nil))
		e.pump.drain()

		got, err := e.jobs.Get(job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusCompleted, got.Status)
		assert.Equal(t, domain.FormatAVI, got.Format)
	})

	t.Run("rejects jobs that are not processing", func(t *testing.T) {
		e := newTestEngine(t)
		job := e.submit(t, nil, 1000)

		err := e.scheduler.MarkFailed(job.ID, "too early")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("superseded completion cannot touch the next run", func(t *testing.T) {
		e := newTestEngine(t)
		job := e.submit(t, nil, 1000)
		require.True(t, e.pump.fire())

		// The completion timer fires just before the failure report lands;
		// its callback has not run yet.
		stale := e.pump.take(t)

		require.NoError(t, e.scheduler.MarkFailed(job.ID, "node lost"))
		require.NoError(t, e.scheduler.Reprocess(job.ID, domain.FormatMKV, domain.Resolution480p, nil))
		require.Equal(t, domain.JobStatusProcessing, e.status(t, job.ID))

		stale()
		assert.Equal(t, domain.JobStatusProcessing, e.status(t, job.ID), "old run must not complete the new one early")

		e.pump.drain()
		got, err := e.jobs.Get(job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusCompleted, got.Status)
		assert.Equal(t, domain.FormatMKV, got.Format)
	})
}

func TestScheduler_Resume(t *testing.T) {
	e := newTestEngine(t)

	pending, err := domain.NewJobRecord("owner-1", "pending.mp4", 10, domain.FormatMP4, domain.Resolution720p, nil)
	require.NoError(t, err)
	processing, err := domain.NewJobRecord("owner-1", "processing.mp4", 10, domain.FormatMP4, domain.Resolution720p, nil)
	require.NoError(t, err)
	processing.Status = domain.JobStatusProcessing
	require.NoError(t, e.jobs.Insert(pending))
	require.NoError(t, e.jobs.Insert(processing))

	e.scheduler.Resume()
	e.pump.drain()

	assert.Equal(t, domain.JobStatusCompleted, e.status(t, pending.ID))
	assert.Equal(t, domain.JobStatusCompleted, e.status(t, processing.ID))
}

func TestScheduler_ConcurrentJobsAreIndependent(t *testing.T) {
	e := newTestEngine(t)
	a := e.submit(t, nil, 10)
	b := e.submit(t, nil, 10)

	// Timers interleave: a queues first but both chains complete regardless
	// of ordering across jobs.
	e.pump.drain()

	assert.Equal(t, domain.JobStatusCompleted, e.status(t, a.ID))
	assert.Equal(t, domain.JobStatusCompleted, e.status(t, b.ID))
}

func TestRandDelay(t *testing.T) {
	t.Run("stays within bounds", func(t *testing.T) {
		for range 100 {
			d := randDelay(3*time.Second, 8*time.Second)
			assert.GreaterOrEqual(t, d, 3*time.Second)
			assert.Less(t, d, 8*time.Second)
		}
	})

	t.Run("collapsed range returns the minimum", func(t *testing.T) {
		assert.Equal(t, 5*time.Second, randDelay(5*time.Second, 5*time.Second))
	})
}
