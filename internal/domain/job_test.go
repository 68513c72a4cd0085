package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobRecord(t *testing.T) {
	t.Run("creates pending record with derived title", func(t *testing.T) {
		job, err := NewJobRecord("owner-1", "product_demo-final.mp4", 1024, FormatMP4, Resolution720p, nil)

		require.NoError(t, err)
		assert.NotEmpty(t, job.ID)
		assert.Equal(t, "owner-1", job.OwnerID)
		assert.Equal(t, "product demo final", job.Title)
		assert.Equal(t, "product_demo-final.mp4", job.OriginalFileName)
		assert.Equal(t, JobStatusPending, job.Status)
		assert.Equal(t, int64(1024), job.SizeBytes)
		assert.Equal(t, int64(1024), job.OriginalSizeBytes)
		assert.Equal(t, "00:00", job.DurationLabel)
		assert.WithinDuration(t, time.Now().UTC(), job.SubmittedAt, time.Second)
		assert.Empty(t, job.ShareLink)
		assert.Empty(t, job.ThumbnailSet)
		assert.Empty(t, job.SubtitleRef)
	})

	t.Run("unique ids", func(t *testing.T) {
		a, err := NewJobRecord("owner-1", "a.mp4", 1, FormatMP4, Resolution720p, nil)
		require.NoError(t, err)
		b, err := NewJobRecord("owner-1", "a.mp4", 1, FormatMP4, Resolution720p, nil)
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("rejects empty owner", func(t *testing.T) {
		_, err := NewJobRecord("  ", "a.mp4", 1, FormatMP4, Resolution720p, nil)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("rejects empty file name", func(t *testing.T) {
		_, err := NewJobRecord("owner-1", "", 1, FormatMP4, Resolution720p, nil)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestProcessingOptions_Enabled(t *testing.T) {
	t.Run("nil options mean no features", func(t *testing.T) {
		var opts *ProcessingOptions
		assert.Empty(t, opts.Enabled())
	})

	t.Run("all-false equivalent to nil", func(t *testing.T) {
		assert.Empty(t, (&ProcessingOptions{}).Enabled())
	})

	t.Run("lists enabled features in display order", func(t *testing.T) {
		opts := &ProcessingOptions{Compression: true, Subtitles: true, Thumbnails: true}
		assert.Equal(t, []string{"compression", "subtitle generation", "thumbnail generation"}, opts.Enabled())
	})
}

func TestJobStatus_IsTerminal(t *testing.T) {
	assert.False(t, JobStatusPending.IsTerminal())
	assert.False(t, JobStatusProcessing.IsTerminal())
	assert.True(t, JobStatusCompleted.IsTerminal())
	assert.True(t, JobStatusFailed.IsTerminal())
}

func TestJobRecord_VisibleTo(t *testing.T) {
	job := &JobRecord{ID: "j1", OwnerID: "2"}

	assert.True(t, job.VisibleTo(Identity{ID: "2", Role: RoleUser}))
	assert.False(t, job.VisibleTo(Identity{ID: "3", Role: RoleUser}))
	assert.True(t, job.VisibleTo(Identity{ID: "1", Role: RoleAdmin}))
}

func TestJobRecord_Clone(t *testing.T) {
	job := &JobRecord{
		ID:           "j1",
		Options:      &ProcessingOptions{Thumbnails: true},
		ThumbnailSet: []string{"t1", "t2"},
	}

	clone := job.Clone()
	clone.Options.Thumbnails = false
	clone.ThumbnailSet[0] = "changed"

	assert.True(t, job.Options.Thumbnails, "clone must not share options")
	assert.Equal(t, "t1", job.ThumbnailSet[0], "clone must not share thumbnail slice")
}
