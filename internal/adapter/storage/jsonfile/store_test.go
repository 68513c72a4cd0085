package jsonfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidmill/internal/domain"
)

func TestStore_LoadAll(t *testing.T) {
	t.Run("missing file means empty collection", func(t *testing.T) {
		store := NewStore(t.TempDir())

		jobs, err := store.LoadAll()

		assert.NoError(t, err)
		assert.Empty(t, jobs)
	})

	t.Run("loads existing data", func(t *testing.T) {
		tempDir := t.TempDir()
		seed := []*domain.JobRecord{
			{ID: "a", OwnerID: "1", OriginalFileName: "one.mp4"},
			{ID: "b", OwnerID: "2", OriginalFileName: "two.mp4"},
		}
		data, err := json.Marshal(seed)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(tempDir, "jobs.json"), data, 0600))

		jobs, err := NewStore(tempDir).LoadAll()

		require.NoError(t, err)
		require.Len(t, jobs, 2)
	})

	t.Run("handles empty file", func(t *testing.T) {
		tempDir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(tempDir, "jobs.json"), nil, 0600))

		jobs, err := NewStore(tempDir).LoadAll()

		assert.NoError(t, err)
		assert.Empty(t, jobs)
	})

	t.Run("rejects corrupt data", func(t *testing.T) {
		tempDir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(tempDir, "jobs.json"), []byte("not json"), 0600))

		_, err := NewStore(tempDir).LoadAll()
		assert.Error(t, err)
	})
}

func TestStore_SaveAll(t *testing.T) {
	t.Run("round trips the collection", func(t *testing.T) {
		store := NewStore(t.TempDir())
		opts := &domain.ProcessingOptions{Compression: true, Thumbnails: true}
		jobs := []*domain.JobRecord{
			{
				ID:                "a",
				OwnerID:           "1",
				Title:             "clip",
				Status:            domain.JobStatusCompleted,
				Format:            domain.FormatMP4,
				Resolution:        domain.Resolution720p,
				Options:           opts,
				OriginalSizeBytes: 100,
				SizeBytes:         70,
				SubmittedAt:       time.Date(2023, 10, 15, 10, 30, 0, 0, time.UTC),
				CompletedAt:       time.Date(2023, 10, 15, 10, 35, 0, 0, time.UTC),
				ShareLink:         "https://drive.example.com/file/d/tok/view",
				ThumbnailSet:      []string{"t1", "t2", "t3"},
				SubtitleRef:       "https://subs.example.com/a.vtt",
			},
		}

		require.NoError(t, store.SaveAll(jobs))
		loaded, err := store.LoadAll()

		require.NoError(t, err)
		require.Len(t, loaded, 1)
		assert.Equal(t, jobs[0], loaded[0])
	})

	t.Run("overwrites the previous snapshot", func(t *testing.T) {
		store := NewStore(t.TempDir())
		require.NoError(t, store.SaveAll([]*domain.JobRecord{{ID: "a"}, {ID: "b"}}))
		require.NoError(t, store.SaveAll([]*domain.JobRecord{{ID: "c"}}))

		loaded, err := store.LoadAll()
		require.NoError(t, err)
		require.Len(t, loaded, 1)
		assert.Equal(t, "c", loaded[0].ID)
	})

	t.Run("leaves no temp file behind", func(t *testing.T) {
		tempDir := t.TempDir()
		store := NewStore(tempDir)
		require.NoError(t, store.SaveAll([]*domain.JobRecord{{ID: "a"}}))

		_, err := os.Stat(filepath.Join(tempDir, "jobs.json.tmp"))
		assert.True(t, os.IsNotExist(err))
	})
}
