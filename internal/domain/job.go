package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// JobStatus enumerates the lifecycle states of a processing job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether a status can be re-entered via reprocess.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

type Format string

const (
	FormatMP4 Format = "mp4"
	FormatAVI Format = "avi"
	FormatMKV Format = "mkv"
)

type Resolution string

const (
	Resolution480p  Resolution = "480p"
	Resolution720p  Resolution = "720p"
	Resolution1080p Resolution = "1080p"
)

// ProcessingOptions is the bag of optional feature flags attached to a job.
// A nil options pointer and an all-false value are equivalent.
type ProcessingOptions struct {
	Compression    bool `json:"compression"`
	NoiseReduction bool `json:"noise_reduction"`
	Subtitles      bool `json:"subtitles"`
	Thumbnails     bool `json:"thumbnails"`
}

// Enabled lists the enabled feature names in display order. Used for the
// completion notification summary.
func (o *ProcessingOptions) Enabled() []string {
	if o == nil {
		return nil
	}
	var features []string
	if o.Compression {
		features = append(features, "compression")
	}
	if o.NoiseReduction {
		features = append(features, "noise reduction")
	}
	if o.Subtitles {
		features = append(features, "subtitle generation")
	}
	if o.Thumbnails {
		features = append(features, "thumbnail generation")
	}
	return features
}

// JobRecord is one submitted-or-reprocessed unit of media processing work.
//
// ID, OwnerID and SubmittedAt are immutable after creation. Status moves only
// through the scheduler's state machine. Artifact fields (ShareLink,
// ThumbnailSet, SubtitleRef) are written exclusively on completed transitions
// and left stale, never retroactively removed, when a later reprocess fails.
type JobRecord struct {
	ID                string             `json:"id"`
	OwnerID           string             `json:"owner_id"`
	Title             string             `json:"title"`
	OriginalFileName  string             `json:"original_file_name"`
	ProcessedFileName string             `json:"processed_file_name,omitempty"`
	Status            JobStatus          `json:"status"`
	Format            Format             `json:"format"`
	Resolution        Resolution         `json:"resolution"`
	Options           *ProcessingOptions `json:"options,omitempty"`
	OriginalSizeBytes int64              `json:"original_size_bytes"`
	SizeBytes         int64              `json:"size_bytes"`
	DurationLabel     string             `json:"duration_label"`
	SubmittedAt       time.Time          `json:"submitted_at"`
	CompletedAt       time.Time          `json:"completed_at,omitzero"`
	ShareLink         string             `json:"share_link,omitempty"`
	ThumbnailSet      []string           `json:"thumbnail_set,omitempty"`
	SubtitleRef       string             `json:"subtitle_ref,omitempty"`
}

// NewJobRecord creates a pending record for a freshly submitted asset.
// The title is derived from the file name the same way the dashboard displays
// it: extension stripped, separators replaced with spaces.
func NewJobRecord(ownerID, fileName string, sizeBytes int64, format Format, resolution Resolution, options *ProcessingOptions) (*JobRecord, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("%w: owner id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(fileName) == "" {
		return nil, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}

	return &JobRecord{
		ID:                uuid.NewString(),
		OwnerID:           ownerID,
		Title:             TitleFromFileName(fileName),
		OriginalFileName:  fileName,
		Status:            JobStatusPending,
		Format:            format,
		Resolution:        resolution,
		Options:           options,
		OriginalSizeBytes: sizeBytes,
		SizeBytes:         sizeBytes,
		DurationLabel:     "00:00",
		SubmittedAt:       time.Now().UTC(),
	}, nil
}

// TitleFromFileName turns "product_demo.mp4" into "product demo".
func TitleFromFileName(fileName string) string {
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	return strings.NewReplacer("_", " ", "-", " ").Replace(base)
}

// SizeLabel renders the current size as a human-readable string.
func (j *JobRecord) SizeLabel() string {
	return humanize.Bytes(uint64(j.SizeBytes))
}

// VisibleTo reports whether the record is listed for the given caller.
func (j *JobRecord) VisibleTo(caller Identity) bool {
	return caller.IsAdmin() || j.OwnerID == caller.ID
}

// Clone returns a deep copy so callers can read records without holding the
// store's lock.
func (j *JobRecord) Clone() *JobRecord {
	c := *j
	if j.Options != nil {
		opts := *j.Options
		c.Options = &opts
	}
	if j.ThumbnailSet != nil {
		c.ThumbnailSet = append([]string(nil), j.ThumbnailSet...)
	}
	return &c
}
