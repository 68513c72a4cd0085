// Package artifact derives the output metadata written onto a job when a
// processing run completes. Generation is pure with respect to the job: it
// reads the requested options and returns values, nothing else.
package artifact

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"strings"

	"vidmill/internal/domain"
)

// CompressionRatio is the size factor applied when compression is requested.
// It always applies to the original upload size, so repeated reprocessing
// with compression enabled does not compound the shrinkage.
const CompressionRatio = 0.7

// ThumbnailCount is the fixed number of preview images per job.
const ThumbnailCount = 3

// Outputs is everything a completed transition writes onto the record.
type Outputs struct {
	ProcessedFileName string
	SizeBytes         int64
	ShareLink         string
	ThumbnailSet      []string
	SubtitleRef       string
}

// Generator builds placeholder artifact locators. The external services the
// locators point at (drive storage, subtitle host, thumbnail CDN) are modeled
// as black boxes; only the shape of their output matters here.
type Generator struct {
	ShareBaseURL     string
	ThumbnailBaseURL string
	SubtitleBaseURL  string
}

func NewGenerator(shareBase, thumbnailBase, subtitleBase string) *Generator {
	return &Generator{
		ShareBaseURL:     strings.TrimSuffix(shareBase, "/"),
		ThumbnailBaseURL: strings.TrimSuffix(thumbnailBase, "/"),
		SubtitleBaseURL:  strings.TrimSuffix(subtitleBase, "/"),
	}
}

// Generate derives the artifacts for one completed run of a job. The size is
// recomputed from the original upload size, a fresh share link is produced on
// every call, and thumbnail/subtitle references appear only when their flags
// are set. Noise reduction is recorded on the job for display but produces no
// structural output.
func (g *Generator) Generate(job *domain.JobRecord) Outputs {
	out := Outputs{
		ProcessedFileName: processedFileName(job),
		SizeBytes:         job.OriginalSizeBytes,
		ShareLink:         fmt.Sprintf("%s/file/d/%s/view", g.ShareBaseURL, shareToken()),
	}

	opts := job.Options
	if opts == nil {
		return out
	}

	if opts.Compression {
		out.SizeBytes = int64(float64(job.OriginalSizeBytes) * CompressionRatio)
	}
	if opts.Thumbnails {
		color := thumbnailColor()
		out.ThumbnailSet = make([]string, 0, ThumbnailCount)
		for i := 1; i <= ThumbnailCount; i++ {
			out.ThumbnailSet = append(out.ThumbnailSet,
				fmt.Sprintf("%s/600x400/%s/ffffff?text=Thumbnail+%d", g.ThumbnailBaseURL, color, i))
		}
	}
	if opts.Subtitles {
		out.SubtitleRef = fmt.Sprintf("%s/%s.vtt", g.SubtitleBaseURL, job.ID)
	}

	return out
}

func processedFileName(job *domain.JobRecord) string {
	base := strings.ReplaceAll(strings.ToLower(job.Title), " ", "_")
	return fmt.Sprintf("%s_%s.%s", base, job.Resolution, job.Format)
}

// shareToken produces the opaque path segment of a share link.
func shareToken() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b))
}

// thumbnailColor picks the background color shared by one run's thumbnails.
func thumbnailColor() string {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
