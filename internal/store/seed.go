package store

import (
	"time"

	"vidmill/internal/domain"
)

// sampleJobs returns the demo records installed when the persistence adapter
// comes up empty, so a fresh install has something on the dashboard.
func sampleJobs() []*domain.JobRecord {
	return []*domain.JobRecord{
		{
			ID:                "1",
			OwnerID:           "2",
			Title:             "Product Demo",
			OriginalFileName:  "product_demo.mp4",
			ProcessedFileName: "product_demo_720p.mp4",
			Status:            domain.JobStatusCompleted,
			Format:            domain.FormatMP4,
			Resolution:        domain.Resolution720p,
			OriginalSizeBytes: 24_500_000,
			SizeBytes:         24_500_000,
			DurationLabel:     "2:45",
			SubmittedAt:       time.Date(2023, 10, 15, 10, 30, 0, 0, time.UTC),
			CompletedAt:       time.Date(2023, 10, 15, 10, 35, 0, 0, time.UTC),
			ShareLink:         "https://drive.google.com/file/d/sample-link-1/view",
		},
		{
			ID:                "2",
			OwnerID:           "2",
			Title:             "Training Session",
			OriginalFileName:  "training.mp4",
			Status:            domain.JobStatusProcessing,
			Format:            domain.FormatMP4,
			Resolution:        domain.Resolution1080p,
			OriginalSizeBytes: 155_200_000,
			SizeBytes:         155_200_000,
			DurationLabel:     "18:22",
			SubmittedAt:       time.Date(2023, 10, 16, 14, 20, 0, 0, time.UTC),
		},
		{
			ID:                "3",
			OwnerID:           "1",
			Title:             "Company Presentation",
			OriginalFileName:  "presentation.avi",
			ProcessedFileName: "company_presentation_720p.mp4",
			Status:            domain.JobStatusCompleted,
			Format:            domain.FormatMP4,
			Resolution:        domain.Resolution720p,
			OriginalSizeBytes: 85_700_000,
			SizeBytes:         85_700_000,
			DurationLabel:     "10:15",
			SubmittedAt:       time.Date(2023, 10, 14, 9, 15, 0, 0, time.UTC),
			CompletedAt:       time.Date(2023, 10, 14, 9, 25, 0, 0, time.UTC),
			ShareLink:         "https://drive.google.com/file/d/sample-link-2/view",
		},
		{
			ID:                "4",
			OwnerID:           "1",
			Title:             "Customer Testimonial",
			OriginalFileName:  "testimonial.mkv",
			ProcessedFileName: "customer_testimonial_480p.mp4",
			Status:            domain.JobStatusCompleted,
			Format:            domain.FormatMP4,
			Resolution:        domain.Resolution480p,
			OriginalSizeBytes: 18_300_000,
			SizeBytes:         18_300_000,
			DurationLabel:     "3:45",
			SubmittedAt:       time.Date(2023, 10, 13, 16, 40, 0, 0, time.UTC),
			CompletedAt:       time.Date(2023, 10, 13, 16, 45, 0, 0, time.UTC),
			ShareLink:         "https://drive.google.com/file/d/sample-link-3/view",
		},
		{
			ID:                "5",
			OwnerID:           "2",
			Title:             "Project Overview",
			OriginalFileName:  "project.mp4",
			Status:            domain.JobStatusPending,
			Format:            domain.FormatMP4,
			Resolution:        domain.Resolution1080p,
			OriginalSizeBytes: 210_600_000,
			SizeBytes:         210_600_000,
			DurationLabel:     "25:18",
			SubmittedAt:       time.Date(2023, 10, 17, 11, 10, 0, 0, time.UTC),
		},
	}
}
