// Package sqlite persists the job collection in a SQLite database. Each
// SaveAll replaces the whole table inside one transaction, matching the
// snapshot contract of the persistence port.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"

	"vidmill/internal/domain"
	"vidmill/internal/port"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db *sql.DB
}

var hookOnce sync.Once

func registerHook() {
	hookOnce.Do(func() {
		sqlite.RegisterConnectionHook(func(conn sqlite.ExecQuerierContext, dsn string) error {
			pragmas := []string{
				"PRAGMA journal_mode = WAL",
				"PRAGMA busy_timeout = 5000",
				"PRAGMA synchronous = NORMAL",
			}
			for _, p := range pragmas {
				if _, err := conn.ExecContext(context.Background(), p, nil); err != nil {
					return fmt.Errorf("execute %s: %w", p, err)
				}
			}
			return nil
		})
	})
}

func NewStore(dataDir string) (*Store, error) {
	registerHook()

	db, err := sql.Open("sqlite", filepath.Join(dataDir, "vidmill.db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL allows concurrent reads but only one writer.
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) LoadAll() ([]*domain.JobRecord, error) {
	rows, err := s.db.Query(`SELECT id, owner_id, title, original_file_name, processed_file_name,
		status, format, resolution, options, original_size_bytes, size_bytes, duration_label,
		submitted_at, completed_at, share_link, thumbnail_set, subtitle_ref FROM jobs`)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.JobRecord
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *Store) SaveAll(jobs []*domain.JobRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM jobs`); err != nil {
		return fmt.Errorf("clear jobs: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO jobs (id, owner_id, title, original_file_name,
		processed_file_name, status, format, resolution, options, original_size_bytes,
		size_bytes, duration_label, submitted_at, completed_at, share_link, thumbnail_set,
		subtitle_ref) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, job := range jobs {
		options, err := encodeJSON(job.Options)
		if err != nil {
			return fmt.Errorf("encode options for %s: %w", job.ID, err)
		}
		thumbnails, err := encodeJSON(job.ThumbnailSet)
		if err != nil {
			return fmt.Errorf("encode thumbnails for %s: %w", job.ID, err)
		}

		var completedAt any
		if !job.CompletedAt.IsZero() {
			completedAt = job.CompletedAt
		}

		if _, err := stmt.Exec(job.ID, job.OwnerID, job.Title, job.OriginalFileName,
			job.ProcessedFileName, string(job.Status), string(job.Format), string(job.Resolution),
			options, job.OriginalSizeBytes, job.SizeBytes, job.DurationLabel,
			job.SubmittedAt, completedAt, job.ShareLink, thumbnails, job.SubtitleRef); err != nil {
			return fmt.Errorf("insert job %s: %w", job.ID, err)
		}
	}

	return tx.Commit()
}

func scanJob(rows *sql.Rows) (*domain.JobRecord, error) {
	var (
		job         domain.JobRecord
		options     string
		thumbnails  string
		completedAt sql.NullTime
	)
	if err := rows.Scan(&job.ID, &job.OwnerID, &job.Title, &job.OriginalFileName,
		&job.ProcessedFileName, &job.Status, &job.Format, &job.Resolution, &options,
		&job.OriginalSizeBytes, &job.SizeBytes, &job.DurationLabel, &job.SubmittedAt,
		&completedAt, &job.ShareLink, &thumbnails, &job.SubtitleRef); err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if completedAt.Valid {
		job.CompletedAt = completedAt.Time.UTC()
	}
	job.SubmittedAt = job.SubmittedAt.UTC()
	if options != "" {
		job.Options = &domain.ProcessingOptions{}
		if err := json.Unmarshal([]byte(options), job.Options); err != nil {
			return nil, fmt.Errorf("decode options for %s: %w", job.ID, err)
		}
	}
	if thumbnails != "" {
		if err := json.Unmarshal([]byte(thumbnails), &job.ThumbnailSet); err != nil {
			return nil, fmt.Errorf("decode thumbnails for %s: %w", job.ID, err)
		}
	}
	return &job, nil
}

// encodeJSON renders v as JSON, or "" when v is a nil pointer/slice.
func encodeJSON(v any) (string, error) {
	switch val := v.(type) {
	case *domain.ProcessingOptions:
		if val == nil {
			return "", nil
		}
	case []string:
		if val == nil {
			return "", nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

var _ port.Persistence = (*Store)(nil)
