// Package jsonfile persists the job collection as a single JSON array on
// disk. Writes go to a temp file first and are swapped in with a rename.
package jsonfile

import (
	"encoding/json"
	"os"
	"path/filepath"

	"vidmill/internal/domain"
	"vidmill/internal/port"
)

type Store struct {
	path string
}

func NewStore(dataDir string) *Store {
	return &Store{path: filepath.Join(dataDir, "jobs.json")}
}

func (s *Store) LoadAll() ([]*domain.JobRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var jobs []*domain.JobRecord
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (s *Store) SaveAll(jobs []*domain.JobRecord) error {
	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}

var _ port.Persistence = (*Store)(nil)
