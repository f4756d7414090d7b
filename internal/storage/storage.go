package storage

import (
	"path/filepath"

	"testme/internal/config"
	"testme/internal/domain"
)

// ResultsFileName is the report written after every run
const ResultsFileName = "results.json"

// Storage persists and loads the report of the last run (e.g. for --browse).
type Storage interface {
	Save(report *domain.Report) error
	Load() (*domain.Report, error)
}

// JSONStorage stores the report as JSON in the artifact directory of the root.
type JSONStorage struct {
	path string
}

// NewJSONStorage returns a Storage that reads and writes
// <root>/.testme/results.json.
func NewJSONStorage(root string) *JSONStorage {
	return &JSONStorage{path: filepath.Join(root, config.ArtifactDirName, ResultsFileName)}
}

// Path returns the report location
func (s *JSONStorage) Path() string {
	return s.path
}
