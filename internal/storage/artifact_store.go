package storage

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"tourism-forecast/internal/models"
)

// WriteJSON atomically replaces path with the indented JSON encoding of v
func WriteJSON(path string, v interface{}) error {
	return WriteFileAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

// ReadJSON decodes path into v. A missing file is a NotFoundError.
func ReadJSON(path, resource string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &models.NotFoundError{Resource: resource, ID: path}
		}
		return fmt.Errorf("failed to read %s: %w", resource, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", resource, err)
	}
	return nil
}

// ArtifactStore persists the current model artifact and its metrics report
type ArtifactStore struct {
	artifactPath string
	reportPath   string
}

// NewArtifactStore creates an artifact store
func NewArtifactStore(artifactPath, reportPath string) *ArtifactStore {
	return &ArtifactStore{artifactPath: artifactPath, reportPath: reportPath}
}

// ArtifactPath returns the artifact location
func (s *ArtifactStore) ArtifactPath() string { return s.artifactPath }

// ReportPath returns the metrics report location
func (s *ArtifactStore) ReportPath() string { return s.reportPath }

// Save replaces the artifact, then the report. The artifact is written
// first so a report never describes an artifact that does not exist.
func (s *ArtifactStore) Save(artifact *models.ModelArtifact, report *models.MetricsReport) error {
	if err := WriteJSON(s.artifactPath, artifact); err != nil {
		return fmt.Errorf("failed to save model artifact: %w", err)
	}
	if report == nil {
		return nil
	}
	if err := WriteJSON(s.reportPath, report); err != nil {
		return fmt.Errorf("failed to save metrics report: %w", err)
	}
	return nil
}

// LoadArtifact reads the current artifact
func (s *ArtifactStore) LoadArtifact() (*models.ModelArtifact, error) {
	var a models.ModelArtifact
	if err := ReadJSON(s.artifactPath, "model artifact", &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// LoadReport reads the current metrics report
func (s *ArtifactStore) LoadReport() (*models.MetricsReport, error) {
	var r models.MetricsReport
	if err := ReadJSON(s.reportPath, "metrics report", &r); err != nil {
		return nil, err
	}
	return &r, nil
}
