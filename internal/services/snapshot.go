package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"tourism-forecast/internal/models"
	"tourism-forecast/internal/storage"
	"tourism-forecast/pkg/logging"
	"tourism-forecast/pkg/metrics"
)

// Snapshot is an immutable view of the pipeline outputs. Any of the parts
// may be nil when the corresponding stage has not produced output yet.
type Snapshot struct {
	Records  []models.ProcessedRecord
	Artifact *models.ModelArtifact
	Report   *models.MetricsReport
	LoadedAt time.Time
}

// SnapshotStore holds the current snapshot and swaps it when the files on
// disk are replaced. Readers never see a partially loaded snapshot.
type SnapshotStore struct {
	processedPath string
	artifacts     *storage.ArtifactStore
	logger        *logging.StructuredLogger
	metrics       *metrics.Collector

	mu      sync.RWMutex
	current *Snapshot
}

// NewSnapshotStore creates a store; call Reload before serving
func NewSnapshotStore(processedPath string, artifacts *storage.ArtifactStore, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *SnapshotStore {
	return &SnapshotStore{
		processedPath: processedPath,
		artifacts:     artifacts,
		logger:        logger,
		metrics:       metricsCollector,
		current:       &Snapshot{},
	}
}

// Current returns the latest snapshot
func (s *SnapshotStore) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Reload reads all files and swaps the snapshot. Missing files leave the
// corresponding part nil; any other error keeps the previous snapshot.
func (s *SnapshotStore) Reload(ctx context.Context) error {
	next := &Snapshot{LoadedAt: time.Now().UTC()}

	records, err := storage.ReadProcessed(s.processedPath)
	switch {
	case err == nil:
		next.Records = records
	case models.IsNotFound(err):
	default:
		return s.reloadFailed(ctx, fmt.Errorf("failed to load processed dataset: %w", err))
	}

	artifact, err := s.artifacts.LoadArtifact()
	switch {
	case err == nil:
		next.Artifact = artifact
	case models.IsNotFound(err):
	default:
		return s.reloadFailed(ctx, fmt.Errorf("failed to load model artifact: %w", err))
	}

	report, err := s.artifacts.LoadReport()
	switch {
	case err == nil:
		next.Report = report
	case models.IsNotFound(err):
	default:
		return s.reloadFailed(ctx, fmt.Errorf("failed to load metrics report: %w", err))
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()

	s.metrics.SnapshotReloadsTotal.WithLabelValues("ok").Inc()
	s.logger.Info(ctx, "[SNAPSHOT_RELOAD] Snapshot loaded", logging.Fields{
		"records":      len(next.Records),
		"has_artifact": next.Artifact != nil,
		"stage":        "SNAPSHOT",
	})
	return nil
}

func (s *SnapshotStore) reloadFailed(ctx context.Context, err error) error {
	s.metrics.SnapshotReloadsTotal.WithLabelValues("error").Inc()
	s.logger.Error(ctx, "[SNAPSHOT_RELOAD_ERROR] Keeping previous snapshot", logging.Fields{
		"stage": "SNAPSHOT",
	}, err)
	return err
}

// Watch reloads the snapshot whenever one of the watched files is created
// or written. Directories are watched rather than files because atomic
// replacement swaps the inode. Watch blocks until ctx is done.
func (s *SnapshotStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	targets := map[string]bool{}
	for _, p := range []string{s.processedPath, s.artifacts.ArtifactPath(), s.artifacts.ReportPath()} {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		targets[abs] = true
	}
	dirs := map[string]bool{}
	for p := range targets {
		dir := filepath.Dir(p)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	const settle = 200 * time.Millisecond
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name, _ := filepath.Abs(event.Name)
			if !targets[name] || !event.Has(fsnotify.Create|fsnotify.Write|fsnotify.Rename) {
				continue
			}
			// a pipeline run replaces several files; reload once they settle
			pending = time.After(settle)
		case <-pending:
			pending = nil
			_ = s.Reload(ctx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn(ctx, "[SNAPSHOT_WATCH_ERROR] File watcher error", logging.Fields{
				"error": err.Error(),
				"stage": "SNAPSHOT",
			})
		}
	}
}
