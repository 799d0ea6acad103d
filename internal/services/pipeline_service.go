package services

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"tourism-forecast/internal/collector"
	"tourism-forecast/internal/config"
	"tourism-forecast/internal/export"
	"tourism-forecast/internal/modeling"
	"tourism-forecast/internal/models"
	"tourism-forecast/internal/preprocess"
	"tourism-forecast/internal/repository"
	"tourism-forecast/internal/storage"
	"tourism-forecast/pkg/logging"
	"tourism-forecast/pkg/metrics"
)

// Pipeline stages
const (
	StageCollect    = "collect"
	StagePreprocess = "preprocess"
	StageTrain      = "train"
)

// PipelineResult contains the outcome of each stage that ran
type PipelineResult struct {
	RunID      string                    `json:"run_id"`
	Collect    *collector.Result         `json:"collect,omitempty"`
	Preprocess *models.PreprocessSummary `json:"preprocess,omitempty"`
	Train      *models.MetricsReport     `json:"train,omitempty"`
	ExportPath string                    `json:"export_path,omitempty"`
	Duration   time.Duration             `json:"duration"`
}

// PipelineService runs the collect, preprocess and train stages in order
type PipelineService struct {
	cfg       *config.Config
	raw       *storage.RawStore
	artifacts *storage.ArtifactStore
	repo      repository.ArrivalRepository
	collector *collector.Collector
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
}

// NewPipelineService wires the stages from configuration. repo may be nil
// when the database mirror is disabled.
func NewPipelineService(cfg *config.Config, repo repository.ArrivalRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *PipelineService {
	raw := storage.NewRawStore(cfg.Paths.RawFile())
	c := collector.NewCollector(cfg, raw, logger, metricsCollector)
	if repo != nil {
		c.WithMirror(repo)
	}
	return &PipelineService{
		cfg:       cfg,
		raw:       raw,
		artifacts: storage.NewArtifactStore(cfg.Paths.ArtifactFile(), cfg.Paths.ReportFile()),
		repo:      repo,
		collector: c,
		logger:    logger,
		metrics:   metricsCollector,
	}
}

// Collector exposes the collector so callers can add sources
func (s *PipelineService) Collector() *collector.Collector {
	return s.collector
}

// Artifacts returns the artifact store
func (s *PipelineService) Artifacts() *storage.ArtifactStore {
	return s.artifacts
}

// Collect appends newly fetched records to the raw store
func (s *PipelineService) Collect(ctx context.Context, runID string) (*collector.Result, error) {
	return s.collector.Collect(ctx, runID)
}

// Preprocess rebuilds the processed dataset and exports it as xlsx when
// enabled. The returned path is empty when nothing was exported.
func (s *PipelineService) Preprocess(ctx context.Context) (*models.PreprocessSummary, string, error) {
	p := preprocess.NewPreprocessor(s.cfg.Preprocess, s.logger, s.metrics)
	summary, err := p.Run(ctx, s.raw, s.cfg.Paths.ProcessedFile())
	if err != nil {
		return nil, "", err
	}
	if !s.cfg.Preprocess.ExportXLSX {
		return summary, "", nil
	}

	path := filepath.Join(s.cfg.Paths.ExportsDir, "arrivals_processed.xlsx")
	records, err := storage.ReadProcessed(s.cfg.Paths.ProcessedFile())
	if err == nil {
		err = export.Processed(path, records)
	}
	if err != nil {
		// the processed CSV is already in place; a failed export is not fatal
		s.logger.Warn(ctx, "[PIPELINE_EXPORT_ERROR] Failed to export processed dataset", logging.Fields{
			"path":  path,
			"error": err.Error(),
			"stage": "EXPORT",
		})
		return summary, "", nil
	}
	return summary, path, nil
}

// Train fits the candidates and replaces the artifact
func (s *PipelineService) Train(ctx context.Context, runID string) (*modeling.Outcome, error) {
	t := modeling.NewTrainer(s.cfg.Modeling, s.logger, s.metrics)
	if s.repo != nil {
		t.WithRecorder(s.repo)
	}
	return t.Run(ctx, s.cfg.Paths.ProcessedFile(), s.artifacts, runID)
}

// Run executes the stages not listed in skip, in order. The first fatal
// stage error stops the run.
func (s *PipelineService) Run(ctx context.Context, skip map[string]bool) (*PipelineResult, error) {
	startTime := time.Now()
	result := &PipelineResult{RunID: uuid.NewString()}
	ctx = logging.WithRunID(ctx, result.RunID)

	s.logger.Info(ctx, "[PIPELINE_START] Starting pipeline run", logging.Fields{
		"run_id":  result.RunID,
		"skipped": skippedStages(skip),
		"stage":   "INITIALIZATION",
	})

	if err := s.cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	if !skip[StageCollect] {
		res, err := s.Collect(ctx, result.RunID)
		if err != nil {
			return nil, fmt.Errorf("collect stage failed: %w", err)
		}
		result.Collect = res
	}

	if !skip[StagePreprocess] {
		summary, path, err := s.Preprocess(ctx)
		if err != nil {
			return nil, fmt.Errorf("preprocess stage failed: %w", err)
		}
		result.Preprocess = summary
		result.ExportPath = path
	}

	if !skip[StageTrain] {
		out, err := s.Train(ctx, result.RunID)
		if err != nil {
			return nil, fmt.Errorf("train stage failed: %w", err)
		}
		result.Train = out.Report
	}

	result.Duration = time.Since(startTime)
	s.logger.Info(ctx, "[PIPELINE_COMPLETE] Pipeline run completed", logging.Fields{
		"run_id":           result.RunID,
		"duration_seconds": result.Duration.Seconds(),
		"stage":            "COMPLETE",
	})
	return result, nil
}

func skippedStages(skip map[string]bool) []string {
	var out []string
	for _, st := range []string{StageCollect, StagePreprocess, StageTrain} {
		if skip[st] {
			out = append(out, st)
		}
	}
	return out
}
