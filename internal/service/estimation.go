package service

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/wm2snap/migrator/internal/estimation"
	"github.com/wm2snap/migrator/internal/estimation/calculators"
	"github.com/wm2snap/migrator/internal/store"
	"github.com/wm2snap/migrator/internal/store/model"
	"github.com/wm2snap/migrator/pkg/log"
	"github.com/wm2snap/migrator/pkg/metrics"
)

// EstimationService owns the in-memory migration history and runs it through
// the estimation Engine. The history is loaded once from the store; every
// recorded migration is appended to the store first and to memory second.
type EstimationService struct {
	history store.History
	engine  *estimation.Engine
	logger  *log.StructuredLogger

	mu      sync.RWMutex
	records []model.MigrationRecord
}

// NewEstimationService loads the history and registers the default calculators.
func NewEstimationService(ctx context.Context, history store.History) (*EstimationService, error) {
	records, err := history.List(ctx)
	if err != nil {
		return nil, err
	}

	return &EstimationService{
		history: history,
		engine:  calculators.NewDefaultEngine(),
		logger:  log.NewDebugLogger("estimation_service"),
		records: records,
	}, nil
}

// Estimate predicts the migration duration of an archive of sizeMB megabytes.
func (es *EstimationService) Estimate(ctx context.Context, sizeMB float64) (estimation.Estimation, error) {
	tracer := es.logger.WithContext(ctx).
		Operation("estimate").
		WithFloat("file_size_mb", sizeMB).
		Build()

	samples := es.samples()
	tracer.Step("history_loaded").WithInt("records", len(samples)).Log()

	result, err := es.engine.Run([]estimation.Param{
		{Key: estimation.ParamFileSizeMB, Value: sizeMB},
		{Key: estimation.ParamHistory, Value: samples},
	})
	if err != nil {
		tracer.Error(err).Log()
		return estimation.Estimation{}, err
	}

	metrics.IncreaseEstimatesTotalMetric(string(result.Method))

	tracer.Success().
		WithString("method", string(result.Method)).
		WithString("confidence", string(result.Confidence)).
		WithFloat("estimated_seconds", result.EstimatedSeconds).
		Log()

	return result, nil
}

func (es *EstimationService) Statistics(_ context.Context) (estimation.Statistics, error) {
	return estimation.ComputeStatistics(es.samples()), nil
}

// History returns the records in insertion order.
func (es *EstimationService) History(_ context.Context) ([]model.MigrationRecord, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return slices.Clone(es.records), nil
}

// Record persists a completed migration. Memory is only updated once the store accepted it.
func (es *EstimationService) Record(ctx context.Context, record model.MigrationRecord) (model.MigrationRecord, error) {
	tracer := es.logger.WithContext(ctx).
		Operation("record_migration").
		WithString("project_name", record.ProjectName).
		WithFloat("file_size_mb", record.FileSizeMB).
		WithFloat("duration_seconds", record.DurationSeconds).
		Build()

	stored, err := es.history.Append(ctx, record)
	if err != nil {
		tracer.Error(err).Log()
		return model.MigrationRecord{}, fmt.Errorf("failed to record migration %s: %w", record.ProjectName, err)
	}

	es.mu.Lock()
	es.records = append(es.records, stored)
	total := len(es.records)
	es.mu.Unlock()

	tracer.Success().WithInt("total_records", total).Log()

	return stored, nil
}

func (es *EstimationService) samples() []estimation.Sample {
	es.mu.RLock()
	defer es.mu.RUnlock()

	samples := make([]estimation.Sample, 0, len(es.records))
	for _, r := range es.records {
		samples = append(samples, estimation.Sample{SizeMB: r.FileSizeMB, DurationSeconds: r.DurationSeconds})
	}
	return samples
}
