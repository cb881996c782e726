package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wm2snap/migrator/internal/client"
	"github.com/wm2snap/migrator/internal/events"
	"github.com/wm2snap/migrator/internal/service/validator"
	"github.com/wm2snap/migrator/internal/store/model"
	"github.com/wm2snap/migrator/pkg/log"
	"github.com/wm2snap/migrator/pkg/metrics"
	"github.com/wm2snap/migrator/pkg/requestid"
)

type Status string

const (
	StatusIdle       Status = "idle"
	StatusValidating Status = "validating"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

const MsgMigrationCompleted = "Migration completed successfully!"

// Upload is an archive submitted for migration.
type Upload struct {
	FileName  string `validate:"required,zip_name"`
	SizeBytes int64  `validate:"upload_size"`
	Payload   []byte `validate:"-"`
}

func NewUpload(fileName string, payload []byte) *Upload {
	return &Upload{FileName: fileName, SizeBytes: int64(len(payload)), Payload: payload}
}

func (u *Upload) SizeMB() float64 {
	return float64(u.SizeBytes) / (1024 * 1024)
}

// ProjectName is the archive file name without its .zip suffix.
func ProjectName(fileName string) string {
	return strings.TrimSuffix(fileName, validator.ArchiveExtension)
}

// Migration is the state of the current (or last) migration attempt.
type Migration struct {
	ProjectName     string     `json:"project_name,omitempty"`
	Status          Status     `json:"status"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	DurationSeconds float64    `json:"duration_seconds,omitempty"`
	Message         string     `json:"message,omitempty"`
}

// Outcome is the result of one Run.
type Outcome struct {
	Migration
	Response json.RawMessage        `json:"response,omitempty"`
	Record   *model.MigrationRecord `json:"record,omitempty"`
	Warning  string                 `json:"warning,omitempty"`
	Err      error                  `json:"-"`
}

// Migrator performs the remote migration call.
type Migrator interface {
	Migrate(ctx context.Context, projectName string, payload []byte) (*client.MigrationResponse, error)
}

// Recorder persists completed migrations.
type Recorder interface {
	Record(ctx context.Context, record model.MigrationRecord) (model.MigrationRecord, error)
}

// EventPublisher receives one JSON event per finished migration.
type EventPublisher interface {
	Write(ctx context.Context, kind string, body io.Reader) error
}

// MigrationService drives one migration at a time from validation to the recorded outcome.
type MigrationService struct {
	migrator  Migrator
	recorder  Recorder
	validator *validator.Validator
	events    EventPublisher
	logger    *log.StructuredLogger
	now       func() time.Time

	running atomic.Bool
	mu      sync.RWMutex
	current Migration
}

func NewMigrationService(migrator Migrator, recorder Recorder) *MigrationService {
	v := validator.NewValidator()
	v.Register(validator.NewUploadValidationRules()...)

	return &MigrationService{
		migrator:  migrator,
		recorder:  recorder,
		validator: v,
		logger:    log.NewDebugLogger("migration_service"),
		now:       time.Now,
		current:   Migration{Status: StatusIdle},
	}
}

// WithEventPublisher publishes a lifecycle event after every completed or failed migration.
func (ms *MigrationService) WithEventPublisher(p EventPublisher) *MigrationService {
	ms.events = p
	return ms
}

// Validate checks the upload without side effects.
func (ms *MigrationService) Validate(upload *Upload) error {
	if upload == nil {
		return NewErrValidation(MsgMissingFile)
	}

	err := ms.validator.Struct(upload)
	if err == nil {
		return nil
	}

	tag, ok := validator.FailedTag(err)
	if !ok {
		return NewErrUnexpected(err)
	}

	switch tag {
	case validator.TagZipName:
		return NewErrValidation(MsgInvalidFileType)
	case validator.TagUploadSize:
		return NewErrValidation(MsgFileTooLarge)
	default:
		return NewErrValidation(MsgMissingFile)
	}
}

// Run validates and migrates the upload. It blocks until the migration API answers.
// A second Run while one is in flight fails immediately with ErrMigrationInProgress.
func (ms *MigrationService) Run(ctx context.Context, upload *Upload) *Outcome {
	if !ms.running.CompareAndSwap(false, true) {
		err := NewErrMigrationInProgress(ms.Current().ProjectName)
		metrics.IncreaseMigrationsTotalMetric("rejected")
		return &Outcome{
			Migration: Migration{Status: StatusFailed, Message: UserMessage(err)},
			Err:       err,
		}
	}
	defer ms.running.Store(false)

	tracer := ms.logger.WithContext(ctx).Operation("run_migration").Build()

	ms.setCurrent(Migration{Status: StatusValidating})

	if err := ms.Validate(upload); err != nil {
		tracer.Error(err).Log()
		return ms.fail(ctx, Migration{}, 0, err)
	}

	projectName := ProjectName(upload.FileName)
	if projectName == "" {
		err := NewErrInvalidProjectName()
		tracer.Error(err).Log()
		return ms.fail(ctx, Migration{}, upload.SizeMB(), err)
	}

	startedAt := ms.now()
	state := Migration{ProjectName: projectName, Status: StatusInProgress, StartedAt: &startedAt}
	ms.setCurrent(state)

	tracer.Step("dispatch").
		WithString("project_name", projectName).
		WithFloat("file_size_mb", upload.SizeMB()).
		Log()

	resp, err := ms.migrator.Migrate(ctx, projectName, upload.Payload)
	state.DurationSeconds = ms.now().Sub(startedAt).Seconds()
	if err != nil {
		err = classifyMigrateError(err)
		tracer.Error(err).WithFloat("duration_seconds", state.DurationSeconds).Log()
		return ms.fail(ctx, state, upload.SizeMB(), err)
	}

	outcome := &Outcome{Response: resp.Body}

	record, recErr := ms.recorder.Record(ctx, model.MigrationRecord{
		ProjectName:     projectName,
		FileSizeMB:      upload.SizeMB(),
		DurationSeconds: state.DurationSeconds,
	})
	if recErr != nil {
		outcome.Warning = UserMessage(recErr)
		tracer.Step("record_failed").WithString("warning", recErr.Error()).Log()
	} else {
		outcome.Record = &record
	}

	state.Status = StatusCompleted
	state.Message = MsgMigrationCompleted
	outcome.Migration = state
	ms.setCurrent(state)

	metrics.IncreaseMigrationsTotalMetric(string(StatusCompleted))
	metrics.ObserveMigrationDurationMetric(state.DurationSeconds)
	ms.publish(ctx, events.MigrationCompletedKind, state, upload.SizeMB())

	tracer.Success().
		WithString("project_name", projectName).
		WithFloat("duration_seconds", state.DurationSeconds).
		WithBool("recorded", recErr == nil).
		Log()

	return outcome
}

// Current returns the state of the last migration attempt.
func (ms *MigrationService) Current() Migration {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.current
}

// Clear resets the current migration to idle. It is refused while a migration runs.
func (ms *MigrationService) Clear() error {
	if ms.running.Load() {
		return NewErrMigrationInProgress(ms.Current().ProjectName)
	}
	ms.setCurrent(Migration{Status: StatusIdle})
	return nil
}

func (ms *MigrationService) fail(ctx context.Context, state Migration, sizeMB float64, err error) *Outcome {
	state.Status = StatusFailed
	state.Message = UserMessage(err)
	ms.setCurrent(state)

	metrics.IncreaseMigrationsTotalMetric(string(StatusFailed))
	ms.publish(ctx, events.MigrationFailedKind, state, sizeMB)

	return &Outcome{Migration: state, Err: err}
}

// publish never fails the migration, delivery errors are only logged.
func (ms *MigrationService) publish(ctx context.Context, kind string, state Migration, sizeMB float64) {
	if ms.events == nil {
		return
	}

	body, err := json.Marshal(events.MigrationEvent{
		ProjectName:     state.ProjectName,
		Status:          string(state.Status),
		FileSizeMB:      sizeMB,
		DurationSeconds: state.DurationSeconds,
		Message:         state.Message,
		RequestID:       requestid.FromContext(ctx),
	})
	if err == nil {
		err = ms.events.Write(ctx, kind, bytes.NewReader(body))
	}
	if err != nil {
		ms.logger.WithContext(ctx).Operation("publish_event").Build().Error(err).WithString("kind", kind).Log()
	}
}

func (ms *MigrationService) setCurrent(m Migration) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.current = m
}

func classifyMigrateError(err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return NewErrAPI(apiErr)
	}

	// *url.Error is a net.Error, including its parse failures
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Op == "parse" {
		return NewErrUnexpected(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewErrNetwork(err)
	}

	return NewErrUnexpected(err)
}
