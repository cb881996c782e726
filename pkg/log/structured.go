package log

import (
	"context"
	"time"

	"github.com/wm2snap/migrator/pkg/requestid"
	"go.uber.org/zap"
)

// StructuredLogger emits one log line per operation step with a consistent set of fields.
// Lines are written at debug level except errors.
type StructuredLogger struct {
	name   string
	fields []zap.Field
}

// NewDebugLogger returns a StructuredLogger writing through the global zap logger under name.
func NewDebugLogger(name string) *StructuredLogger {
	return &StructuredLogger{name: name}
}

// WithContext attaches the request id found in ctx, if any.
func (l *StructuredLogger) WithContext(ctx context.Context) *StructuredLogger {
	fields := append([]zap.Field{}, l.fields...)
	if id := requestid.FromContext(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	return &StructuredLogger{name: l.name, fields: fields}
}

// Operation starts building a tracer for the named operation.
func (l *StructuredLogger) Operation(op string) *OperationBuilder {
	fields := append([]zap.Field{}, l.fields...)
	fields = append(fields, zap.String("operation", op))
	return &OperationBuilder{logger: l, fields: fields}
}

// OperationBuilder collects the fields shared by every line of an operation.
type OperationBuilder struct {
	logger *StructuredLogger
	fields []zap.Field
}

func (b *OperationBuilder) WithString(key, value string) *OperationBuilder {
	b.fields = append(b.fields, zap.String(key, value))
	return b
}

func (b *OperationBuilder) WithInt(key string, value int) *OperationBuilder {
	b.fields = append(b.fields, zap.Int(key, value))
	return b
}

func (b *OperationBuilder) WithFloat(key string, value float64) *OperationBuilder {
	b.fields = append(b.fields, zap.Float64(key, value))
	return b
}

func (b *OperationBuilder) Build() *OperationTracer {
	return &OperationTracer{
		logger: zap.L().Named(b.logger.name),
		fields: b.fields,
		start:  time.Now(),
	}
}

// OperationTracer logs steps, success and failure of a single operation.
type OperationTracer struct {
	logger *zap.Logger
	fields []zap.Field
	start  time.Time
}

func (t *OperationTracer) Step(step string) *LogEntry {
	return t.entry("step", zap.String("step", step))
}

func (t *OperationTracer) Success() *LogEntry {
	return t.entry("success", zap.Duration("elapsed", time.Since(t.start)))
}

func (t *OperationTracer) Error(err error) *LogEntry {
	e := t.entry("error", zap.Error(err), zap.Duration("elapsed", time.Since(t.start)))
	e.isError = true
	return e
}

func (t *OperationTracer) entry(msg string, extra ...zap.Field) *LogEntry {
	fields := append([]zap.Field{}, t.fields...)
	return &LogEntry{logger: t.logger, msg: msg, fields: append(fields, extra...)}
}

// LogEntry is a single pending log line. Nothing is written until Log is called.
type LogEntry struct {
	logger  *zap.Logger
	msg     string
	fields  []zap.Field
	isError bool
}

func (e *LogEntry) WithString(key, value string) *LogEntry {
	e.fields = append(e.fields, zap.String(key, value))
	return e
}

func (e *LogEntry) WithInt(key string, value int) *LogEntry {
	e.fields = append(e.fields, zap.Int(key, value))
	return e
}

func (e *LogEntry) WithFloat(key string, value float64) *LogEntry {
	e.fields = append(e.fields, zap.Float64(key, value))
	return e
}

func (e *LogEntry) WithBool(key string, value bool) *LogEntry {
	e.fields = append(e.fields, zap.Bool(key, value))
	return e
}

func (e *LogEntry) WithDuration(key string, value time.Duration) *LogEntry {
	e.fields = append(e.fields, zap.Duration(key, value))
	return e
}

func (e *LogEntry) Log() {
	if e.isError {
		e.logger.Error(e.msg, e.fields...)
		return
	}
	e.logger.Debug(e.msg, e.fields...)
}
