package events

const (
	MigrationCompletedKind string = "wm2snap.migrations.events.completed"
	MigrationFailedKind    string = "wm2snap.migrations.events.failed"
)

// MigrationEvent is the payload published once a migration finishes.
type MigrationEvent struct {
	ProjectName     string  `json:"project_name"`
	Status          string  `json:"status"`
	FileSizeMB      float64 `json:"file_size_mb"`
	DurationSeconds float64 `json:"duration_seconds"`
	Message         string  `json:"message,omitempty"`
	RequestID       string  `json:"request_id,omitempty"`
}
