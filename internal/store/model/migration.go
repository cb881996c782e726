package model

import (
	"fmt"
	"time"
)

// MigrationRecord is one completed migration. Records are append-only.
type MigrationRecord struct {
	ID              uint      `json:"-" yaml:"-" gorm:"primaryKey;autoIncrement"`
	ProjectName     string    `json:"project_name" yaml:"project_name" gorm:"not null"`
	FileSizeMB      float64   `json:"file_size_mb" yaml:"file_size_mb" gorm:"not null"`
	DurationSeconds float64   `json:"duration_seconds" yaml:"duration_seconds" gorm:"not null"`
	Timestamp       time.Time `json:"timestamp" yaml:"timestamp" gorm:"not null"`
}

func (MigrationRecord) TableName() string {
	return "migration_records"
}

// Validate reports the first field that breaks the record invariants.
func (r MigrationRecord) Validate() error {
	switch {
	case r.ProjectName == "":
		return fmt.Errorf("project_name is empty")
	case r.FileSizeMB < 0:
		return fmt.Errorf("file_size_mb is negative: %v", r.FileSizeMB)
	case r.DurationSeconds < 0:
		return fmt.Errorf("duration_seconds is negative: %v", r.DurationSeconds)
	}
	return nil
}

func (r MigrationRecord) String() string {
	return fmt.Sprintf("%s (%.2f MB, %.1fs)", r.ProjectName, r.FileSizeMB, r.DurationSeconds)
}
