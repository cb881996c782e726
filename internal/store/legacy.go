package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/wm2snap/migrator/internal/store/model"
)

// DetailedSuffix names the side file older installs wrote the full records to
// when the main history file only held project names.
const DetailedSuffix = ".detailed"

// Older installs wrote naive ISO 8601 timestamps without a zone.
var legacyTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

type legacyRecord struct {
	ProjectName     string  `json:"project_name"`
	FileSizeMB      float64 `json:"file_size_mb"`
	DurationSeconds float64 `json:"duration_seconds"`
	Timestamp       string  `json:"timestamp"`
}

// ConvertLegacyHistory rewrites path into the canonical record array and returns the number of records kept.
// A names-only list is replaced by the records of its ".detailed" side file, or by an empty array
// when there is none.
func ConvertLegacyHistory(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read history %s: %w", path, err)
	}

	var raw []json.RawMessage
	if len(data) > 0 {
		if err := json.Unmarshal(data, &raw); err != nil {
			return 0, NewErrStoreCorrupt(path, err)
		}
	}

	source := path
	if len(raw) > 0 && isNamesOnly(raw) {
		source = path + DetailedSuffix
		raw = nil
		detailed, err := os.ReadFile(source)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return 0, fmt.Errorf("failed to read history %s: %w", source, err)
		default:
			if err := json.Unmarshal(detailed, &raw); err != nil {
				return 0, NewErrStoreCorrupt(source, err)
			}
		}
	}

	records := make([]model.MigrationRecord, 0, len(raw))
	for i, msg := range raw {
		record, err := parseLegacyRecord(msg)
		if err != nil {
			return 0, NewErrStoreCorrupt(source, fmt.Errorf("record %d: %w", i, err))
		}
		records = append(records, record)
	}

	if err := writeRecords(path, records); err != nil {
		return 0, NewErrStoreWrite(path, err)
	}

	return len(records), nil
}

func isNamesOnly(raw []json.RawMessage) bool {
	var name string
	return json.Unmarshal(raw[0], &name) == nil
}

func parseLegacyRecord(msg json.RawMessage) (model.MigrationRecord, error) {
	var lr legacyRecord
	if err := json.Unmarshal(msg, &lr); err != nil {
		return model.MigrationRecord{}, err
	}

	record := model.MigrationRecord{
		ProjectName:     lr.ProjectName,
		FileSizeMB:      lr.FileSizeMB,
		DurationSeconds: lr.DurationSeconds,
	}

	if lr.Timestamp != "" {
		ts, err := parseLegacyTime(lr.Timestamp)
		if err != nil {
			return model.MigrationRecord{}, err
		}
		record.Timestamp = ts
	}

	return record, record.Validate()
}

func parseLegacyTime(value string) (time.Time, error) {
	for _, layout := range legacyTimeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
}
