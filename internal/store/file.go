package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/wm2snap/migrator/internal/store/model"
	"go.uber.org/zap"
)

var errLegacyHint = errors.New("run `migrator history migrate` to convert a legacy history file")

// FileHistory keeps the whole history as one JSON array on disk.
// The file is read once when the store is opened and rewritten on every append.
type FileHistory struct {
	path    string
	mu      sync.Mutex
	records []model.MigrationRecord
}

var _ History = (*FileHistory)(nil)

func NewFileHistory(path string) (*FileHistory, error) {
	records, err := readRecords(path)
	if err != nil {
		return nil, err
	}

	zap.S().Named("store").Infow("history file loaded", "path", path, "records", len(records))

	return &FileHistory{path: path, records: records}, nil
}

func (f *FileHistory) List(_ context.Context) ([]model.MigrationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.records), nil
}

func (f *FileHistory) Append(_ context.Context, record model.MigrationRecord) (model.MigrationRecord, error) {
	if err := record.Validate(); err != nil {
		return model.MigrationRecord{}, NewErrStoreWrite(f.path, err)
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC().Truncate(time.Second)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	next := append(slices.Clone(f.records), record)
	if err := writeRecords(f.path, next); err != nil {
		return model.MigrationRecord{}, NewErrStoreWrite(f.path, err)
	}
	f.records = next

	return record, nil
}

func (f *FileHistory) Close() error {
	return nil
}

func readRecords(path string) ([]model.MigrationRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.MigrationRecord{}, nil
		}
		return nil, fmt.Errorf("failed to read history %s: %w", path, err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, NewErrStoreCorrupt(path, errors.New("file is empty"))
	}

	var records []model.MigrationRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, NewErrStoreCorrupt(path, fmt.Errorf("%w: %w", err, errLegacyHint))
	}
	if records == nil {
		return []model.MigrationRecord{}, nil
	}

	for i, r := range records {
		if err := r.Validate(); err != nil {
			return nil, NewErrStoreCorrupt(path, fmt.Errorf("record %d: %w", i, err))
		}
	}

	return records, nil
}

// writeRecords replaces path atomically: temp file in the same directory, fsync, rename.
func writeRecords(path string, records []model.MigrationRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once the rename succeeded
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
