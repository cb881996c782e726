package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wm2snap/migrator/internal/config"
	"github.com/wm2snap/migrator/internal/store/model"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	var dia gorm.Dialector

	isPgsql := strings.ToLower(cfg.History.Type) == config.HistoryTypePgsql
	if isPgsql {
		dsn := fmt.Sprintf("host=%s user=%s password=%s port=%s",
			cfg.Database.Hostname,
			cfg.Database.User,
			cfg.Database.Password,
			cfg.Database.Port,
		)
		if cfg.Database.Name != "" {
			dsn = fmt.Sprintf("%s dbname=%s", dsn, cfg.Database.Name)
		}
		dia = postgres.Open(dsn)
	} else {
		dia = sqlite.Open(cfg.Database.Name)
	}

	newLogger := logger.New(
		gormWriter{zap.S().Named("gorm")},
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  false,
		},
	)

	newDB, err := gorm.Open(dia, &gorm.Config{Logger: newLogger, TranslateError: true})
	if err != nil {
		zap.S().Named("gorm").Errorf("failed to connect database: %v", err)
		return nil, err
	}

	sqlDB, err := newDB.DB()
	if err != nil {
		zap.S().Named("gorm").Errorf("failed to configure connections: %v", err)
		return nil, err
	}

	if isPgsql {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)

		var version string
		if result := newDB.Raw("SELECT version()").Scan(&version); result.Error != nil {
			zap.S().Named("gorm").Infoln(result.Error.Error())
			return nil, result.Error
		}
		zap.S().Named("gorm").Infof("PostgreSQL information: '%s'", version)
	} else {
		// sqlite has a single writer
		sqlDB.SetMaxOpenConns(1)
	}

	return newDB, nil
}

// gormWriter routes gorm's logger through zap.
type gormWriter struct {
	*zap.SugaredLogger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.Warnf(format, args...)
}

type GormHistory struct {
	db *gorm.DB
	mu sync.Mutex
}

var _ History = (*GormHistory)(nil)

func NewGormHistory(db *gorm.DB) *GormHistory {
	return &GormHistory{db: db}
}

func (g *GormHistory) List(ctx context.Context) ([]model.MigrationRecord, error) {
	var records []model.MigrationRecord
	if err := g.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list migration records: %w", err)
	}

	for i, r := range records {
		if err := r.Validate(); err != nil {
			return nil, NewErrStoreCorrupt(model.MigrationRecord{}.TableName(), fmt.Errorf("row %d: %w", r.ID, err))
		}
		records[i].Timestamp = r.Timestamp.UTC()
	}

	return records, nil
}

func (g *GormHistory) Append(ctx context.Context, record model.MigrationRecord) (model.MigrationRecord, error) {
	if err := record.Validate(); err != nil {
		return model.MigrationRecord{}, NewErrStoreWrite(record.TableName(), err)
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC().Truncate(time.Second)
	}
	record.ID = 0

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.db.WithContext(ctx).Create(&record).Error; err != nil {
		return model.MigrationRecord{}, NewErrStoreWrite(record.TableName(), err)
	}

	return record, nil
}

func (g *GormHistory) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
