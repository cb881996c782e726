package migrations

import (
	"embed"
	"fmt"
	"path"
	"sync"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed sql/sqlite3/*.sql sql/postgres/*.sql
var migrationFS embed.FS

// goose keeps the dialect and base FS in package state.
var gooseMu sync.Mutex

var dialects = map[string]struct {
	goose  string
	folder string
}{
	"sqlite": {goose: "sqlite3", folder: "sqlite3"},
	"pgsql":  {goose: "postgres", folder: "postgres"},
}

// MigrateStore applies the embedded migrations for dbType ("sqlite" or "pgsql").
func MigrateStore(db *gorm.DB, dbType string) error {
	d, ok := dialects[dbType]
	if !ok {
		return fmt.Errorf("no migrations for database type %q", dbType)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetLogger(&logger{})
	goose.SetBaseFS(migrationFS)

	if err := goose.SetDialect(d.goose); err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	return goose.Up(sqlDB, path.Join("sql", d.folder))
}

/*
logger implements goose.Logger interface

	type Logger interface {
		Fatalf(format string, v ...interface{})
		Printf(format string, v ...interface{})
	}
*/
type logger struct{}

func (m *logger) Printf(format string, v ...interface{}) { zap.S().Named("migrations").Infof(format, v...) }
func (m *logger) Fatalf(format string, v ...interface{}) { zap.S().Named("migrations").Fatalf(format, v...) }
