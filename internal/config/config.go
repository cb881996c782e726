package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	HistoryTypeFile   = "file"
	HistoryTypeSqlite = "sqlite"
	HistoryTypePgsql  = "pgsql"
)

type Config struct {
	Database  *dbConfig
	Service   *svcConfig
	History   *historyConfig
	SnapLogic *snapLogicConfig
}

type dbConfig struct {
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"migrator"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address        string `envconfig:"MIGRATOR_ADDRESS" default:":8080"`
	MetricsAddress string `envconfig:"MIGRATOR_METRICS_ADDRESS" default:":8081"`
	LogLevel       string `envconfig:"MIGRATOR_LOG_LEVEL" default:"info"`
	EventsEnabled  bool   `envconfig:"MIGRATOR_EVENTS_ENABLED" default:"false"`
	EventsTopic    string `envconfig:"MIGRATOR_EVENTS_TOPIC" default:"wm2snap.migrations.events"`
}

type historyConfig struct {
	Type string `envconfig:"MIGRATOR_HISTORY_TYPE" default:"file"`
	File string `envconfig:"MIGRATOR_HISTORY_FILE" default:"migration_history.json"`
}

type snapLogicConfig struct {
	URL         string        `envconfig:"SNAPLOGIC_URL"`
	BearerToken string        `envconfig:"SNAPLOGIC_BEARER_TOKEN"`
	Timeout     time.Duration `envconfig:"SNAPLOGIC_TIMEOUT" default:"5m"`
}

// ErrConfiguration is fatal: the process must not start serving uploads.
type ErrConfiguration struct {
	error
}

func NewErrConfiguration(format string, args ...any) *ErrConfiguration {
	return &ErrConfiguration{fmt.Errorf(format, args...)}
}

// NewDefault returns the configuration built from default values only, without the SnapLogic secrets.
func NewDefault() *Config {
	return &Config{
		Database: &dbConfig{
			Hostname: "localhost",
			Port:     "5432",
			Name:     "migrator",
			User:     "admin",
			Password: "adminpass",
		},
		Service: &svcConfig{
			Address:        ":8080",
			MetricsAddress: ":8081",
			LogLevel:       "info",
			EventsTopic:    "wm2snap.migrations.events",
		},
		History: &historyConfig{
			Type: HistoryTypeFile,
			File: "migration_history.json",
		},
		SnapLogic: &snapLogicConfig{
			Timeout: 5 * time.Minute,
		},
	}
}

// New reads the configuration from the environment. It does not require the SnapLogic secrets,
// commands that call the migration API must also call Validate.
func New() (*Config, error) {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, NewErrConfiguration("reading environment: %w", err)
	}
	return cfg, nil
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg, err := New()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks everything needed to call the migration API.
func (c *Config) Validate() error {
	errs := []error{}

	if c.SnapLogic.URL == "" {
		errs = append(errs, errors.New("SNAPLOGIC_URL is not set"))
	} else if u, err := url.Parse(c.SnapLogic.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("SNAPLOGIC_URL %q is not an absolute URL", c.SnapLogic.URL))
	}

	if c.SnapLogic.BearerToken == "" {
		errs = append(errs, errors.New("SNAPLOGIC_BEARER_TOKEN is not set"))
	}

	if c.SnapLogic.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("SNAPLOGIC_TIMEOUT must be positive, got %s", c.SnapLogic.Timeout))
	}

	if err := c.ValidateHistory(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return NewErrConfiguration("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// ValidateHistory checks the history store settings only.
func (c *Config) ValidateHistory() error {
	switch strings.ToLower(c.History.Type) {
	case HistoryTypeFile:
		if c.History.File == "" {
			return errors.New("MIGRATOR_HISTORY_FILE is not set")
		}
	case HistoryTypeSqlite, HistoryTypePgsql:
	default:
		return fmt.Errorf("MIGRATOR_HISTORY_TYPE must be one of %s, %s, %s, got %q",
			HistoryTypeFile, HistoryTypeSqlite, HistoryTypePgsql, c.History.Type)
	}
	return nil
}

// String hides the bearer token.
func (c *Config) String() string {
	return fmt.Sprintf("address=%s metrics=%s log_level=%s history=%s(%s) snaplogic_url=%s timeout=%s",
		c.Service.Address, c.Service.MetricsAddress, c.Service.LogLevel,
		c.History.Type, c.History.File, c.SnapLogic.URL, c.SnapLogic.Timeout)
}
