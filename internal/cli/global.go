package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/wm2snap/migrator/internal/config"
	"github.com/wm2snap/migrator/internal/service"
	"github.com/wm2snap/migrator/internal/store"
)

// GlobalOptions carries the history location shared by every command. Flags override the
// MIGRATOR_HISTORY_* environment variables.
type GlobalOptions struct {
	HistoryType string
	HistoryFile string

	cfg *config.Config
	out io.Writer
}

func DefaultGlobalOptions() GlobalOptions {
	defaults := config.NewDefault()
	return GlobalOptions{
		HistoryType: defaults.History.Type,
		HistoryFile: defaults.History.File,
	}
}

func (o *GlobalOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVar(&o.HistoryType, "history-type", o.HistoryType,
		fmt.Sprintf("History backend. One of: (%s, %s, %s).", config.HistoryTypeFile, config.HistoryTypeSqlite, config.HistoryTypePgsql))
	fs.StringVar(&o.HistoryFile, "history-file", o.HistoryFile, "Path of the JSON history file")
}

func (o *GlobalOptions) Complete(cmd *cobra.Command, args []string) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("history-type") {
		cfg.History.Type = o.HistoryType
	}
	if cmd.Flags().Changed("history-file") {
		cfg.History.File = o.HistoryFile
	}

	o.cfg = cfg
	o.out = cmd.OutOrStdout()
	return nil
}

func (o *GlobalOptions) Validate(args []string) error {
	if err := o.cfg.ValidateHistory(); err != nil {
		return config.NewErrConfiguration("invalid history configuration: %w", err)
	}
	return nil
}

// EstimationService opens the configured history. The caller closes the returned store.
func (o *GlobalOptions) EstimationService(ctx context.Context) (*service.EstimationService, store.History, error) {
	history, err := store.New(o.cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening history: %w", err)
	}

	srv, err := service.NewEstimationService(ctx, history)
	if err != nil {
		_ = history.Close()
		return nil, nil, fmt.Errorf("loading history: %w", err)
	}

	return srv, history, nil
}
