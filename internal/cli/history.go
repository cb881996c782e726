package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/wm2snap/migrator/internal/config"
	"github.com/wm2snap/migrator/internal/estimation"
	"github.com/wm2snap/migrator/internal/store"
	"github.com/wm2snap/migrator/internal/store/model"
)

type HistoryOptions struct {
	GlobalOptions

	Output string
}

func DefaultHistoryOptions() *HistoryOptions {
	return &HistoryOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdHistory() *cobra.Command {
	o := DefaultHistoryOptions()
	cmd := &cobra.Command{
		Use:          "history",
		Short:        "List past migrations, newest first.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), args)
		},
	}
	o.Bind(cmd.Flags())
	cmd.AddCommand(NewCmdHistoryMigrate())
	return cmd
}

func (o *HistoryOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.Output, "output", "o", o.Output, outputUsage())
}

func (o *HistoryOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	return validateOutput(o.Output)
}

func (o *HistoryOptions) Run(ctx context.Context, args []string) error {
	srv, history, err := o.EstimationService(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = history.Close()
	}()

	records, err := srv.History(ctx)
	if err != nil {
		return fmt.Errorf("listing history: %w", err)
	}
	slices.Reverse(records)

	return printOutput(o.out, o.Output, records, func(w *tabwriter.Writer) {
		printHistoryTable(w, records)
	})
}

func printHistoryTable(w *tabwriter.Writer, records []model.MigrationRecord) {
	fmt.Fprintln(w, "PROJECT\tSIZE\tDURATION\tTIMESTAMP")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%.2f MB\t%s\t%s\n",
			r.ProjectName, r.FileSizeMB, estimation.FormatDuration(r.DurationSeconds), r.Timestamp.Format(time.RFC3339))
	}
}

type HistoryMigrateOptions struct {
	GlobalOptions
}

func DefaultHistoryMigrateOptions() *HistoryMigrateOptions {
	return &HistoryMigrateOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdHistoryMigrate() *cobra.Command {
	o := DefaultHistoryMigrateOptions()
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Convert a legacy history file to the current format.",
		Long: "Convert a legacy history file in place. Files holding only project names are rebuilt from " +
			"the sibling " + store.DetailedSuffix + " file when it exists.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), args)
		},
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *HistoryMigrateOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if !strings.EqualFold(o.cfg.History.Type, config.HistoryTypeFile) {
		return fmt.Errorf("only the %s history backend can be migrated, got %s", config.HistoryTypeFile, o.cfg.History.Type)
	}
	return nil
}

func (o *HistoryMigrateOptions) Run(ctx context.Context, args []string) error {
	count, err := store.ConvertLegacyHistory(o.cfg.History.File)
	if err != nil {
		return fmt.Errorf("converting history: %w", err)
	}

	_, err = fmt.Fprintf(o.out, "Converted %d migration records in %s\n", count, o.cfg.History.File)
	return err
}
