package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/wm2snap/migrator/internal/estimation"
)

type StatsOptions struct {
	GlobalOptions

	Output string
}

func DefaultStatsOptions() *StatsOptions {
	return &StatsOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdStats() *cobra.Command {
	o := DefaultStatsOptions()
	cmd := &cobra.Command{
		Use:          "stats",
		Short:        "Display statistics of past migrations.",
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

func (o *StatsOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.Output, "output", "o", o.Output, outputUsage())
}

func (o *StatsOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	return validateOutput(o.Output)
}

func (o *StatsOptions) Run(ctx context.Context, args []string) error {
	srv, history, err := o.EstimationService(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = history.Close()
	}()

	stats, err := srv.Statistics(ctx)
	if err != nil {
		return fmt.Errorf("computing statistics: %w", err)
	}

	return printOutput(o.out, o.Output, stats, func(w *tabwriter.Writer) {
		printStatsTable(w, stats)
	})
}

func printStatsTable(w *tabwriter.Writer, s estimation.Statistics) {
	if s.TotalMigrations == 0 {
		fmt.Fprintln(w, "No migrations recorded yet.")
		return
	}
	fmt.Fprintf(w, "TOTAL MIGRATIONS\t%d\n", s.TotalMigrations)
	fmt.Fprintf(w, "AVERAGE TIME\t%s\n", estimation.FormatDuration(s.AverageTime))
	fmt.Fprintf(w, "MEDIAN TIME\t%s\n", estimation.FormatDuration(s.MedianTime))
	fmt.Fprintf(w, "TIME RANGE\t%s - %s\n", estimation.FormatDuration(s.MinTime), estimation.FormatDuration(s.MaxTime))
	fmt.Fprintf(w, "AVERAGE SIZE\t%.2f MB\n", s.AverageSize)
	fmt.Fprintf(w, "MEDIAN SIZE\t%.2f MB\n", s.MedianSize)
	fmt.Fprintf(w, "SIZE RANGE\t%.2f - %.2f MB\n", s.MinSize, s.MaxSize)
}
