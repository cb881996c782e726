package cli

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/wm2snap/migrator/internal/estimation"
)

type EstimateOptions struct {
	GlobalOptions

	SizeMB float64
	File   string
	Output string

	sizeSet bool
}

type estimateOutput struct {
	FileSizeMB float64 `json:"file_size_mb"`
	estimation.Estimation
}

func DefaultEstimateOptions() *EstimateOptions {
	return &EstimateOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdEstimate() *cobra.Command {
	o := DefaultEstimateOptions()
	cmd := &cobra.Command{
		Use:          "estimate (--size-mb N | --file PATH)",
		Short:        "Estimate how long the migration of an archive will take.",
		Example:      "estimate --file orders.zip -o json",
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
	cmd.MarkFlagsMutuallyExclusive("size-mb", "file")
	cmd.MarkFlagsOneRequired("size-mb", "file")
	return cmd
}

func (o *EstimateOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.Float64Var(&o.SizeMB, "size-mb", o.SizeMB, "Archive size in MB")
	fs.StringVarP(&o.File, "file", "f", o.File, "Archive whose size is estimated")
	fs.StringVarP(&o.Output, "output", "o", o.Output, outputUsage())
}

func (o *EstimateOptions) Complete(cmd *cobra.Command, args []string) error {
	if err := o.GlobalOptions.Complete(cmd, args); err != nil {
		return err
	}
	o.sizeSet = cmd.Flags().Changed("size-mb")
	return nil
}

func (o *EstimateOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}

	if o.sizeSet == (o.File != "") {
		return errors.New("exactly one of --size-mb or --file must be set")
	}

	if o.sizeSet && (math.IsNaN(o.SizeMB) || math.IsInf(o.SizeMB, 0)) {
		return fmt.Errorf("--size-mb must be a finite number, got %v", o.SizeMB)
	}
	if o.sizeSet && o.SizeMB < 0 {
		return fmt.Errorf("--size-mb must be non-negative, got %.2f", o.SizeMB)
	}

	return validateOutput(o.Output)
}

func (o *EstimateOptions) Run(ctx context.Context, args []string) error {
	size := o.SizeMB
	if o.File != "" {
		info, err := os.Stat(o.File)
		if err != nil {
			return fmt.Errorf("reading archive: %w", err)
		}
		size = float64(info.Size()) / (1024 * 1024)
	}

	srv, history, err := o.EstimationService(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = history.Close()
	}()

	result, err := srv.Estimate(ctx, size)
	if err != nil {
		return fmt.Errorf("estimating migration time: %w", err)
	}

	return printOutput(o.out, o.Output, estimateOutput{FileSizeMB: size, Estimation: result}, func(w *tabwriter.Writer) {
		printEstimateTable(w, size, result)
	})
}

func printEstimateTable(w *tabwriter.Writer, size float64, e estimation.Estimation) {
	fmt.Fprintf(w, "FILE SIZE\t%.2f MB\n", size)
	fmt.Fprintf(w, "ESTIMATED TIME\t%s\n", e.Formatted)
	fmt.Fprintf(w, "METHOD\t%s\n", e.Method)
	fmt.Fprintf(w, "CONFIDENCE\t%s\n", e.Confidence)
	fmt.Fprintf(w, "COMPLEXITY\t%s\n", e.Complexity)
	fmt.Fprintf(w, "SAMPLE SIZE\t%d\n", e.SampleSize)
	if e.SizeRange != nil {
		fmt.Fprintf(w, "SIZE RANGE\t%.2f - %.2f MB\n", e.SizeRange.MinMB, e.SizeRange.MaxMB)
	}
	fmt.Fprintf(w, "EXPLANATION\t%s\n", e.Explanation)
	if e.Note != "" {
		fmt.Fprintf(w, "NOTE\t%s\n", e.Note)
	}
}
