package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/wm2snap/migrator/internal/client"
	"github.com/wm2snap/migrator/internal/estimation"
	"github.com/wm2snap/migrator/internal/service"
	"github.com/wm2snap/migrator/pkg/requestid"
)

type UploadOptions struct {
	GlobalOptions

	File   string
	Output string
}

func DefaultUploadOptions() *UploadOptions {
	return &UploadOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdUpload() *cobra.Command {
	o := DefaultUploadOptions()
	cmd := &cobra.Command{
		Use:          "upload --file PATH",
		Short:        "Migrate a webMethods project archive through the SnapLogic migration API.",
		Example:      "upload --file /path/to/orders.zip",
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

	if err := requireFlags(cmd, "file"); err != nil {
		panic(err)
	}

	return cmd
}

func (o *UploadOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.File, "file", "f", o.File, "Path to the project archive (.zip)")
	fs.StringVarP(&o.Output, "output", "o", o.Output, outputUsage())
}

func (o *UploadOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if err := o.cfg.Validate(); err != nil {
		return err
	}
	return validateOutput(o.Output)
}

func (o *UploadOptions) Run(ctx context.Context, args []string) error {
	ctx = requestid.Ensure(ctx)

	info, err := os.Stat(o.File)
	if err != nil {
		return fmt.Errorf("reading archive: %w", err)
	}

	estimationSrv, history, err := o.EstimationService(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = history.Close()
	}()

	migrationSrv := service.NewMigrationService(
		client.NewMigrationClient(o.cfg.SnapLogic.URL, o.cfg.SnapLogic.BearerToken, o.cfg.SnapLogic.Timeout),
		estimationSrv,
	)

	// invalid archives are rejected by Run before their content is read
	upload := &service.Upload{FileName: filepath.Base(o.File), SizeBytes: info.Size()}
	if migrationSrv.Validate(upload) == nil {
		payload, err := os.ReadFile(o.File)
		if err != nil {
			return fmt.Errorf("reading archive: %w", err)
		}
		upload = service.NewUpload(upload.FileName, payload)
	}

	outcome := migrationSrv.Run(ctx, upload)

	if err := printOutput(o.out, o.Output, outcome, func(w *tabwriter.Writer) {
		printOutcomeTable(w, outcome)
	}); err != nil {
		return err
	}

	if outcome.Err != nil {
		return errors.New(service.UserMessage(outcome.Err))
	}
	return nil
}

func printOutcomeTable(w *tabwriter.Writer, o *service.Outcome) {
	fmt.Fprintf(w, "PROJECT\t%s\n", o.ProjectName)
	fmt.Fprintf(w, "STATUS\t%s\n", o.Status)
	if o.DurationSeconds > 0 {
		fmt.Fprintf(w, "DURATION\t%s\n", estimation.FormatDuration(o.DurationSeconds))
	}
	if o.Err == nil && o.Message != "" {
		fmt.Fprintf(w, "MESSAGE\t%s\n", o.Message)
	}
	if o.Warning != "" {
		fmt.Fprintf(w, "WARNING\t%s\n", o.Warning)
	}
	if len(o.Response) > 0 {
		fmt.Fprintf(w, "RESPONSE\t%s\n", string(o.Response))
	}
}
