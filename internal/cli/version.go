package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wm2snap/migrator/pkg/version"
)

type VersionOptions struct {
	Output string
}

func DefaultVersionOptions() *VersionOptions {
	return &VersionOptions{
		Output: "",
	}
}

func NewCmdVersion() *cobra.Command {
	o := DefaultVersionOptions()
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print migrator version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(o.Output); err != nil {
				return err
			}
			return o.Run(cmd.Context(), cmd, args)
		},
	}
	cmd.Flags().StringVarP(&o.Output, "output", "o", o.Output, outputUsage())
	return cmd
}

func (o *VersionOptions) Run(ctx context.Context, cmd *cobra.Command, args []string) error {
	versionInfo := version.Get()
	if o.Output == jsonFormat || o.Output == yamlFormat {
		return printOutput(cmd.OutOrStdout(), o.Output, versionInfo, nil)
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "Migrator Version: %s\n", versionInfo.String())
	return err
}
