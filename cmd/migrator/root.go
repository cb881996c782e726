package main

import (
	"github.com/spf13/cobra"
	"github.com/wm2snap/migrator/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "migrator [flags] [options]",
	Short: "migrator uploads webMethods projects to the SnapLogic migration API.",
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(cli.NewCmdEstimate())
	rootCmd.AddCommand(cli.NewCmdStats())
	rootCmd.AddCommand(cli.NewCmdHistory())
	rootCmd.AddCommand(cli.NewCmdUpload())
	rootCmd.AddCommand(cli.NewCmdVersion())
}
