package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lgcms/internal/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "lgcms-api",
		Short:         "Complaint tracking API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: search ./config.yaml, ./config, ../config)")

	load := func() (*config.AppConfig, error) {
		return config.LoadFrom(configFile)
	}

	root.AddCommand(
		newServeCommand(load),
		newMigrateCommand(load),
	)
	return root
}
