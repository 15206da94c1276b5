package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yakoovad/team-roster/internal/config"
)

var version = "v0.1.0"

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "roster",
		Short:         "Team roster form service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "config file (yaml)")

	loadConfig := func(cmd *cobra.Command) (*config.Config, error) {
		file, _ := cmd.Flags().GetString("config")
		return config.Load(v, file)
	}

	serve := newServeCmd(v, loadConfig)
	root.AddCommand(serve, newValidateCmd())

	// Running without a subcommand serves.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
