package cmd

import (
	"github.com/spf13/cobra"
	"media-registry/config"
)

func Root(config *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "media-registry",
		Short:         "media recording registry",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(server(config), migrate(config), audit(config))
	return rootCmd
}
