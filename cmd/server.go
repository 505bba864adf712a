package cmd

import (
	"github.com/spf13/cobra"
	"media-registry/config"
	server2 "media-registry/server"
)

func server(config *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "start http server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return server2.RunHttp(config)
		},
	}
}

func migrate(config *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "create or update the recordings table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return server2.RunMigrate(config)
		},
	}
}

func audit(config *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "report recordings whose file is missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return server2.RunAudit(config, cmd.OutOrStdout())
		},
	}
}
