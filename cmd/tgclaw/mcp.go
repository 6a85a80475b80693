package main

import (
	"github.com/spf13/cobra"

	"github.com/flemzord/tgclaw/internal/mcpserver"
	"github.com/flemzord/tgclaw/pkg/app"
)

func mcpCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the Bot API as MCP tools over stdio",
		Long: "Serve get_me, send_message, get_updates and call_method as Model Context\n" +
			"Protocol tools on stdin/stdout. Logs go to stderr.",
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			params := flags.params()
			params.Modules = clientModules

			rt, err := app.Bootstrap(params)
			if err != nil {
				return err
			}
			defer rt.Close()

			client, err := rt.Client()
			if err != nil {
				return err
			}

			rt.Logger.Info("mcp server listening on stdio")
			return mcpserver.New(client, rt.Redactor, version).ServeStdio()
		},
	}
}
