package main

import (
	"github.com/spf13/cobra"

	"cordpulse/internal/app"
)

func newServeCmd(opts *options) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard web server",
		Long: `serve starts the HTTP server with the dashboard page at /, the JSON API
under /api, the live WebSocket channel at /ws and Prometheus metrics at
/metrics. It stops gracefully on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			application, err := app.NewApplication(cfg)
			if err != nil {
				return err
			}
			return application.Run()
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "listen port (overrides server.port)")
	return cmd
}
