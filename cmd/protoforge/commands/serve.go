package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hupe1980/protoforge/internal/credential"
	"github.com/hupe1980/protoforge/internal/printer"
	"github.com/hupe1980/protoforge/server"
)

func newServeCommand(configPath *string) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			logger := newLogger(cfg)
			app := newApp(cfg, logger)
			defer app.Close()

			if err := app.Ready(); err != nil {
				printer.Warning("starting in degraded mode: %v", err)
			} else {
				printer.Success("pipeline ready")
			}
			printer.Step("listening on http://%s", cfg.Addr())

			var redacted string
			if key := cfg.APIKey(); key != "" {
				redacted = credential.Redact(key)
			}
			srv := server.New(app, func(o *server.Options) {
				o.Addr = cfg.Addr()
				o.Logger = logger
				o.RedactedKey = redacted
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := srv.Start(ctx); err != nil && ctx.Err() == nil {
				return printer.Error("Server stopped", err.Error(), nil)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides HOST)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides PORT)")
	return cmd
}
