package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	syncecho "github.com/pilab-dev/reelsync/api/echo"
	"github.com/pilab-dev/reelsync/internal/server"
	"github.com/pilab-dev/reelsync/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local HTTP API for the UI layer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.HTTPAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return a.withEngine(ctx, func(eng *engine) error {
				e := server.NewHTTPServer(a.cfg, a.logger,
					syncecho.NewSyncAPI(eng.session, eng.identities, eng.registry))

				if eng.session.UserKey() != "" {
					go func() {
						if err := <-eng.session.SyncAtStartup(ctx); err != nil {
							a.logger.Warn(ctx, "Startup sync failed", log.Fields{"error": err.Error()})
						}
					}()
				}

				serveErr := make(chan error, 1)
				go func() {
					a.logger.Info(ctx, "HTTP API listening", log.Fields{"addr": addr})
					serveErr <- e.Start(addr)
				}()

				select {
				case err := <-serveErr:
					if !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				case <-ctx.Done():
				}

				a.logger.Info(ctx, "Shutting down HTTP API")
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
				defer cancel()

				return e.Shutdown(shutdownCtx)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")

	return cmd
}
