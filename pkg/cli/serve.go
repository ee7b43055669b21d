package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/sheetshim/pkg/cli/config"
	controller "github.com/m-mizutani/sheetshim/pkg/controller/http"
	"github.com/m-mizutani/sheetshim/pkg/infra/webdav"
	"github.com/m-mizutani/sheetshim/pkg/infra/xlsx"
	"github.com/m-mizutani/sheetshim/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		serverCfg    config.Server
		nextcloudCfg config.Nextcloud
		sentryCfg    config.Sentry
	)

	flags := append(serverCfg.Flags(), nextcloudCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			if err := nextcloudCfg.Load(); err != nil {
				return err
			}
			if err := sentryCfg.Configure(); err != nil {
				return err
			}
			defer sentry.Flush(2 * time.Second)

			logger.Info("Starting sheetshim server",
				slog.String("addr", serverCfg.Addr),
				slog.String("nextcloud", nextcloudCfg.URL),
				slog.Bool("sentry", sentryCfg.Enabled()),
			)

			storage, err := webdav.NewClient(nextcloudCfg.URL, webdav.WithTimeout(nextcloudCfg.Timeout))
			if err != nil {
				return goerr.Wrap(err, "failed to create storage client")
			}

			// Create use cases
			workbookUC := usecase.NewWorkbook(storage, xlsx.NewDecoder())

			// Create HTTP server with options
			server, err := controller.NewServer(
				ctx,
				workbookUC,
				controller.WithAddr(serverCfg.Addr),
				controller.WithWriteTimeout(serverCfg.WriteTimeout),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			// Start server in goroutine
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
