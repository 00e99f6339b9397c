package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/upawatch/upawatch/pkg/cli/config"
	controller "github.com/upawatch/upawatch/pkg/controller/http"
	"github.com/upawatch/upawatch/pkg/controller/ws"
	"github.com/upawatch/upawatch/pkg/domain/interfaces"
	"github.com/upawatch/upawatch/pkg/repository"
	"github.com/upawatch/upawatch/pkg/usecase"
	"github.com/upawatch/upawatch/pkg/utils/async"
	"github.com/urfave/cli/v3"
)

const sessionPurgeInterval = 10 * time.Minute

func cmdServe() *cli.Command {
	var (
		serverCfg     config.Server
		backendCfg    config.Backend
		travelCfg     config.Travel
		slackCfg      config.Slack
		facilitiesCfg config.Facilities
	)

	flags := joinFlags(
		serverCfg.Flags(),
		backendCfg.Flags(),
		travelCfg.Flags(),
		slackCfg.Flags(),
		facilitiesCfg.Flags(),
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Start the live board server",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			logger.Info("Starting upawatch server",
				slog.Any("server", serverCfg),
				slog.Any("backend", backendCfg),
				slog.Any("travel", travelCfg),
				slog.Any("slack", slackCfg),
			)

			// Load facility catalog and travel settings
			catalog, err := facilitiesCfg.Configure()
			if err != nil {
				return err
			}
			travel, err := travelCfg.Configure()
			if err != nil {
				return err
			}
			// Create backend client
			backendClient, err := backendCfg.Configure()
			if err != nil {
				return err
			}
			// Create Slack notifier
			notifier, err := slackCfg.Configure(ctx)
			if err != nil {
				return err
			}

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			// A nil *push.Client must not end up in the interface
			var pushChannel interfaces.PushChannel
			pushClient := backendCfg.ConfigurePush()
			if pushClient != nil {
				pushChannel = pushClient
			} else {
				logger.Warn("Push channel not configured, live updates rely on REST refresh")
			}

			// Create live board with its watchers
			var alerts async.Group
			board := usecase.NewBoard(backendClient, pushChannel)
			board.Watch(usecase.NewTierAlert(notifier,
				usecase.WithAlertCatalog(catalog),
				usecase.WithAlertDispatcher(alerts.Dispatch),
			).Watch)

			hub := ws.NewHub(
				ws.WithInitialState(board.Current),
				ws.WithCheckOrigin(controller.OriginChecker(serverCfg.FrontendURL)),
			)
			board.Watch(hub.Watch)
			go hub.Run(runCtx)

			// Start push channel after the board is listening
			if pushClient != nil {
				if err := pushClient.Connect(runCtx); err != nil {
					return goerr.Wrap(err, "failed to start push channel")
				}
				defer func() {
					if err := pushClient.Close(); err != nil {
						logger.Warn("Failed to close push channel", slog.Any("error", err))
					}
				}()
			}

			// Create repository and use cases
			repo := repository.NewMemory()
			defer repo.Close()
			go purgeSessions(runCtx, repo, sessionPurgeInterval)

			authUC := usecase.NewAuth(repo, backendClient, usecase.WithTokenSecret(backendCfg.TokenSecret))
			reportsUC := usecase.NewReports(backendClient,
				usecase.WithCatalog(catalog),
				usecase.WithLiveBoard(board),
			)

			// Create HTTP server
			server, err := controller.NewServer(
				ctx,
				controller.Config{
					Addr:        serverCfg.Addr,
					FrontendURL: serverCfg.FrontendURL,
					Travel:      travel,
				},
				controller.UseCases{
					Auth:    authUC,
					Board:   board,
					Reports: reportsUC,
				},
				hub,
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
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}
			if err := alerts.Wait(shutdownCtx); err != nil {
				logger.Warn("Pending occupancy alerts dropped", slog.Any("error", err))
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}

func purgeSessions(ctx context.Context, repo interfaces.Repository, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := repo.PurgeExpiredSessions(ctx); n > 0 {
				ctxlog.From(ctx).Debug("Purged expired sessions", slog.Int("count", n))
			}
		}
	}
}
