package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"avaneesh/dnp3-tester/internal/api"
	"avaneesh/dnp3-tester/internal/config"
	"avaneesh/dnp3-tester/internal/session"
	"avaneesh/dnp3-tester/internal/tap"
	"avaneesh/dnp3-tester/internal/telemetry"
	"avaneesh/dnp3-tester/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

var (
	listenAddr    string
	defaultConfig string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings, err := config.LoadSettings(configPath, !cmd.Flags().Changed("config"))
		if err != nil {
			return err
		}
		if listenAddr != "" {
			settings.Server.Listen = listenAddr
		}
		if defaultConfig != "" {
			settings.Device.DefaultConfig = defaultConfig
		}
		if logLevel != "" {
			settings.Logging.Level = logLevel
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, settings)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "HTTP listen address (overrides settings)")
	serveCmd.Flags().StringVar(&defaultConfig, "default-config", "", "device configuration auto-loaded on connect")
}

func serve(ctx context.Context, settings *config.Settings) error {
	store := telemetry.NewStore()

	// The tap sees every event, including engine frame dumps below the console level.
	appLog := logger.New(logger.TargetApp, logger.ParseLevel(settings.Logging.Level), tap.New(store, nil))
	engineLog := appLog.With(logger.TargetEngine)
	httpLog := appLog.With(logger.TargetHTTP)
	logger.SetDefault(appLog)

	engine := session.NewStackEngine(engineLog)
	defer engine.Shutdown()

	registry := session.NewRegistry(engine, store, appLog, session.DefaultOptions())
	defer registry.Close()

	e := api.NewServer(api.Dependencies{
		Registry: registry,
		Settings: settings,
		Logger:   httpLog,
		Version:  Version,
	})

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("dnp3-tester %s listening on %s", Version, settings.Server.Listen)
		if err := e.Start(settings.Server.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	appLog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLog.Warn("http shutdown: %v", err)
	}
	return nil
}
