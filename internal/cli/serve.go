package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ankiplace/ankiplace/internal/config"
	"github.com/ankiplace/ankiplace/internal/engine"
	"github.com/ankiplace/ankiplace/internal/server"
	"github.com/ankiplace/ankiplace/internal/store"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the ankiplace HTTP service",
		Long: `Start the ankiplace HTTP service.

Opens (creating and initializing if necessary) the SQLite database,
starts the single-writer serializer, and listens for HTTP requests.
Configuration comes from flags or ANKIPLACE_* environment variables;
DB_PATH and ANKIPLACE_SECRET are honored as well.

Example:
  ankiplace serve --db ./canvas.db --endpoint 0.0.0.0:8080
  DB_PATH=/data/canvas.db ANKIPLACE_SECRET=s3cret ankiplace serve`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, cmd)
		},
	}

	cmd.Flags().String("db", "canvas.db", "path to the SQLite database file")
	cmd.Flags().String("endpoint", "0.0.0.0:8080", "address the HTTP server listens on")
	cmd.Flags().String("secret", config.DefaultSecret, "shared secret for privileged requests")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().Int("write-attempts", engine.DefaultMaxAttempts, "retry ceiling for transient write contention")
	cmd.Flags().Duration("retry-base", engine.DefaultRetryBase, "initial write retry backoff")
	cmd.Flags().Duration("retry-max", engine.DefaultRetryMax, "maximum write retry backoff")
	cmd.Flags().Duration("shutdown-grace", engine.DefaultShutdownGrace, "grace period for draining queued writes at shutdown")
	cmd.Flags().Duration("paint-cooldown", time.Second, "per-user minimum interval between paints")

	return cmd
}

func runServe(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := config.FromViper()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	setupLogging(opts, cfg)

	if cfg.UsingDefaultSecret() {
		slog.Warn("session secret is the development default; set ANKIPLACE_SECRET before exposing this service")
	}
	slog.Info("configuration loaded")
	fmt.Fprintln(cmd.ErrOrStderr(), cfg.String())

	// Store handle lifecycle: opened once here, closed once on every
	// exit path below.
	slog.Info("opening database", "path", cfg.DBPath)
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database ready")

	eng := engine.New(
		engine.WithMaxAttempts(cfg.WriteAttempts),
		engine.WithRetryBackoff(cfg.RetryBase, cfg.RetryMax),
		engine.WithShutdownGrace(cfg.ShutdownGrace),
	)

	gw := server.New(st, eng, server.Config{
		Secret:        cfg.Secret,
		PaintCooldown: cfg.PaintCooldown,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engineCtx, cancelEngine := context.WithCancel(context.Background())
	defer cancelEngine()
	engineDone := make(chan error, 1)
	go func() {
		engineDone <- eng.Run(engineCtx)
	}()

	srv := &http.Server{
		Addr:              cfg.Endpoint,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	srvErr := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "endpoint", cfg.Endpoint)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		// Listener failed before shutdown was requested.
		cancelEngine()
		<-engineDone
		return fmt.Errorf("http server: %w", err)

	case <-ctx.Done():
		slog.Info("received signal, shutting down")
	}

	// Stop accepting requests first, then drain queued writes, then the
	// deferred store close runs.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown", "error", err)
	}

	cancelEngine()
	if err := <-engineDone; err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("serializer stopped with error", "error", err)
	}

	slog.Info("stopped gracefully")
	return nil
}

// setupLogging configures the default slog handler from flags.
func setupLogging(opts *RootOptions, cfg *config.Config) {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
