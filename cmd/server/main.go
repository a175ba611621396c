// Command server exposes the export pipeline over HTTP so a UI can
// dispatch runs and poll their status.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sevlyar/go-daemon"

	"github.com/HMasataka/chatwork-log-exporter/internal/adapters/sink"
	"github.com/HMasataka/chatwork-log-exporter/internal/chatwork"
	"github.com/HMasataka/chatwork-log-exporter/internal/core/services"
	"github.com/HMasataka/chatwork-log-exporter/internal/domain"
	applog "github.com/HMasataka/chatwork-log-exporter/internal/log"
	"github.com/HMasataka/chatwork-log-exporter/internal/pkg/config"
	"github.com/HMasataka/chatwork-log-exporter/internal/server"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var daemonize bool
	flag.BoolVar(&daemonize, "daemon", false, "Run detached from the terminal")
	flag.Parse()

	if daemonize {
		cntxt := &daemon.Context{
			PidFileName: "chatwork-log-exporter.pid",
			PidFilePerm: 0o644,
			LogFileName: "chatwork-log-exporter.log",
			LogFilePerm: 0o640,
			WorkDir:     "./",
			Umask:       0o27,
		}
		child, err := cntxt.Reborn()
		if err != nil {
			return fmt.Errorf("failed to daemonize: %w", err)
		}
		if child != nil {
			// Parent process: the daemon carries on.
			return nil
		}
		defer cntxt.Release()
	}

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := applog.NewMaskedLogger(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// The server cannot prompt; the session must come from the
	// environment (or a .env file) and is a startup precondition.
	session := domain.Session{
		Token: os.Getenv("CHATWORK_TOKEN"),
		MyID:  os.Getenv("CHATWORK_MYID"),
	}
	if err := session.Validate(); err != nil {
		return fmt.Errorf("set CHATWORK_TOKEN and CHATWORK_MYID: %w", err)
	}

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	taskStore := server.NewTaskStore()
	runner := &exportRunner{session: session, logger: logger}
	srv := server.New(appCtx, cfg, runner, taskStore)

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		slog.Info("starting server", "addr", cfg.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("signal received, shutting down...")

	// Cancel in-flight export runs first, then stop the HTTP server.
	appCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	<-serverDone
	slog.Info("application exited gracefully")
	return nil
}

// exportRunner builds a fresh pipeline per dispatched run, so each run
// sees exactly the settings it was dispatched with.
type exportRunner struct {
	session domain.Session
	logger  *slog.Logger
}

func (r *exportRunner) Run(ctx context.Context, settings config.Settings) (*services.Report, error) {
	dirSink, err := sink.NewDirSink(settings.OutputDir)
	if err != nil {
		return nil, err
	}

	client := chatwork.NewClient(settings.HostURL, r.session, chatwork.WithLogger(r.logger))
	limiter := services.NewIntervalLimiter(settings.Interval())
	exporter := services.NewExportService(client, limiter, dirSink, services.WithLogger(r.logger))

	return exporter.Run(ctx, settings)
}
