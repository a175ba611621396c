// Command exporter runs a Chatwork log export from the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"golang.org/x/term"

	"github.com/HMasataka/chatwork-log-exporter/internal/adapters/sink"
	"github.com/HMasataka/chatwork-log-exporter/internal/chatwork"
	"github.com/HMasataka/chatwork-log-exporter/internal/core/services"
	"github.com/HMasataka/chatwork-log-exporter/internal/domain"
	applog "github.com/HMasataka/chatwork-log-exporter/internal/log"
	"github.com/HMasataka/chatwork-log-exporter/internal/pkg/config"
	"github.com/HMasataka/chatwork-log-exporter/internal/pkg/table"
	termprompt "github.com/HMasataka/chatwork-log-exporter/internal/pkg/term"
)

func main() {
	if err := run(); err != nil {
		slog.Error("export failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to config.yml (default: ./config.yml, then environment)")
	flag.Parse()

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg.Logging.Level)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	session, err := obtainSession()
	if err != nil {
		return err
	}

	dirSink, err := sink.NewDirSink(cfg.Export.OutputDir)
	if err != nil {
		return err
	}

	client := chatwork.NewClient(cfg.Export.HostURL, session, chatwork.WithLogger(logger))
	limiter := services.NewIntervalLimiter(cfg.Export.Interval())
	exporter := services.NewExportService(client, limiter, dirSink,
		services.WithLogger(logger),
		services.WithNotifier(consoleNotifier{}),
	)

	// A full export over many rooms can run for hours; Ctrl-C stops it at
	// the next network call or limiter wait.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, runErr := exporter.Run(ctx, cfg.Export)
	if report != nil {
		printSummary(report)
	}
	return runErr
}

// obtainSession reads the Chatwork session from the environment, falling
// back to an interactive prompt when attached to a terminal. Its absence
// is a fatal precondition, reported before any network call.
func obtainSession() (domain.Session, error) {
	session := domain.Session{
		Token: os.Getenv("CHATWORK_TOKEN"),
		MyID:  os.Getenv("CHATWORK_MYID"),
	}
	if session.Validate() == nil {
		return session, nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return domain.Session{}, fmt.Errorf("set CHATWORK_TOKEN and CHATWORK_MYID: %w", domain.ErrSessionMissing)
	}
	return termprompt.NewPrompt().Session(session)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return applog.NewMaskedLogger(handler)
}

// printSummary renders the per-room outcome table on stdout.
func printSummary(report *services.Report) {
	rows := make([]table.Row, 0, len(report.Rooms))
	for _, r := range report.Rooms {
		status := "ok"
		switch {
		case r.Skipped:
			status = "skipped"
		case r.Err != nil:
			status = "failed: " + r.Err.Error()
		}
		rows = append(rows, table.Row{Cells: []string{
			strconv.FormatInt(r.RoomID, 10),
			r.Name,
			table.FormatCount(r.Messages, "msgs"),
			table.FormatCount(r.Attachments, "files"),
			status,
		}})
	}
	fmt.Print(table.Render([]string{"ROOM", "NAME", "MESSAGES", "ATTACHMENTS", "STATUS"}, rows))
}

// consoleNotifier is the terminal status side-channel.
type consoleNotifier struct{}

func (consoleNotifier) ExportCompleted(exported, failed int) {
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "export completed with failures: %d rooms exported, %d failed\n", exported, failed)
		return
	}
	fmt.Fprintf(os.Stderr, "export completed: %d rooms exported\n", exported)
}

func (consoleNotifier) ExportFailed(err error) {
	fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
}
