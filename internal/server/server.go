// Package server exposes the export pipeline over HTTP: a run is
// dispatched as an asynchronous task and the caller polls its status, so
// no request blocks for the lifetime of a multi-hour export.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/HMasataka/chatwork-log-exporter/internal/core/services"
	"github.com/HMasataka/chatwork-log-exporter/internal/pkg/config"
)

// ExportRunner runs one export with the given settings.
type ExportRunner interface {
	Run(ctx context.Context, settings config.Settings) (*services.Report, error)
}

// Server is the HTTP server.
type Server struct {
	HTTPServer *http.Server
	cfg        *config.Config
	taskStore  *TaskStore
	runner     ExportRunner
}

// roomResultDTO is the JSON shape of one room's outcome.
type roomResultDTO struct {
	RoomID      int64  `json:"room_id"`
	Name        string `json:"name"`
	Skipped     bool   `json:"skipped"`
	Messages    int    `json:"messages"`
	Attachments int    `json:"attachments"`
	Error       string `json:"error,omitempty"`
}

func reportDTO(report *services.Report) map[string]any {
	rooms := make([]roomResultDTO, 0, len(report.Rooms))
	for _, r := range report.Rooms {
		dto := roomResultDTO{
			RoomID:      r.RoomID,
			Name:        r.Name,
			Skipped:     r.Skipped,
			Messages:    r.Messages,
			Attachments: r.Attachments,
		}
		if r.Err != nil {
			dto.Error = r.Err.Error()
		}
		rooms = append(rooms, dto)
	}
	return map[string]any{
		"exported": report.Exported(),
		"failed":   report.Failed(),
		"skipped":  report.Skipped(),
		"rooms":    rooms,
	}
}

// New creates a Server. The app context bounds every dispatched export
// run and the cleanup ticker.
func New(appCtx context.Context, cfg *config.Config, runner ExportRunner, taskStore *TaskStore) *Server {
	chiRouter := chi.NewRouter()
	chiRouter.Use(middleware.Logger)
	chiRouter.Use(middleware.Recoverer)

	chiRouter.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	chiRouter.Route("/api/v1", func(r chi.Router) {
		// Dispatch a new export run. The body may override any export
		// setting; absent fields keep the configured values.
		r.Post("/exports", func(w http.ResponseWriter, r *http.Request) {
			settings := cfg.Export
			if err := json.NewDecoder(r.Body).Decode(&settings); err != nil && !errors.Is(err, io.EOF) {
				http.Error(w, "failed to decode settings", http.StatusBadRequest)
				return
			}

			taskID := uuid.NewString()
			taskStore.CreateTask(taskID, config.DefaultTaskTTL)

			go func() {
				taskStore.UpdateTaskStatus(taskID, TaskStatusProcessing)

				report, err := runner.Run(appCtx, settings)
				if err != nil && report == nil {
					// Discovery failed; nothing was exported.
					taskStore.UpdateTaskError(taskID, err.Error())
					return
				}

				errMsg := ""
				if err != nil {
					errMsg = err.Error()
				}
				taskStore.UpdateTaskResult(taskID, report, errMsg)
			}()

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]string{"task_id": taskID})
		})

		// Poll the status of a dispatched run.
		r.Get("/exports/{taskID}", func(w http.ResponseWriter, r *http.Request) {
			taskID := chi.URLParam(r, "taskID")

			task, err := taskStore.GetTask(taskID)
			if err != nil {
				http.Error(w, "task not found", http.StatusNotFound)
				return
			}

			resp := map[string]any{
				"task_id": task.ID,
				"status":  task.Status,
			}
			if task.ErrorMessage != "" {
				resp["error_message"] = task.ErrorMessage
			}
			if task.Report != nil {
				resp["report"] = reportDTO(task.Report)
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(resp)
		})
	})

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      chiRouter,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s := &Server{
		HTTPServer: httpServer,
		cfg:        cfg,
		taskStore:  taskStore,
		runner:     runner,
	}

	taskStore.StartCleanupTicker(appCtx, config.DefaultCleanupInterval)

	return s
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.HTTPServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down HTTP server")
	return s.HTTPServer.Shutdown(ctx)
}
