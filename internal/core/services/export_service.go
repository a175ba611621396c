package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/HMasataka/chatwork-log-exporter/internal/adapters/render"
	"github.com/HMasataka/chatwork-log-exporter/internal/domain"
	"github.com/HMasataka/chatwork-log-exporter/internal/pkg/config"
	"github.com/HMasataka/chatwork-log-exporter/internal/ports"
)

// RoomResult records the outcome of one room's export step.
type RoomResult struct {
	RoomID      int64
	Name        string
	Skipped     bool
	Messages    int
	Attachments int
	Err         error
}

// Report summarizes one export run.
type Report struct {
	Rooms []RoomResult
}

// Exported returns the number of successfully exported rooms.
func (r *Report) Exported() int {
	n := 0
	for _, room := range r.Rooms {
		if !room.Skipped && room.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the number of rooms whose export step failed.
func (r *Report) Failed() int {
	n := 0
	for _, room := range r.Rooms {
		if room.Err != nil {
			n++
		}
	}
	return n
}

// Skipped returns the number of rooms excluded by filtering.
func (r *Report) Skipped() int {
	n := 0
	for _, room := range r.Rooms {
		if room.Skipped {
			n++
		}
	}
	return n
}

// ExportService drives a complete export run: room discovery, filtering,
// and the per-room pipeline of snapshot, history, identity resolution,
// enrichment, serialization and attachment download.
//
// Failure policy: a failed room is recorded in the report and the run
// continues with the remaining rooms; the joined room errors come back as
// the run error. Only a discovery failure aborts the whole run, since no
// partial export is possible without the directory.
type ExportService struct {
	gateway  ports.Gateway
	limiter  ports.Limiter
	sink     ports.Sink
	notifier ports.Notifier

	history  *HistoryService
	resolver *ResolverService
	enricher *EnrichmentService

	log *slog.Logger
}

// Option is a functional option for configuring the ExportService.
type Option func(*ExportService)

// WithNotifier sets the user-visible status side-channel.
func WithNotifier(n ports.Notifier) Option {
	return func(s *ExportService) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger sets the logger for the service.
func WithLogger(l *slog.Logger) Option {
	return func(s *ExportService) {
		if l != nil {
			s.log = l
		}
	}
}

// NewExportService wires the export pipeline over a gateway, limiter and
// sink.
func NewExportService(gateway ports.Gateway, limiter ports.Limiter, sink ports.Sink, opts ...Option) *ExportService {
	s := &ExportService{
		gateway:  gateway,
		limiter:  limiter,
		sink:     sink,
		notifier: nopNotifier{},
		enricher: NewEnrichmentService(),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.history = NewHistoryService(gateway, limiter, s.log)
	s.resolver = NewResolverService(gateway, s.log)
	return s
}

// Run executes one export run with the given settings. The settings value
// is immutable for the duration of the run. Cancel the context to stop the
// run at its next network call or limiter wait.
func (s *ExportService) Run(ctx context.Context, settings config.Settings) (*Report, error) {
	s.log.Info("starting export",
		"host", settings.HostURL,
		"interval_ms", settings.IntervalMs,
		"target_rooms", settings.TargetRoomIDs,
		"except_rooms", settings.ExceptRoomIDs,
	)

	directory, err := s.gateway.InitLoad(ctx)
	if err != nil {
		err = fmt.Errorf("room discovery failed: %w", err)
		s.notifier.ExportFailed(err)
		return nil, err
	}

	if settings.ExportJSON {
		if err := s.deliverRawJSON("init_load.json", directory.Raw); err != nil {
			s.notifier.ExportFailed(err)
			return nil, err
		}
	}

	targets := settings.TargetRooms()
	excepts := settings.ExceptRooms()

	report := &Report{}
	var roomErrs []error

	for _, room := range directory.Rooms {
		name := directory.RoomName(room.ID)
		result := RoomResult{RoomID: room.ID, Name: name}

		if skipRoom(room.ID, targets, excepts) {
			s.log.Info("skipping room", "room_id", room.ID, "room_name", name)
			result.Skipped = true
			report.Rooms = append(report.Rooms, result)
			continue
		}

		s.log.Info("exporting room", "room_id", room.ID, "room_name", name)
		if err := s.exportRoom(ctx, settings, room.ID, &result); err != nil {
			result.Err = err
			roomErrs = append(roomErrs, fmt.Errorf("room %d (%s): %w", room.ID, name, err))
			s.log.Error("room export failed", "room_id", room.ID, "room_name", name, "error", err)

			// Cancellation is terminal for the whole run, not just the room.
			if ctx.Err() != nil {
				report.Rooms = append(report.Rooms, result)
				err := fmt.Errorf("export cancelled: %w", ctx.Err())
				s.notifier.ExportFailed(err)
				return report, err
			}
		}
		report.Rooms = append(report.Rooms, result)
	}

	s.notifier.ExportCompleted(report.Exported(), report.Failed())
	s.log.Info("export finished",
		"exported", report.Exported(), "failed", report.Failed(), "skipped", report.Skipped())

	if len(roomErrs) > 0 {
		return report, fmt.Errorf("%d of %d rooms failed: %w",
			len(roomErrs), len(directory.Rooms)-report.Skipped(), errors.Join(roomErrs...))
	}
	return report, nil
}

// exportRoom runs the per-room pipeline. Every delivered file keeps the
// established naming contract; files delivered before a failure stay.
func (s *ExportService) exportRoom(ctx context.Context, settings config.Settings, roomID int64, result *RoomResult) error {
	snapshot, err := s.gateway.LoadChat(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to fetch room snapshot: %w", err)
	}

	messages, err := s.history.FetchAll(ctx, roomID)
	if err != nil {
		return err
	}
	result.Messages = len(messages)

	accounts := s.resolver.Resolve(ctx, messages)

	s.enricher.Enrich(messages, accounts, EnrichOptions{
		AppendDate:      settings.AppendDate,
		AppendUsername:  settings.AppendUsername,
		DeleteReactions: settings.DeleteReactions,
	})

	if err := s.sink.Deliver(fmt.Sprintf("%d_messages.csv", roomID), render.MessagesCSV(messages)); err != nil {
		return fmt.Errorf("failed to deliver csv: %w", err)
	}

	if settings.ExportXLSX {
		workbook, err := render.MessagesXLSX(messages)
		if err != nil {
			return fmt.Errorf("failed to render xlsx: %w", err)
		}
		if err := s.sink.Deliver(fmt.Sprintf("%d_messages.xlsx", roomID), workbook); err != nil {
			return fmt.Errorf("failed to deliver xlsx: %w", err)
		}
	}

	if settings.ExportJSON {
		if err := s.deliverRawJSON(fmt.Sprintf("%d_load_chat.json", roomID), snapshot.Raw); err != nil {
			return err
		}
		if err := s.deliverRawJSON(fmt.Sprintf("%d_account_info.json", roomID), accounts.Raw); err != nil {
			return err
		}
		data, err := render.JSON(messages)
		if err != nil {
			return fmt.Errorf("failed to render messages json: %w", err)
		}
		if err := s.sink.Deliver(fmt.Sprintf("%d_messages.json", roomID), data); err != nil {
			return fmt.Errorf("failed to deliver messages json: %w", err)
		}
	}

	if settings.DownloadAttachments {
		n, err := s.downloadAttachments(ctx, roomID, snapshot.Files)
		result.Attachments = n
		if err != nil {
			return err
		}
	}

	return nil
}

// downloadAttachments fetches every file of the room snapshot and delivers
// it under the collision-free composite name roomID_fileID_fileName. It
// returns how many files were delivered before any error.
func (s *ExportService) downloadAttachments(ctx context.Context, roomID int64, files []domain.AttachmentFile) (int, error) {
	for i, file := range files {
		// Throttle between downloads, never before the first one.
		if i > 0 {
			if err := s.limiter.Wait(ctx); err != nil {
				return i, fmt.Errorf("attachment download cancelled: %w", err)
			}
		}

		data, err := s.gateway.DownloadFile(ctx, file.ID)
		if err != nil {
			return i, fmt.Errorf("failed to download attachment %d: %w", file.ID, err)
		}

		filename := fmt.Sprintf("%d_%d_%s", roomID, file.ID, file.Name)
		if err := s.sink.Deliver(filename, data); err != nil {
			return i, fmt.Errorf("failed to deliver attachment %d: %w", file.ID, err)
		}
		s.log.Debug("attachment delivered", "room_id", roomID, "file_id", file.ID, "bytes", len(data))
	}
	return len(files), nil
}

func (s *ExportService) deliverRawJSON(filename string, raw []byte) error {
	data, err := render.RawJSON(raw)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", filename, err)
	}
	if err := s.sink.Deliver(filename, data); err != nil {
		return fmt.Errorf("failed to deliver %s: %w", filename, err)
	}
	return nil
}

// skipRoom applies the room filter: a room is skipped iff it is excluded,
// or a non-empty target list does not contain it. Exclusion wins over
// inclusion when a room appears in both lists.
func skipRoom(roomID int64, targets, excepts map[int64]struct{}) bool {
	if _, excluded := excepts[roomID]; excluded {
		return true
	}
	if len(targets) == 0 {
		return false
	}
	_, targeted := targets[roomID]
	return !targeted
}

// nopNotifier is the default when no status side-channel is attached.
type nopNotifier struct{}

func (nopNotifier) ExportCompleted(exported, failed int) {}
func (nopNotifier) ExportFailed(err error)               {}
