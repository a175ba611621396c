// Package services holds the export pipeline: history reading, identity
// resolution, enrichment and the per-room orchestration.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/HMasataka/chatwork-log-exporter/internal/domain"
	"github.com/HMasataka/chatwork-log-exporter/internal/ports"
)

// ErrCursorNotDecreasing indicates a protocol violation: the gateway
// returned a non-empty page whose oldest message id does not move the
// pagination cursor backwards. Continuing would loop forever or mis-order
// the history, so the room export fails loudly instead.
var ErrCursorNotDecreasing = errors.New("pagination cursor did not decrease")

// HistoryService reconstructs the full message history of one room by
// paginating backwards from the newest end until the gateway reports no
// more pages.
type HistoryService struct {
	gateway ports.Gateway
	limiter ports.Limiter
	log     *slog.Logger
}

// NewHistoryService creates a HistoryService.
func NewHistoryService(gateway ports.Gateway, limiter ports.Limiter, log *slog.Logger) *HistoryService {
	if log == nil {
		log = slog.Default()
	}
	return &HistoryService{gateway: gateway, limiter: limiter, log: log}
}

// FetchAll returns every message of the room, ordered ascending by id with
// no gaps or duplicates relative to what the gateway provides. A room with
// zero messages yields one round trip and an empty result; that is not an
// error. The whole history is accumulated in memory; memory use grows
// linearly with message count, which is acceptable at Chatwork room
// scale.
func (s *HistoryService) FetchAll(ctx context.Context, roomID int64) ([]domain.Message, error) {
	var history []domain.Message

	// cursor 0 means "start from the newest end".
	cursor := int64(0)
	pages := 0

	for {
		page, err := s.gateway.LoadOldChat(ctx, roomID, cursor)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page for room %d: %w", roomID, err)
		}
		pages++

		// An empty page is the sole termination signal.
		if len(page) == 0 {
			break
		}

		// Pages are documented oldest-first but not trusted to be.
		domain.SortMessagesByID(page)

		// A non-positive oldest id would reset the cursor to the
		// start-from-newest sentinel and spin on the same page.
		oldest := page[0].ID()
		if oldest <= 0 || (cursor != 0 && oldest >= cursor) {
			return nil, fmt.Errorf("%w: room %d, cursor %d, page oldest id %d",
				ErrCursorNotDecreasing, roomID, cursor, oldest)
		}

		// The page is strictly older than everything accumulated so far.
		history = append(page, history...)
		cursor = oldest

		s.log.Debug("history page fetched",
			"room_id", roomID, "page", pages, "page_size", len(page), "cursor", cursor)

		// Throttle between pages, never before the first request.
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("history fetch for room %d cancelled: %w", roomID, err)
		}
	}

	s.log.Info("room history assembled", "room_id", roomID, "messages", len(history), "round_trips", pages)
	return history, nil
}
