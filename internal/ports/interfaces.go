package ports

import (
	"context"

	"github.com/HMasataka/chatwork-log-exporter/internal/domain"
)

// Gateway exposes the read operations of the Chatwork gateway endpoints.
// Every call is one request/response round trip authenticated with the
// session token and user id; any non-success response is returned as an
// error and is terminal for that operation (no retries).
type Gateway interface {
	// InitLoad fetches the initial bulk snapshot: rooms, contacts and
	// membership. This is the room discovery call.
	InitLoad(ctx context.Context) (*domain.RoomDirectory, error)
	// LoadChat fetches the current message window and attachment list of
	// one room.
	LoadChat(ctx context.Context, roomID int64) (*domain.RoomSnapshot, error)
	// LoadOldChat fetches one page of messages older than firstChatID.
	// firstChatID 0 means "from the newest end". An empty page signals
	// exhausted history.
	LoadOldChat(ctx context.Context, roomID, firstChatID int64) ([]domain.Message, error)
	// GetAccountInfo resolves a batch of author ids to account profiles.
	GetAccountInfo(ctx context.Context, aids []int64) (domain.AccountInfo, error)
	// DownloadFile fetches the binary payload of one attachment.
	DownloadFile(ctx context.Context, fileID int64) ([]byte, error)
}

// Limiter throttles consecutive network operations. Wait suspends the
// caller for the configured delay; it is invoked between requests of a
// sequence, never before the first one.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Sink persists exported content outside the pipeline. Filenames are plain
// names without path separators; the core has no knowledge of where files
// land. Files already delivered are never rolled back on a later failure.
type Sink interface {
	Deliver(filename string, content []byte) error
}

// Notifier is the user-visible status side-channel of an export run.
type Notifier interface {
	// ExportCompleted signals that the run finished, with per-room counts
	// of exported and failed rooms.
	ExportCompleted(exported, failed int)
	// ExportFailed signals that the run aborted with the given cause.
	ExportFailed(err error)
}
