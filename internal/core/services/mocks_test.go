package services

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/HMasataka/chatwork-log-exporter/internal/domain"
)

// mockGateway is a mock for the ports.Gateway interface.
type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) InitLoad(ctx context.Context) (*domain.RoomDirectory, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(*domain.RoomDirectory), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) LoadChat(ctx context.Context, roomID int64) (*domain.RoomSnapshot, error) {
	args := m.Called(ctx, roomID)
	if v := args.Get(0); v != nil {
		return v.(*domain.RoomSnapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) LoadOldChat(ctx context.Context, roomID, firstChatID int64) ([]domain.Message, error) {
	args := m.Called(ctx, roomID, firstChatID)
	if v := args.Get(0); v != nil {
		return v.([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) GetAccountInfo(ctx context.Context, aids []int64) (domain.AccountInfo, error) {
	args := m.Called(ctx, aids)
	if v := args.Get(0); v != nil {
		return v.(domain.AccountInfo), args.Error(1)
	}
	return domain.AccountInfo{}, args.Error(1)
}

func (m *mockGateway) DownloadFile(ctx context.Context, fileID int64) ([]byte, error) {
	args := m.Called(ctx, fileID)
	if v := args.Get(0); v != nil {
		return v.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

// countingLimiter records how often the pipeline throttled.
type countingLimiter struct {
	mu    sync.Mutex
	waits int
}

func (l *countingLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.waits++
	return ctx.Err()
}

func (l *countingLimiter) Waits() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.waits
}

// recordingNotifier captures the status side-channel signals.
type recordingNotifier struct {
	completed bool
	exported  int
	failed    int
	failure   error
}

func (n *recordingNotifier) ExportCompleted(exported, failed int) {
	n.completed = true
	n.exported = exported
	n.failed = failed
}

func (n *recordingNotifier) ExportFailed(err error) {
	n.failure = err
}

// msg builds a wire-shaped message with json.Number ids, the way the
// gateway decoder produces them.
func msg(id, aid int64, extra ...any) domain.Message {
	m := domain.Message{
		"id":  json.Number(strconv.FormatInt(id, 10)),
		"aid": json.Number(strconv.FormatInt(aid, 10)),
		"tm":  json.Number("1500000000"),
	}
	for i := 0; i+1 < len(extra); i += 2 {
		m[extra[i].(string)] = extra[i+1]
	}
	return m
}

func ids(messages []domain.Message) []int64 {
	out := make([]int64, len(messages))
	for i, m := range messages {
		out[i] = m.ID()
	}
	return out
}
