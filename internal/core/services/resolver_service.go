package services

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/HMasataka/chatwork-log-exporter/internal/domain"
	"github.com/HMasataka/chatwork-log-exporter/internal/ports"
)

// ResolverService resolves the author identities appearing in a room's
// message set with a single batched gateway call.
type ResolverService struct {
	gateway ports.Gateway
	log     *slog.Logger
}

// NewResolverService creates a ResolverService.
func NewResolverService(gateway ports.Gateway, log *slog.Logger) *ResolverService {
	if log == nil {
		log = slog.Default()
	}
	return &ResolverService{gateway: gateway, log: log}
}

// Resolve extracts the distinct author ids from messages and resolves them
// to account profiles in one call. Name enrichment is best-effort: a failed
// or partial resolution degrades to placeholder names and is logged, never
// surfaced as a room failure.
func (s *ResolverService) Resolve(ctx context.Context, messages []domain.Message) domain.AccountInfo {
	aids := collectAuthorIDs(messages)

	info, err := s.gateway.GetAccountInfo(ctx, aids)
	if err != nil {
		s.log.Warn("account info resolution failed, falling back to placeholder names",
			"authors", len(aids), "error", err)
		return domain.AccountInfo{
			Raw:      json.RawMessage("{}"),
			Accounts: map[int64]domain.Account{},
		}
	}

	if missing := len(aids) - len(info.Accounts); missing > 0 {
		s.log.Warn("account info resolution is partial", "authors", len(aids), "missing", missing)
	}
	return info
}

// collectAuthorIDs deduplicates author ids in first-seen order.
func collectAuthorIDs(messages []domain.Message) []int64 {
	seen := make(map[int64]struct{}, len(messages))
	var aids []int64
	for _, m := range messages {
		aid := m.AuthorID()
		if _, ok := seen[aid]; ok {
			continue
		}
		seen[aid] = struct{}{}
		aids = append(aids, aid)
	}
	return aids
}
