package services

import (
	"time"

	"github.com/HMasataka/chatwork-log-exporter/internal/domain"
)

// datetimeLayout is the local calendar representation added to messages.
const datetimeLayout = "2006/01/02 15:04:05"

// EnrichOptions selects which transformations the enricher applies. The
// transformations are independent and order-insensitive.
type EnrichOptions struct {
	AppendDate      bool
	AppendUsername  bool
	DeleteReactions bool
}

// EnrichmentService applies the configured transformations to a room's
// message set in place: a human-readable datetime derived from the epoch
// timestamp, the resolved author display name, and optional removal of the
// reactions field. Date and name derivation are idempotent; deleting an
// absent reactions key is a no-op, so re-running is always safe.
type EnrichmentService struct{}

// NewEnrichmentService creates an EnrichmentService.
func NewEnrichmentService() *EnrichmentService {
	return &EnrichmentService{}
}

// Enrich mutates messages according to opts. The messages are owned
// exclusively by the current room's export run.
func (s *EnrichmentService) Enrich(messages []domain.Message, accounts domain.AccountInfo, opts EnrichOptions) {
	for _, m := range messages {
		if opts.AppendDate {
			if _, ok := m["tm"]; ok {
				m["datetime"] = time.Unix(m.Int64("tm"), 0).Format(datetimeLayout)
			}
		}

		if opts.AppendUsername {
			m["aid_name"] = accounts.Name(m.AuthorID())
		}

		if opts.DeleteReactions {
			delete(m, "reactions")
		}
	}
}
