package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/afterword/vaultword/internal/common"
	"github.com/afterword/vaultword/internal/server/repositories/repomanager"
)

// Status is the answer to a check_entry_status request. Message and
// SenderName are populated only for expired entries; the sender display
// name is the one piece of metadata retained after erasure.
type Status struct {
	State      State  `json:"state"`
	Message    string `json:"message,omitempty"`
	SenderName string `json:"sender_name,omitempty"`
}

// Service answers lifecycle queries. A query against an already-swept
// entry and one against an expired entry the sweep has not reached yet
// produce identical answers.
type Service struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewService(db *sql.DB, m repomanager.RepositoryManager) *Service {
	return &Service{db: db, repomanager: m, now: time.Now}
}

// Check resolves the lifecycle state of an entry. It never returns
// ciphertext, key material, or entry content.
func (s *Service) Check(ctx context.Context, entryID string) (*Status, error) {
	entryRepo := s.repomanager.Entries(s.db)

	entry, err := entryRepo.GetByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// The row may already be swept; the tombstone keeps the
			// expired answer stable.
			return s.checkTombstone(ctx, entryID)
		}
		return nil, err
	}

	switch state := Evaluate(entry, s.now()); state {
	case StateExpired:
		senderName := ""
		if account, err := s.repomanager.Accounts(s.db).GetByID(ctx, entry.OwnerID); err == nil {
			senderName = account.DisplayName
		}
		return &Status{State: StateExpired, Message: ExpiredMessage, SenderName: senderName}, nil
	default:
		return &Status{State: state}, nil
	}
}

// MarkDelivered transitions a pending entry to sent and fixes its
// expiry at delivery time plus the retention window. The expiry is
// never extended afterwards. Called by the delivery trigger, not by
// the request surface.
func (s *Service) MarkDelivered(ctx context.Context, entryID string, retention time.Duration) error {
	sentAt := s.now()
	return s.repomanager.Entries(s.db).MarkSent(ctx, entryID, sentAt, sentAt.Add(retention))
}

func (s *Service) checkTombstone(ctx context.Context, entryID string) (*Status, error) {
	t, err := s.repomanager.Tombstones(s.db).GetByEntryID(ctx, entryID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return &Status{State: StateNotFound}, nil
		}
		return nil, err
	}
	return &Status{State: StateExpired, Message: ExpiredMessage, SenderName: t.SenderName}, nil
}
