// Package sweep physically erases expired vault entries. Readers never
// depend on the sweep: the lifecycle component already refuses expired
// entries, so a swept and an unswept expired entry look identical from
// the outside.
package sweep

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/afterword/vaultword/internal/common"
	"github.com/afterword/vaultword/internal/dbx"
	"github.com/afterword/vaultword/internal/logging"
	"github.com/afterword/vaultword/internal/server/blob"
	"github.com/afterword/vaultword/internal/server/models"
	"github.com/afterword/vaultword/internal/server/repositories/repomanager"
)

type Service struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       blob.Store
	logger      logging.Logger
	interval    time.Duration
	batchSize   int
	now         func() time.Time
}

func NewService(db *sql.DB, m repomanager.RepositoryManager, blobs blob.Store,
	interval time.Duration, logger logging.Logger) *Service {
	return &Service{
		db:          db,
		repomanager: m,
		blobs:       blobs,
		logger:      logger.With("module", "sweep"),
		interval:    interval,
		batchSize:   100,
		now:         time.Now,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Stopping sweep...")
			return
		case <-ticker.C:
			erased, err := s.SweepOnce(ctx)
			if err != nil {
				s.logger.Error(ctx, "sweep failed", "error", err.Error())
				continue
			}
			if erased > 0 {
				s.logger.Info(ctx, "sweep erased expired entries", "count", erased)
			}
		}
	}
}

// SweepOnce erases one batch of expired entries and returns how many
// were erased. A tombstone is written before anything is deleted, so
// the expired answer survives erasure. Per-entry failures are logged
// and retried on the next cycle.
func (s *Service) SweepOnce(ctx context.Context) (int, error) {
	expired, err := s.repomanager.Entries(s.db).SelectExpired(ctx, s.now(), s.batchSize)
	if err != nil {
		return 0, err
	}

	erased := 0
	for _, entry := range expired {
		if err := s.eraseEntry(ctx, entry); err != nil {
			s.logger.Error(ctx, "failed to erase entry", "entry", entry.ID, "error", err.Error())
			continue
		}
		erased++
	}

	return erased, nil
}

func (s *Service) eraseEntry(ctx context.Context, entry *models.VaultEntry) error {
	senderName := ""
	if account, err := s.repomanager.Accounts(s.db).GetByID(ctx, entry.OwnerID); err == nil {
		senderName = account.DisplayName
	} else if !errors.Is(err, common.ErrNotFound) {
		return err
	}

	// The audio blob goes first: if that fails, the row stays and the
	// next cycle retries the whole entry.
	if entry.AudioPath != "" {
		if err := s.blobs.Delete(ctx, entry.AudioPath); err != nil {
			return err
		}
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Tombstones(tx).Create(ctx, &models.Tombstone{
			EntryID:    entry.ID,
			OwnerID:    entry.OwnerID,
			SenderName: senderName,
			SentAt:     entry.SentAt,
			ExpiredAt:  s.now(),
		}); err != nil {
			return err
		}
		return s.repomanager.Entries(tx).Delete(ctx, entry.ID)
	})
}
