package tombstones

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/afterword/vaultword/internal/common"
	"github.com/afterword/vaultword/internal/dbx"
	"github.com/afterword/vaultword/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, t *models.Tombstone) error {

	query :=
		`INSERT INTO vault_entry_tombstones (entry_id, owner_id, sender_name, sent_at, expired_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (entry_id) DO NOTHING
		 `

	_, err := r.db.ExecContext(ctx, query,
		t.EntryID, t.OwnerID, t.SenderName, t.SentAt, t.ExpiredAt)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetByEntryID(ctx context.Context, entryID string) (*models.Tombstone, error) {
	query :=
		`SELECT entry_id, owner_id, sender_name, sent_at, expired_at
		 FROM vault_entry_tombstones
		 WHERE entry_id = $1
		 `

	t := &models.Tombstone{}
	err := r.db.QueryRowContext(ctx, query, entryID).
		Scan(&t.EntryID, &t.OwnerID, &t.SenderName, &t.SentAt, &t.ExpiredAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return t, nil
}
