package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

func (r *PostgresRepository) Create(ctx context.Context, entry *models.VaultEntry) error {

	query :=
		`INSERT INTO vault_entries
		   (id, owner_id, title, data_type, payload_encrypted, audio_path, delivery_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		entry.ID, entry.OwnerID, entry.Title, entry.DataType,
		entry.Payload, entry.AudioPath, entry.DeliveryStatus).
		Scan(&entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.VaultEntry, error) {
	query :=
		`SELECT id, owner_id, title, data_type, payload_encrypted, audio_path,
		        delivery_status, created_at, sent_at, expires_at
		 FROM vault_entries
		 WHERE id = $1
		 `

	entry := &models.VaultEntry{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&entry.ID, &entry.OwnerID, &entry.Title, &entry.DataType,
		&entry.Payload, &entry.AudioPath, &entry.DeliveryStatus,
		&entry.CreatedAt, &entry.SentAt, &entry.ExpiresAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return entry, nil
}

func (r *PostgresRepository) MarkSent(ctx context.Context, id string, sentAt, expiresAt time.Time) error {
	query :=
		`UPDATE vault_entries
		 SET delivery_status = 'sent', sent_at = $2, expires_at = $3
		 WHERE id = $1 AND delivery_status = 'pending'
		 `

	res, err := r.db.ExecContext(ctx, query, id, sentAt, expiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}

	return nil
}

func (r *PostgresRepository) SelectExpired(ctx context.Context, now time.Time, limit int) ([]*models.VaultEntry, error) {
	query :=
		`SELECT id, owner_id, title, data_type, payload_encrypted, audio_path,
		        delivery_status, created_at, sent_at, expires_at
		 FROM vault_entries
		 WHERE delivery_status = 'sent' AND expires_at <= $1
		 ORDER BY id
		 LIMIT $2
		 `

	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.VaultEntry
	for rows.Next() {
		entry := &models.VaultEntry{}
		if err := rows.Scan(
			&entry.ID, &entry.OwnerID, &entry.Title, &entry.DataType,
			&entry.Payload, &entry.AudioPath, &entry.DeliveryStatus,
			&entry.CreatedAt, &entry.SentAt, &entry.ExpiresAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM vault_entries WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
