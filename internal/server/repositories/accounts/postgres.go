package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/afterword/vaultword/internal/common"
	"github.com/afterword/vaultword/internal/cryptox"
	"github.com/afterword/vaultword/internal/dbx"
	"github.com/afterword/vaultword/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {

	query :=
		`INSERT INTO accounts (id, display_name, wrapped_key, billing_tier)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		account.ID, account.DisplayName, string(account.WrappedKey), account.BillingTier).
		Scan(&account.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query :=
		`SELECT id, display_name, wrapped_key, billing_tier, created_at FROM accounts
		 WHERE id = $1
		 `

	account := &models.Account{}
	var wrapped string
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&account.ID, &account.DisplayName, &wrapped, &account.BillingTier, &account.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	account.WrappedKey = cryptox.WrappedKey(wrapped)
	return account, nil
}

func (r *PostgresRepository) SetBillingTier(ctx context.Context, id string, tier string) error {
	query :=
		`UPDATE accounts SET billing_tier = $2
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, tier)
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
