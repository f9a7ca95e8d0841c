// Package repomanager vends repository implementations bound to a DBTX,
// so services can run the same repository against a plain connection or
// an open transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/afterword/vaultword/internal/dbx"
	"github.com/afterword/vaultword/internal/server/repositories/accounts"
	"github.com/afterword/vaultword/internal/server/repositories/entries"
	"github.com/afterword/vaultword/internal/server/repositories/tombstones"
)

type RepositoryManager interface {
	Accounts(db dbx.DBTX) accounts.Repository
	Entries(db dbx.DBTX) entries.Repository
	Tombstones(db dbx.DBTX) tombstones.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
