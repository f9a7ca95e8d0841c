package tombstones

import (
	"context"

	"github.com/afterword/vaultword/internal/server/models"
)

type Repository interface {
	// Create inserts a tombstone. Inserting one that already exists is
	// a no-op, so the sweep can safely re-run over the same entry.
	Create(ctx context.Context, t *models.Tombstone) error

	GetByEntryID(ctx context.Context, entryID string) (*models.Tombstone, error)
}
