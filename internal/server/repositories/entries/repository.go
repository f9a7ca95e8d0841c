package entries

import (
	"context"
	"time"

	"github.com/afterword/vaultword/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, entry *models.VaultEntry) error
	GetByID(ctx context.Context, id string) (*models.VaultEntry, error)

	// MarkSent records delivery: stamps sent_at and fixes expires_at.
	// The expiry is never touched again after this point.
	MarkSent(ctx context.Context, id string, sentAt, expiresAt time.Time) error

	// SelectExpired returns up to limit sent entries whose expiry has
	// passed, for the sweep.
	SelectExpired(ctx context.Context, now time.Time, limit int) ([]*models.VaultEntry, error)

	Delete(ctx context.Context, id string) error
}
