package accounts

import (
	"context"

	"github.com/afterword/vaultword/internal/server/models"
)

// Repository exposes the narrow account operations the core needs.
// There is deliberately no unrestricted read or write surface here.
type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)

	// SetBillingTier is the privileged tier-update path. It is reached
	// only through the entitlement service, never from caller-supplied
	// input, and issuing the same tier twice is a no-op.
	SetBillingTier(ctx context.Context, id string, tier string) error
}
