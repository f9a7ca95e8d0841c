// Package models defines the server-side data model: accounts with
// wrapped recipient keys, vault entries, and tombstones left behind by
// the expiry sweep.
package models

import (
	"time"

	"github.com/afterword/vaultword/internal/cryptox"
)

// Billing tiers resolved from the billing collaborator.
const (
	TierFree     = "free"
	TierPro      = "pro"
	TierLifetime = "lifetime"
)

// Account is the recipient key record plus the account's billing state.
// WrappedKey holds the per-recipient HMAC key encrypted under the
// server key; the raw key never leaves the server.
type Account struct {
	ID          string
	DisplayName string
	WrappedKey  cryptox.WrappedKey
	BillingTier string
	CreatedAt   time.Time
}
