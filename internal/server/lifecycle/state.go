// Package lifecycle governs whether a vault entry is visible, pending,
// or permanently gone. State is computed purely from the delivery
// status and the wall clock against the fixed expiry; physical erasure
// is a storage concern downstream of the expired state and never
// changes what a reader observes.
package lifecycle

import (
	"time"

	"github.com/afterword/vaultword/internal/server/models"
)

type State string

const (
	StateNotFound    State = "not_found"
	StateUnavailable State = "unavailable"
	StateAvailable   State = "available"
	StateExpired     State = "expired"
)

// ExpiredMessage is the stable, non-identifying text returned for any
// expired entry, swept or not.
const ExpiredMessage = "This message was available for 30 days after delivery and has been permanently erased."

// Evaluate returns the lifecycle state of entry at the given instant.
//
// A nil entry is not_found. A pending entry is unavailable regardless
// of timestamps. A sent entry without a recorded expiry is refused as
// unavailable rather than served forever.
func Evaluate(entry *models.VaultEntry, now time.Time) State {
	if entry == nil {
		return StateNotFound
	}
	if entry.DeliveryStatus != models.DeliverySent {
		return StateUnavailable
	}
	if entry.ExpiresAt == nil {
		return StateUnavailable
	}
	if !now.Before(*entry.ExpiresAt) {
		return StateExpired
	}
	return StateAvailable
}
