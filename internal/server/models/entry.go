package models

import "time"

// Payload data types.
const (
	DataTypeText  = "text"
	DataTypeAudio = "audio"
)

// Delivery statuses.
const (
	DeliveryPending = "pending"
	DeliverySent    = "sent"
)

// VaultEntry is a stored, encrypted message with a bounded
// availability window.
//
// Text payloads carry the envelope inline in Payload; audio payloads
// carry a blob-store path in AudioPath and the stored blob bytes are
// themselves an envelope string, never cleartext. ExpiresAt is fixed at
// delivery time (SentAt plus the retention window) and is never
// extended afterwards.
type VaultEntry struct {
	ID             string
	OwnerID        string
	Title          string
	DataType       string
	Payload        string
	AudioPath      string
	DeliveryStatus string
	CreatedAt      time.Time
	SentAt         *time.Time
	ExpiresAt      *time.Time
}

// Tombstone is the only representation of a vault entry that survives
// physical erasure: the fact that an entry existed plus the sender's
// display name for the recipient's context.
type Tombstone struct {
	EntryID    string
	OwnerID    string
	SenderName string
	SentAt     *time.Time
	ExpiredAt  time.Time
}
