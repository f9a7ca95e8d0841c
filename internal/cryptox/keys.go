package cryptox

import (
	"fmt"

	"github.com/afterword/vaultword/internal/common"
)

// RecipientKeySize is the length of a raw per-recipient HMAC key.
const RecipientKeySize = 32

// RecipientKey is a raw per-recipient HMAC key. It is never transmitted
// to a client in clear and never used as an encryption key.
type RecipientKey []byte

// WrappedKey is an envelope string holding an encrypted RecipientKey.
// The distinct type keeps a wrapped key from being passed where raw key
// bytes are expected.
type WrappedKey string

// NewRecipientKey generates a fresh 32-byte recipient key.
func NewRecipientKey() RecipientKey {
	return RecipientKey(common.GenerateRandByteArray(RecipientKeySize))
}

// WrapRecipientKey seals a recipient key under the server key for
// storage in the account row.
func WrapRecipientKey(rk RecipientKey, serverKey Key) (WrappedKey, error) {
	if len(rk) != RecipientKeySize {
		return "", fmt.Errorf("recipient key: unexpected length %d: %w", len(rk), common.ErrInternal)
	}
	encoded, err := Encrypt(rk, serverKey)
	if err != nil {
		return "", err
	}
	return WrappedKey(encoded), nil
}

// UnwrapRecipientKey opens a stored wrapped key under the server key
// and enforces the raw key length.
func UnwrapRecipientKey(wk WrappedKey, serverKey Key) (RecipientKey, error) {
	raw, err := Decrypt(string(wk), serverKey)
	if err != nil {
		return nil, err
	}
	if len(raw) != RecipientKeySize {
		return nil, fmt.Errorf("recipient key: unexpected length %d: %w", len(raw), common.ErrInternal)
	}
	return RecipientKey(raw), nil
}
