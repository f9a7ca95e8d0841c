package cryptox

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// ComputeProof returns the base64 HMAC-SHA-256 of message under key.
//
// In the decrypt flow the message is the ciphertext string itself, so a
// captured proof authorizes exactly one encrypted payload and cannot be
// replayed against a different ciphertext under the same key.
func ComputeProof(message string, key RecipientKey) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyProof recomputes the proof for message under key and compares it
// against candidate in constant time.
func VerifyProof(message string, key RecipientKey, candidate string) bool {
	expected := ComputeProof(message, key)
	return hmac.Equal([]byte(expected), []byte(candidate))
}
