// Package cryptox implements the envelope encryption primitive and the
// keyed decrypt proof used by the authorization gate.
//
// An envelope is an AES-256-GCM unit encoded as three standard-base64
// segments joined by ".": nonce (12 bytes), ciphertext, tag (16 bytes).
// Each segment is encoded independently; the tag is carried separately
// from the ciphertext on the wire even though AES-GCM produces them
// concatenated.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/afterword/vaultword/internal/common"
)

const (
	// NonceSize is the AES-GCM nonce length in bytes.
	NonceSize = 12
	// TagSize is the AES-GCM authentication tag length in bytes.
	TagSize = 16
)

// EnvelopeSeparator joins the three base64 segments of an encoded envelope.
const EnvelopeSeparator = "."

// Key is raw symmetric key material for envelope operations.
type Key []byte

// DeriveServerKey derives the process-wide symmetric key as the SHA-256
// digest of the UTF-8 secret bytes. No salt, no iteration: the secret
// itself is the high-entropy material, and the derivation must stay
// deterministic so rotating the secret invalidates every stored
// envelope at once. Callers re-derive per invocation rather than
// caching the result.
func DeriveServerKey(secret string) Key {
	digest := sha256.Sum256([]byte(secret))
	return digest[:]
}

// Encrypt seals plaintext under key with a fresh random 12-byte nonce
// and returns the three-segment envelope encoding. The nonce is never
// reused for a given key; that is the core safety invariant of GCM.
func Encrypt(plaintext []byte, key Key) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("cipher init: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("gcm init: %w", err)
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}

	sealed := aesgcm.Seal(nil, nonce, plaintext, nil)

	// Seal appends the 16-byte tag to the ciphertext; the wire format
	// carries them as separate segments.
	cipherText := sealed[:len(sealed)-TagSize]
	tag := sealed[len(sealed)-TagSize:]

	b64 := base64.StdEncoding
	return b64.EncodeToString(nonce) + EnvelopeSeparator +
		b64.EncodeToString(cipherText) + EnvelopeSeparator +
		b64.EncodeToString(tag), nil
}

// Decrypt opens a three-segment envelope under key.
//
// A value without exactly three well-formed base64 segments fails with
// common.ErrFormat. A tag that does not verify (wrong key, corrupted
// ciphertext, truncated or extended tag) fails with
// common.ErrAuthentication; the two causes are deliberately not
// distinguished.
func Decrypt(encoded string, key Key) ([]byte, error) {
	nonce, cipherText, tag, err := decodeSegments(encoded)
	if err != nil {
		return nil, err
	}

	if len(nonce) != NonceSize || len(tag) != TagSize {
		return nil, common.ErrAuthentication
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher init: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm init: %w", err)
	}

	sealed := make([]byte, 0, len(cipherText)+len(tag))
	sealed = append(sealed, cipherText...)
	sealed = append(sealed, tag...)

	plaintext, err := aesgcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, common.ErrAuthentication
	}
	return plaintext, nil
}

func decodeSegments(encoded string) (nonce, cipherText, tag []byte, err error) {
	parts := strings.Split(encoded, EnvelopeSeparator)
	if len(parts) != 3 {
		return nil, nil, nil, common.ErrFormat
	}

	b64 := base64.StdEncoding
	if nonce, err = b64.DecodeString(parts[0]); err != nil {
		return nil, nil, nil, common.ErrFormat
	}
	if cipherText, err = b64.DecodeString(parts[1]); err != nil {
		return nil, nil, nil, common.ErrFormat
	}
	if tag, err = b64.DecodeString(parts[2]); err != nil {
		return nil, nil, nil, common.ErrFormat
	}
	return nonce, cipherText, tag, nil
}
