// Package blob provides opaque key-addressed storage for audio payload
// envelopes. The stored bytes are always an envelope string; cleartext
// audio never reaches the store.
package blob

import "context"

// Store is the narrow blob interface the core uses.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
