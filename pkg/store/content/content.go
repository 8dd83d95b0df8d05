// Package content defines the chunk store: content-addressed storage for
// the byte ranges that versions reference.
//
// Chunks are keyed by their strong hash, so storage is naturally
// deduplicating and writes are idempotent. The sync core never touches
// chunk bytes itself; the transfer layer reads and writes them here while
// reporting progress to the transfer tracker.
package content

import (
	"context"
	"errors"
)

// ErrChunkNotFound is returned when a chunk hash is not in the store.
var ErrChunkNotFound = errors.New("chunk not found")

// ChunkStore stores chunk bytes by content hash.
//
// Implementations must be safe for concurrent use. Writing the same hash
// twice is a no-op on the second write; content addressing makes the
// bytes identical by construction.
type ChunkStore interface {
	// WriteChunk stores the bytes under their hash. Idempotent.
	WriteChunk(ctx context.Context, hash string, data []byte) error

	// ReadChunk returns the bytes for a hash, or ErrChunkNotFound.
	ReadChunk(ctx context.Context, hash string) ([]byte, error)

	// HasChunk reports whether the hash is stored.
	HasChunk(ctx context.Context, hash string) (bool, error)

	// DeleteChunk removes a chunk. Deleting an absent hash is a no-op.
	DeleteChunk(ctx context.Context, hash string) error

	// ListChunks enumerates every stored hash. Order is unspecified.
	ListChunks(ctx context.Context) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}
