// Package memory implements the chunk store with an in-memory map, for
// tests and ephemeral deployments.
package memory

import (
	"context"
	"sync"

	"github.com/marmos91/dittosync/pkg/store/content"
)

// MemoryChunkStore implements content.ChunkStore using an in-memory map.
type MemoryChunkStore struct {
	// mu protects chunks for concurrent access
	mu sync.RWMutex

	// chunks maps content hashes to chunk bytes
	chunks map[string][]byte
}

// NewMemoryChunkStore creates an empty in-memory chunk store.
func NewMemoryChunkStore() *MemoryChunkStore {
	return &MemoryChunkStore{
		chunks: make(map[string][]byte),
	}
}

// WriteChunk stores the bytes under their hash. The data is copied, so
// the caller may reuse its buffer.
func (s *MemoryChunkStore) WriteChunk(ctx context.Context, hash string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chunks[hash]; ok {
		return nil
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	s.chunks[hash] = stored
	return nil
}

// ReadChunk returns a copy of the chunk bytes.
func (s *MemoryChunkStore) ReadChunk(ctx context.Context, hash string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.chunks[hash]
	if !ok {
		return nil, content.ErrChunkNotFound
	}
	data := make([]byte, len(stored))
	copy(data, stored)
	return data, nil
}

// HasChunk reports whether the hash is stored.
func (s *MemoryChunkStore) HasChunk(ctx context.Context, hash string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.chunks[hash]
	return ok, nil
}

// DeleteChunk removes a chunk; absent hashes are a no-op.
func (s *MemoryChunkStore) DeleteChunk(ctx context.Context, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.chunks, hash)
	return nil
}

// ListChunks enumerates every stored hash.
func (s *MemoryChunkStore) ListChunks(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hashes := make([]string, 0, len(s.chunks))
	for hash := range s.chunks {
		hashes = append(hashes, hash)
	}
	return hashes, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryChunkStore) Close() error {
	return nil
}
