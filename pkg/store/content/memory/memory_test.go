package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittosync/pkg/store/content"
)

var _ content.ChunkStore = (*MemoryChunkStore)(nil)

func TestWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryChunkStore()

	require.NoError(t, s.WriteChunk(ctx, "h1", []byte("hello")))

	data, err := s.ReadChunk(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	ok, err := s.HasChunk(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWriteChunk_IdempotentFirstWriteWins(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryChunkStore()

	require.NoError(t, s.WriteChunk(ctx, "h1", []byte("hello")))
	require.NoError(t, s.WriteChunk(ctx, "h1", []byte("ignored")))

	data, err := s.ReadChunk(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestReadChunk_NotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryChunkStore()

	_, err := s.ReadChunk(ctx, "missing")
	assert.ErrorIs(t, err, content.ErrChunkNotFound)
}

func TestDeleteChunk(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryChunkStore()

	require.NoError(t, s.WriteChunk(ctx, "h1", []byte("hello")))
	require.NoError(t, s.DeleteChunk(ctx, "h1"))

	ok, err := s.HasChunk(ctx, "h1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting an absent chunk is a no-op.
	require.NoError(t, s.DeleteChunk(ctx, "h1"))
}

func TestListChunks(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryChunkStore()

	require.NoError(t, s.WriteChunk(ctx, "h1", []byte("a")))
	require.NoError(t, s.WriteChunk(ctx, "h2", []byte("b")))

	hashes, err := s.ListChunks(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"h1", "h2"}, hashes)
}

func TestReadChunk_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryChunkStore()

	require.NoError(t, s.WriteChunk(ctx, "h1", []byte("hello")))

	data, err := s.ReadChunk(ctx, "h1")
	require.NoError(t, err)
	data[0] = 'X'

	fresh, err := s.ReadChunk(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), fresh)
}
