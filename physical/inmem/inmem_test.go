package inmem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephnangue/credvault/logger"
	"github.com/stephnangue/credvault/physical"
)

func newTestBackend(t *testing.T) physical.Backend {
	t.Helper()
	b, err := NewInmemBackend(nil, logger.NewZerologLogger(logger.DefaultConfig()))
	require.NoError(t, err)
	return b
}

func testEntry(tenant, key string) *physical.Entry {
	return &physical.Entry{
		TenantID:   tenant,
		StorageKey: key,
		Ciphertext: []byte("ciphertext"),
		Nonce:      []byte("012345678901"),
		AuthTag:    []byte("0123456789012345"),
		Metadata:   map[string]string{"token_class": "personal-access-token"},
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, testEntry("alice", "alice:github")))

	got, err := b.Get(ctx, "alice", "alice:github")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []byte("ciphertext"), got.Ciphertext)
	assert.Equal(t, "personal-access-token", got.Metadata["token_class"])
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGetAbsentIsNotAnError(t *testing.T) {
	b := newTestBackend(t)

	got, err := b.Get(context.Background(), "alice", "alice:github")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpsertReplacesInPlace(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, testEntry("alice", "alice:github")))
	first, err := b.Get(ctx, "alice", "alice:github")
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)

	second := testEntry("alice", "alice:github")
	second.Ciphertext = []byte("replaced")
	require.NoError(t, b.Put(ctx, second))

	got, err := b.Get(ctx, "alice", "alice:github")
	require.NoError(t, err)
	assert.Equal(t, []byte("replaced"), got.Ciphertext)
	assert.Equal(t, first.CreatedAt, got.CreatedAt, "created_at survives upsert")
	assert.True(t, got.UpdatedAt.After(first.UpdatedAt))

	entries, err := b.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "upsert must not grow the table")
}

func TestDeleteIdempotent(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, testEntry("alice", "alice:github")))

	removed, err := b.Delete(ctx, "alice", "alice:github")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = b.Delete(ctx, "alice", "alice:github")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestListStripsCiphertextAndIsolatesTenants(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, testEntry("alice", "alice:github")))
	require.NoError(t, b.Put(ctx, testEntry("alice", "alice:gitlab")))
	require.NoError(t, b.Put(ctx, testEntry("bob", "bob:github")))

	entries, err := b.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "alice:github", entries[0].StorageKey)
	assert.Equal(t, "alice:gitlab", entries[1].StorageKey)
	for _, entry := range entries {
		assert.Nil(t, entry.Ciphertext)
		assert.Nil(t, entry.Nonce)
		assert.Nil(t, entry.AuthTag)
		assert.NotEmpty(t, entry.Metadata)
	}
}

func TestStoredEntryDoesNotAliasCaller(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	entry := testEntry("alice", "alice:github")
	require.NoError(t, b.Put(ctx, entry))
	entry.Ciphertext[0] = 'X'
	entry.Metadata["token_class"] = "mutated"

	got, err := b.Get(ctx, "alice", "alice:github")
	require.NoError(t, err)
	assert.Equal(t, byte('c'), got.Ciphertext[0])
	assert.Equal(t, "personal-access-token", got.Metadata["token_class"])
}
