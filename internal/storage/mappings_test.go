package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/bounty-warden/internal/core"
)

func TestMemoryMappingStore(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryMappingStore()

	require.NoError(t, ms.Set(ctx, "OctoCat", "cus_A"))
	require.NoError(t, ms.Set(ctx, "hubot", "cus_B"))

	id, ok, err := ms.Get(ctx, "octocat")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "cus_A", id)

	_, ok, err = ms.Get(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ms.Set(ctx, "OCTOCAT", "cus_C"))
	list, err := ms.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.AccountMapping{
		{Handle: "hubot", AccountID: "cus_B"},
		{Handle: "octocat", AccountID: "cus_C"},
	}, list)

	require.NoError(t, ms.Delete(ctx, "Hubot"))
	assert.ErrorIs(t, ms.Delete(ctx, "hubot"), core.ErrNotFound)
	assert.ErrorIs(t, ms.Set(ctx, " ", "cus_X"), core.ErrValidation)
}

func TestSeedMappings(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryMappingStore()

	n, err := SeedMappings(ctx, ms, []core.AccountMapping{
		{Handle: "Alice", AccountID: "cus_1"},
		{Handle: "", AccountID: "cus_2"},
		{Handle: "bob", AccountID: ""},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	id, ok, err := ms.Get(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "cus_1", id)
}
