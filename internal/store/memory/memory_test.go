package memory_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/serroba/shortlink/internal/clock"
	"github.com/serroba/shortlink/internal/link"
	"github.com/serroba/shortlink/internal/store"
	"github.com/serroba/shortlink/internal/store/memory"
	"github.com/serroba/shortlink/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) (store.Store, *clock.Fake) {
		clk := clock.NewFake(storetest.Epoch)

		return memory.New(clk), clk
	})
}

func TestMemoryStore_DefaultPageSize(t *testing.T) {
	clk := clock.NewFake(storetest.Epoch)
	s := memory.New(clk)
	ctx := context.Background()

	for i := range store.DefaultPageSize + 1 {
		lnk := storetest.NewLink(
			storetest.WithCode(link.Code("code-"+strconv.Itoa(i))),
			storetest.WithOwner("alice"),
			storetest.WithCreatedAt(int64(i)),
		)

		_, err := s.Create(ctx, lnk)
		require.NoError(t, err)
	}

	page, err := s.ListByGroupAndOwner(ctx, link.DefaultGroup, "alice", "", 0)
	require.NoError(t, err)

	assert.Len(t, page.Entries, store.DefaultPageSize)
	require.NotEmpty(t, page.NextPageToken)

	rest, err := s.ListByGroupAndOwner(ctx, link.DefaultGroup, "alice", page.NextPageToken, 0)
	require.NoError(t, err)

	assert.Len(t, rest.Entries, 1)
	assert.Empty(t, rest.NextPageToken)
}

func TestMemoryStore_ListOrderedByCreation(t *testing.T) {
	clk := clock.NewFake(storetest.Epoch)
	s := memory.New(clk)
	ctx := context.Background()

	// Insert out of creation order to prove the sort is on CreatedAt.
	for _, ms := range []int64{30, 10, 20} {
		lnk := storetest.NewLink(
			storetest.WithOwner("alice"),
			storetest.WithCreatedAt(ms),
		)

		_, err := s.Create(ctx, lnk)
		require.NoError(t, err)
	}

	page, err := s.ListByGroupAndOwner(ctx, link.DefaultGroup, "alice", "", 0)
	require.NoError(t, err)
	require.Len(t, page.Entries, 3)

	assert.Equal(t, int64(10), page.Entries[0].CreatedAt)
	assert.Equal(t, int64(20), page.Entries[1].CreatedAt)
	assert.Equal(t, int64(30), page.Entries[2].CreatedAt)
}

func TestMemoryStore_StaleOffsetTokenIsAccepted(t *testing.T) {
	// Offset tokens survive concurrent deletes; entries may shift between
	// pages but the call itself must not fail.
	clk := clock.NewFake(storetest.Epoch)
	s := memory.New(clk)
	ctx := context.Background()

	created := make([]link.ShortLink, 0, 4)

	for i := range 4 {
		lnk := storetest.NewLink(
			storetest.WithOwner("alice"),
			storetest.WithCreatedAt(int64(i)),
		)

		_, err := s.Create(ctx, lnk)
		require.NoError(t, err)

		created = append(created, lnk)
	}

	page, err := s.ListByGroupAndOwner(ctx, link.DefaultGroup, "alice", "", 2)
	require.NoError(t, err)
	require.NotEmpty(t, page.NextPageToken)

	require.NoError(t, s.Delete(ctx, link.DefaultGroup, created[0].Code, "alice"))

	rest, err := s.ListByGroupAndOwner(ctx, link.DefaultGroup, "alice", page.NextPageToken, 2)
	require.NoError(t, err)
	assert.Len(t, rest.Entries, 1)
}
