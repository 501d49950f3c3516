package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/serroba/shortlink/internal/clock"
	"github.com/serroba/shortlink/internal/link"
	"github.com/serroba/shortlink/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory produces a fresh, empty store for one scenario together with the
// fake clock driving its expiry decisions. Integration-backed factories are
// expected to wipe their tables or collections before returning.
type Factory func(t *testing.T) (store.Store, *clock.Fake)

// Epoch is the instant every suite scenario starts at.
var Epoch = time.UnixMilli(1_700_000_000_000)

// Run exercises the full behavioral contract of store.Store against the
// given backend. Every backend must pass these scenarios identically; only
// internal technique may differ.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("create then get returns an equal record", func(t *testing.T) {
		s, _ := newStore(t)

		lnk := NewLink(
			WithOwner("alice"),
			WithCreatedAt(Epoch.UnixMilli()),
			WithExpiresAt(Epoch.Add(time.Hour).UnixMilli()),
		)

		created, err := s.Create(ctx, lnk)
		require.NoError(t, err)
		assert.Equal(t, lnk, created)

		got, err := s.Get(ctx, lnk.Group, lnk.Code, true)
		require.NoError(t, err)
		assert.Equal(t, lnk, *got)
	})

	t.Run("duplicate create fails without mutating state", func(t *testing.T) {
		s, _ := newStore(t)

		first := NewLink(WithCode("dup"), WithURL("https://example.com/first"))
		_, err := s.Create(ctx, first)
		require.NoError(t, err)

		second := NewLink(WithCode("dup"), WithURL("https://example.com/second"))
		_, err = s.Create(ctx, second)
		assert.ErrorIs(t, err, store.ErrDuplicateCode)

		got, err := s.Get(ctx, first.Group, first.Code, true)
		require.NoError(t, err)
		assert.Equal(t, first.URL, got.URL)
	})

	t.Run("concurrent creates of the same code yield exactly one success", func(t *testing.T) {
		s, _ := newStore(t)

		const attempts = 8

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)

		for i := range attempts {
			wg.Add(1)

			go func(i int) {
				defer wg.Done()

				lnk := NewLink(WithCode("race"), WithURL("https://example.com/race"))

				_, err := s.Create(ctx, lnk)
				if err == nil {
					mu.Lock()
					successes++
					mu.Unlock()

					return
				}

				assert.ErrorIs(t, err, store.ErrDuplicateCode)
			}(i)
		}

		wg.Wait()

		assert.Equal(t, 1, successes)
	})

	t.Run("same code in different groups coexists", func(t *testing.T) {
		s, _ := newStore(t)

		inG1 := NewLink(WithCode("abc"), WithGroup("g1"), WithURL("https://example.com/one"))
		inG2 := NewLink(WithCode("abc"), WithGroup("g2"), WithURL("https://example.com/two"))

		_, err := s.Create(ctx, inG1)
		require.NoError(t, err)
		_, err = s.Create(ctx, inG2)
		require.NoError(t, err)

		got1, err := s.Get(ctx, "g1", "abc", true)
		require.NoError(t, err)
		got2, err := s.Get(ctx, "g2", "abc", true)
		require.NoError(t, err)

		assert.Equal(t, "https://example.com/one", got1.URL)
		assert.Equal(t, "https://example.com/two", got2.URL)
	})

	t.Run("get differentiates by group", func(t *testing.T) {
		s, _ := newStore(t)

		lnk := NewLink(WithGroup("somewhere"))
		_, err := s.Create(ctx, lnk)
		require.NoError(t, err)

		_, err = s.Get(ctx, lnk.Group, lnk.Code, true)
		require.NoError(t, err)

		_, err = s.Get(ctx, "elsewhere", lnk.Code, true)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("expired links are absent by default but retrievable on request", func(t *testing.T) {
		s, clk := newStore(t)

		expiry := clk.Now().Add(5 * time.Minute)
		lnk := NewLink(WithExpiresAt(expiry.UnixMilli()))
		_, err := s.Create(ctx, lnk)
		require.NoError(t, err)

		clk.Advance(5 * time.Minute)

		// Live at exactly the expiry instant.
		_, err = s.Get(ctx, lnk.Group, lnk.Code, true)
		require.NoError(t, err)

		clk.Advance(time.Second)

		_, err = s.Get(ctx, lnk.Group, lnk.Code, true)
		assert.ErrorIs(t, err, store.ErrNotFound)

		got, err := s.Get(ctx, lnk.Group, lnk.Code, false)
		require.NoError(t, err)
		assert.Equal(t, lnk.Code, got.Code)
	})

	t.Run("listing includes expired links", func(t *testing.T) {
		s, clk := newStore(t)

		lnk := NewLink(
			WithOwner("alice"),
			WithExpiresAt(clk.Now().Add(time.Minute).UnixMilli()),
		)
		_, err := s.Create(ctx, lnk)
		require.NoError(t, err)

		clk.Advance(2 * time.Minute)

		page, err := s.ListByGroupAndOwner(ctx, lnk.Group, "alice", "", 0)
		require.NoError(t, err)
		assert.Len(t, page.Entries, 1)
	})

	t.Run("anonymous-owned links are mutable by anyone", func(t *testing.T) {
		s, clk := newStore(t)

		lnk := NewLink() // owner defaults to link.AnonymousUser
		_, err := s.Create(ctx, lnk)
		require.NoError(t, err)

		require.NoError(t, s.UpdateURL(ctx, lnk.Group, lnk.Code, "https://example.com/new", "whoever"))

		got, err := s.Get(ctx, lnk.Group, lnk.Code, true)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/new", got.URL)

		newExpiry := clk.Now().Add(time.Hour).UnixMilli()
		require.NoError(t, s.UpdateExpiry(ctx, lnk.Group, lnk.Code, &newExpiry, "whoever else"))

		got, err = s.Get(ctx, lnk.Group, lnk.Code, true)
		require.NoError(t, err)
		require.NotNil(t, got.ExpiresAt)
		assert.Equal(t, newExpiry, *got.ExpiresAt)
	})

	t.Run("owned links are mutable only by their owner", func(t *testing.T) {
		s, _ := newStore(t)

		lnk := NewLink(WithOwner("alice"), WithURL("https://example.com/original"))
		_, err := s.Create(ctx, lnk)
		require.NoError(t, err)

		err = s.UpdateURL(ctx, lnk.Group, lnk.Code, "https://example.com/hijacked", "mallory")
		assert.ErrorIs(t, err, store.ErrNotFoundOrNotPermitted)

		err = s.UpdateURL(ctx, lnk.Group, lnk.Code, "https://example.com/hijacked", link.AnonymousUser)
		assert.ErrorIs(t, err, store.ErrNotFoundOrNotPermitted)

		got, err := s.Get(ctx, lnk.Group, lnk.Code, true)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/original", got.URL)

		require.NoError(t, s.UpdateURL(ctx, lnk.Group, lnk.Code, "https://example.com/moved", "alice"))

		got, err = s.Get(ctx, lnk.Group, lnk.Code, true)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/moved", got.URL)
	})

	t.Run("updating a missing code fails", func(t *testing.T) {
		s, _ := newStore(t)

		err := s.UpdateURL(ctx, link.DefaultGroup, "missing", "https://example.com", link.AnonymousUser)
		assert.ErrorIs(t, err, store.ErrNotFoundOrNotPermitted)

		err = s.UpdateExpiry(ctx, link.DefaultGroup, "missing", nil, link.AnonymousUser)
		assert.ErrorIs(t, err, store.ErrNotFoundOrNotPermitted)
	})

	t.Run("updates differentiate by group", func(t *testing.T) {
		s, _ := newStore(t)

		lnk := NewLink(WithCode("code"), WithGroup("group1"))
		_, err := s.Create(ctx, lnk)
		require.NoError(t, err)

		require.NoError(t, s.UpdateURL(ctx, "group1", "code", "https://example.com/new", link.AnonymousUser))

		err = s.UpdateURL(ctx, "group2", "code", "https://example.com/new", link.AnonymousUser)
		assert.ErrorIs(t, err, store.ErrNotFoundOrNotPermitted)
	})

	t.Run("expiry can be cleared", func(t *testing.T) {
		s, clk := newStore(t)

		lnk := NewLink(WithExpiresAt(clk.Now().Add(time.Minute).UnixMilli()))
		_, err := s.Create(ctx, lnk)
		require.NoError(t, err)

		require.NoError(t, s.UpdateExpiry(ctx, lnk.Group, lnk.Code, nil, link.AnonymousUser))

		clk.Advance(time.Hour)

		got, err := s.Get(ctx, lnk.Group, lnk.Code, true)
		require.NoError(t, err)
		assert.True(t, got.DoesNotExpire())
	})

	t.Run("delete removes the link", func(t *testing.T) {
		s, _ := newStore(t)

		lnk := NewLink(WithOwner("alice"))
		_, err := s.Create(ctx, lnk)
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, lnk.Group, lnk.Code, "alice"))

		_, err = s.Get(ctx, lnk.Group, lnk.Code, false)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("delete is refused for non-owners and missing codes", func(t *testing.T) {
		s, _ := newStore(t)

		unrelated := NewLink(WithCode("unrelated"))
		_, err := s.Create(ctx, unrelated)
		require.NoError(t, err)

		owned := NewLink(WithOwner("alice"))
		_, err = s.Create(ctx, owned)
		require.NoError(t, err)

		err = s.Delete(ctx, owned.Group, owned.Code, "mallory")
		assert.ErrorIs(t, err, store.ErrNotFoundOrNotPermitted)

		err = s.Delete(ctx, link.DefaultGroup, "missing", link.AnonymousUser)
		assert.ErrorIs(t, err, store.ErrNotFoundOrNotPermitted)

		// State is unchanged: both records still resolve.
		_, err = s.Get(ctx, unrelated.Group, unrelated.Code, true)
		require.NoError(t, err)
		_, err = s.Get(ctx, owned.Group, owned.Code, true)
		require.NoError(t, err)
	})

	t.Run("delete differentiates by group", func(t *testing.T) {
		s, _ := newStore(t)

		lnk := NewLink(WithCode("code"), WithGroup("group1"))
		_, err := s.Create(ctx, lnk)
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, "group1", "code", link.AnonymousUser))

		err = s.Delete(ctx, "group2", "code", link.AnonymousUser)
		assert.ErrorIs(t, err, store.ErrNotFoundOrNotPermitted)
	})

	t.Run("list returns only the owner's links within the group", func(t *testing.T) {
		s, clk := newStore(t)

		alice := createOwned(t, s, clk, "alice", link.DefaultGroup, 5)
		createOwned(t, s, clk, "bob", link.DefaultGroup, 5)
		createOwned(t, s, clk, "alice", "other", 5)

		page, err := s.ListByGroupAndOwner(ctx, link.DefaultGroup, "alice", "", 0)
		require.NoError(t, err)

		assert.Empty(t, page.NextPageToken)
		assert.ElementsMatch(t, alice, page.Entries)
	})

	t.Run("list paginates without duplicates or omissions", func(t *testing.T) {
		s, clk := newStore(t)

		created := createOwned(t, s, clk, "alice", link.DefaultGroup, 7)

		pages := collectPages(t, s, link.DefaultGroup, "alice", 3)
		require.Len(t, pages, 3)
		assert.Len(t, pages[0], 3)
		assert.Len(t, pages[1], 3)
		assert.Len(t, pages[2], 1)

		var all []link.ShortLink
		for _, p := range pages {
			all = append(all, p...)
		}

		assert.ElementsMatch(t, created, all)
	})

	t.Run("list omits the token exactly on the final page", func(t *testing.T) {
		s, clk := newStore(t)

		// Total divisible by the limit: the second page must already carry
		// no continuation token.
		created := createOwned(t, s, clk, "alice", link.DefaultGroup, 6)

		pages := collectPages(t, s, link.DefaultGroup, "alice", 3)
		require.Len(t, pages, 2)

		var all []link.ShortLink
		for _, p := range pages {
			all = append(all, p...)
		}

		assert.ElementsMatch(t, created, all)
	})

	t.Run("list of an empty group is empty", func(t *testing.T) {
		s, _ := newStore(t)

		page, err := s.ListByGroupAndOwner(ctx, "nothing-here", "nobody", "", 0)
		require.NoError(t, err)

		assert.Empty(t, page.Entries)
		assert.Empty(t, page.NextPageToken)
	})

	t.Run("list rejects a garbage page token", func(t *testing.T) {
		s, _ := newStore(t)

		_, err := s.ListByGroupAndOwner(ctx, link.DefaultGroup, "alice", "!!not-a-token!!", 0)
		assert.ErrorIs(t, err, store.ErrInvalidPageToken)
	})
}

// createOwned inserts n links for one owner, advancing the clock between
// inserts so creation order is well defined.
func createOwned(t *testing.T, s store.Store, clk *clock.Fake, owner link.User, group link.Group, n int) []link.ShortLink {
	t.Helper()

	created := make([]link.ShortLink, 0, n)

	for range n {
		lnk := NewLink(
			WithOwner(owner),
			WithGroup(group),
			WithCreatedAt(clk.Now().UnixMilli()),
		)

		_, err := s.Create(context.Background(), lnk)
		require.NoError(t, err)

		created = append(created, lnk)
		clk.Advance(time.Millisecond)
	}

	return created
}

// collectPages walks the listing to exhaustion and fails the test if the
// backend never terminates the page chain.
func collectPages(t *testing.T, s store.Store, group link.Group, owner link.User, limit int) [][]link.ShortLink {
	t.Helper()

	var (
		pages [][]link.ShortLink
		token string
	)

	for range 20 {
		page, err := s.ListByGroupAndOwner(context.Background(), group, owner, token, limit)
		require.NoError(t, err)

		pages = append(pages, page.Entries)

		if page.NextPageToken == "" {
			return pages
		}

		token = page.NextPageToken
	}

	t.Fatal("pagination did not terminate")

	return nil
}
