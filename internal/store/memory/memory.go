// Package memory provides a single-process, mutex-guarded implementation of
// store.Store. It is the reference semantics for the conformance suite and
// is not safe for multiprocess deployments.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/serroba/shortlink/internal/clock"
	"github.com/serroba/shortlink/internal/link"
	"github.com/serroba/shortlink/internal/store"
)

// Store keeps links in nested maps keyed by group then code. One mutex
// serializes all mutations, so lookup, authorization check and modification
// happen inside a single critical section.
type Store struct {
	mu    sync.RWMutex
	links map[link.Group]map[link.Code]link.ShortLink
	clk   clock.Clock
}

// New creates an empty in-memory store.
func New(clk clock.Clock) *Store {
	return &Store{
		links: make(map[link.Group]map[link.Code]link.ShortLink),
		clk:   clk,
	}
}

func (s *Store) Create(_ context.Context, lnk link.ShortLink) (link.ShortLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byCode, ok := s.links[lnk.Group]
	if !ok {
		byCode = make(map[link.Code]link.ShortLink)
		s.links[lnk.Group] = byCode
	}

	if _, exists := byCode[lnk.Code]; exists {
		return link.ShortLink{}, &store.DuplicateCodeError{Group: lnk.Group, Code: lnk.Code}
	}

	byCode[lnk.Code] = lnk

	return lnk, nil
}

func (s *Store) Get(_ context.Context, group link.Group, code link.Code, excludeExpired bool) (*link.ShortLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lnk, ok := s.links[group][code]
	if !ok {
		return nil, store.ErrNotFound
	}

	if excludeExpired && lnk.IsExpired(s.clk.Now()) {
		return nil, store.ErrNotFound
	}

	return &lnk, nil
}

func (s *Store) UpdateURL(_ context.Context, group link.Group, code link.Code, rawURL string, updater link.User) error {
	return s.mutate(group, code, updater, func(lnk *link.ShortLink) {
		lnk.URL = rawURL
	})
}

func (s *Store) UpdateExpiry(_ context.Context, group link.Group, code link.Code, expiresAt *int64, updater link.User) error {
	return s.mutate(group, code, updater, func(lnk *link.ShortLink) {
		lnk.ExpiresAt = expiresAt
	})
}

func (s *Store) Delete(_ context.Context, group link.Group, code link.Code, deleter link.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lnk, ok := s.links[group][code]
	if !ok {
		return &store.NotFoundOrNotPermittedError{Group: group, Code: code}
	}

	if lnk.Owner != link.AnonymousUser && lnk.Owner != deleter {
		return &store.NotFoundOrNotPermittedError{Group: group, Code: code}
	}

	delete(s.links[group], code)

	return nil
}

func (s *Store) mutate(group link.Group, code link.Code, updater link.User, modify func(*link.ShortLink)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lnk, ok := s.links[group][code]
	if !ok {
		return &store.NotFoundOrNotPermittedError{Group: group, Code: code}
	}

	if lnk.Owner != link.AnonymousUser && lnk.Owner != updater {
		return &store.NotFoundOrNotPermittedError{Group: group, Code: code}
	}

	modify(&lnk)
	s.links[group][code] = lnk

	return nil
}

// ListByGroupAndOwner pages through the owner's links in creation order. The
// token is a plain integer offset rendered as a decimal string; this backend
// holds no durability guarantee, so offset shift under concurrent deletes is
// acceptable.
func (s *Store) ListByGroupAndOwner(_ context.Context, group link.Group, owner link.User, pageToken string, limit int) (*store.PaginatedResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	offset := 0

	if pageToken != "" {
		var err error

		offset, err = strconv.Atoi(pageToken)
		if err != nil || offset < 0 {
			return nil, store.ErrInvalidPageToken
		}
	}

	if limit <= 0 {
		limit = store.DefaultPageSize
	}

	var owned []link.ShortLink

	for _, lnk := range s.links[group] {
		if lnk.Owner == owner {
			owned = append(owned, lnk)
		}
	}

	sort.Slice(owned, func(i, j int) bool {
		if owned[i].CreatedAt != owned[j].CreatedAt {
			return owned[i].CreatedAt < owned[j].CreatedAt
		}

		return owned[i].Code < owned[j].Code
	})

	if offset >= len(owned) {
		return &store.PaginatedResult{}, nil
	}

	end := min(offset+limit, len(owned))

	result := &store.PaginatedResult{
		Entries: append([]link.ShortLink(nil), owned[offset:end]...),
	}
	if end < len(owned) {
		result.NextPageToken = strconv.Itoa(end)
	}

	return result, nil
}

var _ store.Store = (*Store)(nil)
