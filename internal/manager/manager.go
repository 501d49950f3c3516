// Package manager implements the application-level link operations on top of
// a store.Store: input validation, code generation and default ownership.
package manager

import (
	"context"

	"github.com/serroba/shortlink/internal/clock"
	"github.com/serroba/shortlink/internal/codegen"
	"github.com/serroba/shortlink/internal/link"
	"github.com/serroba/shortlink/internal/store"
)

// CreateRequest carries the caller-supplied fields of a new link. Zero values
// fall back to defaults: Group to link.DefaultGroup, Creator to
// link.AnonymousUser, Code to a generated one, ExpiresAt to no expiry.
type CreateRequest struct {
	URL       string
	Group     link.Group
	Creator   link.User
	Code      link.Code
	ExpiresAt *int64
}

// Manager coordinates link operations against a single backing store.
type Manager struct {
	store     store.Store
	generator codegen.Generator
	clk       clock.Clock
}

// New creates a manager over the given store and code generator.
func New(s store.Store, generator codegen.Generator, clk clock.Clock) *Manager {
	return &Manager{store: s, generator: generator, clk: clk}
}

// Create validates and persists a new link. The creator becomes the owner;
// an unnamed creator yields an anonymous link that anyone may later modify.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (link.ShortLink, error) {
	if _, err := link.ParseURL(req.URL); err != nil {
		return link.ShortLink{}, &store.ValidationError{Field: "url", Reason: err.Error()}
	}

	code := req.Code
	if code == "" {
		code = m.generator.Generate()
	}

	group := req.Group
	if group == "" {
		group = link.DefaultGroup
	}

	creator := req.Creator
	if creator == "" {
		creator = link.AnonymousUser
	}

	return m.store.Create(ctx, link.ShortLink{
		Code:      code,
		Group:     group,
		URL:       req.URL,
		Creator:   creator,
		Owner:     creator,
		CreatedAt: m.clk.Now().UnixMilli(),
		ExpiresAt: req.ExpiresAt,
	})
}

func (m *Manager) Get(ctx context.Context, group link.Group, code link.Code, excludeExpired bool) (*link.ShortLink, error) {
	return m.store.Get(ctx, group, code, excludeExpired)
}

func (m *Manager) UpdateURL(ctx context.Context, group link.Group, code link.Code, rawURL string, updater link.User) error {
	if _, err := link.ParseURL(rawURL); err != nil {
		return &store.ValidationError{Field: "url", Reason: err.Error()}
	}

	return m.store.UpdateURL(ctx, group, code, rawURL, updater)
}

func (m *Manager) UpdateExpiry(ctx context.Context, group link.Group, code link.Code, expiresAt *int64, updater link.User) error {
	return m.store.UpdateExpiry(ctx, group, code, expiresAt, updater)
}

func (m *Manager) Delete(ctx context.Context, group link.Group, code link.Code, deleter link.User) error {
	return m.store.Delete(ctx, group, code, deleter)
}

func (m *Manager) List(ctx context.Context, group link.Group, owner link.User, pageToken string, limit int) (*store.PaginatedResult, error) {
	return m.store.ListByGroupAndOwner(ctx, group, owner, pageToken, limit)
}
