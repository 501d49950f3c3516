// Package storetest holds the behavioral conformance suite that every
// store.Store implementation must pass identically, plus test factories.
package storetest

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/serroba/shortlink/internal/link"
)

// Option customizes a factory-built link.
type Option func(*link.ShortLink)

// NewLink builds a ShortLink with randomized defaults: a unique code, the
// default group, anonymous creator and owner, and no expiry.
func NewLink(opts ...Option) link.ShortLink {
	id := uuid.NewString()

	lnk := link.ShortLink{
		Code:      link.Code(id[:8]),
		Group:     link.DefaultGroup,
		URL:       fmt.Sprintf("https://example.com/%s", id),
		Creator:   link.AnonymousUser,
		Owner:     link.AnonymousUser,
		CreatedAt: 0,
	}

	for _, opt := range opts {
		opt(&lnk)
	}

	return lnk
}

func WithCode(code link.Code) Option {
	return func(l *link.ShortLink) { l.Code = code }
}

func WithGroup(group link.Group) Option {
	return func(l *link.ShortLink) { l.Group = group }
}

func WithOwner(owner link.User) Option {
	return func(l *link.ShortLink) {
		l.Creator = owner
		l.Owner = owner
	}
}

func WithURL(rawURL string) Option {
	return func(l *link.ShortLink) { l.URL = rawURL }
}

func WithCreatedAt(ms int64) Option {
	return func(l *link.ShortLink) { l.CreatedAt = ms }
}

func WithExpiresAt(ms int64) Option {
	return func(l *link.ShortLink) { l.ExpiresAt = &ms }
}
