// Package link defines the core short-link entity and its identifier types.
package link

import (
	"fmt"
	"net/url"
	"time"
)

// Code is a short code mapped to a destination URL. Codes are unique within a
// group, but not necessarily unique across groups.
type Code string

// Group is a namespace for short links. Every link within a group must draw
// from a unique set of codes.
type Group string

// User identifies the creator or owner of a short link. The identifier may
// come from this system or an external one; it is treated as opaque.
type User string

// DefaultGroup is the group used when a caller does not specify one. The
// value carries a UUID suffix to avoid colliding with a real group name.
const DefaultGroup Group = "GROUP_f4811e5d27094b7b8d7520183ee14e73"

// AnonymousUser marks a short link created without an associated user. A link
// owned by AnonymousUser may be modified or deleted by anyone.
const AnonymousUser User = "ANON_a289b3279afd48c1a9419fce2b5bf132"

// ShortLink is the core entity: a URL encoded into a short code, scoped by
// group, with ownership and optional expiry.
type ShortLink struct {
	Code      Code
	Group     Group
	URL       string
	Creator   User
	Owner     User
	CreatedAt int64  // epoch milliseconds
	ExpiresAt *int64 // epoch milliseconds; nil means the link never expires
}

// DoesNotExpire reports whether the link has no expiry set.
func (l ShortLink) DoesNotExpire() bool {
	return l.ExpiresAt == nil
}

// IsExpired reports whether the link is expired at the given instant. A link
// is live at exactly its expiry instant and expired strictly after it.
func (l ShortLink) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && now.UnixMilli() > *l.ExpiresAt
}

// ParseURL validates that raw is an absolute URL and returns its normalized
// string form. Stores assume URLs were validated before they are called.
func ParseURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("url %q is not absolute", raw)
	}

	return u.String(), nil
}

// ExpiryAt is a convenience for building an expiry timestamp pointer.
func ExpiryAt(ms int64) *int64 {
	return &ms
}
