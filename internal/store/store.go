// Package store defines the persistence contract for short links and the
// error taxonomy shared by every backend.
package store

import (
	"context"

	"github.com/serroba/shortlink/internal/link"
)

// DefaultPageSize is used by ListByGroupAndOwner when the caller does not
// supply a limit.
const DefaultPageSize = 100

// PaginatedResult holds one page of a listing. NextPageToken is empty when
// there are no further pages; otherwise it is an opaque token that resumes
// the listing after the last entry of this page.
type PaginatedResult struct {
	Entries       []link.ShortLink
	NextPageToken string
}

// Store is the persistence contract for short links. Implementations must be
// safe for concurrent use without external locking, and every mutating
// operation is all-or-nothing.
//
// All operations are scoped by group: a (group, code) pair identifies at most
// one live record.
type Store interface {
	// Create persists the given link. The uniqueness check and the insert
	// are atomic: of two concurrent creates for the same (group, code),
	// exactly one succeeds and the other fails with ErrDuplicateCode.
	Create(ctx context.Context, lnk link.ShortLink) (link.ShortLink, error)

	// Get retrieves the link for (group, code), or ErrNotFound if none
	// exists. When excludeExpired is true, an expired record is reported as
	// ErrNotFound even though it still physically exists.
	Get(ctx context.Context, group link.Group, code link.Code, excludeExpired bool) (*link.ShortLink, error)

	// UpdateURL changes the destination URL of the link. The caller is
	// authorized when the record's owner is link.AnonymousUser or equals
	// updater; otherwise ErrNotFoundOrNotPermitted is returned, which is
	// indistinguishable from the record not existing.
	UpdateURL(ctx context.Context, group link.Group, code link.Code, rawURL string, updater link.User) error

	// UpdateExpiry changes the expiry of the link; a nil expiresAt makes the
	// link never expire. Authorization follows the UpdateURL rule.
	UpdateExpiry(ctx context.Context, group link.Group, code link.Code, expiresAt *int64, updater link.User) error

	// Delete removes the link permanently. Authorization follows the
	// UpdateURL rule.
	Delete(ctx context.Context, group link.Group, code link.Code, deleter link.User) error

	// ListByGroupAndOwner returns the links in group whose owner matches
	// exactly, expired ones included, in creation order where the backend
	// supports it. An empty pageToken requests the first page; limit <= 0
	// means DefaultPageSize.
	//
	// Tokens are never invalidated: on offset-based backends a stale token
	// used after concurrent modification may skip or repeat entries, while
	// cursor-based backends are stable under concurrent change.
	ListByGroupAndOwner(ctx context.Context, group link.Group, owner link.User, pageToken string, limit int) (*PaginatedResult, error)
}
