package store

import (
	"errors"
	"fmt"

	"github.com/serroba/shortlink/internal/link"
)

// Sentinel errors for matching with errors.Is. The typed errors below wrap
// them and carry the identifying fields.
var (
	// ErrNotFound is returned by Get when no live record matches.
	ErrNotFound = errors.New("short link not found")

	// ErrDuplicateCode is returned by Create when the (group, code) pair
	// already exists. The store never retries; the caller decides whether
	// to regenerate a code.
	ErrDuplicateCode = errors.New("short code already exists in group")

	// ErrNotFoundOrNotPermitted is returned by mutations when the target
	// does not exist or is owned by someone else. The two cases are
	// deliberately conflated so that callers cannot probe for existence.
	ErrNotFoundOrNotPermitted = errors.New("short link not found or not permitted")

	// ErrVersionConflict is returned by backends using optimistic
	// versioning when a concurrent mutation landed between the read and the
	// conditional write. The operation had no effect and may be retried.
	ErrVersionConflict = errors.New("short link was concurrently modified")

	// ErrValidation is returned when input is rejected before any I/O.
	ErrValidation = errors.New("invalid input")

	// ErrInvalidPageToken is returned when a pagination token cannot be
	// decoded by the backend that issued it.
	ErrInvalidPageToken = errors.New("invalid page token")
)

// DuplicateCodeError reports a create for a (group, code) that already
// exists. It matches ErrDuplicateCode under errors.Is.
type DuplicateCodeError struct {
	Group link.Group
	Code  link.Code
}

func (e *DuplicateCodeError) Error() string {
	return fmt.Sprintf("link with code %q already exists in group %q", e.Code, e.Group)
}

func (e *DuplicateCodeError) Unwrap() error {
	return ErrDuplicateCode
}

// NotFoundOrNotPermittedError reports a failed mutation without revealing
// whether the record exists. It matches ErrNotFoundOrNotPermitted under
// errors.Is.
type NotFoundOrNotPermittedError struct {
	Group link.Group
	Code  link.Code
}

func (e *NotFoundOrNotPermittedError) Error() string {
	return fmt.Sprintf("link with code %q in group %q not found or caller not permitted to modify it", e.Code, e.Group)
}

func (e *NotFoundOrNotPermittedError) Unwrap() error {
	return ErrNotFoundOrNotPermitted
}

// ValidationError reports malformed input rejected before any I/O. It
// matches ErrValidation under errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
