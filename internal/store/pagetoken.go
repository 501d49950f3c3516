package store

import (
	"encoding/base64"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Page tokens are opaque capabilities: a backend-specific cursor value is
// msgpack-encoded and base64url-armored so its shape never leaks to callers.

// EncodePageToken serializes a backend cursor into an opaque token.
func EncodePageToken(cursor any) (string, error) {
	raw, err := msgpack.Marshal(cursor)
	if err != nil {
		return "", fmt.Errorf("encode page token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodePageToken deserializes an opaque token into the backend's cursor
// type. A token that cannot be decoded yields ErrInvalidPageToken.
func DecodePageToken(token string, cursor any) error {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPageToken, err)
	}

	if err := msgpack.Unmarshal(raw, cursor); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPageToken, err)
	}

	return nil
}
