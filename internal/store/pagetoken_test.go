package store_test

import (
	"testing"

	"github.com/serroba/shortlink/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageTokenRoundTrip(t *testing.T) {
	type cursor struct {
		PartitionKey string `msgpack:"pk"`
		GroupOwner   string `msgpack:"go"`
	}

	in := cursor{PartitionKey: "g|||abc", GroupOwner: "g|||alice"}

	token, err := store.EncodePageToken(in)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	var out cursor
	require.NoError(t, store.DecodePageToken(token, &out))
	assert.Equal(t, in, out)
}

func TestDecodePageToken_Invalid(t *testing.T) {
	t.Run("not base64", func(t *testing.T) {
		var out map[string]string
		err := store.DecodePageToken("not/base64!!", &out)

		assert.ErrorIs(t, err, store.ErrInvalidPageToken)
	})

	t.Run("not msgpack", func(t *testing.T) {
		var out map[string]string
		err := store.DecodePageToken("bm90LW1zZ3BhY2s", &out)

		assert.ErrorIs(t, err, store.ErrInvalidPageToken)
	})
}

func TestErrorTaxonomy(t *testing.T) {
	t.Run("duplicate code matches sentinel", func(t *testing.T) {
		err := &store.DuplicateCodeError{Group: "g1", Code: "abc"}

		assert.ErrorIs(t, err, store.ErrDuplicateCode)
		assert.Contains(t, err.Error(), "abc")
		assert.Contains(t, err.Error(), "g1")
	})

	t.Run("not found or not permitted matches sentinel", func(t *testing.T) {
		err := &store.NotFoundOrNotPermittedError{Group: "g1", Code: "abc"}

		assert.ErrorIs(t, err, store.ErrNotFoundOrNotPermitted)
	})

	t.Run("validation matches sentinel", func(t *testing.T) {
		err := &store.ValidationError{Field: "owner", Reason: "contains reserved delimiter"}

		assert.ErrorIs(t, err, store.ErrValidation)
		assert.Contains(t, err.Error(), "owner")
	})
}
