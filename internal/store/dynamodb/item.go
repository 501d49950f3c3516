package dynamodb

import (
	"math"
	"strings"

	"github.com/serroba/shortlink/internal/link"
	"github.com/serroba/shortlink/internal/store"
)

const (
	// DefaultTableName holds one item per link.
	DefaultTableName = "shortlinks"

	// GroupOwnerIndexName is the secondary index backing the listing
	// operation, keyed by the derived (group, owner) composite.
	GroupOwnerIndexName = "group_owner-index"

	// keyDelimiter joins the parts of derived keys. It is forbidden inside
	// group names, owner identities and codes, which keeps the
	// concatenation reversible.
	keyDelimiter = "|||"

	// neverExpires stands in for "no expiry": the attribute is a plain
	// number with no NULL representation in this table's sort semantics.
	// Translated back to an absent expiry at the read boundary.
	neverExpires = int64(math.MaxInt64)
)

type item struct {
	PartitionKey string `dynamodbav:"partition_key"`
	GroupOwner   string `dynamodbav:"group_owner"`
	Group        string `dynamodbav:"group"`
	Code         string `dynamodbav:"code"`
	URL          string `dynamodbav:"url"`
	CreatedAt    int64  `dynamodbav:"created_at"`
	ExpiresAt    int64  `dynamodbav:"expires_at"`
	Creator      string `dynamodbav:"creator"`
	Owner        string `dynamodbav:"owner"`
	Version      int64  `dynamodbav:"version"`
}

func partitionKey(group link.Group, code link.Code) string {
	return string(group) + keyDelimiter + string(code)
}

func groupOwnerKey(group link.Group, owner link.User) string {
	return string(group) + keyDelimiter + string(owner)
}

func toItem(lnk link.ShortLink, version int64) item {
	expiresAt := neverExpires
	if lnk.ExpiresAt != nil {
		expiresAt = *lnk.ExpiresAt
	}

	return item{
		PartitionKey: partitionKey(lnk.Group, lnk.Code),
		GroupOwner:   groupOwnerKey(lnk.Group, lnk.Owner),
		Group:        string(lnk.Group),
		Code:         string(lnk.Code),
		URL:          lnk.URL,
		CreatedAt:    lnk.CreatedAt,
		ExpiresAt:    expiresAt,
		Creator:      string(lnk.Creator),
		Owner:        string(lnk.Owner),
		Version:      version,
	}
}

func (it item) toLink() link.ShortLink {
	lnk := link.ShortLink{
		Group:     link.Group(it.Group),
		Code:      link.Code(it.Code),
		URL:       it.URL,
		CreatedAt: it.CreatedAt,
		Creator:   link.User(it.Creator),
		Owner:     link.User(it.Owner),
	}

	if it.ExpiresAt != neverExpires {
		expiresAt := it.ExpiresAt
		lnk.ExpiresAt = &expiresAt
	}

	return lnk
}

// validateKeyParts rejects values that would make the derived keys
// ambiguous, before any I/O is attempted.
func validateKeyParts(lnk link.ShortLink) error {
	for field, value := range map[string]string{
		"group": string(lnk.Group),
		"code":  string(lnk.Code),
		"owner": string(lnk.Owner),
	} {
		if strings.Contains(value, keyDelimiter) {
			return &store.ValidationError{Field: field, Reason: "contains reserved delimiter " + keyDelimiter}
		}
	}

	return nil
}
