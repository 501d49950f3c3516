// Package events defines the link lifecycle events published to the message
// stream and the generic publish/consume machinery around them.
package events

import "github.com/serroba/shortlink/internal/link"

const (
	TopicLinkCreated = "link.created"
	TopicLinkUpdated = "link.updated"
	TopicLinkDeleted = "link.deleted"
)

// LinkCreatedEvent is emitted after a link is persisted.
type LinkCreatedEvent struct {
	Group     string `json:"group"`
	Code      string `json:"code"`
	URL       string `json:"url"`
	Owner     string `json:"owner"`
	CreatedAt int64  `json:"createdAt"`
	ExpiresAt *int64 `json:"expiresAt,omitempty"`
}

// NewLinkCreatedEvent builds the event for a freshly created link.
func NewLinkCreatedEvent(lnk link.ShortLink) *LinkCreatedEvent {
	return &LinkCreatedEvent{
		Group:     string(lnk.Group),
		Code:      string(lnk.Code),
		URL:       lnk.URL,
		Owner:     string(lnk.Owner),
		CreatedAt: lnk.CreatedAt,
		ExpiresAt: lnk.ExpiresAt,
	}
}

// LinkUpdatedEvent is emitted after a link mutation. Field names which
// attribute changed: "url" or "expiry".
type LinkUpdatedEvent struct {
	Group     string `json:"group"`
	Code      string `json:"code"`
	Field     string `json:"field"`
	UpdatedBy string `json:"updatedBy"`
	UpdatedAt int64  `json:"updatedAt"`
}

// LinkDeletedEvent is emitted after a link is removed.
type LinkDeletedEvent struct {
	Group     string `json:"group"`
	Code      string `json:"code"`
	DeletedBy string `json:"deletedBy"`
	DeletedAt int64  `json:"deletedAt"`
}
