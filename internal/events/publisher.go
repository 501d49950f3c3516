package events

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Publish is a function that publishes a typed event.
type Publish[T any] func(event *T) error

// NewPublishFunc creates a typed publish function for a specific topic.
func NewPublishFunc[T any](publisher message.Publisher, topic string) Publish[T] {
	return func(event *T) error {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}

		msg := message.NewMessage(watermill.NewUUID(), payload)

		return publisher.Publish(topic, msg)
	}
}

// PublisherGroup owns the underlying publisher lifecycle and hands out the
// typed publish functions for the link lifecycle topics.
type PublisherGroup struct {
	publisher message.Publisher
}

// NewPublisherGroup creates a new publisher group.
func NewPublisherGroup(publisher message.Publisher) *PublisherGroup {
	return &PublisherGroup{publisher: publisher}
}

// PublishCreated returns the publish function for link creation events.
func (g *PublisherGroup) PublishCreated() Publish[LinkCreatedEvent] {
	return NewPublishFunc[LinkCreatedEvent](g.publisher, TopicLinkCreated)
}

// PublishUpdated returns the publish function for link update events.
func (g *PublisherGroup) PublishUpdated() Publish[LinkUpdatedEvent] {
	return NewPublishFunc[LinkUpdatedEvent](g.publisher, TopicLinkUpdated)
}

// PublishDeleted returns the publish function for link deletion events.
func (g *PublisherGroup) PublishDeleted() Publish[LinkDeletedEvent] {
	return NewPublishFunc[LinkDeletedEvent](g.publisher, TopicLinkDeleted)
}

// Shutdown closes the underlying publisher.
func (g *PublisherGroup) Shutdown() error {
	return g.publisher.Close()
}
