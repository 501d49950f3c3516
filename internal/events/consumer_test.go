package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/serroba/shortlink/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSubscriber struct {
	mu           sync.Mutex
	channels     map[string]chan *message.Message
	subscribeErr error
	closed       bool
}

func newMockSubscriber() *mockSubscriber {
	return &mockSubscriber{channels: map[string]chan *message.Message{}}
}

func (m *mockSubscriber) Subscribe(_ context.Context, topic string) (<-chan *message.Message, error) {
	if m.subscribeErr != nil {
		return nil, m.subscribeErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ch, ok := m.channels[topic]
	if !ok {
		ch = make(chan *message.Message, 10)
		m.channels[topic] = ch
	}

	return ch, nil
}

func (m *mockSubscriber) send(t *testing.T, topic string, event any) *message.Message {
	t.Helper()

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	msg := message.NewMessage(uuid.NewString(), payload)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[topic] <- msg

	return msg
}

func (m *mockSubscriber) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true

		for _, ch := range m.channels {
			close(ch)
		}
	}

	return nil
}

func waitAcked(t *testing.T, msg *message.Message) {
	t.Helper()

	select {
	case <-msg.Acked():
	case <-msg.Nacked():
		t.Fatal("message nacked")
	case <-time.After(time.Second):
		t.Fatal("message neither acked nor nacked")
	}
}

func TestConsumer_DeliversDecodedEvents(t *testing.T) {
	sub := newMockSubscriber()

	var (
		mu       sync.Mutex
		received []events.LinkCreatedEvent
	)

	consumer := events.NewConsumer(sub, events.TopicLinkCreated,
		func(_ context.Context, event *events.LinkCreatedEvent) error {
			mu.Lock()
			defer mu.Unlock()
			received = append(received, *event)

			return nil
		},
		zap.NewNop(),
	)

	require.NoError(t, consumer.Start(context.Background()))
	defer func() { _ = consumer.Shutdown() }()

	msg := sub.send(t, events.TopicLinkCreated, &events.LinkCreatedEvent{Code: "abc123", URL: "https://example.com"})
	waitAcked(t, msg)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, "abc123", received[0].Code)
}

func TestConsumer_NacksOnHandlerError(t *testing.T) {
	sub := newMockSubscriber()

	consumer := events.NewConsumer(sub, events.TopicLinkCreated,
		func(_ context.Context, _ *events.LinkCreatedEvent) error {
			return errors.New("handler error")
		},
		zap.NewNop(),
	)

	require.NoError(t, consumer.Start(context.Background()))
	defer func() { _ = consumer.Shutdown() }()

	msg := sub.send(t, events.TopicLinkCreated, &events.LinkCreatedEvent{Code: "abc123"})

	select {
	case <-msg.Nacked():
	case <-msg.Acked():
		t.Fatal("message acked despite handler error")
	case <-time.After(time.Second):
		t.Fatal("message neither acked nor nacked")
	}
}

func TestConsumer_NacksOnMalformedPayload(t *testing.T) {
	sub := newMockSubscriber()

	consumer := events.NewConsumer(sub, events.TopicLinkCreated,
		func(_ context.Context, _ *events.LinkCreatedEvent) error { return nil },
		zap.NewNop(),
	)

	require.NoError(t, consumer.Start(context.Background()))
	defer func() { _ = consumer.Shutdown() }()

	msg := message.NewMessage(uuid.NewString(), []byte("{not json"))
	sub.mu.Lock()
	sub.channels[events.TopicLinkCreated] <- msg
	sub.mu.Unlock()

	select {
	case <-msg.Nacked():
	case <-time.After(time.Second):
		t.Fatal("malformed message was not nacked")
	}
}

// recordingAuditLog captures events in memory for assertions.
type recordingAuditLog struct {
	mu      sync.Mutex
	created []events.LinkCreatedEvent
	updated []events.LinkUpdatedEvent
	deleted []events.LinkDeletedEvent
}

func (a *recordingAuditLog) RecordCreated(_ context.Context, event *events.LinkCreatedEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.created = append(a.created, *event)

	return nil
}

func (a *recordingAuditLog) RecordUpdated(_ context.Context, event *events.LinkUpdatedEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.updated = append(a.updated, *event)

	return nil
}

func (a *recordingAuditLog) RecordDeleted(_ context.Context, event *events.LinkDeletedEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deleted = append(a.deleted, *event)

	return nil
}

func TestAuditConsumerGroup_RoutesAllTopics(t *testing.T) {
	sub := newMockSubscriber()
	audit := &recordingAuditLog{}

	group := events.NewAuditConsumerGroup(sub, audit, zap.NewNop())
	require.NoError(t, group.Start(context.Background()))

	created := sub.send(t, events.TopicLinkCreated, &events.LinkCreatedEvent{Code: "abc123"})
	updated := sub.send(t, events.TopicLinkUpdated, &events.LinkUpdatedEvent{Code: "abc123", Field: "url"})
	deleted := sub.send(t, events.TopicLinkDeleted, &events.LinkDeletedEvent{Code: "abc123"})

	waitAcked(t, created)
	waitAcked(t, updated)
	waitAcked(t, deleted)

	require.NoError(t, group.Shutdown())

	audit.mu.Lock()
	defer audit.mu.Unlock()
	require.Len(t, audit.created, 1)
	require.Len(t, audit.updated, 1)
	require.Len(t, audit.deleted, 1)
	assert.Equal(t, "url", audit.updated[0].Field)
}
