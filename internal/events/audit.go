package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// AuditLog persists a trail of link lifecycle events.
type AuditLog interface {
	RecordCreated(ctx context.Context, event *LinkCreatedEvent) error
	RecordUpdated(ctx context.Context, event *LinkUpdatedEvent) error
	RecordDeleted(ctx context.Context, event *LinkDeletedEvent) error
}

// NewAuditConsumerGroup wires one consumer per lifecycle topic, all feeding
// the same audit log.
func NewAuditConsumerGroup(subscriber message.Subscriber, audit AuditLog, logger *zap.Logger) *ConsumerGroup {
	group := NewConsumerGroup(subscriber, logger)

	group.Add(NewConsumer(subscriber, TopicLinkCreated, audit.RecordCreated, logger))
	group.Add(NewConsumer(subscriber, TopicLinkUpdated, audit.RecordUpdated, logger))
	group.Add(NewConsumer(subscriber, TopicLinkDeleted, audit.RecordDeleted, logger))

	return group
}

// RedisAuditLog appends events to per-link Redis lists, keyed by group and
// code, so the full history of a link can be read back in order.
type RedisAuditLog struct {
	client *redis.Client
	prefix string
}

// NewRedisAuditLog creates an audit log over an externally owned client.
func NewRedisAuditLog(client *redis.Client) *RedisAuditLog {
	return &RedisAuditLog{client: client, prefix: "audit:"}
}

func (a *RedisAuditLog) key(group, code string) string {
	return a.prefix + group + ":" + code
}

func (a *RedisAuditLog) append(ctx context.Context, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	return a.client.RPush(ctx, key, payload).Err()
}

func (a *RedisAuditLog) RecordCreated(ctx context.Context, event *LinkCreatedEvent) error {
	return a.append(ctx, a.key(event.Group, event.Code), event)
}

func (a *RedisAuditLog) RecordUpdated(ctx context.Context, event *LinkUpdatedEvent) error {
	return a.append(ctx, a.key(event.Group, event.Code), event)
}

func (a *RedisAuditLog) RecordDeleted(ctx context.Context, event *LinkDeletedEvent) error {
	return a.append(ctx, a.key(event.Group, event.Code), event)
}

// History returns the raw JSON entries recorded for a link, oldest first.
func (a *RedisAuditLog) History(ctx context.Context, group, code string) ([]string, error) {
	return a.client.LRange(ctx, a.key(group, code), 0, -1).Result()
}

// LoggingAuditLog writes events to the application log instead of a store.
// Used when no Redis is configured.
type LoggingAuditLog struct {
	logger *zap.Logger
}

// NewLoggingAuditLog creates a log-only audit log.
func NewLoggingAuditLog(logger *zap.Logger) *LoggingAuditLog {
	return &LoggingAuditLog{logger: logger}
}

func (a *LoggingAuditLog) RecordCreated(_ context.Context, event *LinkCreatedEvent) error {
	a.logger.Info("link created",
		zap.String("group", event.Group),
		zap.String("code", event.Code),
		zap.String("url", event.URL),
		zap.Int64("createdAt", event.CreatedAt),
	)

	return nil
}

func (a *LoggingAuditLog) RecordUpdated(_ context.Context, event *LinkUpdatedEvent) error {
	a.logger.Info("link updated",
		zap.String("group", event.Group),
		zap.String("code", event.Code),
		zap.String("field", event.Field),
		zap.String("updatedBy", event.UpdatedBy),
	)

	return nil
}

func (a *LoggingAuditLog) RecordDeleted(_ context.Context, event *LinkDeletedEvent) error {
	a.logger.Info("link deleted",
		zap.String("group", event.Group),
		zap.String("code", event.Code),
		zap.String("deletedBy", event.DeletedBy),
	)

	return nil
}

var (
	_ AuditLog = (*RedisAuditLog)(nil)
	_ AuditLog = (*LoggingAuditLog)(nil)
)
