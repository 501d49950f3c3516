package handlers

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// HealthChecker defines the interface for checking a dependency's health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RedisHealthChecker adapts redis.Client to HealthChecker.
type RedisHealthChecker struct {
	client *redis.Client
}

// NewRedisHealthChecker creates a new Redis health checker.
func NewRedisHealthChecker(client *redis.Client) *RedisHealthChecker {
	return &RedisHealthChecker{client: client}
}

// Ping checks Redis connectivity.
func (r *RedisHealthChecker) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// HealthHandler reports liveness of the service and its event stream.
type HealthHandler struct {
	stream HealthChecker
}

// NewHealthHandler creates a new health handler. A nil checker marks the
// event stream as unconfigured rather than unhealthy.
func NewHealthHandler(stream HealthChecker) *HealthHandler {
	return &HealthHandler{stream: stream}
}

// HealthResponse is the response for the health check endpoint.
type HealthResponse struct {
	Body struct {
		Status string `json:"status"`
		Stream string `json:"stream"`
	}
}

// Check performs a health check of the application and its dependencies.
func (h *HealthHandler) Check(ctx context.Context, _ *struct{}) (*HealthResponse, error) {
	resp := &HealthResponse{}
	resp.Body.Status = "ok"

	switch {
	case h.stream == nil:
		resp.Body.Stream = "unconfigured"
	case h.stream.Ping(ctx) != nil:
		resp.Body.Stream = "unhealthy"
		resp.Body.Status = "degraded"
	default:
		resp.Body.Stream = "healthy"
	}

	return resp, nil
}
