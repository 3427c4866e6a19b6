// Package notify publishes domain events over Redis pub/sub for downstream
// consumers (SSE fanout, coaching). Publishing is best-effort: a failed
// publish is logged and never fails the triggering operation.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"jobpilot-backend/internal/shared/telemetry"
)

const (
	ChannelMatchSurfaced     = "EVENT_MATCH_SURFACED"
	ChannelApplicationMoved  = "EVENT_APPLICATION_MOVED"
	ChannelWeightsRecalibred = "EVENT_WEIGHTS_RECALIBRATED"
)

// NewRedisClient creates and verifies a Redis client connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return rdb, nil
}

// Publisher emits events when a Redis client is configured and is a no-op
// otherwise.
type Publisher struct {
	RDB *redis.Client
}

func (p *Publisher) publish(ctx context.Context, channel string, payload map[string]string) {
	if p == nil || p.RDB == nil {
		return
	}
	event, _ := json.Marshal(payload)
	if err := p.RDB.Publish(ctx, channel, event).Err(); err != nil {
		telemetry.Error("event publish failed", map[string]any{
			"channel": channel,
			"error":   err.Error(),
		})
	}
}

// MatchSurfaced announces a match entering a user's review queue.
func (p *Publisher) MatchSurfaced(ctx context.Context, userID, matchID string, score float64) {
	p.publish(ctx, ChannelMatchSurfaced, map[string]string{
		"type":    ChannelMatchSurfaced,
		"userId":  userID,
		"matchId": matchID,
		"score":   fmt.Sprintf("%.1f", score),
	})
}

// ApplicationMoved announces an application status change.
func (p *Publisher) ApplicationMoved(ctx context.Context, userID, applicationID, from, to string) {
	p.publish(ctx, ChannelApplicationMoved, map[string]string{
		"type":          ChannelApplicationMoved,
		"userId":        userID,
		"applicationId": applicationID,
		"from":          from,
		"to":            to,
	})
}

// WeightsRecalibrated announces a new active weight vector version.
func (p *Publisher) WeightsRecalibrated(ctx context.Context, userID string, version int) {
	p.publish(ctx, ChannelWeightsRecalibred, map[string]string{
		"type":    ChannelWeightsRecalibred,
		"userId":  userID,
		"version": fmt.Sprintf("%d", version),
	})
}
