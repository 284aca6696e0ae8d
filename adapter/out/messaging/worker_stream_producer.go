// Package messaging provides message queue adapters.
package messaging

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"subscription_server/core/port/out"

	"github.com/redis/go-redis/v9"
)

// Stream names
const (
	StreamScan     = "scan:jobs"
	StreamReminder = "reminder:jobs"

	deadLetterPrefix = "dlq:"
)

// Streams lists every stream the worker consumes.
var Streams = []string{StreamScan, StreamReminder}

// RedisProducer implements out.JobProducer using Redis Streams.
type RedisProducer struct {
	client *redis.Client
	maxLen int64
}

func NewRedisProducer(client *redis.Client) *RedisProducer {
	return &RedisProducer{client: client, maxLen: 10000}
}

// PublishScan queues a mailbox scan.
func (p *RedisProducer) PublishScan(ctx context.Context, job *out.ScanJob) error {
	return p.publish(ctx, StreamScan, job)
}

// PublishReminders queues a reminder sweep.
func (p *RedisProducer) PublishReminders(ctx context.Context, job *out.ReminderJob) error {
	return p.publish(ctx, StreamReminder, job)
}

func (p *RedisProducer) publish(ctx context.Context, stream string, job any) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: p.maxLen,
		Approx: true,
		ID:     "*",
		Values: map[string]any{"data": string(data)},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", stream, err)
	}
	return nil
}

// PendingCount reports how many delivered jobs are not yet acknowledged.
func (p *RedisProducer) PendingCount(ctx context.Context, stream, group string) (int64, error) {
	info, err := p.client.XPending(ctx, stream, group).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, err
	}
	return info.Count, nil
}

var _ out.JobProducer = (*RedisProducer)(nil)
