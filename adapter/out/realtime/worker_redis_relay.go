package realtime

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"subscription_server/core/domain"
	"subscription_server/core/port/out"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RelayChannel is the Redis pub/sub channel events cross processes on.
const RelayChannel = "realtime:events"

type relayEnvelope struct {
	UserID    string           `json:"user_id"`
	Type      domain.EventType `json:"type"`
	Data      json.RawMessage  `json:"data"`
	Timestamp time.Time        `json:"timestamp"`
}

// RedisRelay carries events from worker processes to the API process that
// holds the SSE connections. Push publishes; Listen delivers into a local adapter.
type RedisRelay struct {
	client *redis.Client
	local  *SSEAdapter // nil in worker-only processes
	log    zerolog.Logger
}

func NewRedisRelay(client *redis.Client, local *SSEAdapter, log zerolog.Logger) *RedisRelay {
	return &RedisRelay{
		client: client,
		local:  local,
		log:    log.With().Str("component", "realtime_relay").Logger(),
	}
}

func (r *RedisRelay) Push(ctx context.Context, userID string, event *domain.RealtimeEvent) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(relayEnvelope{
		UserID:    userID,
		Type:      event.Type,
		Data:      data,
		Timestamp: event.Timestamp,
	})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, RelayChannel, payload).Err()
}

// Listen forwards relayed events to the local adapter until ctx is done.
func (r *RedisRelay) Listen(ctx context.Context) {
	if r.local == nil {
		return
	}
	sub := r.client.Subscribe(ctx, RelayChannel)
	defer sub.Close()

	r.log.Info().Str("channel", RelayChannel).Msg("realtime relay listening")
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env relayEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.log.Warn().Err(err).Msg("invalid relay payload")
				continue
			}
			event := &domain.RealtimeEvent{
				Type:      env.Type,
				UserID:    env.UserID,
				Data:      env.Data,
				Timestamp: env.Timestamp,
			}
			_ = r.local.Push(ctx, env.UserID, event)
		}
	}
}

func (r *RedisRelay) Subscribe(userID string) <-chan *domain.RealtimeEvent {
	if r.local == nil {
		return nil
	}
	return r.local.Subscribe(userID)
}

func (r *RedisRelay) Unsubscribe(userID string, ch <-chan *domain.RealtimeEvent) {
	if r.local != nil {
		r.local.Unsubscribe(userID, ch)
	}
}

func (r *RedisRelay) ConnectedCount() int {
	if r.local == nil {
		return 0
	}
	return r.local.ConnectedCount()
}

// IsConnected is always true in a worker process: only the API side knows.
func (r *RedisRelay) IsConnected(userID string) bool {
	if r.local == nil {
		return true
	}
	return r.local.IsConnected(userID)
}

var _ out.RealtimePort = (*RedisRelay)(nil)
