// Package realtime provides real-time communication adapters.
package realtime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"subscription_server/core/domain"
	"subscription_server/core/port/out"

	"github.com/rs/zerolog"
)

// =============================================================================
// SSE Adapter - RealtimePort 구현
// =============================================================================

// SSEAdapter implements out.RealtimePort using Server-Sent Events.
type SSEAdapter struct {
	clients map[string]map[chan *domain.RealtimeEvent]struct{} // userID -> channels
	mu      sync.RWMutex
	log     zerolog.Logger

	messagesSent    atomic.Int64
	messagesDropped atomic.Int64
	seqCounter      atomic.Int64 // 전역 시퀀스 카운터
}

func NewSSEAdapter(log zerolog.Logger) *SSEAdapter {
	return &SSEAdapter{
		clients: make(map[string]map[chan *domain.RealtimeEvent]struct{}),
		log:     log.With().Str("component", "sse_adapter").Logger(),
	}
}

// Subscribe creates a new subscription channel for a user.
func (a *SSEAdapter) Subscribe(userID string) <-chan *domain.RealtimeEvent {
	a.mu.Lock()
	defer a.mu.Unlock()

	ch := make(chan *domain.RealtimeEvent, 64)

	if a.clients[userID] == nil {
		a.clients[userID] = make(map[chan *domain.RealtimeEvent]struct{})
	}
	a.clients[userID][ch] = struct{}{}

	a.log.Debug().
		Str("user_id", userID).
		Int("total_connections", len(a.clients[userID])).
		Msg("client subscribed")

	return ch
}

// Unsubscribe removes and closes a subscription channel.
func (a *SSEAdapter) Unsubscribe(userID string, ch <-chan *domain.RealtimeEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	channels, ok := a.clients[userID]
	if !ok {
		return
	}
	for c := range channels {
		if c == ch {
			delete(channels, c)
			close(c)
			break
		}
	}
	if len(channels) == 0 {
		delete(a.clients, userID)
	}

	a.log.Debug().Str("user_id", userID).Msg("client unsubscribed")
}

// Push sends an event to every open stream of a user. Full buffers drop the event.
func (a *SSEAdapter) Push(ctx context.Context, userID string, event *domain.RealtimeEvent) error {
	event.Seq = a.seqCounter.Add(1)

	a.mu.RLock()
	defer a.mu.RUnlock()

	for ch := range a.clients[userID] {
		select {
		case ch <- event:
			a.messagesSent.Add(1)
		default:
			a.messagesDropped.Add(1)
			a.log.Warn().
				Str("user_id", userID).
				Str("event_type", string(event.Type)).
				Int64("seq", event.Seq).
				Msg("dropped event due to full buffer")
		}
	}
	return nil
}

// ConnectedCount returns the number of connected users.
func (a *SSEAdapter) ConnectedCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.clients)
}

// IsConnected checks if a user has active connections.
func (a *SSEAdapter) IsConnected(userID string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.clients[userID]) > 0
}

func (a *SSEAdapter) GetMetrics() SSEMetrics {
	a.mu.RLock()
	defer a.mu.RUnlock()

	total := 0
	for _, channels := range a.clients {
		total += len(channels)
	}
	return SSEMetrics{
		ConnectedUsers:   len(a.clients),
		TotalConnections: total,
		MessagesSent:     a.messagesSent.Load(),
		MessagesDropped:  a.messagesDropped.Load(),
	}
}

// SSEMetrics holds SSE adapter metrics.
type SSEMetrics struct {
	ConnectedUsers   int   `json:"connected_users"`
	TotalConnections int   `json:"total_connections"`
	MessagesSent     int64 `json:"messages_sent"`
	MessagesDropped  int64 `json:"messages_dropped"`
}

// =============================================================================
// SSE Hub - HTTP Handler 연결용
// =============================================================================

// SSEHub hands out per-connection clients to the HTTP handler.
type SSEHub struct {
	adapter           *SSEAdapter
	heartbeatInterval time.Duration
}

func NewSSEHub(adapter *SSEAdapter) *SSEHub {
	return &SSEHub{
		adapter:           adapter,
		heartbeatInterval: 30 * time.Second,
	}
}

func (h *SSEHub) CreateClient(userID string) *SSEClient {
	return &SSEClient{
		UserID: userID,
		Events: h.adapter.Subscribe(userID),
		hub:    h,
	}
}

func (h *SSEHub) Metrics() SSEMetrics {
	return h.adapter.GetMetrics()
}

// SSEClient represents an SSE client connection.
type SSEClient struct {
	UserID string
	Events <-chan *domain.RealtimeEvent
	hub    *SSEHub
	once   sync.Once
}

func (c *SSEClient) Close() {
	c.once.Do(func() {
		c.hub.adapter.Unsubscribe(c.UserID, c.Events)
	})
}

func (c *SSEClient) HeartbeatInterval() time.Duration {
	return c.hub.heartbeatInterval
}

// =============================================================================
// Event Serialization
// =============================================================================

// SerializeEvent renders the data line of an SSE frame.
func SerializeEvent(event *domain.RealtimeEvent) ([]byte, error) {
	payload := map[string]interface{}{
		"type":      event.Type,
		"seq":       event.Seq,
		"data":      event.Data,
		"timestamp": event.Timestamp.UTC().Format(time.RFC3339),
	}
	return json.Marshal(payload)
}

var _ out.RealtimePort = (*SSEAdapter)(nil)
