package out

import (
	"context"

	"subscription_server/core/domain"
)

// RealtimePort - 실시간 이벤트 푸시
type RealtimePort interface {
	// 사용자 채널 구독
	Subscribe(userID string) <-chan *domain.RealtimeEvent

	// 구독 해제
	Unsubscribe(userID string, ch <-chan *domain.RealtimeEvent)

	// 특정 사용자에게 이벤트 전송
	Push(ctx context.Context, userID string, event *domain.RealtimeEvent) error

	ConnectedCount() int
	IsConnected(userID string) bool
}
