package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"subscription_server/core/port/out"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// OAuthStateKey Redis key prefix for OAuth state
	OAuthStateKey = "oauth:gmail:state:"

	// ScanLockKey Redis key prefix for the per-user scan lock
	ScanLockKey = "scan:lock:"
)

var errStateStoreUnavailable = errors.New("oauth state store requires redis")

// RedisOAuthStateStore Redis 기반 OAuth state 저장소 (CSRF 보호)
type RedisOAuthStateStore struct {
	client *redis.Client
}

func NewRedisOAuthStateStore(client *redis.Client) *RedisOAuthStateStore {
	return &RedisOAuthStateStore{client: client}
}

// StoreState state를 Redis에 저장
func (s *RedisOAuthStateStore) StoreState(ctx context.Context, state string, userID uuid.UUID, ttl time.Duration) error {
	if s.client == nil {
		return errStateStoreUnavailable
	}
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if userID == uuid.Nil {
		return errors.New("userID cannot be nil")
	}

	if err := s.client.Set(ctx, OAuthStateKey+state, userID.String(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to store OAuth state: %w", err)
	}
	return nil
}

// ValidateState state 검증 후 즉시 삭제 (일회용)
func (s *RedisOAuthStateStore) ValidateState(ctx context.Context, state string) (uuid.UUID, error) {
	if s.client == nil {
		return uuid.Nil, errStateStoreUnavailable
	}
	if state == "" {
		return uuid.Nil, errors.New("state cannot be empty")
	}

	// GETDEL: 재사용 방지
	userIDStr, err := s.client.GetDel(ctx, OAuthStateKey+state).Result()
	if err == redis.Nil {
		return uuid.Nil, errors.New("state not found or expired")
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to validate OAuth state: %w", err)
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid userID in state: %w", err)
	}
	return userID, nil
}

// =============================================================================
// Scan lock
// =============================================================================

// RedisScanLock 사용자별 스캔 중복 실행 방지 (프로세스 간)
type RedisScanLock struct {
	client *redis.Client
}

func NewRedisScanLock(client *redis.Client) *RedisScanLock {
	return &RedisScanLock{client: client}
}

// Acquire takes the lock; the TTL frees it if the holder dies mid-scan.
func (l *RedisScanLock) Acquire(ctx context.Context, userID uuid.UUID, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, ScanLockKey+userID.String(), time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire scan lock: %w", err)
	}
	return ok, nil
}

func (l *RedisScanLock) Release(ctx context.Context, userID uuid.UUID) error {
	return l.client.Del(ctx, ScanLockKey+userID.String()).Err()
}

var (
	_ out.OAuthStateStore = (*RedisOAuthStateStore)(nil)
	_ out.ScanLock        = (*RedisScanLock)(nil)
)
