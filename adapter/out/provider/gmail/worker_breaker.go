package gmail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"subscription_server/pkg/logger"

	"github.com/sony/gobreaker"
	"google.golang.org/api/googleapi"
)

// ErrProviderUnavailable is returned while the breaker is open.
var ErrProviderUnavailable = errors.New("gmail temporarily unavailable")

// Breaker guards Gmail API calls with a circuit breaker.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

func NewBreaker(name string) *Breaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,                // Half-open 상태에서 허용할 요청 수
		Interval:    60 * time.Second, // Closed 상태에서 카운터 리셋 간격
		Timeout:     30 * time.Second, // Open 상태 유지 시간
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// 연속 5회 실패 또는 60% 이상 실패율 (최소 10회 요청)
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		// 4xx 는 요청 자체의 문제라 실패로 세지 않는다
		IsSuccessful: func(err error) bool {
			var nce *nonCircuitError
			return err == nil || errors.As(err, &nce)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(map[string]any{"breaker": name, "from": from.String(), "to": to.String()}).
				Warn("[GmailBreaker] state changed")
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Execute runs fn under the breaker. Client-side API errors (4xx other than
// 429) pass through without counting as failures.
func (b *Breaker) Execute(ctx context.Context, operation string, fn func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		if err := fn(); err != nil {
			if !tripsBreaker(err) {
				return nil, &nonCircuitError{err: err}
			}
			return nil, err
		}
		return nil, nil
	})

	var nce *nonCircuitError
	if errors.As(err, &nce) {
		return nce.err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s", ErrProviderUnavailable, operation)
	}
	if err != nil && ctx.Err() == nil {
		logger.WithError(err).Debug("[GmailBreaker] %s failed, state=%s", operation, b.cb.State().String())
	}
	return err
}

func (b *Breaker) State() string {
	return b.cb.State().String()
}

func tripsBreaker(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 400, 401, 403, 404:
			return false
		}
	}
	// a cancelled scan is not a Gmail failure
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

// nonCircuitError wraps errors that should not trip the circuit breaker.
type nonCircuitError struct {
	err error
}

func (e *nonCircuitError) Error() string {
	return e.err.Error()
}

// wrapError adds the operation to an API error, keeping it inspectable.
func wrapError(err error, msg string) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401:
			return fmt.Errorf("%s: token rejected: %w", msg, err)
		case 429:
			return fmt.Errorf("%s: rate limited: %w", msg, err)
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
