package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"subscription_server/core/domain"
	"subscription_server/core/port/out"
	"subscription_server/pkg/apperr"
	"subscription_server/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	stateTTL       = 10 * time.Minute
	refreshEarlier = 5 * time.Minute
)

// OAuthService owns the Gmail connection: the connect flow and handing out
// fresh access tokens to the scanner.
type OAuthService struct {
	connRepo out.MailConnectionRepository
	client   out.OAuthClient
	states   out.OAuthStateStore

	producer out.JobProducer  // first scan after connect (optional)
	realtime out.RealtimePort // token expiry push (optional)
	now      func() time.Time
}

func NewOAuthService(connRepo out.MailConnectionRepository, client out.OAuthClient, states out.OAuthStateStore) *OAuthService {
	return &OAuthService{
		connRepo: connRepo,
		client:   client,
		states:   states,
		now:      time.Now,
	}
}

// SetJobProducer sets the producer used to queue the first scan after connecting.
func (s *OAuthService) SetJobProducer(producer out.JobProducer) {
	s.producer = producer
}

func (s *OAuthService) SetRealtime(realtime out.RealtimePort) {
	s.realtime = realtime
}

// =============================================================================
// Connect flow
// =============================================================================

func (s *OAuthService) GetAuthURL(ctx context.Context, userID uuid.UUID) (string, error) {
	if s.client == nil {
		return "", apperr.Internal("google oauth not configured")
	}
	state := uuid.NewString()
	if err := s.states.StoreState(ctx, state, userID, stateTTL); err != nil {
		return "", apperr.ExternalError("redis", err)
	}
	return s.client.AuthURL(state), nil
}

func (s *OAuthService) HandleCallback(ctx context.Context, state, code string) (*domain.MailConnection, error) {
	if state == "" || code == "" {
		return nil, apperr.BadRequest("missing state or code")
	}
	userID, err := s.states.ValidateState(ctx, state)
	if err != nil {
		return nil, apperr.OAuthFailed("google", err)
	}
	logger.WithUser(userID).Info("[OAuthService.HandleCallback] exchanging code")

	token, err := s.client.Exchange(ctx, code)
	if err != nil {
		return nil, apperr.OAuthFailed("google", fmt.Errorf("exchange token: %w", err))
	}
	email, err := s.client.AccountEmail(ctx, token)
	if err != nil {
		return nil, apperr.OAuthFailed("google", fmt.Errorf("get account email: %w", err))
	}

	now := s.now()
	conn := &domain.MailConnection{
		UserID:                 userID,
		Provider:               domain.ProviderGoogle,
		Email:                  email,
		AccessToken:            token.AccessToken,
		RefreshToken:           token.RefreshToken,
		ExpiresAt:              token.Expiry,
		IsConnected:            true,
		NotifyEmail:            true,
		NotificationDaysBefore: domain.DefaultReminderDaysBefore,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	// 기존 연결의 알림 설정과 refresh token 유지
	if existing, err := s.connRepo.GetByUser(ctx, userID); err == nil && existing != nil {
		conn.ID = existing.ID
		conn.NotifyEmail = existing.NotifyEmail
		conn.NotificationDaysBefore = existing.NotificationDaysBefore
		conn.LastScannedAt = existing.LastScannedAt
		conn.CreatedAt = existing.CreatedAt
		if conn.RefreshToken == "" {
			conn.RefreshToken = existing.RefreshToken
		}
	}

	if err := s.connRepo.Upsert(ctx, conn); err != nil {
		return nil, apperr.DatabaseError("save connection", err)
	}
	logger.WithUser(userID).Info("[OAuthService.HandleCallback] connected %s", email)

	if s.producer != nil {
		job := &out.ScanJob{UserID: userID.String(), Trigger: string(domain.TriggerManual)}
		if err := s.producer.PublishScan(ctx, job); err != nil {
			logger.WithUser(userID).WithError(err).Warn("[OAuthService.HandleCallback] failed to queue first scan")
		}
	}
	return conn, nil
}

func (s *OAuthService) GetConnection(ctx context.Context, userID uuid.UUID) (*domain.MailConnection, error) {
	conn, err := s.connRepo.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, out.ErrNotFound) {
			return nil, apperr.MailNotConnected()
		}
		return nil, apperr.DatabaseError("get connection", err)
	}
	return conn, nil
}

func (s *OAuthService) Disconnect(ctx context.Context, userID uuid.UUID) error {
	conn, err := s.GetConnection(ctx, userID)
	if err != nil {
		return err
	}
	return s.connRepo.Disconnect(ctx, conn.ID)
}

// =============================================================================
// Tokens
// =============================================================================

// isTokenExpiredError checks if the error indicates a permanent token failure.
func isTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// Google OAuth errors indicating token is permanently invalid
	return strings.Contains(errStr, "invalid_client") ||
		strings.Contains(errStr, "invalid_grant") ||
		strings.Contains(errStr, "Token has been expired or revoked") ||
		strings.Contains(errStr, "Token has been revoked")
}

// AccessToken returns a token valid for at least a few more minutes,
// refreshing and persisting it when needed.
func (s *OAuthService) AccessToken(ctx context.Context, userID uuid.UUID) (*oauth2.Token, error) {
	conn, err := s.connRepo.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, out.ErrNotFound) {
			return nil, out.ErrMailNotConnected
		}
		return nil, fmt.Errorf("get connection: %w", err)
	}
	if conn == nil || !conn.IsConnected {
		return nil, out.ErrMailNotConnected
	}

	token := &oauth2.Token{
		AccessToken:  conn.AccessToken,
		RefreshToken: conn.RefreshToken,
		Expiry:       conn.ExpiresAt,
		TokenType:    "Bearer",
	}
	if conn.ExpiresAt.Sub(s.now()) >= refreshEarlier {
		return token, nil
	}

	fresh, err := s.client.Refresh(ctx, token)
	if err != nil {
		if isTokenExpiredError(err) {
			logger.WithUser(userID).WithError(err).Warn("[OAuthService.AccessToken] refresh token revoked, marking connection %d as disconnected", conn.ID)
			if dErr := s.connRepo.Disconnect(ctx, conn.ID); dErr != nil {
				logger.WithUser(userID).WithError(dErr).Error("[OAuthService.AccessToken] failed to update connection status")
			}
			if s.realtime != nil {
				_ = s.realtime.Push(ctx, userID.String(), domain.NewRealtimeEvent(domain.EventTokenExpired, userID, map[string]any{"email": conn.Email}))
			}
		}
		return nil, fmt.Errorf("%w: %v", out.ErrTokenRefreshFailed, err)
	}

	if err := s.connRepo.UpdateToken(ctx, conn.ID, fresh.AccessToken, fresh.Expiry); err != nil {
		logger.WithUser(userID).WithError(err).Warn("[OAuthService.AccessToken] failed to persist refreshed token")
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = conn.RefreshToken
	}
	logger.WithUser(userID).Debug("[OAuthService.AccessToken] token refreshed for connection %d", conn.ID)
	return fresh, nil
}
