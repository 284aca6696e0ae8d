// Package scan runs the mailbox scan that turns billing emails into
// subscription records.
package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"subscription_server/core/domain"
	"subscription_server/core/port/out"
	"subscription_server/core/service/detection"
	"subscription_server/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrScanInProgress = errors.New("scan already in progress")
)

// DatePolicy decides what happens to a detection without an extracted renewal date.
type DatePolicy string

const (
	DatePolicyStrict  DatePolicy = "strict"
	DatePolicyLenient DatePolicy = "lenient"
)

// Config holds the scan knobs.
type Config struct {
	MaxResults         int
	MessageLimit       int
	WindowDays         int
	DatePolicy         DatePolicy
	IncludePenalty     bool
	MessageTimeout     time.Duration
	LockTTL            time.Duration
	StaleRunAfter      time.Duration
	ReviewHintsEnabled bool
}

func DefaultConfig() Config {
	return Config{
		MaxResults:     200,
		MessageLimit:   150,
		WindowDays:     365,
		DatePolicy:     DatePolicyStrict,
		MessageTimeout: 15 * time.Second,
		LockTTL:        15 * time.Minute,
		StaleRunAfter:  30 * time.Minute,
	}
}

// Notifier stores a notification and pushes it to connected clients.
type Notifier interface {
	Send(ctx context.Context, n *domain.Notification) error
}

// =============================================================================
// Service
// =============================================================================

type Service struct {
	cfg      Config
	detector *detection.Detector

	creds    out.CredentialProvider
	mail     out.MailSourceFactory
	subRepo  out.SubscriptionRepository
	catRepo  out.CategoryRepository
	runRepo  out.ScanRunRepository
	connRepo out.MailConnectionRepository
	notifier Notifier

	// optional
	lock     out.ScanLock
	archive  out.DetectionArchive
	graph    out.SubscriptionGraph
	reviewer out.ReviewAssistant
	realtime out.RealtimePort

	now func() time.Time
}

func NewService(
	cfg Config,
	detector *detection.Detector,
	creds out.CredentialProvider,
	mail out.MailSourceFactory,
	subRepo out.SubscriptionRepository,
	catRepo out.CategoryRepository,
	runRepo out.ScanRunRepository,
	connRepo out.MailConnectionRepository,
	notifier Notifier,
) *Service {
	def := DefaultConfig()
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = def.MaxResults
	}
	if cfg.MessageLimit <= 0 {
		cfg.MessageLimit = def.MessageLimit
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = def.WindowDays
	}
	if cfg.DatePolicy == "" {
		cfg.DatePolicy = def.DatePolicy
	}
	if cfg.MessageTimeout <= 0 {
		cfg.MessageTimeout = def.MessageTimeout
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = def.LockTTL
	}
	if cfg.StaleRunAfter <= 0 {
		cfg.StaleRunAfter = def.StaleRunAfter
	}
	if detector == nil {
		detector = detection.NewDetector(nil)
	}
	return &Service{
		cfg:      cfg,
		detector: detector,
		creds:    creds,
		mail:     mail,
		subRepo:  subRepo,
		catRepo:  catRepo,
		runRepo:  runRepo,
		connRepo: connRepo,
		notifier: notifier,
		now:      time.Now,
	}
}

func (s *Service) SetLock(l out.ScanLock)                   { s.lock = l }
func (s *Service) SetArchive(a out.DetectionArchive)        { s.archive = a }
func (s *Service) SetGraph(g out.SubscriptionGraph)         { s.graph = g }
func (s *Service) SetReviewAssistant(r out.ReviewAssistant) { s.reviewer = r }
func (s *Service) SetRealtime(r out.RealtimePort)           { s.realtime = r }
func (s *Service) SetClock(now func() time.Time)            { s.now = now }

// =============================================================================
// Run
// =============================================================================

// Run scans one user's mailbox. At most one scan per user runs at a time;
// a concurrent call returns ErrScanInProgress.
func (s *Service) Run(ctx context.Context, userID uuid.UUID, trigger domain.ScanTrigger) (*domain.ScanSummary, error) {
	log := logger.WithUser(userID).WithField("trigger", string(trigger))

	// 1. 사용자별 단일 실행 보장
	if s.lock != nil {
		ok, err := s.lock.Acquire(ctx, userID, s.cfg.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire scan lock: %w", err)
		}
		if !ok {
			return nil, ErrScanInProgress
		}
		defer func() {
			if err := s.lock.Release(context.WithoutCancel(ctx), userID); err != nil {
				log.WithError(err).Warn("[ScanService.Run] failed to release scan lock")
			}
		}()
	}
	if err := s.guardRunning(ctx, userID); err != nil {
		return nil, err
	}

	// 2. scan run 기록
	run := &domain.ScanRun{
		UserID:  userID,
		Status:  domain.ScanRunning,
		Trigger: trigger,
	}
	if err := s.runRepo.Create(ctx, run); err != nil {
		if errors.Is(err, out.ErrRunActive) {
			return nil, ErrScanInProgress
		}
		return nil, fmt.Errorf("create scan run: %w", err)
	}
	log = log.WithScan(run.ID)
	s.push(ctx, userID, domain.EventScanStarted, map[string]any{"scan_id": run.ID})
	start := s.now()

	// 3. 토큰 확인 (실패 시 메시지 조회 전에 중단)
	token, err := s.creds.AccessToken(ctx, userID)
	if err != nil {
		reason := "Token refresh failed"
		if errors.Is(err, out.ErrMailNotConnected) {
			reason = "Gmail not connected"
		}
		s.fail(ctx, run, reason)
		log.WithError(err).Warn("[ScanService.Run] %s", reason)
		if errors.Is(err, out.ErrMailNotConnected) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", out.ErrTokenRefreshFailed, err)
	}

	source, err := s.mail.ForToken(ctx, token)
	if err != nil {
		s.fail(ctx, run, err.Error())
		return nil, fmt.Errorf("open mail source: %w", err)
	}

	// 4. 파이프라인 실행
	summary, err := s.execute(ctx, run, source)
	if err != nil {
		s.fail(ctx, run, err.Error())
		log.WithError(err).Error("[ScanService.Run] scan failed")
		return nil, err
	}

	// 5. 완료 기록
	done := s.now()
	run.Status = domain.ScanSuccess
	run.EmailsScanned = summary.EmailsScanned
	run.SubscriptionsFound = summary.SubscriptionsFound
	run.CompletedAt = &done
	if err := s.runRepo.Finish(ctx, run); err != nil {
		log.WithError(err).Warn("[ScanService.Run] failed to finish scan run")
	}
	if s.connRepo != nil {
		if err := s.connRepo.TouchLastScanned(ctx, userID, done); err != nil {
			log.WithError(err).Warn("[ScanService.Run] failed to update last_scanned_at")
		}
	}

	summary.ScanID = run.ID
	s.push(ctx, userID, domain.EventScanCompleted, summary)
	log.WithDuration(done.Sub(start)).Info("[ScanService.Run] scanned %d emails, %d subscriptions found",
		summary.EmailsScanned, summary.SubscriptionsFound)
	return summary, nil
}

// guardRunning rejects the scan when a fresh running row exists; a stale one
// (crashed worker) is closed as failed.
func (s *Service) guardRunning(ctx context.Context, userID uuid.UUID) error {
	running, err := s.runRepo.GetRunning(ctx, userID)
	if err != nil {
		return fmt.Errorf("check running scan: %w", err)
	}
	if running == nil {
		return nil
	}
	if !running.IsStale(s.now(), s.cfg.StaleRunAfter) {
		return ErrScanInProgress
	}
	logger.WithUser(userID).WithScan(running.ID).Warn("[ScanService.guardRunning] closing stale scan run")
	s.fail(ctx, running, "scan abandoned")
	return nil
}

func (s *Service) fail(ctx context.Context, run *domain.ScanRun, reason string) {
	done := s.now()
	run.Status = domain.ScanFailed
	run.ErrorMessage = &reason
	run.CompletedAt = &done
	if err := s.runRepo.Finish(context.WithoutCancel(ctx), run); err != nil {
		logger.WithScan(run.ID).WithError(err).Error("[ScanService.fail] failed to record failure")
	}
	s.push(ctx, run.UserID, domain.EventScanFailed, map[string]any{"scan_id": run.ID, "error": reason})
}

func (s *Service) push(ctx context.Context, userID uuid.UUID, t domain.EventType, data any) {
	if s.realtime == nil {
		return
	}
	if err := s.realtime.Push(ctx, userID.String(), domain.NewRealtimeEvent(t, userID, data)); err != nil {
		logger.WithUser(userID).WithError(err).Debug("[ScanService.push] %s not delivered", t)
	}
}

// =============================================================================
// Queries
// =============================================================================

// Latest returns the newest run, or nil if the user never scanned.
func (s *Service) Latest(ctx context.Context, userID uuid.UUID) (*domain.ScanRun, error) {
	run, err := s.runRepo.GetLatest(ctx, userID)
	if errors.Is(err, out.ErrNotFound) {
		return nil, nil
	}
	return run, err
}

func (s *Service) History(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.ScanRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.runRepo.ListByUser(ctx, userID, limit)
}

// Evidence returns the archived per-message analysis of a scan, if archiving is enabled.
func (s *Service) Evidence(ctx context.Context, userID uuid.UUID, scanID int64) ([]*out.ArchivedAnalysis, error) {
	if s.archive == nil {
		return nil, nil
	}
	return s.archive.ListByScan(ctx, userID, scanID)
}
