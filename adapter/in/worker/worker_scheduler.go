package worker

import (
	"context"
	"time"

	"subscription_server/core/domain"
	"subscription_server/core/port/out"
	"subscription_server/pkg/logger"
)

// =============================================================================
// Scheduler - 주기 작업 발행 (예약 스캔, 리마인더, 알림 정리)
// =============================================================================

// ConnectionLister lists the mailboxes a scheduled scan should cover.
type ConnectionLister interface {
	ListConnected(ctx context.Context) ([]*domain.MailConnection, error)
}

// SchedulerConfig holds the tick intervals. Zero disables a job.
type SchedulerConfig struct {
	ScanInterval     time.Duration
	ReminderInterval time.Duration
	CleanupInterval  time.Duration
	StartDelay       time.Duration
}

// Scheduler publishes periodic jobs to the stream; the pool executes them.
type Scheduler struct {
	conns    ConnectionLister
	producer out.JobProducer
	local    func(*Message) bool // cleanup runs in-process
	cfg      SchedulerConfig
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(conns ConnectionLister, producer out.JobProducer, local func(*Message) bool, cfg SchedulerConfig) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		conns:    conns,
		producer: producer,
		local:    local,
		cfg:      cfg,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Scheduler) Start() {
	logger.Info("[Scheduler] Starting (scan=%s, reminder=%s, cleanup=%s)",
		s.cfg.ScanInterval, s.cfg.ReminderInterval, s.cfg.CleanupInterval)

	s.every(s.cfg.ScanInterval, s.publishScans)
	s.every(s.cfg.ReminderInterval, s.publishReminders)
	s.every(s.cfg.CleanupInterval, s.submitCleanup)
}

func (s *Scheduler) Stop() {
	logger.Info("[Scheduler] Stopping...")
	s.cancel()
}

func (s *Scheduler) every(interval time.Duration, fn func(ctx context.Context)) {
	if interval <= 0 {
		return
	}
	go func() {
		// 시작 직후 몰림 방지
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(s.cfg.StartDelay):
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			fn(s.ctx)
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// publishScans queues one scheduled scan per connected mailbox.
func (s *Scheduler) publishScans(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	conns, err := s.conns.ListConnected(ctx)
	if err != nil {
		logger.Error("[Scheduler] Failed to list connections: %v", err)
		return
	}

	published := 0
	for _, conn := range conns {
		job := &out.ScanJob{UserID: conn.UserID.String(), Trigger: string(domain.TriggerScheduled)}
		if err := s.producer.PublishScan(ctx, job); err != nil {
			logger.Error("[Scheduler] Failed to publish scan for user %s: %v", conn.UserID, err)
			continue
		}
		published++
	}
	if published > 0 {
		logger.Info("[Scheduler] Published %d scheduled scans", published)
	}
}

func (s *Scheduler) publishReminders(ctx context.Context) {
	job := &out.ReminderJob{Date: s.now().UTC().Format("2006-01-02")}
	if err := s.producer.PublishReminders(ctx, job); err != nil {
		logger.Error("[Scheduler] Failed to publish reminder sweep: %v", err)
	}
}

func (s *Scheduler) submitCleanup(context.Context) {
	if s.local == nil {
		return
	}
	if !s.local(NewMessage(JobNotificationGC, nil)) {
		logger.Warn("[Scheduler] cleanup job not accepted")
	}
}
