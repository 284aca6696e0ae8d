package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"subscription_server/core/domain"
	"subscription_server/core/port/out"
	"subscription_server/core/service/reminder"
	"subscription_server/core/service/scan"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScanner struct {
	err     error
	userID  uuid.UUID
	trigger domain.ScanTrigger
}

func (f *fakeScanner) Run(_ context.Context, userID uuid.UUID, trigger domain.ScanTrigger) (*domain.ScanSummary, error) {
	f.userID, f.trigger = userID, trigger
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ScanSummary{ScanID: 1, EmailsScanned: 3}, nil
}

func TestScanProcessor(t *testing.T) {
	user := uuid.New()

	tests := []struct {
		name      string
		payload   map[string]any
		runErr    error
		wantErr   bool
		permanent bool
	}{
		{name: "runs scan", payload: map[string]any{"user_id": user.String(), "trigger": "manual"}},
		{name: "scan in progress is not an error", payload: map[string]any{"user_id": user.String()}, runErr: scan.ErrScanInProgress},
		{name: "bad user id", payload: map[string]any{"user_id": "nope"}, wantErr: true, permanent: true},
		{name: "disconnected mailbox", payload: map[string]any{"user_id": user.String()}, runErr: out.ErrMailNotConnected, wantErr: true, permanent: true},
		{name: "transient failure", payload: map[string]any{"user_id": user.String()}, runErr: errors.New("gmail 503"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := &fakeScanner{err: tt.runErr}
			err := NewScanProcessor(scanner).ProcessScan(context.Background(), NewMessage(JobScanRun, tt.payload))
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, user, scanner.userID)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.permanent, errors.Is(err, errPermanent))
		})
	}

	t.Run("missing trigger defaults to scheduled", func(t *testing.T) {
		scanner := &fakeScanner{}
		require.NoError(t, NewScanProcessor(scanner).ProcessScan(context.Background(),
			NewMessage(JobScanRun, map[string]any{"user_id": user.String()})))
		assert.Equal(t, domain.TriggerScheduled, scanner.trigger)
	})
}

type fakeSweeper struct {
	today  time.Time
	userID *uuid.UUID
}

func (f *fakeSweeper) Sweep(_ context.Context, today time.Time, userID *uuid.UUID) (*reminder.SweepResult, error) {
	f.today, f.userID = today, userID
	return &reminder.SweepResult{Users: 1}, nil
}

type fakePruner struct{ before time.Time }

func (f *fakePruner) DeleteOlderThan(_ context.Context, before time.Time) (int64, error) {
	f.before = before
	return 2, nil
}

func TestReminderProcessor(t *testing.T) {
	now := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	sweeper := &fakeSweeper{}
	pruner := &fakePruner{}
	p := NewReminderProcessor(sweeper, pruner, 90*24*time.Hour)
	p.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, p.ProcessSweep(ctx, NewMessage(JobReminderSweep, map[string]any{"date": "2026-05-01"})))
	assert.Equal(t, "2026-05-01", sweeper.today.Format("2006-01-02"))
	assert.Nil(t, sweeper.userID)

	user := uuid.New()
	require.NoError(t, p.ProcessSweep(ctx, NewMessage(JobReminderSweep, map[string]any{"user_id": user.String()})))
	assert.Equal(t, now, sweeper.today)
	require.NotNil(t, sweeper.userID)
	assert.Equal(t, user, *sweeper.userID)

	err := p.ProcessSweep(ctx, NewMessage(JobReminderSweep, map[string]any{"date": "05/01/2026"}))
	assert.ErrorIs(t, err, errPermanent)

	require.NoError(t, p.ProcessCleanup(ctx, nil))
	assert.Equal(t, now.Add(-90*24*time.Hour), pruner.before)
}

type flakyHandler struct {
	calls    atomic.Int32
	failures int32
	err      error
}

func (h *flakyHandler) Process(context.Context, *Message) error {
	if h.calls.Add(1) <= h.failures {
		return h.err
	}
	return nil
}

func TestPool_RetriesTransientFailures(t *testing.T) {
	h := &flakyHandler{failures: 1, err: errors.New("temporary")}
	cfg := DefaultPoolConfig()
	cfg.Workers = 1
	cfg.RetryBase = time.Millisecond
	p := NewPool(h, cfg, zerolog.Nop())
	require.NoError(t, p.Start())
	defer p.Stop()

	require.True(t, p.Submit(NewMessage(JobScanRun, nil)))
	assert.Eventually(t, func() bool { return p.GetMetrics().JobsProcessed == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(1), p.GetMetrics().JobsRetried)
}

func TestPool_PermanentFailureIsNotRetried(t *testing.T) {
	h := &flakyHandler{failures: 10, err: errPermanent}
	cfg := DefaultPoolConfig()
	cfg.Workers = 1
	p := NewPool(h, cfg, zerolog.Nop())
	require.NoError(t, p.Start())
	defer p.Stop()

	p.Submit(NewMessage(JobScanRun, nil))
	assert.Eventually(t, func() bool { return p.GetMetrics().JobsFailed == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), h.calls.Load())
}

type recordingProducer struct {
	mu        sync.Mutex
	scans     []*out.ScanJob
	reminders []*out.ReminderJob
}

func (r *recordingProducer) PublishScan(_ context.Context, job *out.ScanJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scans = append(r.scans, job)
	return nil
}

func (r *recordingProducer) PublishReminders(_ context.Context, job *out.ReminderJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reminders = append(r.reminders, job)
	return nil
}

type staticConns []*domain.MailConnection

func (s staticConns) ListConnected(context.Context) ([]*domain.MailConnection, error) { return s, nil }

func TestScheduler_PublishesJobs(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	producer := &recordingProducer{}
	s := NewScheduler(staticConns{{UserID: a}, {UserID: b}}, producer, nil, SchedulerConfig{})
	s.now = func() time.Time { return time.Date(2026, 5, 10, 23, 0, 0, 0, time.UTC) }

	s.publishScans(context.Background())
	s.publishReminders(context.Background())

	require.Len(t, producer.scans, 2)
	assert.Equal(t, a.String(), producer.scans[0].UserID)
	assert.Equal(t, string(domain.TriggerScheduled), producer.scans[0].Trigger)
	require.Len(t, producer.reminders, 1)
	assert.Equal(t, "2026-05-10", producer.reminders[0].Date)
}
