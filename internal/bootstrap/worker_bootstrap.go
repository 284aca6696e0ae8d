package bootstrap

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"subscription_server/adapter/in/worker"
	"subscription_server/adapter/out/messaging"
	"subscription_server/config"
	"subscription_server/core/port/out"
	"subscription_server/pkg/logger"

	"github.com/rs/zerolog"
)

var errPoolStopped = errors.New("worker pool is not accepting jobs")

type Worker struct {
	pool      *worker.Pool
	consumer  *messaging.Consumer
	scheduler *worker.Scheduler
	deps      *Dependencies
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	zlog      zerolog.Logger
}

func NewWorker(cfg *config.Config, deps *Dependencies) *Worker {
	zlog := componentLogger(cfg, "worker")

	scanProcessor := worker.NewScanProcessor(deps.ScanService)
	reminderProcessor := worker.NewReminderProcessor(deps.ReminderService, deps.NotificationRepo, cfg.NotificationRetention)
	handler := worker.NewHandler(scanProcessor, reminderProcessor)

	poolConfig := worker.DefaultPoolConfig()
	if cfg.WorkerCount > 0 {
		poolConfig.Workers = cfg.WorkerCount
	}
	if cfg.WorkerQueueSize > 0 {
		poolConfig.WorkerChanSize = cfg.WorkerQueueSize
	}
	if cfg.JobMaxRetries >= 0 {
		poolConfig.MaxRetries = cfg.JobMaxRetries
	}
	if cfg.ScanJobTimeoutSec > 0 {
		poolConfig.JobTimeoutByType[worker.JobScanRun] = time.Duration(cfg.ScanJobTimeoutSec) * time.Second
	}
	pool := worker.NewPool(handler, poolConfig, zlog)

	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		pool:   pool,
		deps:   deps,
		ctx:    ctx,
		cancel: cancel,
		zlog:   zlog,
	}

	// Redis 가 없으면 스케줄러가 풀에 직접 넣는다
	producer := deps.JobProducer
	if producer == nil {
		producer = &poolProducer{pool: pool}
	}

	if deps.Redis != nil {
		w.consumer = messaging.NewConsumer(deps.Redis, &messaging.ConsumerConfig{
			Group:                "subscription-workers",
			Consumer:             cfg.WorkerID,
			Streams:              messaging.Streams,
			Handler:              &streamHandler{worker: w},
			Logger:               zlog,
			BatchSize:            int64(cfg.ConsumerBatchSize),
			Block:                time.Duration(cfg.ConsumerBlockMS) * time.Millisecond,
			PendingCheckInterval: time.Duration(cfg.ConsumerPendingCheckSec) * time.Second,
			MaxRetries:           cfg.ConsumerMaxRetries,
		})
		logger.Info("Redis Stream Consumer configured for %d streams", len(messaging.Streams))
	} else {
		logger.Warn("Redis not available, worker will only process direct submissions")
	}

	if cfg.SchedulerEnabled {
		w.scheduler = worker.NewScheduler(deps.ConnectionRepo, producer, pool.Submit, worker.SchedulerConfig{
			ScanInterval:     cfg.Scan.ScheduleInterval,
			ReminderInterval: cfg.ReminderInterval,
			CleanupInterval:  24 * time.Hour,
			StartDelay:       30 * time.Second,
		})
	}

	return w
}

// streamHandler adapts Redis Stream messages to Worker Pool
type streamHandler struct {
	worker *Worker
}

func (h *streamHandler) Handle(ctx context.Context, stream string, data []byte) error {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		// 파싱 불가 메시지는 재시도해도 소용없으니 ack
		logger.Error("[StreamHandler] Failed to parse payload from %s: %v", stream, err)
		return nil
	}

	jobType := streamToJobType(stream)
	if !h.worker.pool.Submit(worker.NewMessage(jobType, payload)) {
		// ack 하지 않으면 reclaim 이 다시 가져간다
		return errPoolStopped
	}
	logger.Debug("[StreamHandler] Job submitted to pool: %s", jobType)
	return nil
}

func streamToJobType(stream string) string {
	switch stream {
	case messaging.StreamScan:
		return worker.JobScanRun
	case messaging.StreamReminder:
		return worker.JobReminderSweep
	default:
		return stream
	}
}

// poolProducer feeds scheduled jobs straight into the pool when there is no stream.
type poolProducer struct {
	pool *worker.Pool
}

func (p *poolProducer) PublishScan(_ context.Context, job *out.ScanJob) error {
	msg := worker.NewMessage(worker.JobScanRun, map[string]any{"user_id": job.UserID, "trigger": job.Trigger})
	if !p.pool.Submit(msg) {
		return errPoolStopped
	}
	return nil
}

func (p *poolProducer) PublishReminders(_ context.Context, job *out.ReminderJob) error {
	payload := map[string]any{"date": job.Date}
	if job.UserID != "" {
		payload["user_id"] = job.UserID
	}
	if !p.pool.Submit(worker.NewMessage(worker.JobReminderSweep, payload)) {
		return errPoolStopped
	}
	return nil
}

func (w *Worker) Start() error {
	if err := w.pool.Start(); err != nil {
		return err
	}

	if w.consumer != nil {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.zlog.Info().Msg("Starting Redis Stream Consumer...")
			if err := w.consumer.Run(w.ctx); err != nil && err != context.Canceled {
				w.zlog.Error().Err(err).Msg("Redis Stream Consumer error")
			}
		}()
	}

	if w.scheduler != nil {
		w.scheduler.Start()
	}
	return nil
}

func (w *Worker) Stop() {
	if w.scheduler != nil {
		w.scheduler.Stop()
	}
	w.cancel()
	w.wg.Wait()
	w.pool.Stop()
}

func (w *Worker) GetMetrics() worker.PoolMetrics {
	return w.pool.GetMetrics()
}
