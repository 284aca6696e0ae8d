package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"subscription_server/adapter/out/graph"
	"subscription_server/adapter/out/llm"
	"subscription_server/adapter/out/messaging"
	"subscription_server/adapter/out/mongodb"
	"subscription_server/adapter/out/persistence"
	"subscription_server/adapter/out/provider/gmail"
	"subscription_server/adapter/out/realtime"
	"subscription_server/config"
	"subscription_server/core/port/out"
	"subscription_server/core/service/auth"
	"subscription_server/core/service/detection"
	"subscription_server/core/service/notification"
	"subscription_server/core/service/reminder"
	"subscription_server/core/service/scan"
	"subscription_server/core/service/subscription"
	"subscription_server/infra/database"
	"subscription_server/pkg/crypto"
	"subscription_server/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
)

type Dependencies struct {
	Config  *config.Config
	DB      *pgxpool.Pool
	SQLDB   *sqlx.DB
	Redis   *redis.Client
	MongoDB *mongo.Client
	Neo4j   neo4j.DriverWithContext

	// Repositories
	SubscriptionRepo *persistence.SubscriptionAdapter
	CategoryRepo     *persistence.CategoryAdapter
	NotificationRepo *persistence.NotificationAdapter
	ConnectionRepo   *persistence.MailConnectionAdapter
	ScanLogRepo      *persistence.ScanLogAdapter

	// Gmail
	GmailBreaker *gmail.Breaker
	GmailFactory *gmail.Factory
	OAuthClient  *gmail.OAuthClient

	// Optional stores
	Archive  *mongodb.DetectionArchiveAdapter
	Graph    *graph.SubscriptionGraphAdapter
	Reviewer *llm.ReviewAssistant

	// Messaging (nil without Redis; scans then run inline)
	JobProducer out.JobProducer

	// Realtime
	RealtimeAdapter *realtime.SSEAdapter
	SSEHub          *realtime.SSEHub
	Relay           *realtime.RedisRelay
	Realtime        out.RealtimePort

	// Services
	Detector            *detection.Detector
	ScanService         *scan.Service
	SubscriptionService *subscription.Service
	NotificationService *notification.Service
	ReminderService     *reminder.Service
	OAuthService        *auth.OAuthService
	SettingsService     *auth.SettingsService
}

// NewDependencies connects every backing store and builds the service graph.
// serveSSE keeps a local client registry; worker-only processes publish
// realtime events through Redis without one.
func NewDependencies(cfg *config.Config, serveSSE bool) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	ctx := context.Background()

	// Database (pgxpool)
	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	deps.DB = db
	cleanups = append(cleanups, func() { db.Close() })

	// Database (sqlx for the repositories)
	sqlDB, err := database.NewSQLX(cfg.DatabaseURL)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("connect sqlx: %w", err)
	}
	deps.SQLDB = sqlDB
	cleanups = append(cleanups, func() { sqlDB.Close() })
	logger.Info("sqlx database connection successful")

	// Redis
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis connection failed: %v", err)
		} else {
			deps.Redis = redisClient
			cleanups = append(cleanups, func() { redisClient.Close() })
		}
	}

	// MongoDB (evidence archive)
	if cfg.MongoDBURL != "" {
		mongoClient, err := mongodb.NewClient(ctx, cfg.MongoDBURL)
		if err != nil {
			logger.Warn("MongoDB connection failed: %v", err)
		} else {
			deps.MongoDB = mongoClient
			cleanups = append(cleanups, func() { _ = mongoClient.Disconnect(context.Background()) })

			deps.Archive = mongodb.NewDetectionArchiveAdapter(mongoClient.Database(cfg.MongoDBName), cfg.Scan.ArchiveRetention)
			if err := deps.Archive.EnsureIndexes(ctx); err != nil {
				logger.Warn("MongoDB index creation failed: %v", err)
			}
			logger.Info("MongoDB evidence archive enabled (db=%s)", cfg.MongoDBName)
		}
	}

	// Neo4j (subscription graph)
	if cfg.Neo4jURL != "" {
		driver, err := graph.NewDriver(ctx, cfg.Neo4jURL, cfg.Neo4jUsername, cfg.Neo4jPassword)
		if err != nil {
			logger.Warn("Neo4j connection failed: %v", err)
		} else {
			deps.Neo4j = driver
			cleanups = append(cleanups, func() { _ = driver.Close(context.Background()) })

			deps.Graph = graph.NewSubscriptionGraphAdapter(driver, "neo4j")
			if err := deps.Graph.EnsureIndexes(ctx); err != nil {
				logger.Warn("Neo4j index creation failed: %v", err)
			}
			logger.Info("Neo4j subscription graph enabled")
		}
	}

	// OpenAI (review hints)
	if cfg.OpenAIAPIKey != "" && cfg.Scan.ReviewHintsEnabled {
		deps.Reviewer = llm.NewReviewAssistant(llm.Config{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.LLMModel,
			Timeout: time.Duration(cfg.LLMTimeoutSec) * time.Second,
		})
		logger.Info("Review hints enabled (model=%s)", cfg.LLMModel)
	}

	// Token encryption
	key := cfg.EncryptionKey
	if key == "" {
		key = cfg.JWTSecret
	}
	var encryptor *crypto.Encryptor
	if key != "" {
		encryptor, err = crypto.NewEncryptor([]byte(key))
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("token encryptor: %w", err)
		}
	} else {
		logger.Warn("No ENCRYPTION_KEY or JWT_SECRET; OAuth tokens are stored in plaintext")
	}

	// Repositories
	deps.SubscriptionRepo = persistence.NewSubscriptionAdapter(sqlDB)
	deps.CategoryRepo = persistence.NewCategoryAdapter(sqlDB)
	deps.NotificationRepo = persistence.NewNotificationAdapter(sqlDB)
	deps.ConnectionRepo = persistence.NewMailConnectionAdapter(sqlDB, encryptor)
	deps.ScanLogRepo = persistence.NewScanLogAdapter(db)

	// Gmail
	oauthConfig := gmail.NewOAuth2Config(&gmail.OAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	deps.GmailBreaker = gmail.NewBreaker("gmail")
	deps.GmailFactory = gmail.NewFactory(oauthConfig, deps.GmailBreaker, cfg.Scan.BodyLimit)
	deps.OAuthClient = gmail.NewOAuthClient(oauthConfig, deps.GmailBreaker)

	// Realtime
	zlog := componentLogger(cfg, "realtime")
	if serveSSE {
		deps.RealtimeAdapter = realtime.NewSSEAdapter(zlog)
		deps.SSEHub = realtime.NewSSEHub(deps.RealtimeAdapter)
	}
	switch {
	case deps.Redis != nil:
		deps.Relay = realtime.NewRedisRelay(deps.Redis, deps.RealtimeAdapter, zlog)
		deps.Realtime = deps.Relay
	case deps.RealtimeAdapter != nil:
		deps.Realtime = deps.RealtimeAdapter
	}

	// Messaging
	if deps.Redis != nil {
		deps.JobProducer = messaging.NewRedisProducer(deps.Redis)
	} else {
		logger.Warn("Redis not available, scans run inline and schedules are local only")
	}

	// Services
	deps.NotificationService = notification.NewService(deps.NotificationRepo, deps.Realtime)

	var graphPort out.SubscriptionGraph
	if deps.Graph != nil {
		graphPort = deps.Graph
	}
	deps.SubscriptionService = subscription.NewService(deps.SubscriptionRepo, deps.CategoryRepo, graphPort, deps.Realtime)

	states := persistence.NewRedisOAuthStateStore(deps.Redis)
	deps.OAuthService = auth.NewOAuthService(deps.ConnectionRepo, deps.OAuthClient, states)
	if deps.JobProducer != nil {
		deps.OAuthService.SetJobProducer(deps.JobProducer)
	}
	if deps.Realtime != nil {
		deps.OAuthService.SetRealtime(deps.Realtime)
	}
	deps.SettingsService = auth.NewSettingsService(deps.ConnectionRepo)

	deps.Detector = detection.NewDetector(nil)
	deps.ScanService = scan.NewService(
		toScanConfig(cfg.Scan),
		deps.Detector,
		deps.OAuthService,
		deps.GmailFactory,
		deps.SubscriptionRepo,
		deps.CategoryRepo,
		deps.ScanLogRepo,
		deps.ConnectionRepo,
		deps.NotificationService,
	)
	if deps.Redis != nil {
		deps.ScanService.SetLock(persistence.NewRedisScanLock(deps.Redis))
	}
	if deps.Archive != nil {
		deps.ScanService.SetArchive(deps.Archive)
	}
	if graphPort != nil {
		deps.ScanService.SetGraph(graphPort)
	}
	if deps.Reviewer != nil {
		deps.ScanService.SetReviewAssistant(deps.Reviewer)
	}
	if deps.Realtime != nil {
		deps.ScanService.SetRealtime(deps.Realtime)
	}

	deps.ReminderService = reminder.NewService(deps.ConnectionRepo, deps.SubscriptionRepo, deps.NotificationService, cfg.ReminderDefaultDaysLead)

	return deps, cleanup, nil
}

func toScanConfig(c config.ScanConfig) scan.Config {
	return scan.Config{
		MaxResults:         c.MaxResults,
		MessageLimit:       c.MessageLimit,
		WindowDays:         c.WindowDays,
		DatePolicy:         scan.DatePolicy(c.DatePolicy),
		IncludePenalty:     c.IncludePenalty,
		MessageTimeout:     c.MessageTimeout,
		LockTTL:            c.LockTTL,
		StaleRunAfter:      c.StaleRunAfter,
		ReviewHintsEnabled: c.ReviewHintsEnabled,
	}
}

// componentLogger returns a zerolog logger for a long-running component;
// console output in development, JSON lines otherwise.
func componentLogger(cfg *config.Config, component string) zerolog.Logger {
	var w io.Writer = os.Stdout
	if cfg.IsDevelopment() {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).With().Timestamp().Str("component", component).Logger()
}
