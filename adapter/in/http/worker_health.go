package http

import (
	"context"
	"sort"
	"time"

	"subscription_server/infra/database"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// HealthCheck probes one optional dependency.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	db     *pgxpool.Pool
	redis  *redis.Client
	extras map[string]HealthCheck
}

func NewHealthHandler(db *pgxpool.Pool, redis *redis.Client) *HealthHandler {
	return &HealthHandler{
		db:     db,
		redis:  redis,
		extras: make(map[string]HealthCheck),
	}
}

// AddCheck registers an extra readiness probe (mongo, neo4j, ...).
func (h *HealthHandler) AddCheck(name string, check HealthCheck) {
	h.extras[name] = check
}

func (h *HealthHandler) Register(app fiber.Router) {
	app.Get("/health", h.Health)
	app.Get("/ready", h.Ready)
	app.Get("/health/pools", h.Pools)
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready fails when postgres or redis is down; extras only report.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	record := func(name string, configured bool, check HealthCheck, required bool) {
		if !configured {
			checks[name] = "not configured"
			return
		}
		if err := check(ctx); err != nil {
			checks[name] = "unhealthy: " + err.Error()
			if required {
				allHealthy = false
			}
			return
		}
		checks[name] = "healthy"
	}

	record("postgres", h.db != nil, func(ctx context.Context) error { return h.db.Ping(ctx) }, true)
	record("redis", h.redis != nil, func(ctx context.Context) error { return h.redis.Ping(ctx).Err() }, true)

	names := make([]string, 0, len(h.extras))
	for name := range h.extras {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		record(name, true, h.extras[name], false)
	}

	status, statusCode := "ready", fiber.StatusOK
	if !allHealthy {
		status, statusCode = "not ready", fiber.StatusServiceUnavailable
	}
	return c.Status(statusCode).JSON(fiber.Map{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Pools reports connection pool statistics.
func (h *HealthHandler) Pools(c *fiber.Ctx) error {
	pools := fiber.Map{}
	if h.db != nil {
		pools["postgres"] = database.GetPoolStats(h.db)
	}
	if h.redis != nil {
		pools["redis"] = database.GetRedisStats(h.redis)
	}
	return c.JSON(pools)
}
