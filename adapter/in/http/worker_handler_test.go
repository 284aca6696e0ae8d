package http

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"subscription_server/core/domain"
	"subscription_server/core/port/out"
	"subscription_server/infra/middleware"
	"subscription_server/pkg/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type fakeScans struct {
	latest *domain.ScanRun
	ran    bool
}

func (f *fakeScans) Run(context.Context, uuid.UUID, domain.ScanTrigger) (*domain.ScanSummary, error) {
	f.ran = true
	return &domain.ScanSummary{ScanID: 9}, nil
}
func (f *fakeScans) Latest(context.Context, uuid.UUID) (*domain.ScanRun, error) { return f.latest, nil }
func (f *fakeScans) History(context.Context, uuid.UUID, int) ([]*domain.ScanRun, error) {
	return nil, nil
}
func (f *fakeScans) Evidence(context.Context, uuid.UUID, int64) ([]*out.ArchivedAnalysis, error) {
	return nil, nil
}

type fakeProducer struct{ scans []*out.ScanJob }

func (f *fakeProducer) PublishScan(_ context.Context, job *out.ScanJob) error {
	f.scans = append(f.scans, job)
	return nil
}
func (f *fakeProducer) PublishReminders(context.Context, *out.ReminderJob) error { return nil }

type fakeSubs struct {
	sub *domain.Subscription
}

func (f *fakeSubs) List(context.Context, uuid.UUID, []domain.SubscriptionStatus, int, int) ([]*domain.Subscription, error) {
	return []*domain.Subscription{f.sub}, nil
}
func (f *fakeSubs) Get(_ context.Context, _, id uuid.UUID) (*domain.Subscription, error) {
	if f.sub == nil || f.sub.ID != id {
		return nil, apperr.NotFound("subscription")
	}
	return f.sub, nil
}
func (f *fakeSubs) Approve(ctx context.Context, userID, id uuid.UUID) (*domain.Subscription, error) {
	sub, err := f.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	sub.Status = domain.StatusActive
	return sub, nil
}
func (f *fakeSubs) Reject(ctx context.Context, userID, id uuid.UUID) (*domain.Subscription, error) {
	return f.Get(ctx, userID, id)
}
func (f *fakeSubs) Spend(context.Context, uuid.UUID) (*domain.SpendSummary, error) {
	return &domain.SpendSummary{}, nil
}
func (f *fakeSubs) ServicesByCategory(context.Context, uuid.UUID) (map[string][]string, error) {
	return map[string][]string{}, nil
}

type fakeNotifications struct{ read []int64 }

func (f *fakeNotifications) List(context.Context, uuid.UUID, *domain.NotificationFilter) ([]*domain.Notification, int, error) {
	return []*domain.Notification{{ID: 1}}, 3, nil
}
func (f *fakeNotifications) GetUnreadCount(context.Context, uuid.UUID) (int, error) { return 2, nil }
func (f *fakeNotifications) MarkAsRead(_ context.Context, _ uuid.UUID, ids []int64) error {
	f.read = ids
	return nil
}
func (f *fakeNotifications) MarkAllAsRead(context.Context, uuid.UUID) error { return nil }

func newTestApp(scans *fakeScans, producer out.JobProducer, subs *fakeSubs, notes *fakeNotifications) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler()})
	api := app.Group("/api/v1", middleware.JWTAuth(testSecret))
	NewScanHandler(scans, producer).Register(api)
	NewSubscriptionHandler(subs).Register(api)
	NewNotificationHandler(notes).Register(api)
	return app
}

func token(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func do(t *testing.T, app *fiber.App, method, path, bearer, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload map[string]any
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &payload)
	return resp.StatusCode, payload
}

func errorCode(payload map[string]any) string {
	e, _ := payload["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestAuthRequired(t *testing.T) {
	app := newTestApp(&fakeScans{}, nil, &fakeSubs{}, &fakeNotifications{})

	status, payload := do(t, app, "GET", "/api/v1/subscriptions", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, apperr.CodeUnauthorized, errorCode(payload))

	status, payload = do(t, app, "GET", "/api/v1/subscriptions", "not-a-jwt", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, apperr.CodeInvalidToken, errorCode(payload))
}

func TestScanTrigger(t *testing.T) {
	user := uuid.New()

	t.Run("queues when a producer is configured", func(t *testing.T) {
		producer := &fakeProducer{}
		app := newTestApp(&fakeScans{}, producer, &fakeSubs{}, &fakeNotifications{})

		status, _ := do(t, app, "POST", "/api/v1/scan", token(t, user), "")
		assert.Equal(t, fiber.StatusAccepted, status)
		require.Len(t, producer.scans, 1)
		assert.Equal(t, user.String(), producer.scans[0].UserID)
		assert.Equal(t, "manual", producer.scans[0].Trigger)
	})

	t.Run("runs inline without a producer", func(t *testing.T) {
		scans := &fakeScans{}
		app := newTestApp(scans, nil, &fakeSubs{}, &fakeNotifications{})

		status, _ := do(t, app, "POST", "/api/v1/scan", token(t, user), "")
		assert.Equal(t, fiber.StatusOK, status)
		assert.True(t, scans.ran)
	})

	t.Run("conflict while a scan is running", func(t *testing.T) {
		scans := &fakeScans{latest: &domain.ScanRun{ID: 4, Status: domain.ScanRunning}}
		app := newTestApp(scans, &fakeProducer{}, &fakeSubs{}, &fakeNotifications{})

		status, payload := do(t, app, "POST", "/api/v1/scan", token(t, user), "")
		assert.Equal(t, fiber.StatusConflict, status)
		assert.Equal(t, apperr.CodeScanInProgress, errorCode(payload))
	})
}

func TestSubscriptionReview(t *testing.T) {
	user := uuid.New()
	sub := &domain.Subscription{ID: uuid.New(), UserID: user, Name: "Netflix", Status: domain.StatusPendingReview}
	app := newTestApp(&fakeScans{}, nil, &fakeSubs{sub: sub}, &fakeNotifications{})
	tok := token(t, user)

	status, payload := do(t, app, "POST", "/api/v1/subscriptions/"+sub.ID.String()+"/approve", tok, "")
	assert.Equal(t, fiber.StatusOK, status)
	data, _ := payload["data"].(map[string]any)
	assert.Equal(t, string(domain.StatusActive), data["status"])

	status, payload = do(t, app, "POST", "/api/v1/subscriptions/"+uuid.NewString()+"/reject", tok, "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, apperr.CodeNotFound, errorCode(payload))

	status, _ = do(t, app, "GET", "/api/v1/subscriptions/not-a-uuid", tok, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestNotifications(t *testing.T) {
	user := uuid.New()
	notes := &fakeNotifications{}
	app := newTestApp(&fakeScans{}, nil, &fakeSubs{}, notes)
	tok := token(t, user)

	status, payload := do(t, app, "GET", "/api/v1/notifications?limit=1", tok, "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(3), payload["total"])
	assert.Equal(t, true, payload["has_more"])

	status, payload = do(t, app, "GET", "/api/v1/notifications/unread-count", tok, "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(2), payload["count"])

	status, _ = do(t, app, "POST", "/api/v1/notifications/mark-read", tok, `{"ids":[4,5]}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []int64{4, 5}, notes.read)

	status, _ = do(t, app, "POST", "/api/v1/notifications/mark-read", tok, `{"ids":[]}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestHealth_NoDependencies(t *testing.T) {
	app := fiber.New()
	NewHealthHandler(nil, nil).Register(app)

	resp, err := app.Test(httptest.NewRequest("GET", "/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
