package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"subscription_server/core/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// SubscriptionAdapter implements out.SubscriptionRepository using PostgreSQL.
type SubscriptionAdapter struct {
	db *sqlx.DB
}

func NewSubscriptionAdapter(db *sqlx.DB) *SubscriptionAdapter {
	return &SubscriptionAdapter{db: db}
}

type subscriptionRow struct {
	ID              uuid.UUID      `db:"id"`
	UserID          uuid.UUID      `db:"user_id"`
	Name            string         `db:"name"`
	Description     sql.NullString `db:"description"`
	Amount          float64        `db:"amount"`
	Currency        string         `db:"currency"`
	BillingCycle    string         `db:"billing_cycle"`
	NextBillingDate time.Time      `db:"next_billing_date"`
	Status          string         `db:"status"`
	CategoryID      uuid.NullUUID  `db:"category_id"`
	AutoDetected    bool           `db:"auto_detected"`
	Source          string         `db:"source"`
	EmailThreadID   sql.NullString `db:"email_thread_id"`
	EmailSender     sql.NullString `db:"email_sender"`
	LogoURL         sql.NullString `db:"logo_url"`
	WebsiteURL      sql.NullString `db:"website_url"`
	ConfidenceScore sql.NullInt32  `db:"confidence_score"`
	DetectionReason sql.NullString `db:"detection_reason"`
	Notes           sql.NullString `db:"notes"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

const subscriptionColumns = `
	id, user_id, name, description, amount, currency, billing_cycle, next_billing_date,
	status, category_id, auto_detected, source, email_thread_id, email_sender,
	logo_url, website_url, confidence_score, detection_reason, notes, created_at, updated_at`

func (r *subscriptionRow) toDomain() *domain.Subscription {
	s := &domain.Subscription{
		ID:              r.ID,
		UserID:          r.UserID,
		Name:            r.Name,
		Amount:          r.Amount,
		Currency:        r.Currency,
		BillingCycle:    domain.BillingCycle(r.BillingCycle),
		NextBillingDate: r.NextBillingDate,
		Status:          domain.SubscriptionStatus(r.Status),
		AutoDetected:    r.AutoDetected,
		Source:          domain.SubscriptionSource(r.Source),
		Description:     nullString(r.Description),
		EmailThreadID:   nullString(r.EmailThreadID),
		EmailSender:     nullString(r.EmailSender),
		LogoURL:         nullString(r.LogoURL),
		WebsiteURL:      nullString(r.WebsiteURL),
		DetectionReason: nullString(r.DetectionReason),
		Notes:           nullString(r.Notes),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.CategoryID.Valid {
		id := r.CategoryID.UUID
		s.CategoryID = &id
	}
	if r.ConfidenceScore.Valid {
		score := int(r.ConfidenceScore.Int32)
		s.ConfidenceScore = &score
	}
	return s
}

func (a *SubscriptionAdapter) ListExisting(ctx context.Context, userID uuid.UUID) ([]domain.ExistingSubscription, error) {
	var rows []struct {
		Name          string         `db:"name"`
		Status        string         `db:"status"`
		EmailThreadID sql.NullString `db:"email_thread_id"`
	}
	query := `SELECT name, status, email_thread_id FROM subscriptions WHERE user_id = $1`
	if err := a.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, err
	}

	result := make([]domain.ExistingSubscription, len(rows))
	for i, row := range rows {
		result[i] = domain.ExistingSubscription{
			Name:          row.Name,
			Status:        domain.SubscriptionStatus(row.Status),
			EmailThreadID: row.EmailThreadID.String,
		}
	}
	return result, nil
}

func (a *SubscriptionAdapter) Create(ctx context.Context, sub *domain.Subscription) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	query := `
		INSERT INTO subscriptions (
			id, user_id, name, description, amount, currency, billing_cycle, next_billing_date,
			status, category_id, auto_detected, source, email_thread_id, email_sender,
			logo_url, website_url, confidence_score, detection_reason, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, NOW(), NOW())
		RETURNING created_at, updated_at`

	var categoryID uuid.NullUUID
	if sub.CategoryID != nil {
		categoryID = uuid.NullUUID{UUID: *sub.CategoryID, Valid: true}
	}
	var score sql.NullInt32
	if sub.ConfidenceScore != nil {
		score = sql.NullInt32{Int32: int32(*sub.ConfidenceScore), Valid: true}
	}

	return a.db.QueryRowxContext(ctx, query,
		sub.ID, sub.UserID, sub.Name, toNullString(sub.Description), sub.Amount, sub.Currency,
		string(sub.BillingCycle), sub.NextBillingDate.Format("2006-01-02"), string(sub.Status), categoryID,
		sub.AutoDetected, string(sub.Source), toNullString(sub.EmailThreadID), toNullString(sub.EmailSender),
		toNullString(sub.LogoURL), toNullString(sub.WebsiteURL), score, toNullString(sub.DetectionReason),
		toNullString(sub.Notes),
	).Scan(&sub.CreatedAt, &sub.UpdatedAt)
}

func (a *SubscriptionAdapter) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.Subscription, error) {
	var row subscriptionRow
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1 AND user_id = $2`
	if err := a.db.GetContext(ctx, &row, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (a *SubscriptionAdapter) List(ctx context.Context, filter *domain.SubscriptionFilter) ([]*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1`
	args := []any{filter.UserID}

	if len(filter.Statuses) > 0 {
		args = append(args, pq.Array(statusStrings(filter.Statuses)))
		query += fmt.Sprintf(` AND status = ANY($%d::text[])`, len(args))
	}
	query += ` ORDER BY next_billing_date ASC, name ASC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	var rows []subscriptionRow
	if err := a.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return toSubscriptions(rows), nil
}

func (a *SubscriptionAdapter) UpdateStatus(ctx context.Context, userID, id uuid.UUID, status domain.SubscriptionStatus) error {
	res, err := a.db.ExecContext(ctx,
		`UPDATE subscriptions SET status = $1, updated_at = NOW() WHERE id = $2 AND user_id = $3`,
		string(status), id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (a *SubscriptionAdapter) ListDueBetween(ctx context.Context, userID uuid.UUID, statuses []domain.SubscriptionStatus, from, to time.Time) ([]*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
		WHERE user_id = $1 AND status = ANY($2::text[])
		  AND next_billing_date BETWEEN $3::date AND $4::date
		ORDER BY next_billing_date ASC`

	var rows []subscriptionRow
	if err := a.db.SelectContext(ctx, &rows, query,
		userID, pq.Array(statusStrings(statuses)), from.Format("2006-01-02"), to.Format("2006-01-02"),
	); err != nil {
		return nil, err
	}
	return toSubscriptions(rows), nil
}

func toSubscriptions(rows []subscriptionRow) []*domain.Subscription {
	subs := make([]*domain.Subscription, len(rows))
	for i := range rows {
		subs[i] = rows[i].toDomain()
	}
	return subs
}

func statusStrings(statuses []domain.SubscriptionStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// =============================================================================
// Categories
// =============================================================================

// CategoryAdapter implements out.CategoryRepository using PostgreSQL.
type CategoryAdapter struct {
	db *sqlx.DB
}

func NewCategoryAdapter(db *sqlx.DB) *CategoryAdapter {
	return &CategoryAdapter{db: db}
}

type categoryRow struct {
	ID        uuid.UUID      `db:"id"`
	UserID    uuid.UUID      `db:"user_id"`
	Name      string         `db:"name"`
	Color     string         `db:"color"`
	Icon      sql.NullString `db:"icon"`
	IsDefault bool           `db:"is_default"`
	CreatedAt time.Time      `db:"created_at"`
}

func (a *CategoryAdapter) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Category, error) {
	var rows []categoryRow
	query := `SELECT id, user_id, name, color, icon, is_default, created_at FROM categories WHERE user_id = $1 ORDER BY name`
	if err := a.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, err
	}

	cats := make([]*domain.Category, len(rows))
	for i, r := range rows {
		cats[i] = &domain.Category{
			ID:        r.ID,
			UserID:    r.UserID,
			Name:      r.Name,
			Color:     r.Color,
			Icon:      nullString(r.Icon),
			IsDefault: r.IsDefault,
			CreatedAt: r.CreatedAt,
		}
	}
	return cats, nil
}

func (a *CategoryAdapter) Create(ctx context.Context, c *domain.Category) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	query := `
		INSERT INTO categories (id, user_id, name, color, icon, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING created_at`
	return a.db.QueryRowxContext(ctx, query, c.ID, c.UserID, c.Name, c.Color, toNullString(c.Icon), c.IsDefault).
		Scan(&c.CreatedAt)
}

// =============================================================================
// helpers
// =============================================================================

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
