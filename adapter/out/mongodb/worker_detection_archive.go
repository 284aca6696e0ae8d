package mongodb

import (
	"context"
	"fmt"
	"time"

	"subscription_server/core/domain"
	"subscription_server/core/port/out"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// =============================================================================
// MongoDB Detection Archive
// =============================================================================

const collectionScanEvidence = "scan_evidence"

// DetectionArchiveAdapter implements out.DetectionArchive using MongoDB.
// Documents expire after the retention window through a TTL index.
type DetectionArchiveAdapter struct {
	collection *mongo.Collection
	retention  time.Duration
}

func NewDetectionArchiveAdapter(db *mongo.Database, retention time.Duration) *DetectionArchiveAdapter {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &DetectionArchiveAdapter{
		collection: db.Collection(collectionScanEvidence),
		retention:  retention,
	}
}

// EnsureIndexes creates necessary indexes for the collection.
func (a *DetectionArchiveAdapter) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "scan_id", Value: 1}, {Key: "message_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0), // TTL index
		},
	}

	_, err := a.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// =============================================================================
// Document Model
// =============================================================================

type evidenceDocument struct {
	ScanID     int64     `bson:"scan_id"`
	UserID     string    `bson:"user_id"`
	MessageID  string    `bson:"message_id"`
	ThreadID   string    `bson:"thread_id"`
	Subject    string    `bson:"subject"`
	Sender     string    `bson:"sender"`
	Excerpt    string    `bson:"excerpt"`
	ReceivedAt time.Time `bson:"received_at,omitempty"`
	Outcome    string    `bson:"outcome"`

	Detection    *detectionDocument    `bson:"detection,omitempty"`
	StatusChange *statusChangeDocument `bson:"status_change,omitempty"`

	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}

type detectionDocument struct {
	CanonicalName   string           `bson:"canonical_name"`
	Amount          float64          `bson:"amount"`
	Currency        string           `bson:"currency"`
	BillingCycle    string           `bson:"billing_cycle"`
	IsOneTime       bool             `bson:"is_one_time"`
	IsRecurring     bool             `bson:"is_recurring"`
	IsTrial         bool             `bson:"is_trial"`
	NextBillingDate *time.Time       `bson:"next_billing_date,omitempty"`
	CategoryName    string           `bson:"category_name"`
	ConfidenceScore int              `bson:"confidence_score"`
	Suggestion      string           `bson:"suggestion"`
	Reasons         []string         `bson:"reasons"`
	Signals         []signalDocument `bson:"signals"`
}

type signalDocument struct {
	Category string `bson:"category"`
	Label    string `bson:"label"`
	Points   int    `bson:"points"`
}

type statusChangeDocument struct {
	CanonicalName string `bson:"canonical_name"`
	NewStatus     string `bson:"new_status"`
}

// =============================================================================
// Operations
// =============================================================================

// Record upserts the evidence of one message within a scan.
func (a *DetectionArchiveAdapter) Record(ctx context.Context, rec *out.ArchivedAnalysis) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	doc := toDocument(rec)
	doc.ExpiresAt = rec.CreatedAt.Add(a.retention)

	filter := bson.M{"scan_id": rec.ScanID, "message_id": rec.MessageID}
	_, err := a.collection.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to record evidence: %w", err)
	}
	return nil
}

// ListByScan returns a scan's evidence in the order it was recorded.
func (a *DetectionArchiveAdapter) ListByScan(ctx context.Context, userID uuid.UUID, scanID int64) ([]*out.ArchivedAnalysis, error) {
	filter := bson.M{"scan_id": scanID, "user_id": userID.String()}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := a.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find evidence: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []evidenceDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode evidence: %w", err)
	}

	result := make([]*out.ArchivedAnalysis, len(docs))
	for i := range docs {
		result[i] = toArchived(&docs[i])
	}
	return result, nil
}

// =============================================================================
// Conversion
// =============================================================================

func toDocument(rec *out.ArchivedAnalysis) *evidenceDocument {
	doc := &evidenceDocument{
		ScanID:     rec.ScanID,
		UserID:     rec.UserID.String(),
		MessageID:  rec.MessageID,
		ThreadID:   rec.ThreadID,
		Subject:    rec.Subject,
		Sender:     rec.Sender,
		Excerpt:    rec.Excerpt,
		ReceivedAt: rec.ReceivedAt,
		Outcome:    rec.Outcome,
		CreatedAt:  rec.CreatedAt,
	}

	if d := rec.Detection; d != nil {
		dd := &detectionDocument{
			CanonicalName:   d.CanonicalName,
			Amount:          d.Amount,
			Currency:        d.Currency,
			BillingCycle:    string(d.BillingCycle),
			IsOneTime:       d.IsOneTime,
			IsRecurring:     d.IsRecurring,
			IsTrial:         d.IsTrial,
			NextBillingDate: d.NextBillingDate,
			CategoryName:    d.CategoryName,
			ConfidenceScore: d.ConfidenceScore,
			Suggestion:      string(d.Suggestion),
			Reasons:         d.Reasons,
		}
		for _, s := range d.Signals {
			dd.Signals = append(dd.Signals, signalDocument{Category: string(s.Category), Label: s.Label, Points: s.Points})
		}
		doc.Detection = dd
	}
	if sc := rec.StatusChange; sc != nil {
		doc.StatusChange = &statusChangeDocument{CanonicalName: sc.CanonicalName, NewStatus: string(sc.NewStatus)}
	}
	return doc
}

func toArchived(doc *evidenceDocument) *out.ArchivedAnalysis {
	userID, _ := uuid.Parse(doc.UserID)
	rec := &out.ArchivedAnalysis{
		ScanID:     doc.ScanID,
		UserID:     userID,
		MessageID:  doc.MessageID,
		ThreadID:   doc.ThreadID,
		Subject:    doc.Subject,
		Sender:     doc.Sender,
		Excerpt:    doc.Excerpt,
		ReceivedAt: doc.ReceivedAt,
		Outcome:    doc.Outcome,
		CreatedAt:  doc.CreatedAt,
	}

	if dd := doc.Detection; dd != nil {
		d := &domain.DetectionResult{
			CanonicalName:   dd.CanonicalName,
			Amount:          dd.Amount,
			Currency:        dd.Currency,
			BillingCycle:    domain.BillingCycle(dd.BillingCycle),
			IsOneTime:       dd.IsOneTime,
			IsRecurring:     dd.IsRecurring,
			IsTrial:         dd.IsTrial,
			NextBillingDate: dd.NextBillingDate,
			CategoryName:    dd.CategoryName,
			ConfidenceScore: dd.ConfidenceScore,
			Suggestion:      domain.Suggestion(dd.Suggestion),
			Reasons:         dd.Reasons,
			SourceThreadID:  doc.ThreadID,
			SourceMessageID: doc.MessageID,
			SourceSender:    doc.Sender,
		}
		for _, s := range dd.Signals {
			d.Signals = append(d.Signals, domain.ConfidenceSignal{Category: domain.SignalCategory(s.Category), Label: s.Label, Points: s.Points})
		}
		rec.Detection = d
	}
	if sc := doc.StatusChange; sc != nil {
		rec.StatusChange = &domain.StatusChangeSignal{CanonicalName: sc.CanonicalName, NewStatus: domain.SubscriptionStatus(sc.NewStatus)}
	}
	return rec
}

var _ out.DetectionArchive = (*DetectionArchiveAdapter)(nil)
