package graph

import (
	"context"
	"fmt"

	"subscription_server/core/domain"
	"subscription_server/core/port/out"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// =============================================================================
// Neo4j Subscription Graph Adapter
// =============================================================================

// SubscriptionGraphAdapter implements out.SubscriptionGraph using Neo4j.
//
//	(:User)-[:SUBSCRIBES_TO {status, amount, currency, cycle}]->(:Service)-[:IN_CATEGORY]->(:Category)
type SubscriptionGraphAdapter struct {
	driver neo4j.DriverWithContext
	dbName string
}

func NewSubscriptionGraphAdapter(driver neo4j.DriverWithContext, dbName string) *SubscriptionGraphAdapter {
	return &SubscriptionGraphAdapter{
		driver: driver,
		dbName: dbName,
	}
}

// EnsureIndexes creates necessary constraints.
func (a *SubscriptionGraphAdapter) EnsureIndexes(ctx context.Context) error {
	session := a.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: a.dbName})
	defer session.Close(ctx)

	queries := []string{
		`CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.user_id IS UNIQUE`,
		`CREATE CONSTRAINT service_key_unique IF NOT EXISTS FOR (s:Service) REQUIRE s.key IS UNIQUE`,
		`CREATE CONSTRAINT category_name_unique IF NOT EXISTS FOR (c:Category) REQUIRE c.name IS UNIQUE`,
	}

	for _, query := range queries {
		if _, err := session.Run(ctx, query, nil); err != nil {
			// Ignore if already exists
			continue
		}
	}
	return nil
}

// UpsertSubscription merges the user, service and category nodes and the
// subscription edge between user and service.
func (a *SubscriptionGraphAdapter) UpsertSubscription(ctx context.Context, userID uuid.UUID, sub *domain.Subscription, categoryName string) error {
	session := a.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: a.dbName, AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `
		MERGE (u:User {user_id: $userID})
		MERGE (s:Service {key: toLower($name)})
		  ON CREATE SET s.name = $name, s.logo_url = $logoURL
		MERGE (u)-[r:SUBSCRIBES_TO]->(s)
		SET r.subscription_id = $subscriptionID,
			r.status = $status,
			r.amount = $amount,
			r.currency = $currency,
			r.cycle = $cycle,
			r.updated_at = timestamp()
		WITH s
		WHERE $category <> ''
		MERGE (c:Category {name: $category})
		MERGE (s)-[:IN_CATEGORY]->(c)
	`

	logoURL := ""
	if sub.LogoURL != nil {
		logoURL = *sub.LogoURL
	}

	params := map[string]interface{}{
		"userID":         userID.String(),
		"name":           sub.Name,
		"logoURL":        logoURL,
		"subscriptionID": sub.ID.String(),
		"status":         string(sub.Status),
		"amount":         sub.Amount,
		"currency":       sub.Currency,
		"cycle":          string(sub.BillingCycle),
		"category":       categoryName,
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, query, params)
	})
	if err != nil {
		return fmt.Errorf("failed to upsert subscription graph: %w", err)
	}
	return nil
}

// ServicesByCategory groups the user's non-rejected services by category.
func (a *SubscriptionGraphAdapter) ServicesByCategory(ctx context.Context, userID uuid.UUID) (map[string][]string, error) {
	session := a.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: a.dbName, AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (u:User {user_id: $userID})-[r:SUBSCRIBES_TO]->(s:Service)
		WHERE r.status <> 'rejected'
		OPTIONAL MATCH (s)-[:IN_CATEGORY]->(c:Category)
		RETURN coalesce(c.name, 'Uncategorized') AS category, s.name AS service
		ORDER BY category, service
	`

	result, err := session.Run(ctx, query, map[string]interface{}{"userID": userID.String()})
	if err != nil {
		return nil, fmt.Errorf("failed to query services by category: %w", err)
	}

	groups := make(map[string][]string)
	for result.Next(ctx) {
		record := result.Record()
		category := getStringValue(record, "category")
		groups[category] = append(groups[category], getStringValue(record, "service"))
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to read services by category: %w", err)
	}
	return groups, nil
}

// =============================================================================
// Helper Functions
// =============================================================================

func getStringValue(record *neo4j.Record, key string) string {
	if val, ok := record.Get(key); ok && val != nil {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}

var _ out.SubscriptionGraph = (*SubscriptionGraphAdapter)(nil)
