package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/luckykangaroo/backend/internal/domain"
	"github.com/luckykangaroo/backend/internal/graph"
)

// GraphRepository persists listings and user projections in the graph store
// and serves the candidate queries issued by the matching engine.
type GraphRepository struct {
	client graph.Client
}

// NewGraphRepository instantiates a GraphRepository backed by the supplied
// graph client.
func NewGraphRepository(client graph.Client) *GraphRepository {
	return &GraphRepository{client: client}
}

// UpsertListing ensures a listing node exists with the latest properties and
// an OWNS edge from its owner.
func (r *GraphRepository) UpsertListing(ctx context.Context, l domain.Listing) error {
	if l.ID == "" {
		return errors.New("listing id is required")
	}
	if l.OwnerID == "" {
		return errors.New("listing owner id is required")
	}

	params := map[string]any{
		"listingId": l.ID,
		"ownerId":   l.OwnerID,
		"props":     listingProperties(l),
	}

	if _, err := r.client.ExecuteWrite(ctx, upsertListingCypher, params); err != nil {
		return fmt.Errorf("upsert listing %s: %w", l.ID, err)
	}
	return nil
}

// UpsertUser ensures a user projection node exists with the latest trust and
// location data.
func (r *GraphRepository) UpsertUser(ctx context.Context, u domain.UserProfile) error {
	if u.ID == "" {
		return errors.New("user id is required")
	}

	props := map[string]any{
		"trustScore": u.TrustScore,
	}
	if u.Latitude != nil {
		props["lat"] = *u.Latitude
	}
	if u.Longitude != nil {
		props["lng"] = *u.Longitude
	}
	if u.MaxTravelKm != nil {
		props["maxTravelKm"] = *u.MaxTravelKm
	}

	_, err := r.client.ExecuteWrite(ctx, upsertUserCypher, map[string]any{
		"userId": u.ID,
		"props":  props,
	})
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", u.ID, err)
	}
	return nil
}

// MarkPendingExchange links two listings with an undirected pending-exchange
// relationship so candidate queries can exclude the counterparty.
func (r *GraphRepository) MarkPendingExchange(ctx context.Context, listingA, listingB string) error {
	if listingA == "" || listingB == "" {
		return errors.New("both listing ids are required")
	}

	_, err := r.client.ExecuteWrite(ctx, markPendingCypher, map[string]any{
		"a": listingA,
		"b": listingB,
	})
	if err != nil {
		return fmt.Errorf("mark pending exchange %s/%s: %w", listingA, listingB, err)
	}
	return nil
}

// GetListing loads a listing and its owner projection.
func (r *GraphRepository) GetListing(ctx context.Context, id string) (domain.Listing, error) {
	if id == "" {
		return domain.Listing{}, errors.New("listing id is required")
	}

	res, err := r.client.ExecuteRead(ctx, getListingCypher, map[string]any{"listingId": id})
	if err != nil {
		return domain.Listing{}, fmt.Errorf("get listing %s: %w", id, err)
	}
	if len(res.Records) == 0 {
		return domain.Listing{}, ErrNotFound
	}
	return listingFromRecord(res.Records[0]), nil
}

// BulkGetListings loads listings by ID in one round trip, preserving the
// input order and skipping unknown IDs.
func (r *GraphRepository) BulkGetListings(ctx context.Context, ids []string) ([]domain.Listing, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	res, err := r.client.ExecuteRead(ctx, bulkGetListingsCypher, map[string]any{"listingIds": ids})
	if err != nil {
		return nil, fmt.Errorf("bulk get listings: %w", err)
	}

	byID := make(map[string]domain.Listing, len(res.Records))
	for _, record := range res.Records {
		l := listingFromRecord(record)
		byID[l.ID] = l
	}

	out := make([]domain.Listing, 0, len(ids))
	for _, id := range ids {
		if l, ok := byID[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

// FindCandidates returns active listings matching the query, newest first.
func (r *GraphRepository) FindCandidates(ctx context.Context, q CandidateQuery) ([]domain.Listing, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	var clauses []string
	params := map[string]any{
		"excludeOwnerId": q.ExcludeOwnerID,
		"pendingWith":    q.ExcludePendingWith,
		"limit":          limit,
	}

	if q.Box != nil {
		clauses = append(clauses, "l.lat >= $minLat AND l.lat <= $maxLat AND l.lng >= $minLng AND l.lng <= $maxLng")
		params["minLat"] = q.Box.MinLat
		params["maxLat"] = q.Box.MaxLat
		params["minLng"] = q.Box.MinLng
		params["maxLng"] = q.Box.MaxLng
	}
	if len(q.Categories) > 0 {
		clauses = append(clauses, "l.categoryId IN $categories")
		params["categories"] = q.Categories
	}
	if len(q.ExchangeTypes) > 0 {
		types := make([]string, 0, len(q.ExchangeTypes))
		for _, t := range q.ExchangeTypes {
			types = append(types, string(t))
		}
		clauses = append(clauses, "l.exchangeType IN $exchangeTypes")
		params["exchangeTypes"] = types
	}

	filter := ""
	if len(clauses) > 0 {
		filter = "AND " + strings.Join(clauses, " AND ")
	}

	query := fmt.Sprintf(findCandidatesCypherTemplate, filter)
	res, err := r.client.ExecuteRead(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("find candidates: %w", err)
	}

	out := make([]domain.Listing, 0, len(res.Records))
	for _, record := range res.Records {
		out = append(out, listingFromRecord(record))
	}
	return out, nil
}

func listingProperties(l domain.Listing) map[string]any {
	props := map[string]any{
		"ownerId":        l.OwnerID,
		"title":          l.Title,
		"categoryId":     l.CategoryID,
		"condition":      string(l.Condition),
		"estimatedValue": l.EstimatedValue,
		"currency":       l.Currency,
		"desiredItems":   l.DesiredItems,
		"excludedItems":  l.ExcludedItems,
		"tags":           l.Tags,
		"exchangeType":   string(l.ExchangeType),
		"status":         string(l.Status),
		"createdAt":      l.CreatedAt.UTC().Format(time.RFC3339),
	}
	if l.Latitude != nil {
		props["lat"] = *l.Latitude
	}
	if l.Longitude != nil {
		props["lng"] = *l.Longitude
	}
	return props
}

func listingFromRecord(record graph.Record) domain.Listing {
	l := domain.Listing{
		ID:             toString(record["listingId"]),
		OwnerID:        toString(record["ownerId"]),
		Title:          toString(record["title"]),
		CategoryID:     toString(record["categoryId"]),
		Condition:      domain.Condition(toString(record["condition"])),
		EstimatedValue: toFloat64(record["estimatedValue"]),
		Currency:       toString(record["currency"]),
		DesiredItems:   toStringSlice(record["desiredItems"]),
		ExcludedItems:  toStringSlice(record["excludedItems"]),
		Tags:           toStringSlice(record["tags"]),
		ExchangeType:   domain.ExchangeType(toString(record["exchangeType"])),
		Status:         domain.ListingStatus(toString(record["status"])),
	}
	if created := toTimePtr(record["createdAt"]); created != nil {
		l.CreatedAt = *created
	}
	l.Latitude = toFloat64Ptr(record["lat"])
	l.Longitude = toFloat64Ptr(record["lng"])

	if ownerID := toString(record["ownerUserId"]); ownerID != "" {
		owner := domain.UserProfile{
			ID:         ownerID,
			TrustScore: toFloat64(record["ownerTrustScore"]),
		}
		owner.Latitude = toFloat64Ptr(record["ownerLat"])
		owner.Longitude = toFloat64Ptr(record["ownerLng"])
		owner.MaxTravelKm = toFloat64Ptr(record["ownerMaxTravelKm"])
		l.Owner = &owner
	}
	return l
}

func toString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func toFloat64(val any) float64 {
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

func toFloat64Ptr(val any) *float64 {
	switch v := val.(type) {
	case float64:
		return &v
	case float32:
		f := float64(v)
		return &f
	case int64:
		f := float64(v)
		return &f
	case int:
		f := float64(v)
		return &f
	default:
		return nil
	}
}

func toStringSlice(val any) []string {
	switch v := val.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := toString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func toTimePtr(val any) *time.Time {
	switch v := val.(type) {
	case time.Time:
		return &v
	case string:
		if v == "" {
			return nil
		}
		if parsed, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return &parsed
		}
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			return &parsed
		}
	}
	return nil
}

const listingReturnClause = `
RETURN l.listingId AS listingId, l.ownerId AS ownerId, l.title AS title,
       l.categoryId AS categoryId, l.condition AS condition,
       l.estimatedValue AS estimatedValue, l.currency AS currency,
       l.lat AS lat, l.lng AS lng,
       l.desiredItems AS desiredItems, l.excludedItems AS excludedItems,
       l.tags AS tags, l.exchangeType AS exchangeType, l.status AS status,
       l.createdAt AS createdAt,
       u.userId AS ownerUserId, u.trustScore AS ownerTrustScore,
       u.lat AS ownerLat, u.lng AS ownerLng, u.maxTravelKm AS ownerMaxTravelKm`

const upsertListingCypher = `
MERGE (l:Listing {listingId: $listingId})
SET l += $props
WITH l
MERGE (u:User {userId: $ownerId})
MERGE (u)-[:OWNS]->(l)`

const upsertUserCypher = `
MERGE (u:User {userId: $userId})
SET u += $props`

const markPendingCypher = `
MATCH (a:Listing {listingId: $a})
MATCH (b:Listing {listingId: $b})
MERGE (a)-[:PENDING_EXCHANGE]-(b)`

const getListingCypher = `
MATCH (l:Listing {listingId: $listingId})
OPTIONAL MATCH (u:User {userId: l.ownerId})` + listingReturnClause

const bulkGetListingsCypher = `
MATCH (l:Listing)
WHERE l.listingId IN $listingIds
OPTIONAL MATCH (u:User {userId: l.ownerId})` + listingReturnClause

const findCandidatesCypherTemplate = `
MATCH (l:Listing)
WHERE l.status = 'active'
  AND l.ownerId <> $excludeOwnerId
  AND ($pendingWith = '' OR NOT EXISTS {
    MATCH (l)-[:PENDING_EXCHANGE]-(:Listing {listingId: $pendingWith})
  })
  %s
OPTIONAL MATCH (u:User {userId: l.ownerId})` + listingReturnClause + `
ORDER BY l.createdAt DESC, l.listingId ASC
LIMIT $limit`
