package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/luckykangaroo/backend/internal/domain"
	"github.com/luckykangaroo/backend/internal/geo"
)

// ErrInvalidInput marks validation failures so transports can map them to
// client errors.
var ErrInvalidInput = errors.New("invalid input")

// ListingStore is the storage contract required by the exchange service.
type ListingStore interface {
	UpsertListing(ctx context.Context, l domain.Listing) error
	UpsertUser(ctx context.Context, u domain.UserProfile) error
	MarkPendingExchange(ctx context.Context, listingA, listingB string) error
	GetListing(ctx context.Context, id string) (domain.Listing, error)
}

// Invalidator is implemented by cache-decorated stores. Writes through the
// service drop the stale cached copy.
type Invalidator interface {
	Invalidate(ctx context.Context, id string)
}

// ExchangeService validates and normalises inbound listings and user
// projections before persisting them.
type ExchangeService struct {
	store ListingStore
	nowFn func() time.Time
	newID func() string
}

// NewExchangeService constructs an ExchangeService backed by the given store.
func NewExchangeService(store ListingStore) *ExchangeService {
	return &ExchangeService{
		store: store,
		nowFn: time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (s *ExchangeService) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		s.nowFn = nowFn
	}
}

// WithIDGenerator overrides ID minting (used primarily in tests).
func (s *ExchangeService) WithIDGenerator(newID func() string) {
	if newID != nil {
		s.newID = newID
	}
}

// UpsertListing validates, normalises and persists a listing. A missing ID
// mints a new one; the stored listing is returned.
func (s *ExchangeService) UpsertListing(ctx context.Context, input ListingInput) (domain.Listing, error) {
	l, err := s.buildListing(input)
	if err != nil {
		return domain.Listing{}, err
	}
	if err := s.store.UpsertListing(ctx, l); err != nil {
		return domain.Listing{}, fmt.Errorf("persist listing %s: %w", l.ID, err)
	}
	s.invalidate(ctx, l.ID)
	return l, nil
}

func (s *ExchangeService) buildListing(input ListingInput) (domain.Listing, error) {
	title := sanitizeString(input.Title)
	if title == "" {
		return domain.Listing{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if input.OwnerID == "" {
		return domain.Listing{}, fmt.Errorf("%w: owner_id is required", ErrInvalidInput)
	}
	if input.EstimatedValue < 0 {
		return domain.Listing{}, fmt.Errorf("%w: estimated_value must be non-negative", ErrInvalidInput)
	}

	currency := normalizeCurrency(input.Currency)
	if currency == "" {
		currency = "CHF"
	}
	if !validCurrency(currency) {
		return domain.Listing{}, fmt.Errorf("%w: currency %q is not a 3-letter code", ErrInvalidInput, input.Currency)
	}

	condition := domain.Condition(sanitizeString(input.Condition))
	if condition == "" {
		condition = domain.ConditionGood
	}
	if !condition.Valid() {
		return domain.Listing{}, fmt.Errorf("%w: unknown condition %q", ErrInvalidInput, input.Condition)
	}

	exchangeType := domain.ExchangeType(sanitizeString(input.ExchangeType))
	if exchangeType == "" {
		exchangeType = domain.ExchangeBoth
	}
	if !exchangeType.Valid() {
		return domain.Listing{}, fmt.Errorf("%w: unknown exchange_type %q", ErrInvalidInput, input.ExchangeType)
	}

	status := domain.ListingStatus(sanitizeString(input.Status))
	if status == "" {
		status = domain.StatusActive
	}
	if !status.Valid() {
		return domain.Listing{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, input.Status)
	}

	if (input.Latitude == nil) != (input.Longitude == nil) {
		return domain.Listing{}, fmt.Errorf("%w: latitude and longitude must be set together", ErrInvalidInput)
	}
	if input.Latitude != nil && !geo.Valid(*input.Latitude, *input.Longitude) {
		return domain.Listing{}, fmt.Errorf("%w: coordinates out of range", ErrInvalidInput)
	}

	id := input.ID
	if id == "" {
		id = s.newID()
	}
	createdAt := s.nowFn().UTC()
	if input.CreatedAt != nil {
		createdAt = input.CreatedAt.UTC()
	}

	return domain.Listing{
		ID:             id,
		OwnerID:        input.OwnerID,
		Title:          title,
		CategoryID:     sanitizeString(input.CategoryID),
		Condition:      condition,
		EstimatedValue: input.EstimatedValue,
		Currency:       currency,
		Latitude:       input.Latitude,
		Longitude:      input.Longitude,
		DesiredItems:   normalizeTerms(input.DesiredItems),
		ExcludedItems:  normalizeTerms(input.ExcludedItems),
		Tags:           normalizeTerms(input.Tags),
		ExchangeType:   exchangeType,
		Status:         status,
		CreatedAt:      createdAt,
	}, nil
}

// UpsertUser persists the matcher-facing user projection. A missing ID mints
// a new one.
func (s *ExchangeService) UpsertUser(ctx context.Context, input UserInput) (domain.UserProfile, error) {
	if input.TrustScore < 0 || input.TrustScore > 100 {
		return domain.UserProfile{}, fmt.Errorf("%w: trust_score must be in [0,100]", ErrInvalidInput)
	}
	if (input.Latitude == nil) != (input.Longitude == nil) {
		return domain.UserProfile{}, fmt.Errorf("%w: latitude and longitude must be set together", ErrInvalidInput)
	}
	if input.Latitude != nil && !geo.Valid(*input.Latitude, *input.Longitude) {
		return domain.UserProfile{}, fmt.Errorf("%w: coordinates out of range", ErrInvalidInput)
	}
	if input.MaxTravelKm != nil && *input.MaxTravelKm <= 0 {
		return domain.UserProfile{}, fmt.Errorf("%w: max_travel_km must be positive", ErrInvalidInput)
	}

	id := input.ID
	if id == "" {
		id = s.newID()
	}

	u := domain.UserProfile{
		ID:          id,
		TrustScore:  input.TrustScore,
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		MaxTravelKm: input.MaxTravelKm,
	}
	if err := s.store.UpsertUser(ctx, u); err != nil {
		return domain.UserProfile{}, fmt.Errorf("persist user %s: %w", id, err)
	}
	return u, nil
}

// MarkPendingExchange records that two listings are negotiating, which
// removes each from the other's candidate pool.
func (s *ExchangeService) MarkPendingExchange(ctx context.Context, listingA, listingB string) error {
	listingA = sanitizeString(listingA)
	listingB = sanitizeString(listingB)
	if listingA == "" || listingB == "" {
		return fmt.Errorf("%w: listing_a and listing_b are required", ErrInvalidInput)
	}
	if listingA == listingB {
		return fmt.Errorf("%w: a listing cannot be pending with itself", ErrInvalidInput)
	}
	if err := s.store.MarkPendingExchange(ctx, listingA, listingB); err != nil {
		return fmt.Errorf("mark pending exchange: %w", err)
	}
	s.invalidate(ctx, listingA)
	s.invalidate(ctx, listingB)
	return nil
}

// GetListing fetches one listing by ID.
func (s *ExchangeService) GetListing(ctx context.Context, id string) (domain.Listing, error) {
	id = sanitizeString(id)
	if id == "" {
		return domain.Listing{}, fmt.Errorf("%w: listing ID is required", ErrInvalidInput)
	}
	return s.store.GetListing(ctx, id)
}

func (s *ExchangeService) invalidate(ctx context.Context, id string) {
	if inv, ok := s.store.(Invalidator); ok {
		inv.Invalidate(ctx, id)
	}
}
