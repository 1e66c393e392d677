package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/luckykangaroo/backend/internal/domain"
)

// MemoryRepository is a mutex-guarded in-memory listing store. It backs unit
// tests and the development server when no graph database is configured.
type MemoryRepository struct {
	mu       sync.RWMutex
	listings map[string]domain.Listing
	users    map[string]domain.UserProfile
	pending  map[[2]string]bool
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		listings: make(map[string]domain.Listing),
		users:    make(map[string]domain.UserProfile),
		pending:  make(map[[2]string]bool),
	}
}

// UpsertListing stores or replaces a listing.
func (r *MemoryRepository) UpsertListing(ctx context.Context, l domain.Listing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	l.Owner = nil // owner projections are joined on read
	r.listings[l.ID] = l
	return nil
}

// UpsertUser stores or replaces a user projection.
func (r *MemoryRepository) UpsertUser(ctx context.Context, u domain.UserProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
	return nil
}

// MarkPendingExchange records that two listings are in a pending exchange so
// candidate queries exclude the counterparty.
func (r *MemoryRepository) MarkPendingExchange(ctx context.Context, listingA, listingB string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[pendingKey(listingA, listingB)] = true
	return nil
}

// GetListing returns a listing with its owner projection attached.
func (r *MemoryRepository) GetListing(ctx context.Context, id string) (domain.Listing, error) {
	if err := ctx.Err(); err != nil {
		return domain.Listing{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.listings[id]
	if !ok {
		return domain.Listing{}, ErrNotFound
	}
	return r.withOwnerLocked(l), nil
}

// BulkGetListings returns the listings for the given IDs, skipping unknown
// IDs. Result order follows the input order.
func (r *MemoryRepository) BulkGetListings(ctx context.Context, ids []string) ([]domain.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Listing, 0, len(ids))
	for _, id := range ids {
		if l, ok := r.listings[id]; ok {
			out = append(out, r.withOwnerLocked(l))
		}
	}
	return out, nil
}

// FindCandidates returns active listings matching the query, newest first.
func (r *MemoryRepository) FindCandidates(ctx context.Context, q CandidateQuery) ([]domain.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Listing
	for _, l := range r.listings {
		if !q.Matches(l) {
			continue
		}
		if q.ExcludePendingWith != "" && r.pending[pendingKey(q.ExcludePendingWith, l.ID)] {
			continue
		}
		out = append(out, r.withOwnerLocked(l))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *MemoryRepository) withOwnerLocked(l domain.Listing) domain.Listing {
	if u, ok := r.users[l.OwnerID]; ok {
		owner := u
		l.Owner = &owner
	}
	return l
}

func pendingKey(a, b string) [2]string {
	if a > b {
		return [2]string{b, a}
	}
	return [2]string{a, b}
}
