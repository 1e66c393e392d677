// Package repository provides the listing stores consumed by the matching
// engine: a Neo4j-backed graph repository, an in-memory repository for tests
// and local development, and a Redis read-through cache decorator.
package repository

import (
	"errors"

	"github.com/luckykangaroo/backend/internal/domain"
	"github.com/luckykangaroo/backend/internal/geo"
)

var (
	// ErrNotFound indicates the requested listing or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable indicates the backing store cannot be reached. Callers
	// fail fast; per-call deadlines surface as context.DeadlineExceeded.
	ErrUnavailable = errors.New("repository unavailable")
)

// CandidateQuery filters active listings eligible as counterparties for a
// seed listing. The bounding box is a pre-filter only; the exact haversine
// test runs in the engine afterwards.
type CandidateQuery struct {
	Box                *geo.BoundingBox
	Categories         []string
	ExchangeTypes      []domain.ExchangeType
	ExcludeOwnerID     string
	ExcludePendingWith string // listing ID; excludes candidates in a pending exchange with it
	Limit              int
}

// Matches reports whether a listing passes the query's filters. Shared by the
// in-memory repository and by tests asserting Cypher parameter equivalence.
func (q CandidateQuery) Matches(l domain.Listing) bool {
	if !l.IsActive() {
		return false
	}
	if q.ExcludeOwnerID != "" && l.OwnerID == q.ExcludeOwnerID {
		return false
	}
	if q.Box != nil {
		if !l.HasCoordinates() {
			return false
		}
		if !q.Box.Contains(geo.Point{Lat: *l.Latitude, Lng: *l.Longitude}) {
			return false
		}
	}
	if len(q.Categories) > 0 && !containsString(q.Categories, l.CategoryID) {
		return false
	}
	if len(q.ExchangeTypes) > 0 && !containsType(q.ExchangeTypes, l.ExchangeType) {
		return false
	}
	return true
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func containsType(haystack []domain.ExchangeType, needle domain.ExchangeType) bool {
	for _, t := range haystack {
		if t == needle {
			return true
		}
	}
	return false
}
