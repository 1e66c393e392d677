package match

import (
	"context"
	"math"
	"sort"

	"github.com/luckykangaroo/backend/internal/domain"
	"github.com/luckykangaroo/backend/internal/geo"
	"github.com/luckykangaroo/backend/internal/repository"
)

// PairFilters narrows the candidate set for a pair search. A nil slice means
// "no filter"; a non-nil empty slice is a contradiction and rejected as
// invalid_request.
type PairFilters struct {
	MaxDistanceKm *float64
	MinScore      *float64
	Categories    []string
	ExchangeTypes []domain.ExchangeType
	K             int
}

func (f PairFilters) validate() error {
	if f.MaxDistanceKm != nil && *f.MaxDistanceKm < 0 {
		return newError(KindInvalidRequest, "max_distance_km must be non-negative")
	}
	if f.MinScore != nil && (*f.MinScore < 0 || *f.MinScore > 1) {
		return newError(KindInvalidRequest, "min_score must be in [0,1]")
	}
	if f.Categories != nil && len(f.Categories) == 0 {
		return newError(KindInvalidRequest, "categories filter is empty")
	}
	if f.ExchangeTypes != nil && len(f.ExchangeTypes) == 0 {
		return newError(KindInvalidRequest, "exchange_types filter is empty")
	}
	for _, t := range f.ExchangeTypes {
		if !t.Valid() {
			return newError(KindInvalidRequest, "unknown exchange type "+string(t))
		}
	}
	if f.K < 0 {
		return newError(KindInvalidRequest, "k must be non-negative")
	}
	return nil
}

// PairResult is the outcome of a pair search. Truncated marks responses
// produced under timeout or partial repository failure; Unexamined counts
// candidates that were fetched but never scored.
type PairResult struct {
	Suggestions []domain.PairSuggestion
	Truncated   bool
	Unexamined  int
	ErrorKind   ErrorKind
}

// candidateFetchLimit bounds how many candidates one pair request pulls from
// the repository before scoring.
const candidateFetchLimit = 200

// SuggestPairs returns the top-K scored swap candidates for the seed
// listing.
func (e *Engine) SuggestPairs(ctx context.Context, seedID string, filters PairFilters) (PairResult, error) {
	if err := filters.validate(); err != nil {
		return PairResult{ErrorKind: KindOf(err)}, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.PairDeadline)
	defer cancel()

	caller := e.newCaller()

	seed, err := caller.getListing(ctx, seedID)
	if err != nil {
		kind := KindOf(err)
		return PairResult{ErrorKind: kind, Truncated: kind == KindRepositoryTimeout || kind == KindDeadlineExceeded}, err
	}
	if !seed.IsActive() {
		err := newError(KindNotFound, "listing "+seedID+" is not active")
		return PairResult{ErrorKind: KindNotFound}, err
	}

	candidates, err := caller.findCandidates(ctx, e.candidateQuery(seed, filters, candidateFetchLimit))
	if err != nil {
		kind := KindOf(err)
		res := PairResult{ErrorKind: kind}
		if kind == KindRepositoryTimeout || kind == KindDeadlineExceeded {
			// Nothing was examined; surface the partial-response contract
			// rather than silently dropping.
			res.Truncated = true
			return res, nil
		}
		return res, err
	}

	minScore := e.cfg.MinScore
	if filters.MinScore != nil {
		minScore = *filters.MinScore
	}

	scored := make([]scoredCandidate, 0, len(candidates))
	truncated := false
	unexamined := 0
	for i, cand := range candidates {
		if ctx.Err() != nil {
			truncated = true
			unexamined = len(candidates) - i
			break
		}
		ps := e.scorer.Score(seed, cand)
		if ps.Blocked || ps.Score < minScore {
			continue
		}
		if filters.MaxDistanceKm != nil && ps.DistanceKm != nil && *ps.DistanceKm > *filters.MaxDistanceKm {
			continue
		}
		scored = append(scored, scoredCandidate{listing: cand, score: ps})
	}

	sortCandidates(scored)

	// MaxK only applies when the request leaves k unset; an explicit k is
	// honoured up to the hard cap.
	k := filters.K
	switch {
	case k <= 0:
		k = e.cfg.MaxK
	case k > pairHardCap:
		k = pairHardCap
	}
	if len(scored) > k {
		scored = scored[:k]
	}

	suggestions := make([]domain.PairSuggestion, 0, len(scored))
	for _, sc := range scored {
		suggestions = append(suggestions, suggestion(seedID, sc.listing.ID, sc.score))
	}

	res := PairResult{
		Suggestions: suggestions,
		Truncated:   truncated || caller.failed(),
		Unexamined:  unexamined,
	}
	if ctx.Err() != nil {
		res.ErrorKind = KindDeadlineExceeded
		res.Truncated = true
	}
	return res, nil
}

// AnalyzePair scores a single pair with no filtering, for explain callers.
// Blocked pairs come back with score 0 and the blocking reasons.
func (e *Engine) AnalyzePair(ctx context.Context, idA, idB string) (domain.PairSuggestion, error) {
	if idA == "" || idB == "" {
		return domain.PairSuggestion{}, newError(KindInvalidRequest, "both listing ids are required")
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.PairDeadline)
	defer cancel()

	caller := e.newCaller()
	listings, err := func() ([]domain.Listing, error) {
		var out []domain.Listing
		err := caller.do(ctx, func(callCtx context.Context) error {
			var err error
			out, err = e.source.BulkGetListings(callCtx, []string{idA, idB})
			return err
		})
		return out, err
	}()
	if err != nil {
		return domain.PairSuggestion{}, err
	}

	byID := make(map[string]domain.Listing, len(listings))
	for _, l := range listings {
		byID[l.ID] = l
	}
	a, okA := byID[idA]
	b, okB := byID[idB]
	if !okA {
		return domain.PairSuggestion{}, newError(KindNotFound, "listing "+idA+" not found")
	}
	if !okB {
		return domain.PairSuggestion{}, newError(KindNotFound, "listing "+idB+" not found")
	}

	return suggestion(idA, idB, e.scorer.Score(a, b)), nil
}

func (e *Engine) candidateQuery(seed domain.Listing, filters PairFilters, limit int) repository.CandidateQuery {
	q := repository.CandidateQuery{
		Categories:         filters.Categories,
		ExchangeTypes:      filters.ExchangeTypes,
		ExcludeOwnerID:     seed.OwnerID,
		ExcludePendingWith: seed.ID,
		Limit:              limit,
	}
	if filters.MaxDistanceKm != nil && seed.HasCoordinates() {
		box := geo.BoxAround(geo.Point{Lat: *seed.Latitude, Lng: *seed.Longitude}, *filters.MaxDistanceKm)
		q.Box = &box
	}
	return q
}

type scoredCandidate struct {
	listing domain.Listing
	score   PairScore
}

// sortCandidates orders by score descending, then distance ascending
// (unknown distances last), then listing age descending (newest first), with
// the listing ID as the final stable tie-break.
func sortCandidates(scored []scoredCandidate) {
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.score.Score != b.score.Score {
			return a.score.Score > b.score.Score
		}
		da, db := math.Inf(1), math.Inf(1)
		if a.score.DistanceKm != nil {
			da = *a.score.DistanceKm
		}
		if b.score.DistanceKm != nil {
			db = *b.score.DistanceKm
		}
		if da != db {
			return da < db
		}
		if !a.listing.CreatedAt.Equal(b.listing.CreatedAt) {
			return a.listing.CreatedAt.After(b.listing.CreatedAt)
		}
		return a.listing.ID < b.listing.ID
	})
}

func suggestion(seedID, candidateID string, ps PairScore) domain.PairSuggestion {
	return domain.PairSuggestion{
		SeedID:      seedID,
		CandidateID: candidateID,
		Score:       ps.Score,
		DistanceKm:  ps.DistanceKm,
		Direction:   ps.Direction,
		Components:  ps.Components,
		Reasons:     ps.Reasons,
	}
}
