package match

import (
	"context"
	"sort"
	"strings"

	"github.com/luckykangaroo/backend/internal/domain"
)

// ChainParams carries per-request overrides of the chain search knobs. Zero
// values fall back to the engine configuration.
type ChainParams struct {
	LMax               int
	BeamN              int
	MaxChains          int
	MinEdgeScore       float64
	MinChainScore      float64
	MaxTotalDistanceKm float64
}

func (p ChainParams) validate() error {
	if p.LMax != 0 && (p.LMax < 3 || p.LMax > 5) {
		return newError(KindInvalidRequest, "l_max must be in [3,5]")
	}
	if p.BeamN < 0 || p.MaxChains < 0 {
		return newError(KindInvalidRequest, "beam and max_chains must be non-negative")
	}
	if p.MinEdgeScore < 0 || p.MinEdgeScore > 1 {
		return newError(KindInvalidRequest, "min_edge_score must be in [0,1]")
	}
	if p.MinChainScore < 0 || p.MinChainScore > 1 {
		return newError(KindInvalidRequest, "min_chain_score must be in [0,1]")
	}
	if p.MaxTotalDistanceKm < 0 {
		return newError(KindInvalidRequest, "max_total_km must be non-negative")
	}
	return nil
}

// apply merges the overrides onto the engine configuration.
func (p ChainParams) apply(cfg Config) Config {
	if p.LMax != 0 {
		cfg.LMax = p.LMax
	}
	if p.BeamN != 0 {
		cfg.BeamN = p.BeamN
	}
	if p.MaxChains != 0 {
		cfg.MaxChains = p.MaxChains
	}
	if p.MinEdgeScore != 0 {
		cfg.MinEdgeScore = p.MinEdgeScore
	}
	if p.MinChainScore != 0 {
		cfg.MinChainScore = p.MinChainScore
	}
	if p.MaxTotalDistanceKm != 0 {
		cfg.MaxTotalDistanceKm = p.MaxTotalDistanceKm
	}
	return cfg.Normalize()
}

// ChainResult is the outcome of a chain search.
type ChainResult struct {
	Chains    []domain.Chain
	Truncated bool
	ErrorKind ErrorKind
}

// Search phases, used for log context only.
const (
	phaseExpanding = "expanding"
	phaseSearching = "searching"
	phaseRanking   = "ranking"
)

// SuggestChains finds exchange cycles of length 3..L_max containing the seed
// listing, ranked by feasibility.
func (e *Engine) SuggestChains(ctx context.Context, seedID string, params ChainParams) (ChainResult, error) {
	if err := params.validate(); err != nil {
		return ChainResult{ErrorKind: KindOf(err)}, err
	}

	cfg := params.apply(e.cfg)

	ctx, cancel := context.WithTimeout(ctx, cfg.ChainDeadline)
	defer cancel()

	caller := e.newCaller()

	seed, err := caller.getListing(ctx, seedID)
	if err != nil {
		kind := KindOf(err)
		return ChainResult{ErrorKind: kind, Truncated: kind == KindRepositoryTimeout || kind == KindDeadlineExceeded}, err
	}
	if !seed.IsActive() {
		err := newError(KindNotFound, "listing "+seedID+" is not active")
		return ChainResult{ErrorKind: KindNotFound}, err
	}
	if seed.ExchangeType.OneWay() {
		// A donor-only seed cannot receive, so no cycle can contain it.
		return ChainResult{Chains: []domain.Chain{}}, nil
	}

	g, truncated := e.expandGraph(ctx, caller, seed, cfg)
	e.logger.Debug("chain search", "phase", phaseExpanding, "seedId", seedID, "nodes", g.size(), "truncated", truncated)

	search := &cycleSearch{g: g, cfg: cfg}
	cut := search.run(ctx)
	truncated = truncated || cut
	e.logger.Debug("chain search", "phase", phaseSearching, "seedId", seedID, "cycles", len(search.found), "truncated", truncated)

	chains := rankChains(search.found, cfg)
	e.logger.Debug("chain search", "phase", phaseRanking, "seedId", seedID, "returned", len(chains))

	res := ChainResult{Chains: chains, Truncated: truncated}
	if ctx.Err() != nil {
		res.Truncated = true
		res.ErrorKind = KindDeadlineExceeded
	} else if caller.failed() {
		res.ErrorKind = KindRepositoryTimeout
	}
	return res, nil
}

// chainCandidate is an enumerated cycle before ranking. Listings and edges
// are already canonicalised (smallest listing ID first).
type chainCandidate struct {
	listings    []string
	edges       []PairScore
	key         string
	reverseKey  string
	total       float64
	minEdge     float64
	meanEdge    float64
	valueSpread float64
	feasibility float64
	length      int
}

// cycleSearch enumerates elementary cycles through the seed with a
// depth-limited DFS. The graph is fully materialised before the search, so
// the walk itself performs no I/O.
type cycleSearch struct {
	g   *candidateGraph
	cfg Config

	path   []string
	onPath map[string]bool
	owners map[string]bool
	edges  []PairScore
	total  float64

	found map[string]chainCandidate
	cut   bool
}

// run walks the graph and returns whether the search was cut short by
// cancellation.
func (s *cycleSearch) run(ctx context.Context) bool {
	s.onPath = map[string]bool{s.g.seedID: true}
	s.owners = map[string]bool{s.g.listing(s.g.seedID).OwnerID: true}
	s.path = []string{s.g.seedID}
	s.found = make(map[string]chainCandidate)

	s.visit(ctx, s.g.seedID)
	return s.cut
}

func (s *cycleSearch) visit(ctx context.Context, node string) {
	if s.cut {
		return
	}
	if ctx.Err() != nil {
		s.cut = true
		return
	}

	for _, ed := range s.g.outgoing(node) {
		score := ed.Score.Score

		if ed.To == s.g.seedID {
			if len(s.path) >= 3 {
				s.closeCycle(ed.Score)
			}
			continue
		}
		if len(s.path) >= s.cfg.LMax {
			continue
		}
		if s.onPath[ed.To] {
			continue
		}
		owner := s.g.listing(ed.To).OwnerID
		if s.owners[owner] {
			continue
		}
		if score < s.cfg.MinEdgeScore {
			continue
		}
		dist := edgeDistance(ed.Score)
		if s.total+dist > s.cfg.MaxTotalDistanceKm {
			continue
		}

		s.path = append(s.path, ed.To)
		s.onPath[ed.To] = true
		s.owners[owner] = true
		s.edges = append(s.edges, ed.Score)
		s.total += dist

		s.visit(ctx, ed.To)

		s.total -= dist
		s.edges = s.edges[:len(s.edges)-1]
		delete(s.owners, owner)
		delete(s.onPath, ed.To)
		s.path = s.path[:len(s.path)-1]
	}
}

// closeCycle records the cycle formed by the current path plus the closing
// edge back to the seed, deduplicating rotations and symmetric reversals.
func (s *cycleSearch) closeCycle(closing PairScore) {
	if s.total+edgeDistance(closing) > s.cfg.MaxTotalDistanceKm {
		return
	}
	if closing.Score < s.cfg.MinEdgeScore {
		return
	}

	k := len(s.path)
	listings := make([]string, k)
	copy(listings, s.path)
	edges := make([]PairScore, k)
	copy(edges, s.edges)
	edges[k-1] = closing

	listings, edges = canonicalize(listings, edges)

	cand := chainCandidate{
		listings:   listings,
		edges:      edges,
		key:        strings.Join(listings, ">"),
		reverseKey: strings.Join(reverseCycle(listings), ">"),
		length:     k,
	}

	minEdge, sum, total := 1.0, 0.0, 0.0
	for _, e := range edges {
		if e.Score < minEdge {
			minEdge = e.Score
		}
		sum += e.Score
		total += edgeDistance(e)
	}
	cand.minEdge = minEdge
	cand.meanEdge = sum / float64(k)
	cand.total = total

	vMin, vMax := 0.0, 0.0
	for i, id := range listings {
		v := s.g.listing(id).EstimatedValue
		if i == 0 || v < vMin {
			vMin = v
		}
		if i == 0 || v > vMax {
			vMax = v
		}
	}
	cand.valueSpread = vMax - vMin

	valueTerm := 1.0
	if vMax > 0 {
		valueTerm = 1 - cand.valueSpread/vMax
	}
	cand.feasibility = clampScore(0.5*cand.meanEdge + 0.3*cand.minEdge + 0.2*valueTerm)

	if _, dup := s.found[cand.key]; dup {
		return
	}
	// A reversed chain is a distinct cycle unless the involved edges are
	// fully symmetric; equal scores are the observable symmetry here.
	if prev, ok := s.found[cand.reverseKey]; ok && sameCycleScores(prev, cand) {
		return
	}
	s.found[cand.key] = cand
}

func sameCycleScores(a, b chainCandidate) bool {
	const eps = 1e-9
	return abs(a.minEdge-b.minEdge) < eps && abs(a.meanEdge-b.meanEdge) < eps
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// canonicalize rotates the cycle so the smallest listing ID comes first.
// edges[i] always labels listings[i]→listings[(i+1)%k].
func canonicalize(listings []string, edges []PairScore) ([]string, []PairScore) {
	k := len(listings)
	min := 0
	for i := 1; i < k; i++ {
		if listings[i] < listings[min] {
			min = i
		}
	}
	if min == 0 {
		return listings, edges
	}

	outL := make([]string, k)
	outE := make([]PairScore, k)
	for i := 0; i < k; i++ {
		outL[i] = listings[(min+i)%k]
		outE[i] = edges[(min+i)%k]
	}
	return outL, outE
}

// reverseCycle returns the canonical listing sequence of the reversed cycle.
func reverseCycle(listings []string) []string {
	k := len(listings)
	out := make([]string, k)
	out[0] = listings[0]
	for i := 1; i < k; i++ {
		out[i] = listings[k-i]
	}
	return out
}

func edgeDistance(ps PairScore) float64 {
	if ps.DistanceKm == nil {
		return 0
	}
	return *ps.DistanceKm
}

// rankChains filters by the feasibility floor and orders by feasibility
// descending with min-edge, distance, length and key as tie-breaks.
func rankChains(found map[string]chainCandidate, cfg Config) []domain.Chain {
	candidates := make([]chainCandidate, 0, len(found))
	for _, c := range found {
		if c.feasibility >= cfg.MinChainScore {
			candidates = append(candidates, c)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.feasibility != b.feasibility {
			return a.feasibility > b.feasibility
		}
		if a.minEdge != b.minEdge {
			return a.minEdge > b.minEdge
		}
		if a.total != b.total {
			return a.total < b.total
		}
		if a.length != b.length {
			return a.length < b.length
		}
		return a.key < b.key
	})

	if len(candidates) > cfg.MaxChains {
		candidates = candidates[:cfg.MaxChains]
	}

	chains := make([]domain.Chain, 0, len(candidates))
	for _, c := range candidates {
		edges := make([]domain.PairSuggestion, 0, c.length)
		for i := 0; i < c.length; i++ {
			from := c.listings[i]
			to := c.listings[(i+1)%c.length]
			edges = append(edges, suggestion(from, to, c.edges[i]))
		}
		chains = append(chains, domain.Chain{
			Listings:         c.listings,
			Edges:            edges,
			TotalDistanceKm:  c.total,
			MinEdgeScore:     c.minEdge,
			ValueSpread:      c.valueSpread,
			FeasibilityScore: c.feasibility,
		})
	}
	return chains
}
