package match

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/luckykangaroo/backend/internal/domain"
	"github.com/luckykangaroo/backend/internal/repository"
)

// beamFetchFactor controls how many raw candidates are fetched per node
// relative to the beam width, leaving headroom for blocked and sub-threshold
// edges.
const beamFetchFactor = 4

// expandGraph grows the compatibility graph breadth-first from the seed up to
// depth lMax−1. Frontier nodes are expanded in parallel; results merge in
// frontier order so the graph is deterministic for identical inputs. The
// returned flag reports whether expansion was cut short by cancellation or
// repository failure.
func (e *Engine) expandGraph(ctx context.Context, caller *repoCaller, seed domain.Listing, cfg Config) (*candidateGraph, bool) {
	g := newCandidateGraph(seed)
	truncated := false

	frontier := []string{seed.ID}
	for depth := 0; depth < cfg.LMax-1 && len(frontier) > 0; depth++ {
		// Cancellation is checked between layers; a cut layer keeps the
		// graph consistent because edges merge per whole node only.
		if ctx.Err() != nil {
			return g, true
		}
		if caller.exhausted() {
			return g, true
		}

		results := make([][]expandedEdge, len(frontier))
		grp, grpCtx := errgroup.WithContext(ctx)
		grp.SetLimit(cfg.ExpandWorkers)

		for i, id := range frontier {
			i, node := i, g.listing(id)
			grp.Go(func() error {
				if caller.exhausted() {
					return nil
				}
				edges, err := e.expandNode(grpCtx, caller, node, cfg)
				if err != nil {
					// Failed nodes contribute no edges; the layer proceeds
					// with whatever succeeded.
					e.logger.Warn("frontier expansion failed", "listingId", node.ID, "error", err)
					return nil
				}
				results[i] = edges
				return nil
			})
		}
		_ = grp.Wait()

		var next []string
		for i, id := range frontier {
			expanded := results[i]
			if expanded == nil {
				truncated = true
				continue
			}
			edges := make([]edge, 0, len(expanded))
			for _, ee := range expanded {
				edges = append(edges, ee.edge)
				if g.addNode(ee.listing) {
					next = append(next, ee.listing.ID)
				}
			}
			g.setEdges(id, edges)
		}
		frontier = next
	}

	return g, truncated || caller.failed()
}

// expandedEdge pairs a scored edge with the candidate listing it points to,
// so the merge step can register nodes without a second lookup.
type expandedEdge struct {
	edge
	listing domain.Listing
}

// expandNode fetches and scores the outgoing beam of one node: its top-N
// donor→recipient edges with score at or above the edge floor.
func (e *Engine) expandNode(ctx context.Context, caller *repoCaller, node domain.Listing, cfg Config) ([]expandedEdge, error) {
	q := repository.CandidateQuery{
		ExcludeOwnerID:     node.OwnerID,
		ExcludePendingWith: node.ID,
		Limit:              cfg.BeamN * beamFetchFactor,
	}

	candidates, err := caller.findCandidates(ctx, q)
	if err != nil {
		return nil, err
	}

	scored := make([]scoredCandidate, 0, len(candidates))
	for _, cand := range candidates {
		ps := e.scorer.ScoreEdge(node, cand)
		if ps.Blocked || ps.Score < cfg.MinEdgeScore {
			continue
		}
		scored = append(scored, scoredCandidate{listing: cand, score: ps})
	}

	sortCandidates(scored)
	if len(scored) > cfg.BeamN {
		scored = scored[:cfg.BeamN]
	}

	edges := make([]expandedEdge, 0, len(scored))
	for _, sc := range scored {
		edges = append(edges, expandedEdge{
			edge:    edge{From: node.ID, To: sc.listing.ID, Score: sc.score},
			listing: sc.listing,
		})
	}
	return edges, nil
}
