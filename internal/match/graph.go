package match

import "github.com/luckykangaroo/backend/internal/domain"

// edge is a scored donor→recipient compatibility between two listings.
// Edges are stored as ID triples rather than object references; the listings
// themselves live in the arena's node map.
type edge struct {
	From  string
	To    string
	Score PairScore
}

// candidateGraph is the per-request arena holding the compatibility graph
// rooted at a seed listing. It is built once, searched single-threaded, and
// released with the response.
type candidateGraph struct {
	seedID string
	nodes  map[string]domain.Listing
	adj    map[string][]edge
}

func newCandidateGraph(seed domain.Listing) *candidateGraph {
	g := &candidateGraph{
		seedID: seed.ID,
		nodes:  map[string]domain.Listing{seed.ID: seed},
		adj:    make(map[string][]edge),
	}
	return g
}

// addNode stores a listing, reporting whether it was new to the graph.
func (g *candidateGraph) addNode(l domain.Listing) bool {
	if _, ok := g.nodes[l.ID]; ok {
		return false
	}
	g.nodes[l.ID] = l
	return true
}

// setEdges records the outgoing beam of a node. Called once per expanded
// node, in deterministic frontier order.
func (g *candidateGraph) setEdges(from string, edges []edge) {
	g.adj[from] = edges
}

func (g *candidateGraph) outgoing(from string) []edge {
	return g.adj[from]
}

func (g *candidateGraph) listing(id string) domain.Listing {
	return g.nodes[id]
}

func (g *candidateGraph) size() int {
	return len(g.nodes)
}
