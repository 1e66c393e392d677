package domain

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Category is a node in the listing taxonomy.
type Category struct {
	ID       string
	ParentID string
}

// AffinityTable holds pairwise affinity weights between categories. The table
// is sparse and symmetric; missing entries fall back to 1 for identical
// categories, 0.5 for siblings (same parent) and 0 otherwise.
type AffinityTable struct {
	categories map[string]Category
	weights    map[[2]string]float64
}

// NewAffinityTable builds a table from explicit categories and weights.
// Weights outside [0,1] are clamped.
func NewAffinityTable(categories []Category, weights map[[2]string]float64) *AffinityTable {
	t := &AffinityTable{
		categories: make(map[string]Category, len(categories)),
		weights:    make(map[[2]string]float64, len(weights)),
	}
	for _, c := range categories {
		t.categories[c.ID] = c
	}
	for k, w := range weights {
		t.weights[orderedPair(k[0], k[1])] = clamp01(w)
	}
	return t
}

// Affinity returns the affinity weight between two category IDs in [0,1].
func (t *AffinityTable) Affinity(a, b string) float64 {
	if a == b {
		return 1
	}
	if t != nil {
		if w, ok := t.weights[orderedPair(a, b)]; ok {
			return w
		}
		ca, okA := t.categories[a]
		cb, okB := t.categories[b]
		if okA && okB && ca.ParentID != "" && ca.ParentID == cb.ParentID {
			return 0.5
		}
	}
	return 0
}

// Categories returns the known categories in stable ID order.
func (t *AffinityTable) Categories() []Category {
	if t == nil {
		return nil
	}
	out := make([]Category, 0, len(t.categories))
	for _, c := range t.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type affinityFile struct {
	Categories []struct {
		ID     string `yaml:"id"`
		Parent string `yaml:"parent"`
	} `yaml:"categories"`
	Affinities []struct {
		A      string  `yaml:"a"`
		B      string  `yaml:"b"`
		Weight float64 `yaml:"weight"`
	} `yaml:"affinities"`
}

// LoadAffinityTable reads a YAML affinity table from disk. An empty path
// yields an empty table (default affinities only).
func LoadAffinityTable(path string) (*AffinityTable, error) {
	if path == "" {
		return NewAffinityTable(nil, nil), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read affinity table %s: %w", path, err)
	}

	var file affinityFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse affinity table %s: %w", path, err)
	}

	categories := make([]Category, 0, len(file.Categories))
	for _, c := range file.Categories {
		if c.ID == "" {
			return nil, fmt.Errorf("affinity table %s: category with empty id", path)
		}
		categories = append(categories, Category{ID: c.ID, ParentID: c.Parent})
	}

	weights := make(map[[2]string]float64, len(file.Affinities))
	for _, a := range file.Affinities {
		if a.A == "" || a.B == "" {
			return nil, fmt.Errorf("affinity table %s: affinity with empty category id", path)
		}
		if a.Weight < 0 || a.Weight > 1 {
			return nil, fmt.Errorf("affinity table %s: weight %.3f for %s/%s out of [0,1]", path, a.Weight, a.A, a.B)
		}
		weights[[2]string{a.A, a.B}] = a.Weight
	}

	return NewAffinityTable(categories, weights), nil
}

func orderedPair(a, b string) [2]string {
	if a > b {
		return [2]string{b, a}
	}
	return [2]string{a, b}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
