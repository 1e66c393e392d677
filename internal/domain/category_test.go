package domain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAffinityDefaults(t *testing.T) {
	table := NewAffinityTable(
		[]Category{
			{ID: "books", ParentID: "media"},
			{ID: "music", ParentID: "media"},
			{ID: "tools", ParentID: "diy"},
		},
		map[[2]string]float64{
			{"books", "electronics"}: 0.7,
		},
	)

	assert.Equal(t, 1.0, table.Affinity("books", "books"))
	assert.Equal(t, 0.7, table.Affinity("books", "electronics"))
	assert.Equal(t, 0.7, table.Affinity("electronics", "books"), "explicit weights are symmetric")
	assert.Equal(t, 0.5, table.Affinity("books", "music"), "siblings share a parent")
	assert.Equal(t, 0.0, table.Affinity("books", "tools"))
	assert.Equal(t, 0.0, table.Affinity("books", "unknown"))
}

func TestAffinityNilTable(t *testing.T) {
	var table *AffinityTable
	assert.Equal(t, 1.0, table.Affinity("books", "books"))
	assert.Equal(t, 0.0, table.Affinity("books", "music"))
	assert.Empty(t, table.Categories())
}

func TestAffinityClampsWeights(t *testing.T) {
	table := NewAffinityTable(nil, map[[2]string]float64{
		{"a", "b"}: 1.8,
		{"a", "c"}: -0.2,
	})
	assert.Equal(t, 1.0, table.Affinity("a", "b"))
	assert.Equal(t, 0.0, table.Affinity("a", "c"))
}

func TestCategoriesSorted(t *testing.T) {
	table := NewAffinityTable([]Category{{ID: "c"}, {ID: "a"}, {ID: "b"}}, nil)
	got := table.Categories()
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, "c", got[2].ID)
}

func TestLoadAffinityTable(t *testing.T) {
	path := writeAffinityFile(t, `
categories:
  - id: books
    parent: media
  - id: music
    parent: media
  - id: electronics
affinities:
  - a: books
    b: electronics
    weight: 0.7
`)

	table, err := LoadAffinityTable(path)
	require.NoError(t, err)
	assert.Equal(t, 0.7, table.Affinity("electronics", "books"))
	assert.Equal(t, 0.5, table.Affinity("books", "music"))
	assert.Len(t, table.Categories(), 3)
}

func TestLoadAffinityTableEmptyPath(t *testing.T) {
	table, err := LoadAffinityTable("")
	require.NoError(t, err)
	assert.Equal(t, 1.0, table.Affinity("x", "x"))
	assert.Equal(t, 0.0, table.Affinity("x", "y"))
}

func TestLoadAffinityTableErrors(t *testing.T) {
	_, err := LoadAffinityTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadAffinityTable(writeAffinityFile(t, "categories: {not a list}\n"))
	assert.Error(t, err)

	_, err = LoadAffinityTable(writeAffinityFile(t, `
categories:
  - id: ""
`))
	assert.Error(t, err)

	_, err = LoadAffinityTable(writeAffinityFile(t, `
affinities:
  - a: books
    b: ""
    weight: 0.5
`))
	assert.Error(t, err)

	_, err = LoadAffinityTable(writeAffinityFile(t, `
affinities:
  - a: books
    b: music
    weight: 1.5
`))
	assert.Error(t, err)
}

func writeAffinityFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "affinities.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
