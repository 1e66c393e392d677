package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClientRecordsStatements(t *testing.T) {
	client := NewMemoryClient()
	ctx := context.Background()

	_, err := client.ExecuteWrite(ctx, "CREATE (n:Node)", map[string]any{"id": "n1"})
	require.NoError(t, err)
	_, err = client.ExecuteRead(ctx, "MATCH (n:Node) RETURN n", nil)
	require.NoError(t, err)

	writes := client.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, "CREATE (n:Node)", writes[0].Cypher)
	assert.Equal(t, "n1", writes[0].Params["id"])
	assert.Len(t, client.Reads(), 1)
}

func TestMemoryClientParamsAreSnapshotted(t *testing.T) {
	client := NewMemoryClient()
	params := map[string]any{"id": "n1"}

	_, err := client.ExecuteWrite(context.Background(), "CREATE", params)
	require.NoError(t, err)
	params["id"] = "mutated"

	assert.Equal(t, "n1", client.Writes()[0].Params["id"])
}

func TestMemoryClientReplaysQueuedResults(t *testing.T) {
	client := NewMemoryClient()
	client.QueueReadResult(Result{Records: []Record{{"v": 1}}})
	client.QueueReadResult(Result{Records: []Record{{"v": 2}}})

	first, err := client.ExecuteRead(context.Background(), "Q1", nil)
	require.NoError(t, err)
	second, err := client.ExecuteRead(context.Background(), "Q2", nil)
	require.NoError(t, err)
	third, err := client.ExecuteRead(context.Background(), "Q3", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Records[0]["v"])
	assert.Equal(t, 2, second.Records[0]["v"])
	assert.Empty(t, third.Records, "an exhausted queue yields empty results")
}

func TestMemoryClientFailure(t *testing.T) {
	boom := errors.New("boom")
	client := NewMemoryClient().FailWith(boom)

	_, err := client.ExecuteRead(context.Background(), "Q", nil)
	assert.ErrorIs(t, err, boom)
	_, err = client.ExecuteWrite(context.Background(), "Q", nil)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, client.Writes(), "failed statements are not recorded")
}

func TestMemoryClientConnectivity(t *testing.T) {
	client := NewMemoryClient()
	assert.NoError(t, client.VerifyConnectivity(context.Background()))

	down := errors.New("unreachable")
	client.WithConnectivityError(down)
	assert.ErrorIs(t, client.VerifyConnectivity(context.Background()), down)
	assert.NoError(t, client.Close(context.Background()))
}

func TestNewNeo4jClientRequiresURI(t *testing.T) {
	_, err := NewNeo4jClient(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrMissingURI)
}
