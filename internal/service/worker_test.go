package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckykangaroo/backend/internal/domain"
	"github.com/luckykangaroo/backend/internal/repository"
)

func TestBulkIngest(t *testing.T) {
	repo := repository.NewMemoryRepository()
	svc := NewExchangeService(repo)
	ingestor := NewBulkIngestor(svc, 4)
	ctx := context.Background()

	users := make([]UserInput, 20)
	for i := range users {
		users[i] = UserInput{ID: fmt.Sprintf("u%02d", i), TrustScore: 50}
	}
	require.NoError(t, ingestor.IngestUsers(ctx, users))

	listings := make([]ListingInput, 50)
	for i := range listings {
		listings[i] = ListingInput{
			ID:      fmt.Sprintf("l%02d", i),
			OwnerID: fmt.Sprintf("u%02d", i%20),
			Title:   fmt.Sprintf("item %d", i),
		}
	}
	require.NoError(t, ingestor.IngestListings(ctx, listings))

	for i := range listings {
		got, err := repo.GetListing(ctx, fmt.Sprintf("l%02d", i))
		require.NoError(t, err)
		require.NotNil(t, got.Owner, "owner projections resolve after user ingest")
	}
}

func TestBulkIngestCollectsRecordFailures(t *testing.T) {
	svc := NewExchangeService(repository.NewMemoryRepository())
	ingestor := NewBulkIngestor(svc, 2)

	listings := []ListingInput{
		{ID: "ok-1", OwnerID: "u1", Title: "fine"},
		{ID: "bad-1", OwnerID: "u1", Title: "   "}, // rejected: empty title
		{ID: "ok-2", OwnerID: "u1", Title: "also fine"},
		{ID: "bad-2", Title: "no owner"},
	}

	err := ingestor.IngestListings(context.Background(), listings)
	require.Error(t, err)

	var taskErr *TaskError
	require.ErrorAs(t, err, &taskErr)
	assert.Len(t, taskErr.Errors, 2, "good records land, bad ones are reported")
}

// cancellingStore cancels the run as soon as the first write lands, so the
// ingestor sees a live context turn dead mid-flight.
type cancellingStore struct {
	ListingStore
	cancel context.CancelFunc
}

func (s cancellingStore) UpsertListing(ctx context.Context, _ domain.Listing) error {
	s.cancel()
	return ctx.Err()
}

func TestBulkIngestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := cancellingStore{ListingStore: repository.NewMemoryRepository(), cancel: cancel}
	ingestor := NewBulkIngestor(NewExchangeService(store), 2)

	listings := make([]ListingInput, 100)
	for i := range listings {
		listings[i] = ListingInput{ID: fmt.Sprintf("l%d", i), OwnerID: "u1", Title: "x"}
	}

	err := ingestor.IngestListings(ctx, listings)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBulkIngestEmpty(t *testing.T) {
	ingestor := NewBulkIngestor(NewExchangeService(repository.NewMemoryRepository()), 0)
	assert.NoError(t, ingestor.IngestUsers(context.Background(), nil))
	assert.NoError(t, ingestor.IngestListings(context.Background(), nil))
}
