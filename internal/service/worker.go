package service

import (
	"context"
	"errors"
	"sync"
)

// TaskError accumulates the individual failures of a bulk ingest run.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := "multiple errors:"
	for _, err := range e.Errors {
		msg += " " + err.Error() + ";"
	}
	return msg
}

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// BulkIngestor loads large user and listing datasets through the exchange
// service with a bounded worker pool. Individual record failures are
// collected rather than aborting the run; cancellation aborts immediately.
type BulkIngestor struct {
	service *ExchangeService
	workers int
}

// NewBulkIngestor creates a BulkIngestor with the provided concurrency.
func NewBulkIngestor(service *ExchangeService, workers int) *BulkIngestor {
	if workers <= 0 {
		workers = 4
	}
	return &BulkIngestor{service: service, workers: workers}
}

// IngestUsers processes the provided user projections concurrently. Users go
// in before listings so owner references resolve.
func (bi *BulkIngestor) IngestUsers(ctx context.Context, users []UserInput) error {
	return bi.run(ctx, len(users), func(idx int) error {
		_, err := bi.service.UpsertUser(ctx, users[idx])
		return err
	})
}

// IngestListings processes listing inputs concurrently.
func (bi *BulkIngestor) IngestListings(ctx context.Context, listings []ListingInput) error {
	return bi.run(ctx, len(listings), func(idx int) error {
		_, err := bi.service.UpsertListing(ctx, listings[idx])
		return err
	})
}

func (bi *BulkIngestor) run(ctx context.Context, total int, workerFn func(idx int) error) error {
	if total == 0 {
		return nil
	}
	indexCh := make(chan int)
	errCh := make(chan error, total)
	var wg sync.WaitGroup

	// errCh is sized to total, so sends never block.
	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			if err := workerFn(idx); err != nil {
				errCh <- err
			}
		}
	}

	for i := 0; i < bi.workers; i++ {
		wg.Add(1)
		go worker()
	}

Loop:
	for i := 0; i < total; i++ {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()
	close(errCh)

	var taskErr TaskError
	for err := range errCh {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		taskErr.append(err)
	}
	return taskErr.asError()
}
