package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/vanshika/chronos/internal/domain"
	"github.com/vanshika/chronos/internal/repository"
)

const defaultIngestBatch = 250

// TaskError accumulates multiple errors produced during bulk ingestion.
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

func (e *TaskError) Unwrap() []error {
	return e.Errors
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

// BulkIngestor validates a whole dataset up front, then writes it to the
// store in batches across a worker pool.
type BulkIngestor struct {
	store     repository.Store
	workers   int
	batchSize int
}

// NewBulkIngestor creates a BulkIngestor with the provided concurrency.
func NewBulkIngestor(store repository.Store, workers, batchSize int) *BulkIngestor {
	if workers <= 0 {
		workers = 4
	}
	if batchSize <= 0 {
		batchSize = defaultIngestBatch
	}
	return &BulkIngestor{store: store, workers: workers, batchSize: batchSize}
}

// IngestRecords normalizes records and stores them. It returns the number of
// transactions written; on partial failure the count covers successful batches.
func (bi *BulkIngestor) IngestRecords(ctx context.Context, records []RawRecord) (int, error) {
	txs, err := Normalize(records)
	if err != nil {
		return 0, err
	}
	return bi.IngestTransactions(ctx, txs)
}

// IngestTransactions stores already normalized transactions.
func (bi *BulkIngestor) IngestTransactions(ctx context.Context, txs []domain.Transaction) (int, error) {
	var chunks [][]domain.Transaction
	for start := 0; start < len(txs); start += bi.batchSize {
		end := start + bi.batchSize
		if end > len(txs) {
			end = len(txs)
		}
		chunks = append(chunks, txs[start:end])
	}

	var written atomic.Int64
	err := bi.run(ctx, len(chunks), func(idx int) error {
		if err := bi.store.UpsertTransactions(ctx, chunks[idx]); err != nil {
			return err
		}
		written.Add(int64(len(chunks[idx])))
		return nil
	})
	return int(written.Load()), err
}

func (bi *BulkIngestor) run(ctx context.Context, total int, workerFn func(idx int) error) error {
	if total == 0 {
		return nil
	}
	indexCh := make(chan int)
	errCh := make(chan error, total)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			if err := workerFn(idx); err != nil {
				select {
				case errCh <- err:
				case <-ctx.Done():
					return
				}
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

	if err := ctx.Err(); err != nil {
		return err
	}
	var taskErr TaskError
	for err := range errCh {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		taskErr.append(err)
	}
	return taskErr.asError()
}
