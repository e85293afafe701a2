// Package ingest coordinates clause ingestion into the lexical index
// and the vector collection, keeping the two stores aligned.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/lawman-hq/clauseidx/internal/domain"
	"github.com/lawman-hq/clauseidx/internal/metrics"
)

// Defaults for ingestion tuning knobs.
const (
	DefaultWorkers      = 4
	DefaultBatchSize    = 64
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = 200 * time.Millisecond
)

// Input is a single clause record as submitted by a caller.
type Input struct {
	ContractID string
	ClauseID   string
	Heading    string
	Text       string
	Page       int
	LineStart  int
	LineEnd    int
	Lang       string
	Source     string
}

// Options tunes the ingestion pipeline.
type Options struct {
	Workers      int
	BatchSize    int
	MaxRetries   int
	RetryBackoff time.Duration
	Dimensions   int
}

// Service coordinates batched dual-store ingestion.
type Service struct {
	lex   LexicalRepository
	vec   VectorRepository
	embed Embedder
	locks Locker
	pool  *ants.Pool
	log   *zap.Logger

	batchSize    int
	maxRetries   int
	retryBackoff time.Duration
	dimensions   int
}

// New creates an ingestion service with its worker pool.
func New(lex LexicalRepository, vec VectorRepository, embed Embedder, locks Locker, log *zap.Logger, opts Options) (*Service, error) {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = DefaultRetryBackoff
	}
	if opts.Dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}

	pool, err := ants.NewPool(opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	return &Service{
		lex:          lex,
		vec:          vec,
		embed:        embed,
		locks:        locks,
		pool:         pool,
		log:          log,
		batchSize:    opts.BatchSize,
		maxRetries:   opts.MaxRetries,
		retryBackoff: opts.RetryBackoff,
		dimensions:   opts.Dimensions,
	}, nil
}

// Close releases the worker pool. The service must not be used after.
func (s *Service) Close() {
	s.pool.Release()
}

// Ingest validates, dedupes, and writes clauses into both stores. With
// reset the index and collection are torn down and recreated first.
// Batch-level failures do not fail the call; they are listed in the
// report and the report is partial.
func (s *Service) Ingest(ctx context.Context, indexName string, inputs []Input, reset bool) (domain.IngestReport, error) {
	report := domain.IngestReport{
		IndexName:      indexName,
		CollectionName: indexName,
		Reset:          reset,
	}

	if len(inputs) == 0 && !reset {
		return report, fmt.Errorf("%w: no clauses to ingest", domain.ErrInvalidInput)
	}

	clauses, err := validateInputs(inputs)
	if err != nil {
		return report, err
	}
	clauses = dedupe(clauses)

	if reset {
		s.locks.Lock(indexName)
		defer s.locks.Unlock(indexName)

		if err := s.teardown(ctx, indexName); err != nil {
			return report, err
		}
	} else {
		s.locks.RLock(indexName)
		defer s.locks.RUnlock(indexName)
	}

	if err := s.lex.EnsureIndex(ctx, indexName); err != nil {
		return report, fmt.Errorf("ensure index: %w", err)
	}
	if err := s.vec.EnsureCollection(ctx, indexName, s.dimensions); err != nil {
		return report, fmt.Errorf("ensure collection: %w", err)
	}

	if len(clauses) == 0 {
		return report, nil
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		indexed  int
		failures []domain.BatchFailure
	)

	for offset := 0; offset < len(clauses); offset += s.batchSize {
		end := offset + s.batchSize
		if end > len(clauses) {
			end = len(clauses)
		}
		batch := clauses[offset:end]
		batchOffset := offset

		run := func() {
			defer wg.Done()

			err := s.processBatch(ctx, indexName, batch)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, domain.BatchFailure{
					Offset: batchOffset,
					Count:  len(batch),
					Stage:  stageOf(err),
					Err:    err,
				})
				metrics.IngestClausesTotal.WithLabelValues(indexName, "failed").Add(float64(len(batch)))
				return
			}
			indexed += len(batch)
			metrics.IngestClausesTotal.WithLabelValues(indexName, "indexed").Add(float64(len(batch)))
		}

		wg.Add(1)
		if err := s.pool.Submit(run); err != nil {
			// pool rejected the task, run it on the caller
			run()
		}
	}
	wg.Wait()

	sort.Slice(failures, func(i, j int) bool { return failures[i].Offset < failures[j].Offset })

	report.IndexedCount = indexed
	report.Failures = failures

	if report.Partial() {
		s.log.Warn("partial ingest",
			zap.String("index", indexName),
			zap.Int("indexed", indexed),
			zap.Int("failed_batches", len(failures)))
	}

	return report, nil
}

// processBatch embeds a batch and writes it to both stores, retrying
// transient failures. Returns a stageError naming the failed stage.
func (s *Service) processBatch(ctx context.Context, indexName string, batch []domain.Clause) error {
	start := time.Now()
	defer func() {
		metrics.IngestBatchDuration.WithLabelValues(indexName).Observe(time.Since(start).Seconds())
	}()

	texts := make([]string, len(batch))
	keys := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text()
		keys[i] = c.Key()
	}

	var emb domain.BatchEmbeddingResult
	err := s.retry(ctx, func() error {
		var embErr error
		emb, embErr = s.embed.BatchEmbed(ctx, texts)
		return embErr
	})
	if err != nil {
		return &stageError{stage: domain.StageEmbed, err: err}
	}

	err = s.retry(ctx, func() error {
		return s.lex.IndexClauses(ctx, indexName, batch)
	})
	if err != nil {
		return &stageError{stage: domain.StageLexical, err: err}
	}

	err = s.retry(ctx, func() error {
		return s.vec.Upsert(ctx, indexName, batch, emb.Embeddings, s.dimensions)
	})
	if err != nil {
		// the lexical write committed, roll it back so the stores agree
		if delErr := s.lex.DeleteClauses(ctx, indexName, keys); delErr != nil {
			s.log.Error("compensating lexical delete failed",
				zap.String("index", indexName),
				zap.Int("count", len(keys)),
				zap.Error(delErr))
		}
		return &stageError{stage: domain.StageVector, err: err}
	}

	return nil
}

func (s *Service) teardown(ctx context.Context, indexName string) error {
	if err := s.lex.DeleteIndex(ctx, indexName); err != nil && !errors.Is(err, domain.ErrIndexNotFound) {
		return fmt.Errorf("reset index: %w", err)
	}
	if err := s.vec.DeleteCollection(ctx, indexName); err != nil && !errors.Is(err, domain.ErrCollectionNotFound) {
		return fmt.Errorf("reset collection: %w", err)
	}
	return nil
}

// retry runs fn with exponential backoff on transient failures.
func (s *Service) retry(ctx context.Context, fn func() error) error {
	backoff := s.retryBackoff

	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		if attempt == s.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("canceled: %w", ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}

	return fmt.Errorf("after %d retries: %w", s.maxRetries, err)
}

func isRetryable(err error) bool {
	return !errors.Is(err, domain.ErrInvalidInput) &&
		!errors.Is(err, domain.ErrDimensionMismatch) &&
		!errors.Is(err, domain.ErrIndexNotFound) &&
		!errors.Is(err, domain.ErrCollectionNotFound)
}

// stageError tags a batch failure with the pipeline stage it died in.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func stageOf(err error) string {
	var se *stageError
	if errors.As(err, &se) {
		return se.stage
	}
	return ""
}

func validateInputs(inputs []Input) ([]domain.Clause, error) {
	clauses := make([]domain.Clause, 0, len(inputs))
	for i, in := range inputs {
		c, err := domain.NewClause(
			in.ContractID, in.ClauseID, in.Heading, in.Text,
			in.Page, in.LineStart, in.LineEnd, in.Lang, in.Source,
		)
		if err != nil {
			return nil, fmt.Errorf("clause [%d]: %w", i, err)
		}
		clauses = append(clauses, c)
	}
	return clauses, nil
}

// dedupe collapses repeated clause keys, keeping the last occurrence in
// the position of the first. Batches then touch disjoint keys and may
// run in parallel.
func dedupe(clauses []domain.Clause) []domain.Clause {
	seen := make(map[string]int, len(clauses))
	out := clauses[:0]

	for _, c := range clauses {
		if pos, ok := seen[c.Key()]; ok {
			out[pos] = c
			continue
		}
		seen[c.Key()] = len(out)
		out = append(out, c)
	}

	return out
}
