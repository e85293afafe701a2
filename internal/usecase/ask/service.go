// Package ask implements the hybrid query engine: parallel lexical and
// vector retrieval, min-max score fusion, and optional cross-encoder
// reranking of the head of the list.
package ask

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lawman-hq/clauseidx/internal/domain"
	"github.com/lawman-hq/clauseidx/internal/domain/search"
	"github.com/lawman-hq/clauseidx/internal/domain/search/request"
	"github.com/lawman-hq/clauseidx/internal/domain/search/result"
	"github.com/lawman-hq/clauseidx/internal/metrics"
)

// Defaults for query tuning knobs.
const (
	DefaultMinCandidates = 50
	DefaultTimeout       = 10 * time.Second
	DefaultRerankLimit   = 10

	// SnippetLength caps the clause text preview in responses, in runes.
	SnippetLength = 400
)

// Options tunes the query engine.
type Options struct {
	MinCandidates int
	Timeout       time.Duration
	RerankLimit   int
}

// Answer is the engine's response to one query.
type Answer struct {
	Query    string
	Reranked bool
	Results  []result.Result
}

// Service executes hybrid queries against one index/collection pair.
type Service struct {
	lex    LexicalSearcher
	vec    VectorSearcher
	embed  Embedder
	rerank Reranker
	locks  Locker
	log    *zap.Logger

	minCandidates int
	timeout       time.Duration
	rerankLimit   int
}

// New creates a query service. rerank may be nil; rerank requests then
// degrade to the fused ordering.
func New(lex LexicalSearcher, vec VectorSearcher, embed Embedder, rerank Reranker, locks Locker, log *zap.Logger, opts Options) *Service {
	if opts.MinCandidates <= 0 {
		opts.MinCandidates = DefaultMinCandidates
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RerankLimit <= 0 {
		opts.RerankLimit = DefaultRerankLimit
	}

	return &Service{
		lex:           lex,
		vec:           vec,
		embed:         embed,
		rerank:        rerank,
		locks:         locks,
		log:           log,
		minCandidates: opts.MinCandidates,
		timeout:       opts.Timeout,
		rerankLimit:   opts.RerankLimit,
	}
}

// Ask runs one hybrid query against the named index.
func (s *Service) Ask(ctx context.Context, indexName string, req *request.Request) (*Answer, error) {
	s.locks.RLock(indexName)
	defer s.locks.RUnlock(indexName)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()

	emb, err := s.embed.Embed(ctx, req.Query())
	if err != nil {
		return nil, mapTimeout(fmt.Errorf("vectorize query: %w", err))
	}

	// oversample so fusion has enough candidates from each side
	kPrime := req.TopK()
	if kPrime < s.minCandidates {
		kPrime = s.minCandidates
	}

	var (
		lexHits []search.LexicalHit
		vecHits []search.VectorHit
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := s.lex.Search(gctx, indexName, req.Query(), kPrime)
		if err != nil {
			return mapTimeout(fmt.Errorf("lexical search: %w", err))
		}
		lexHits = hits
		return nil
	})
	g.Go(func() error {
		hits, err := s.vec.Search(gctx, indexName, emb.Embedding, kPrime)
		if err != nil {
			return mapTimeout(fmt.Errorf("vector search: %w", err))
		}
		vecHits = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cands := merge(lexHits, vecHits)
	fuse(cands, req.Alpha())
	rank(cands)

	metrics.QueryCandidatesTotal.WithLabelValues("lexical").Observe(float64(len(lexHits)))
	metrics.QueryCandidatesTotal.WithLabelValues("vector").Observe(float64(len(vecHits)))
	metrics.QueryCandidatesTotal.WithLabelValues("merged").Observe(float64(len(cands)))

	if len(cands) > req.TopK() {
		cands = cands[:req.TopK()]
	}

	results := make([]result.Result, len(cands))
	for i, c := range cands {
		results[i] = result.New(
			c.clause,
			truncateRunes(c.clause.Text(), SnippetLength),
			c.highlights,
			c.lexNorm, c.vecNorm, c.rawLex, c.fused,
		)
	}

	reranked := false
	if req.Rerank() {
		results, reranked = s.rerankHead(ctx, req.Query(), results)
	}

	metrics.QueryDuration.WithLabelValues(strconv.FormatBool(reranked)).Observe(time.Since(start).Seconds())

	return &Answer{Query: req.Query(), Reranked: reranked, Results: results}, nil
}

// rerankHead rescores the first rerankLimit results with the
// cross-encoder and reorders them by rerank score; the tail keeps its
// fused order. Any reranker failure degrades to the fused ordering.
func (s *Service) rerankHead(ctx context.Context, query string, results []result.Result) ([]result.Result, bool) {
	if s.rerank == nil || len(results) == 0 {
		return results, false
	}

	n := s.rerankLimit
	if n > len(results) {
		n = len(results)
	}

	texts := make([]string, n)
	for i := 0; i < n; i++ {
		texts[i] = results[i].Snippet()
	}

	scores, err := s.rerank.Rerank(ctx, query, texts)
	if err != nil {
		s.log.Warn("rerank degraded to fused ordering", zap.Error(err))
		metrics.RerankDegradedTotal.Inc()
		return results, false
	}

	head := make([]result.Result, n)
	for i := 0; i < n; i++ {
		head[i] = results[i].WithRerankScore(scores[i])
	}
	sort.SliceStable(head, func(i, j int) bool {
		a, _ := head[i].RerankScore()
		b, _ := head[j].RerankScore()
		return a > b
	})

	return append(head, results[n:]...), true
}

// mapTimeout converts a context deadline into the query timeout error.
func mapTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", domain.ErrQueryTimeout, err)
	}
	return err
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
