package llm

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/llm/retry"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/types"
)

// ResilienceOptions configures the resilient capability wrappers.
type ResilienceOptions struct {
	// Timeout bounds each outbound call, retries included per attempt.
	Timeout time.Duration
	// Policy is the backoff policy; nil uses retry.DefaultRetryPolicy.
	Policy *retry.RetryPolicy
	// RateLimit is the sustained calls-per-second budget. 0 disables
	// limiting.
	RateLimit float64
	// RateBurst is the burst allowance when rate limiting is on.
	RateBurst int
}

// guard bundles the shared timeout / limiter / retry mechanics.
type guard struct {
	timeout time.Duration
	limiter *rate.Limiter
	retryer retry.Retryer
	logger  *zap.Logger
}

func newGuard(opts ResilienceOptions, logger *zap.Logger) guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return guard{
		timeout: opts.Timeout,
		limiter: limiter,
		retryer: retry.NewBackoffRetryer(opts.Policy, logger),
		logger:  logger,
	}
}

// call runs fn under the rate limiter and retry policy, applying the
// per-attempt timeout inside each retry.
func (g guard) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return types.NewError(types.ErrRateLimited, "rate limiter wait aborted").WithCause(err)
		}
	}
	return g.retryer.Do(ctx, func() error {
		attemptCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		return fn(attemptCtx)
	})
}

// ResilientEmbedder wraps an Embedder with timeout, rate limiting and
// retry.
type ResilientEmbedder struct {
	inner Embedder
	guard guard
}

// NewResilientEmbedder wraps inner.
func NewResilientEmbedder(inner Embedder, opts ResilienceOptions, logger *zap.Logger) *ResilientEmbedder {
	return &ResilientEmbedder{inner: inner, guard: newGuard(opts, logger)}
}

func (e *ResilientEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	var out []float64
	err := e.guard.call(ctx, func(ctx context.Context) error {
		var callErr error
		out, callErr = e.inner.Embed(ctx, text)
		return callErr
	})
	if err != nil {
		return nil, types.NewError(types.ErrEmbeddingFailed, "embed call failed").WithCause(err).WithRetryable(true).WithComponent("embedder")
	}
	return out, nil
}

func (e *ResilientEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	var out [][]float64
	err := e.guard.call(ctx, func(ctx context.Context) error {
		var callErr error
		out, callErr = e.inner.EmbedBatch(ctx, texts)
		return callErr
	})
	if err != nil {
		return nil, types.NewError(types.ErrEmbeddingFailed, "embed batch call failed").WithCause(err).WithRetryable(true).WithComponent("embedder")
	}
	return out, nil
}

// ResilientGenerator wraps a Generator.
type ResilientGenerator struct {
	inner Generator
	guard guard
}

// NewResilientGenerator wraps inner.
func NewResilientGenerator(inner Generator, opts ResilienceOptions, logger *zap.Logger) *ResilientGenerator {
	return &ResilientGenerator{inner: inner, guard: newGuard(opts, logger)}
}

func (g *ResilientGenerator) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	var out string
	err := g.guard.call(ctx, func(ctx context.Context) error {
		var callErr error
		out, callErr = g.inner.Generate(ctx, prompt, opts)
		return callErr
	})
	if err != nil {
		return "", types.NewError(types.ErrGenerationFailed, "generate call failed").WithCause(err).WithRetryable(true).WithComponent("generator")
	}
	return out, nil
}

// GenerateStream applies rate limiting only; a partially consumed
// stream cannot be transparently retried.
func (g *ResilientGenerator) GenerateStream(ctx context.Context, prompt string, opts GenerateOptions) (<-chan string, error) {
	if g.guard.limiter != nil {
		if err := g.guard.limiter.Wait(ctx); err != nil {
			return nil, types.NewError(types.ErrRateLimited, "rate limiter wait aborted").WithCause(err)
		}
	}
	ch, err := g.inner.GenerateStream(ctx, prompt, opts)
	if err != nil {
		return nil, types.NewError(types.ErrGenerationFailed, "generate stream failed").WithCause(err).WithComponent("generator")
	}
	return ch, nil
}

// ResilientReranker wraps a Reranker.
type ResilientReranker struct {
	inner Reranker
	guard guard
}

// NewResilientReranker wraps inner.
func NewResilientReranker(inner Reranker, opts ResilienceOptions, logger *zap.Logger) *ResilientReranker {
	return &ResilientReranker{inner: inner, guard: newGuard(opts, logger)}
}

func (r *ResilientReranker) Rerank(ctx context.Context, query string, candidates []string) ([]RerankItem, error) {
	var out []RerankItem
	err := r.guard.call(ctx, func(ctx context.Context) error {
		var callErr error
		out, callErr = r.inner.Rerank(ctx, query, candidates)
		return callErr
	})
	if err != nil {
		return nil, types.NewError(types.ErrRerankFailed, "rerank call failed").WithCause(err).WithRetryable(true).WithComponent("reranker")
	}
	return out, nil
}

// ResilientResolver wraps a CitationResolver.
type ResilientResolver struct {
	inner CitationResolver
	guard guard
}

// NewResilientResolver wraps inner.
func NewResilientResolver(inner CitationResolver, opts ResilienceOptions, logger *zap.Logger) *ResilientResolver {
	return &ResilientResolver{inner: inner, guard: newGuard(opts, logger)}
}

func (r *ResilientResolver) Resolve(ctx context.Context, citation string) (Resolution, error) {
	var out Resolution
	err := r.guard.call(ctx, func(ctx context.Context) error {
		var callErr error
		out, callErr = r.inner.Resolve(ctx, citation)
		return callErr
	})
	if err != nil {
		return Resolution{}, types.NewError(types.ErrCitationLookupFailed, "citation lookup failed").WithCause(err).WithRetryable(true).WithComponent("citation_resolver")
	}
	return out, nil
}
