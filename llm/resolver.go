package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/types"
)

// RESTResolver checks citations against an HTTP source-of-truth
// service. The service answers GET {base}?citation=<text> with a
// Resolution JSON body, and 404 for citations it has no record of.
type RESTResolver struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewRESTResolver builds a resolver. Zero timeout means 10 seconds.
func NewRESTResolver(baseURL string, timeout time.Duration, logger *zap.Logger) *RESTResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &RESTResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With(zap.String("component", "llm.resolver")),
	}
}

// Resolve implements CitationResolver.
func (r *RESTResolver) Resolve(ctx context.Context, citation string) (Resolution, error) {
	endpoint := r.baseURL + "?citation=" + url.QueryEscape(citation)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Resolution{}, types.NewError(types.ErrCitationLookupFailed, "request build failed").
			WithComponent("llm.resolver").WithCause(err)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return Resolution{}, types.NewError(types.ErrCitationLookupFailed, "lookup call failed").
			WithComponent("llm.resolver").WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Resolution{Exists: false, Status: types.CitationUnknown}, nil
	case resp.StatusCode != http.StatusOK:
		return Resolution{}, types.NewError(types.ErrCitationLookupFailed, "lookup returned "+resp.Status).
			WithComponent("llm.resolver").WithRetryable(resp.StatusCode >= 500)
	}

	var resolution Resolution
	if err := json.NewDecoder(resp.Body).Decode(&resolution); err != nil {
		return Resolution{}, types.NewError(types.ErrCitationLookupFailed, "response decode failed").
			WithComponent("llm.resolver").WithCause(err)
	}
	if resolution.Status == "" {
		resolution.Status = types.CitationUnknown
	}
	return resolution, nil
}

// UnknownResolver answers every lookup with an unknown status. It is
// the fallback when no source-of-truth service is configured, so
// verification degrades to "recognized but unverified" instead of
// failing queries.
type UnknownResolver struct{}

// Resolve implements CitationResolver.
func (UnknownResolver) Resolve(context.Context, string) (Resolution, error) {
	return Resolution{Exists: false, Status: types.CitationUnknown}, nil
}
