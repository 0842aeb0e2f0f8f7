package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/types"
)

// OpenAIConfig configures the OpenAI-compatible HTTP client. Any
// endpoint speaking the OpenAI wire format works: OpenAI itself,
// Azure-style gateways, vLLM, Ollama, DashScope compatible mode.
type OpenAIConfig struct {
	// BaseURL is the API root, e.g. "https://api.openai.com/v1".
	BaseURL string
	// APIKey is sent as a bearer token. Empty disables the header,
	// which local inference servers accept.
	APIKey string
	// ChatModel is the model used for Generate and GenerateStream.
	ChatModel string
	// EmbedModel is the model used for Embed and EmbedBatch.
	EmbedModel string
	// RerankModel is the model used for Rerank. The /rerank endpoint
	// follows the Cohere-compatible shape served by Jina and
	// DashScope. Empty means the deployment has no reranker.
	RerankModel string
	// Timeout bounds each HTTP call. Zero means 30 seconds.
	Timeout time.Duration
}

// OpenAIClient implements Embedder, Generator, and Reranker against
// one OpenAI-compatible endpoint. Wrap it with the Resilient*
// adapters for retry, rate limiting, and per-call timeouts.
type OpenAIClient struct {
	cfg    OpenAIConfig
	client *http.Client
	logger *zap.Logger
}

// NewOpenAIClient builds a client. Model names fall back to
// gpt-4o-mini and text-embedding-3-small when unset.
func NewOpenAIClient(cfg OpenAIConfig, logger *zap.Logger) *OpenAIClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4o-mini"
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = "text-embedding-3-small"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.With(zap.String("component", "llm.openai")),
	}
}

// wire types, OpenAI-compatible

type oaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaChatRequest struct {
	Model       string      `json:"model"`
	Messages    []oaMessage `json:"messages"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
	Temperature float64     `json:"temperature,omitempty"`
	Stop        []string    `json:"stop,omitempty"`
	Stream      bool        `json:"stream,omitempty"`
}

type oaChatChoice struct {
	Message oaMessage  `json:"message"`
	Delta   *oaMessage `json:"delta,omitempty"`
}

type oaChatResponse struct {
	Choices []oaChatChoice `json:"choices"`
}

type oaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type oaEmbedDatum struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

type oaEmbedResponse struct {
	Data []oaEmbedDatum `json:"data"`
}

type oaRerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

type oaRerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type oaRerankResponse struct {
	Results []oaRerankResult `json:"results"`
}

type oaErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Embed implements Embedder.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch implements Embedder. The provider may return data out of
// order; results are re-sorted by index.
func (c *OpenAIClient) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var out oaEmbedResponse
	err := c.post(ctx, "/embeddings", oaEmbedRequest{Model: c.cfg.EmbedModel, Input: texts}, &out, types.ErrEmbeddingFailed)
	if err != nil {
		return nil, err
	}
	if len(out.Data) != len(texts) {
		return nil, types.NewError(types.ErrEmbeddingFailed,
			fmt.Sprintf("embedding count mismatch: got %d, want %d", len(out.Data), len(texts))).
			WithComponent("llm.openai")
	}
	sort.Slice(out.Data, func(i, j int) bool { return out.Data[i].Index < out.Data[j].Index })
	vectors := make([][]float64, len(out.Data))
	for i, d := range out.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// Generate implements Generator.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	req := oaChatRequest{
		Model:       c.cfg.ChatModel,
		Messages:    []oaMessage{{Role: "user", Content: prompt}},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Stop:        opts.StopSequences,
	}
	var out oaChatResponse
	if err := c.post(ctx, "/chat/completions", req, &out, types.ErrGenerationFailed); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", types.NewError(types.ErrGenerationFailed, "response has no choices").
			WithComponent("llm.openai").WithRetryable(true)
	}
	return out.Choices[0].Message.Content, nil
}

// GenerateStream implements Generator via server-sent events. The
// channel closes when the stream ends or ctx is done; stream-level
// errors after the first chunk are logged, not returned.
func (c *OpenAIClient) GenerateStream(ctx context.Context, prompt string, opts GenerateOptions) (<-chan string, error) {
	req := oaChatRequest{
		Model:       c.cfg.ChatModel,
		Messages:    []oaMessage{{Role: "user", Content: prompt}},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Stop:        opts.StopSequences,
		Stream:      true,
	}
	resp, err := c.do(ctx, http.MethodPost, "/chat/completions", req, types.ErrGenerationFailed)
	if err != nil {
		return nil, err
	}

	ch := make(chan string)
	go func() {
		defer close(ch)
		defer resp.Body.Close()
		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err != io.EOF {
					c.logger.Warn("stream read aborted", zap.Error(err))
				}
				return
			}
			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			payload := strings.TrimPrefix(line, "data: ")
			if payload == "[DONE]" {
				return
			}
			var chunk oaChatResponse
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				c.logger.Warn("stream chunk decode failed", zap.Error(err))
				continue
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta == nil {
				continue
			}
			if text := chunk.Choices[0].Delta.Content; text != "" {
				select {
				case ch <- text:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

// Rerank implements Reranker. It requires RerankModel to be set.
func (c *OpenAIClient) Rerank(ctx context.Context, query string, candidates []string) ([]RerankItem, error) {
	if c.cfg.RerankModel == "" {
		return nil, types.NewError(types.ErrRerankFailed, "no rerank model configured").
			WithComponent("llm.openai")
	}
	req := oaRerankRequest{
		Model:     c.cfg.RerankModel,
		Query:     query,
		Documents: candidates,
		TopN:      len(candidates),
	}
	var out oaRerankResponse
	if err := c.post(ctx, "/rerank", req, &out, types.ErrRerankFailed); err != nil {
		return nil, err
	}
	items := make([]RerankItem, 0, len(out.Results))
	for _, r := range out.Results {
		items = append(items, RerankItem{Index: r.Index, Score: r.RelevanceScore})
	}
	return items, nil
}

// Ping verifies the endpoint is reachable and the key is accepted.
func (c *OpenAIClient) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/models", nil)
	if err != nil {
		return err
	}
	c.setHeaders(httpReq)
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return types.NewError(types.ErrTimeout, "provider unreachable").
			WithComponent("llm.openai").WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp, types.ErrInternalError)
	}
	return nil
}

func (c *OpenAIClient) post(ctx context.Context, path string, body, out any, code types.ErrorCode) error {
	resp, err := c.do(ctx, http.MethodPost, path, body, code)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewError(code, "response decode failed").
			WithComponent("llm.openai").WithCause(err).WithRetryable(true)
	}
	return nil
}

// do sends the request and maps non-2xx statuses to a *types.Error
// with the capability's code. The caller owns resp.Body on success.
func (c *OpenAIClient) do(ctx context.Context, method, path string, body any, code types.ErrorCode) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, types.NewError(code, "request encode failed").
			WithComponent("llm.openai").WithCause(err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(code, "request build failed").
			WithComponent("llm.openai").WithCause(err)
	}
	c.setHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, types.NewError(code, "provider call failed").
			WithComponent("llm.openai").WithCause(err).WithRetryable(true)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, c.statusError(resp, code)
	}
	return resp, nil
}

func (c *OpenAIClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
}

func (c *OpenAIClient) statusError(resp *http.Response, code types.ErrorCode) *types.Error {
	msg := readErrorMessage(resp.Body)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return types.NewError(types.ErrRateLimited, msg).
			WithComponent("llm.openai").WithRetryable(true)
	case resp.StatusCode >= 500:
		return types.NewError(code, msg).
			WithComponent("llm.openai").WithRetryable(true)
	default:
		return types.NewError(code, msg).WithComponent("llm.openai")
	}
}

func readErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}
	var parsed oaErrorResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return strings.TrimSpace(string(raw))
}
