// Package embeddings implements the EmbeddingClient contract: batched
// embedding generation over an external model with retry and backoff.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/FreddyJ01/CodeSleuth/internal/cserrors"
	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"
)

// Client implements embed([]string, ctx) -> [][D]float32. Output length
// equals input length and order is preserved; the caller slices batches,
// the client never further slices.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	endpoint   string
	apiKey     string
	model      string
	maxRetries int
	baseDelay  time.Duration
}

// Config carries the subset of configuration the EmbeddingClient needs.
type Config struct {
	Endpoint       string
	APIKey         string
	Model          string
	MaxRetries     int
	BaseDelayMS    int
	RequestsPerSec float64
}

// New builds an EmbeddingClient. Endpoint shape (managed vs. direct) is
// auto-selected per request by host pattern, so a single client serves
// both shapes transparently.
func New(cfg Config) *Client {
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 10
	}
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		baseDelay:  time.Duration(cfg.BaseDelayMS) * time.Millisecond,
	}
}

type embedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// isManagedEndpoint reports whether the embedding endpoint is the
// managed (provider-token-bearing) shape rather than direct. Selection
// is by URL host pattern per the external interfaces contract.
func isManagedEndpoint(endpoint string) bool {
	u, err := url.Parse(endpoint)
	if err != nil {
		return false
	}
	return strings.Contains(u.Host, "azure.com")
}

func (c *Client) buildRequest(ctx context.Context, body []byte) (*http.Request, error) {
	u := c.endpoint
	if isManagedEndpoint(c.endpoint) {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u = fmt.Sprintf("%s%sapi-version=2024-02-01", u, sep)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if isManagedEndpoint(c.endpoint) {
		req.Header.Set("api-key", c.apiKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

// isTransient classifies the HTTP status codes and transport errors the
// retry policy reacts to: rate-limit, 502/503/504, deadline exceeded,
// and network resets. Everything else (4xx other than 429, auth,
// malformed request) is permanent.
func isTransient(statusCode int, err error) bool {
	if err != nil {
		return true // network error / deadline / reset: retry
	}
	switch statusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func (c *Client) doOnce(ctx context.Context, texts []string) ([][]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(embedRequest{Input: texts, Model: c.model})
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("marshal request: %w", err))
	}

	req, err := c.buildRequest(ctx, body)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if isTransient(0, err) && err != nil {
		return nil, fmt.Errorf("embedding request transport error: %w", err)
	}
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("embedding request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		msg := fmt.Errorf("embedding backend returned %d: %s", resp.StatusCode, string(b))
		if isTransient(resp.StatusCode, nil) {
			return nil, msg
		}
		return nil, backoff.Permanent(msg)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode embedding response: %w", err))
	}

	out := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) {
			continue
		}
		out[d.Index] = d.Embedding
	}
	for i, v := range out {
		if v == nil {
			return nil, backoff.Permanent(fmt.Errorf("embedding backend omitted result for index %d", i))
		}
	}
	return out, nil
}

// Embed implements embed([]string, ctx) -> [][]float32. The caller
// submits a batch of at most BATCH_SIZE; this client does not slice
// further. Transient failures are retried with exponential backoff plus
// jitter; cancellation is honored between attempts and during waits.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.baseDelay
	bo.Multiplier = 2
	bo.MaxInterval = 30 * time.Second
	bo.RandomizationFactor = 0.5 // each wait is drawn uniformly from ±50% of the doubled interval; no separate additive jitter term

	result, err := backoff.Retry(ctx, func() ([][]float32, error) {
		return c.doOnce(ctx, texts)
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(uint(c.maxRetries+1)))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, cserrors.EmbeddingErr("embedding request failed after retries", err)
	}
	return result, nil
}
