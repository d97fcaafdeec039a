// Package embeddings wraps an OpenAI-compatible /v1/embeddings endpoint
// behind a small Embedder interface. Any provider speaking that format
// works: OpenAI itself, Ollama, or a self-hosted multilingual
// sentence-transformer server.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Embedder generates embedding vectors from text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Config holds the embedding endpoint configuration.
type Config struct {
	Endpoint   string  `mapstructure:"endpoint"`
	Model      string  `mapstructure:"model"`
	APIKey     string  `mapstructure:"api_key"`
	MaxRetries int     `mapstructure:"max_retries"`
	TimeoutSec int     `mapstructure:"timeout_sec"`
	RPS        float64 `mapstructure:"rps"`
}

// Validate checks that the configuration is complete.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return eris.New("embeddings: endpoint is required")
	}
	if c.Model == "" {
		return eris.New("embeddings: model is required")
	}
	return nil
}

// ClientOption configures the embeddings client.
type ClientOption func(*httpClient)

// WithHTTPClient replaces the underlying HTTP client, mainly for tests.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *httpClient) { c.http = h }
}

// WithRateLimit overrides the default request throttle.
func WithRateLimit(rps float64) ClientOption {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// httpClient implements Embedder over the OpenAI-compatible wire format.
type httpClient struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an embeddings client. Calls are throttled to
// cfg.RPS requests per second (default 10) and retried with backoff on
// 429 and 5xx responses.
func NewClient(cfg Config, opts ...ClientOption) (Embedder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.TimeoutSec <= 0 {
		cfg.TimeoutSec = 30
	}
	rps := cfg.RPS
	if rps <= 0 {
		rps = 10
	}
	c := &httpClient{
		cfg:     cfg,
		http:    &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), max(int(rps), 1)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (c *httpClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, eris.New(fmt.Sprintf("embeddings: expected 1 vector, got %d", len(vecs)))
	}
	return vecs[0], nil
}

func (c *httpClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			zap.L().Debug("embeddings: retrying",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return nil, eris.Wrap(ctx.Err(), "embeddings: retry wait")
			case <-time.After(backoff):
			}
		}

		vecs, retryable, err := c.call(ctx, texts)
		if err == nil {
			return vecs, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, eris.Wrapf(lastErr, "embeddings: giving up after %d retries", c.cfg.MaxRetries)
}

func (c *httpClient) call(ctx context.Context, texts []string) ([][]float32, bool, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, false, eris.Wrap(err, "embeddings: rate limit")
		}
	}

	body, err := json.Marshal(embedRequest{Model: c.cfg.Model, Input: texts})
	if err != nil {
		return nil, false, eris.Wrap(err, "embeddings: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, false, eris.Wrap(err, "embeddings: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, eris.Wrap(err, "embeddings: request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retryable, eris.New(
			fmt.Sprintf("embeddings: %s returned %d: %s", c.cfg.Endpoint, resp.StatusCode, string(msg)))
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, false, eris.Wrap(err, "embeddings: decode response")
	}
	if len(parsed.Data) != len(texts) {
		return nil, false, eris.New(fmt.Sprintf(
			"embeddings: sent %d inputs, got %d vectors", len(texts), len(parsed.Data)))
	}

	out := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, false, eris.New("embeddings: response index " + strconv.Itoa(d.Index) + " out of range")
		}
		out[d.Index] = d.Embedding
	}
	return out, false, nil
}
