// Package openai provides an embedding service adapter using the OpenAI API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/juristec/legisrag/internal/core/domain"
	"github.com/juristec/legisrag/internal/core/ports/driven"
	"github.com/juristec/legisrag/internal/logger"
	"github.com/juristec/legisrag/internal/textnorm"
	"github.com/juristec/legisrag/internal/vectorutil"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL           = "https://api.openai.com/v1"
	DefaultModel             = "text-embedding-3-small"
	DefaultTimeout           = 60 * time.Second
	DefaultMaxBatchInputs    = 100
	DefaultMaxBatchTokens    = 8000
	DefaultRequestsPerSecond = 5
)

// Model dimensions for OpenAI embedding models.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// RetryConfig configures the retry behaviour for embedding calls.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns sensible defaults for embedding API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// Config holds configuration for the OpenAI embedding service.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the embedding model to use (default: text-embedding-3-small).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions overrides the default dimension for the model.
	// Only applicable to text-embedding-3-* models.
	Dimensions int

	// MaxBatchInputs caps the number of inputs per API request.
	MaxBatchInputs int

	// MaxBatchTokens caps the estimated token total per API request.
	MaxBatchTokens int

	// RequestsPerSecond throttles outgoing API calls.
	RequestsPerSecond float64

	// Retry controls backoff on transient failures.
	Retry RetryConfig
}

// EmbeddingService generates embeddings using the OpenAI API. Requests
// are rate limited, retried with exponential backoff on transient
// failures, and guarded by a circuit breaker.
type EmbeddingService struct {
	client         *http.Client
	baseURL        string
	apiKey         string
	model          string
	dimensions     int
	maxBatchInputs int
	maxBatchTokens int
	limiter        *rate.Limiter
	breaker        *gobreaker.CircuitBreaker
	retry          RetryConfig
}

// embeddingRequest is the OpenAI API request format.
type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

// embeddingResponse is the OpenAI API response format.
type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewEmbeddingService creates a new OpenAI embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBatchInputs <= 0 {
		cfg.MaxBatchInputs = DefaultMaxBatchInputs
	}
	if cfg.MaxBatchTokens <= 0 {
		cfg.MaxBatchTokens = DefaultMaxBatchTokens
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.InitialInterval == 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		var ok bool
		dimensions, ok = modelDimensions[cfg.Model]
		if !ok {
			dimensions = 1536
		}
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "OpenAIEmbeddings",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	return &EmbeddingService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		model:          cfg.Model,
		dimensions:     dimensions,
		maxBatchInputs: cfg.MaxBatchInputs,
		maxBatchTokens: cfg.MaxBatchTokens,
		limiter:        rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), int(cfg.RequestsPerSecond)+1),
		breaker:        breaker,
		retry:          cfg.Retry,
	}, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, &domain.EmbeddingError{Model: s.model, TextLen: len(text), Err: fmt.Errorf("no embedding returned")}
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts, preserving input
// order. Blank texts never reach the API: their slots are filled with
// zero vectors. Oversized batches are split by input count and estimated
// token total.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	var pending []int
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			out[i] = vectorutil.ZeroVector(s.dimensions)
			continue
		}
		pending = append(pending, i)
	}

	for _, batch := range s.split(texts, pending) {
		inputs := make([]string, len(batch))
		totalLen := 0
		for j, idx := range batch {
			inputs[j] = texts[idx]
			totalLen += len(texts[idx])
		}

		vectors, err := s.embedWithRetry(ctx, inputs)
		if err != nil {
			return nil, &domain.EmbeddingError{Model: s.model, TextLen: totalLen, Err: err}
		}
		if len(vectors) != len(batch) {
			return nil, &domain.EmbeddingError{
				Model:   s.model,
				TextLen: totalLen,
				Err:     fmt.Errorf("expected %d embeddings, got %d", len(batch), len(vectors)),
			}
		}
		for j, idx := range batch {
			out[idx] = vectors[j]
		}
	}

	return out, nil
}

// split groups pending indices into API-sized batches, respecting both
// the input-count and estimated-token limits. A single oversized text
// still forms its own batch.
func (s *EmbeddingService) split(texts []string, pending []int) [][]int {
	var batches [][]int
	var current []int
	currentTokens := 0

	for _, idx := range pending {
		tokens := textnorm.EstimateTokens(texts[idx])
		if len(current) > 0 &&
			(len(current) >= s.maxBatchInputs || currentTokens+tokens > s.maxBatchTokens) {
			batches = append(batches, current)
			current = nil
			currentTokens = 0
		}
		current = append(current, idx)
		currentTokens += tokens
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// embedWithRetry calls the API with rate limiting on each attempt and
// exponential backoff on transient failures.
func (s *EmbeddingService) embedWithRetry(ctx context.Context, inputs []string) ([][]float32, error) {
	var lastErr error
	delay := s.retry.InitialInterval

	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		result, err := s.breaker.Execute(func() (any, error) {
			return s.call(ctx, inputs)
		})
		if err == nil {
			return result.([][]float32), nil
		}
		lastErr = err

		if errors.Is(err, gobreaker.ErrOpenState) || !retryableError(err) {
			return nil, err
		}
		if attempt == s.retry.MaxRetries {
			break
		}

		logger.Debug("embedding retry %d after error: %v (next delay %v)", attempt+1, err, delay)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, s.retry.MaxInterval)
		}
	}

	return nil, fmt.Errorf("embed after %d retries: %w", s.retry.MaxRetries, lastErr)
}

// call performs one embeddings request.
func (s *EmbeddingService) call(ctx context.Context, inputs []string) ([][]float32, error) {
	reqBody := embeddingRequest{
		Model: s.model,
		Input: inputs,
	}

	// Only text-embedding-3-* models accept a dimensions override.
	if s.model == "text-embedding-3-small" || s.model == "text-embedding-3-large" {
		if s.dimensions > 0 {
			reqBody.Dimensions = s.dimensions
		}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/embeddings",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai error (status %d): %s", resp.StatusCode, string(body))
	}

	var embedResp embeddingResponse
	if err := json.Unmarshal(body, &embedResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if embedResp.Error != nil {
		return nil, fmt.Errorf("openai error: %s", embedResp.Error.Message)
	}

	// Convert float64 to float32 and order by index.
	embeddings := make([][]float32, len(inputs))
	for _, data := range embedResp.Data {
		if data.Index < 0 || data.Index >= len(inputs) {
			return nil, fmt.Errorf("embedding index %d out of range", data.Index)
		}
		embedding := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			embedding[i] = float32(v)
		}
		embeddings[data.Index] = embedding
	}

	return embeddings, nil
}

// retryablePatterns groups transient error substrings by category,
// matched case-insensitively. The API client has no typed errors for
// these, so string matching is the only classification available.
var retryablePatterns = [][]string{
	{"rate limit", "quota exceeded", "429"},
	{"500", "502", "503", "504", "unavailable"},
	{"connection reset", "timeout", "temporary"},
}

// retryableError reports whether err is transient and worth retrying.
func retryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, group := range retryablePatterns {
		for _, pattern := range group {
			if strings.Contains(msg, pattern) {
				return true
			}
		}
	}
	return false
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /models endpoint.
// This is a lightweight check that validates the API key without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: failed to create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("openai: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("openai: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
