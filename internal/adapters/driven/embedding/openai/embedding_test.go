package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juristec/legisrag/internal/core/domain"
	"github.com/juristec/legisrag/internal/vectorutil"
)

// fakeAPI serves the embeddings endpoint, returning deterministic
// vectors and recording each request's input batch.
type fakeAPI struct {
	mu        sync.Mutex
	batches   [][]string
	failures  int // respond 500 to this many requests before succeeding
	status    int // non-zero forces this status on every request
	dimension int
}

func (f *fakeAPI) handler(w http.ResponseWriter, r *http.Request) {
	var req embeddingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.batches = append(f.batches, req.Input)
	fail := f.failures > 0
	if fail {
		f.failures--
	}
	status := f.status
	f.mu.Unlock()

	if status != 0 {
		http.Error(w, `{"error":{"message":"bad key"}}`, status)
		return
	}
	if fail {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := map[string]any{"data": []any{}}
	data := make([]map[string]any, len(req.Input))
	for i := range req.Input {
		vec := make([]float64, f.dimension)
		vec[0] = float64(len(req.Input[i]))
		data[i] = map[string]any{"embedding": vec, "index": i}
	}
	resp["data"] = data
	_ = json.NewEncoder(w).Encode(resp)
}

func newTestService(t *testing.T, api *fakeAPI, opts ...func(*Config)) *EmbeddingService {
	t.Helper()
	if api.dimension == 0 {
		api.dimension = 4
	}
	srv := httptest.NewServer(http.HandlerFunc(api.handler))
	t.Cleanup(srv.Close)

	cfg := Config{
		APIKey:            "test-key",
		BaseURL:           srv.URL,
		Model:             "test-model",
		Dimensions:        api.dimension,
		RequestsPerSecond: 1000,
		Retry: RetryConfig{
			MaxRetries:      3,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	svc, err := NewEmbeddingService(cfg)
	require.NoError(t, err)
	return svc
}

func TestEmbedBatch_BlankInputsGetZeroVectors(t *testing.T) {
	api := &fakeAPI{}
	svc := newTestService(t, api)

	out, err := svc.EmbedBatch(context.Background(), []string{"primeiro", "", "  \t ", "quarto"})
	require.NoError(t, err)
	require.Len(t, out, 4)

	assert.False(t, vectorutil.IsZero(out[0]))
	assert.True(t, vectorutil.IsZero(out[1]))
	assert.True(t, vectorutil.IsZero(out[2]))
	assert.False(t, vectorutil.IsZero(out[3]))

	// Only the two non-blank texts reached the API, in one batch.
	require.Len(t, api.batches, 1)
	assert.Equal(t, []string{"primeiro", "quarto"}, api.batches[0])
}

func TestEmbedBatch_AllBlank(t *testing.T) {
	api := &fakeAPI{}
	svc := newTestService(t, api)

	out, err := svc.EmbedBatch(context.Background(), []string{"", " "})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Empty(t, api.batches, "no API call for all-blank input")
}

func TestEmbedBatch_SplitsByInputCount(t *testing.T) {
	api := &fakeAPI{}
	svc := newTestService(t, api, func(cfg *Config) { cfg.MaxBatchInputs = 2 })

	texts := []string{"um", "dois", "tres", "quatro", "cinco"}
	out, err := svc.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, out, 5)

	require.Len(t, api.batches, 3)
	assert.Equal(t, []string{"um", "dois"}, api.batches[0])
	assert.Equal(t, []string{"tres", "quatro"}, api.batches[1])
	assert.Equal(t, []string{"cinco"}, api.batches[2])
}

func TestEmbedBatch_SplitsByTokenBudget(t *testing.T) {
	api := &fakeAPI{}
	// Each text below is 40 estimated tokens (160 chars); budget fits two.
	svc := newTestService(t, api, func(cfg *Config) { cfg.MaxBatchTokens = 80 })

	big := strings.Repeat("abcd", 40)
	out, err := svc.EmbedBatch(context.Background(), []string{big, big, big})
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Len(t, api.batches, 2)
	assert.Len(t, api.batches[0], 2)
	assert.Len(t, api.batches[1], 1)
}

func TestEmbedBatch_OrderPreservedAcrossBatches(t *testing.T) {
	api := &fakeAPI{}
	svc := newTestService(t, api, func(cfg *Config) { cfg.MaxBatchInputs = 1 })

	// Vector[0] encodes input length, so order is verifiable.
	out, err := svc.EmbedBatch(context.Background(), []string{"a", "abc", "abcde"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, float32(1), out[0][0])
	assert.Equal(t, float32(3), out[1][0])
	assert.Equal(t, float32(5), out[2][0])
}

func TestEmbedBatch_RetriesTransientErrors(t *testing.T) {
	api := &fakeAPI{failures: 2}
	svc := newTestService(t, api)

	out, err := svc.EmbedBatch(context.Background(), []string{"texto"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.False(t, vectorutil.IsZero(out[0]))
	assert.Len(t, api.batches, 3, "two failures plus one success")
}

func TestEmbedBatch_TerminalErrorWrapsEmbeddingError(t *testing.T) {
	api := &fakeAPI{status: http.StatusUnauthorized}
	svc := newTestService(t, api)

	_, err := svc.EmbedBatch(context.Background(), []string{"texto"})
	var embErr *domain.EmbeddingError
	require.ErrorAs(t, err, &embErr)
	assert.Equal(t, "test-model", embErr.Model)
	assert.Len(t, api.batches, 1, "401 must not be retried")
}

func TestEmbed_SingleText(t *testing.T) {
	api := &fakeAPI{}
	svc := newTestService(t, api)

	vec, err := svc.Embed(context.Background(), "habeas corpus")
	require.NoError(t, err)
	assert.Equal(t, float32(len("habeas corpus")), vec[0])
}

func TestRetryableError(t *testing.T) {
	assert.False(t, retryableError(assert.AnError))
	assert.True(t, retryableError(errString("openai error (status 429): slow down")))
	assert.True(t, retryableError(errString("openai error (status 503): unavailable")))
	assert.True(t, retryableError(errString("read tcp: connection reset by peer")))
	assert.False(t, retryableError(errString("openai error (status 401): bad key")))
	assert.False(t, retryableError(nil))
}

type errString string

func (e errString) Error() string { return string(e) }

func TestNewEmbeddingService_RequiresAPIKey(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.Error(t, err)
}

func TestDimensions_ModelDefaults(t *testing.T) {
	svc, err := NewEmbeddingService(Config{APIKey: "k", Model: "text-embedding-3-large"})
	require.NoError(t, err)
	assert.Equal(t, 3072, svc.Dimensions())
	assert.Equal(t, "text-embedding-3-large", svc.ModelName())
}
