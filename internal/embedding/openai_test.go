package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestOpenAIProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := newOpenAIProvider(Config{
		Provider: "openai-compatible",
		Model:    "test-model",
		BaseURL:  srv.URL,
		APIKey:   "secret-key",
		Dimensions: 3,
	})
	require.NoError(t, err)
	return p
}

func TestNewOpenAIProviderRequiresAPIKeyForRealEndpoint(t *testing.T) {
	_, err := newOpenAIProvider(Config{Provider: "openai"})
	require.Error(t, err)
}

func TestNewOpenAIProviderRequiresModelForCompatibleEndpoint(t *testing.T) {
	_, err := newOpenAIProvider(Config{Provider: "openai-compatible", BaseURL: "http://example.invalid"})
	require.Error(t, err)
}

func TestOpenAIProviderEmbedReturnsVector(t *testing.T) {
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))
		var req openaiEmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		_ = json.NewEncoder(w).Encode(openaiEmbeddingResponse{
			Data: []struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{
				{Embedding: []float32{0.1, 0.2, 0.3}, Index: 0},
			},
		})
	})

	vec, err := p.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	require.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestOpenAIProviderEmbedBatchPreservesOrderByIndex(t *testing.T) {
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(openaiEmbeddingResponse{
			Data: []struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{
				{Embedding: []float32{9, 9, 9}, Index: 1},
				{Embedding: []float32{1, 1, 1}, Index: 0},
			},
		})
	})

	vecs, err := p.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Equal(t, []float32{1, 1, 1}, vecs[0])
	require.Equal(t, []float32{9, 9, 9}, vecs[1])
}

func TestOpenAIProviderPermanentErrorDoesNotRetry(t *testing.T) {
	calls := 0
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad request","type":"invalid_request_error"}}`))
	})

	_, err := p.Embed(context.Background(), "x")
	require.Error(t, err)
	require.Equal(t, 1, calls, "a 400 is not retryable and must fail after a single attempt")
}

func TestOpenAIProviderSanitizesAPIKeyFromErrors(t *testing.T) {
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`secret-key leaked here`))
	})

	_, err := p.Embed(context.Background(), "x")
	require.Error(t, err)
	require.NotContains(t, err.Error(), "secret-key")
}
