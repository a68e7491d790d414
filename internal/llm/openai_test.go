package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wardenerrors "warden/internal/errors"
	"warden/internal/httpclient"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewOpenAIClient("test-model", Config{BaseURL: server.URL, APIKey: "sk-test"})
	require.NoError(t, err)
	return client
}

func TestCompleteParsesLogProbs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req["model"])
		assert.Equal(t, true, req["logprobs"])
		assert.EqualValues(t, 5, req["top_logprobs"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{
				"message": {"content": "<score> no </score>"},
				"finish_reason": "stop",
				"logprobs": {"content": [{
					"token": "no",
					"logprob": -0.1,
					"top_logprobs": [
						{"token": "no", "logprob": -0.1},
						{"token": "yes", "logprob": -2.5}
					]
				}]}
			}],
			"usage": {"prompt_tokens": 42, "completion_tokens": 3, "total_tokens": 45}
		}`))
	})

	resp, err := client.Complete(context.Background(), CompletionRequest{
		Messages:    []Message{{Role: "user", Content: "hi"}},
		TopLogProbs: 5,
	})

	require.NoError(t, err)
	assert.Equal(t, "<score> no </score>", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	require.Len(t, resp.LogProbs, 1)
	require.Len(t, resp.LogProbs[0].TopLogProbs, 2)
	assert.Equal(t, "yes", resp.LogProbs[0].TopLogProbs[1].Token)
	assert.InDelta(t, -2.5, resp.LogProbs[0].TopLogProbs[1].LogProb, 1e-9)
	assert.Equal(t, 45, resp.Usage.TotalTokens)
}

func TestCompleteOmitsLogProbsWhenNotRequested(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_, hasLogProbs := req["logprobs"]
		assert.False(t, hasLogProbs)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"},"finish_reason":"stop"}]}`))
	})

	resp, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Empty(t, resp.LogProbs)
}

func TestCompleteJSONOutputMode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		format, ok := req["response_format"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "json_object", format["type"])

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{}"},"finish_reason":"stop"}]}`))
	})

	_, err := client.Complete(context.Background(), CompletionRequest{
		Messages:   []Message{{Role: "user", Content: "hi"}},
		JSONOutput: true,
	})
	require.NoError(t, err)
}

func TestCompleteForwardsMetadata(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		metadata, ok := req["metadata"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "turn-7", metadata["turn_id"])

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"},"finish_reason":"stop"}]}`))
	})

	_, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
		Metadata: map[string]any{"turn_id": "turn-7"},
	})
	require.NoError(t, err)
}

func TestCompleteResponseSizeLimit(t *testing.T) {
	huge := strings.Repeat("x", (1<<20)+64)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"padding":"` + huge + `"}`))
	}))
	t.Cleanup(server.Close)

	client, err := NewOpenAIClient("test-model", Config{BaseURL: server.URL, MaxRespMiB: 1})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.True(t, httpclient.IsResponseTooLarge(err))
}

func TestCompleteRateLimitIsTransient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
	})

	_, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})

	var transient *wardenerrors.TransientError
	require.ErrorAs(t, err, &transient)
	assert.Equal(t, http.StatusTooManyRequests, transient.StatusCode)
	assert.Equal(t, 7, transient.RetryAfter)
	assert.True(t, wardenerrors.IsTransient(err))
}

func TestCompleteBadRequestIsPermanent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"unknown model"}}`))
	})

	_, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})

	var permanent *wardenerrors.PermanentError
	require.ErrorAs(t, err, &permanent)
	assert.Equal(t, http.StatusBadRequest, permanent.StatusCode)
	assert.False(t, wardenerrors.IsTransient(err))
}

func TestCompleteProviderErrorBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"type":"overloaded","message":"try later"}}`))
	})

	_, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "try later")
}

func TestCompleteNoChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	assert.Error(t, err)
}

func TestCompleteContextCancellation(t *testing.T) {
	started := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server starts its background read; otherwise
		// it never observes the client disconnect and r.Context() never fires.
		_, _ = io.Copy(io.Discard, r.Body)
		close(started)
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := client.Complete(ctx, CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewOpenAIClientValidation(t *testing.T) {
	_, err := NewOpenAIClient("", Config{BaseURL: "http://localhost"})
	assert.Error(t, err)

	_, err = NewOpenAIClient("model", Config{})
	assert.Error(t, err)
}
