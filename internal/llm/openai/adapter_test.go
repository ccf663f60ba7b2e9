package openai_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nulzo/bifrost/internal/config"
	"github.com/nulzo/bifrost/internal/llm/openai"
	"github.com/nulzo/bifrost/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-123",
			"object": "chat.completion",
			"created": 1677652288,
			"model": "gpt-4-0613",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": "Hello there!"},
				"finish_reason": "stop"
			}],
			"usage": {"prompt_tokens": 9, "completion_tokens": 12, "total_tokens": 21}
		}`))
	}))
	defer server.Close()

	adapter, err := openai.NewAdapter(config.ProviderConfig{
		Name:    "openai",
		Type:    "openai",
		APIKey:  "test-key",
		BaseURL: server.URL + "/v1",
	})
	require.NoError(t, err)

	resp, err := adapter.Chat(context.Background(), &api.ChatRequest{
		Model: "gpt-4",
		Messages: []api.ChatMessage{
			{Role: "user", Content: api.Content{Text: "Hi"}},
		},
	})

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "Hello there!", resp.Choices[0].Message.Content.Text)
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)
	assert.Equal(t, 21, resp.Usage.TotalTokens)
	assert.Equal(t, "openai", adapter.Name())
}

func TestOpenAIStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)

		chunks := []string{
			`{"id":"c1","object":"chat.completion.chunk","choices":[{"delta":{"content":"Hel"}}]}`,
			`{"id":"c1","object":"chat.completion.chunk","choices":[{"delta":{"content":"lo"},"finish_reason":"stop"}]}`,
		}
		for _, c := range chunks {
			_, _ = fmt.Fprintf(w, "data: %s\n\n", c)
			flusher.Flush()
		}
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
	defer server.Close()

	adapter, err := openai.NewAdapter(config.ProviderConfig{
		Name:    "openai",
		APIKey:  "test-key",
		BaseURL: server.URL + "/v1",
	})
	require.NoError(t, err)

	ch, err := adapter.Stream(context.Background(), &api.ChatRequest{
		Model:    "gpt-4",
		Messages: []api.ChatMessage{{Role: "user", Content: api.Content{Text: "Hi"}}},
	})
	require.NoError(t, err)

	var text string
	var count int
	for result := range ch {
		require.NoError(t, result.Err)
		count++
		for _, c := range result.Response.Choices {
			if c.Delta != nil {
				text += c.Delta.Content.Text
			}
		}
	}
	assert.Equal(t, 2, count)
	assert.Equal(t, "Hello", text)
}

func TestOpenAIStreamAbandonedConsumerReleasesChannel(t *testing.T) {
	// upstream that outlives the request deadline
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
		}
	}))
	defer server.Close()

	adapter, err := openai.NewAdapter(config.ProviderConfig{
		Name:    "openai",
		APIKey:  "test-key",
		BaseURL: server.URL + "/v1",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	ch, err := adapter.Stream(ctx, &api.ChatRequest{
		Model:    "gpt-4",
		Messages: []api.ChatMessage{{Role: "user", Content: api.Content{Text: "Hi"}}},
	})
	require.NoError(t, err)

	// nobody reads until well past the deadline, like a client that hung up
	time.Sleep(300 * time.Millisecond)

	// the producer must have closed the channel rather than parking on a
	// final error send that no one will receive
	select {
	case result, ok := <-ch:
		assert.False(t, ok, "expected closed channel, got result: %+v", result)
	case <-time.After(time.Second):
		t.Fatal("stream channel never closed after the consumer went away")
	}
}

func TestOpenAIUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "Rate limit reached", "type": "rate_limit_error", "code": "rate_limit_exceeded"}}`))
	}))
	defer server.Close()

	adapter, err := openai.NewAdapter(config.ProviderConfig{
		Name:    "openai",
		APIKey:  "test-key",
		BaseURL: server.URL + "/v1",
	})
	require.NoError(t, err)

	_, err = adapter.Chat(context.Background(), &api.ChatRequest{
		Model:    "gpt-4",
		Messages: []api.ChatMessage{{Role: "user", Content: api.Content{Text: "Hi"}}},
	})
	require.Error(t, err)

	problem, ok := err.(*api.Problem)
	require.True(t, ok)
	assert.Equal(t, http.StatusTooManyRequests, problem.Status)
	assert.Equal(t, "Rate limit reached", problem.Detail)
	assert.Equal(t, "openai", problem.Extensions["provider"])
	assert.Equal(t, "rate_limit_error", problem.Extensions["upstream_type"])
}

func TestOpenAIEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{
			"object": "list",
			"model": "text-embedding-3-small",
			"data": [{"object": "embedding", "index": 0, "embedding": [0.1, -0.2]}],
			"usage": {"prompt_tokens": 2, "total_tokens": 2}
		}`))
	}))
	defer server.Close()

	adapter, err := openai.NewAdapter(config.ProviderConfig{
		Name:    "openai",
		APIKey:  "test-key",
		BaseURL: server.URL + "/v1",
	})
	require.NoError(t, err)

	resp, err := adapter.Embed(context.Background(), &api.EmbeddingRequest{
		Model: "text-embedding-3-small",
		Input: &api.EmbeddingInput{Text: "hello"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, []float64{0.1, -0.2}, resp.Data[0].Embedding)
}
