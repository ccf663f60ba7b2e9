package api_test

import (
	"encoding/json"
	"testing"

	"github.com/nulzo/bifrost/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentUnmarshalString(t *testing.T) {
	var msg api.ChatMessage
	require.NoError(t, json.Unmarshal([]byte(`{"role": "user", "content": "hello"}`), &msg))
	assert.Equal(t, "hello", msg.Content.Text)
	assert.Nil(t, msg.Content.Parts)
}

func TestContentUnmarshalParts(t *testing.T) {
	payload := `{"role": "user", "content": [
		{"type": "text", "text": "what is this?"},
		{"type": "image_url", "image_url": {"url": "https://example.com/cat.png"}}
	]}`

	var msg api.ChatMessage
	require.NoError(t, json.Unmarshal([]byte(payload), &msg))
	require.Len(t, msg.Content.Parts, 2)
	assert.Equal(t, "text", msg.Content.Parts[0].Type)
	assert.Equal(t, "what is this?", msg.Content.Parts[0].Text)
	require.NotNil(t, msg.Content.Parts[1].ImageURL)
	assert.Equal(t, "https://example.com/cat.png", msg.Content.Parts[1].ImageURL.URL)
}

func TestContentMarshalRoundTrip(t *testing.T) {
	c := api.Content{Text: "plain"}
	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Equal(t, `"plain"`, string(data))

	c = api.Content{Parts: []api.ContentPart{{Type: "text", Text: "p"}}}
	data, err = json.Marshal(c)
	require.NoError(t, err)
	assert.True(t, data[0] == '[')
}

func TestStopUnion(t *testing.T) {
	var req api.ChatRequest
	require.NoError(t, json.Unmarshal([]byte(`{"model": "m", "messages": [], "stop": "END"}`), &req))
	require.NotNil(t, req.Stop)
	assert.Equal(t, []string{"END"}, req.Stop.Val)

	require.NoError(t, json.Unmarshal([]byte(`{"model": "m", "messages": [], "stop": ["a", "b"]}`), &req))
	assert.Equal(t, []string{"a", "b"}, req.Stop.Val)
}

func TestToolCallsParse(t *testing.T) {
	payload := `{"role": "assistant", "content": null, "tool_calls": [{
		"id": "call_1",
		"type": "function",
		"function": {"name": "get_weather", "arguments": "{\"city\": \"Oslo\"}"}
	}]}`

	var msg api.ChatMessage
	require.NoError(t, json.Unmarshal([]byte(payload), &msg))
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "call_1", msg.ToolCalls[0].ID)
	assert.Equal(t, "get_weather", msg.ToolCalls[0].Function.Name)
	assert.JSONEq(t, `{"city": "Oslo"}`, msg.ToolCalls[0].Function.Arguments)
}

func TestEmbeddingInputUnion(t *testing.T) {
	cases := []struct {
		payload string
		check   func(t *testing.T, in *api.EmbeddingInput)
	}{
		{`"single"`, func(t *testing.T, in *api.EmbeddingInput) {
			assert.Equal(t, "single", in.Text)
		}},
		{`["a", "b"]`, func(t *testing.T, in *api.EmbeddingInput) {
			assert.Equal(t, []string{"a", "b"}, in.Texts)
		}},
		{`[1, 2, 3]`, func(t *testing.T, in *api.EmbeddingInput) {
			assert.Equal(t, []int{1, 2, 3}, in.Tokens)
		}},
		{`[[1, 2], [3]]`, func(t *testing.T, in *api.EmbeddingInput) {
			assert.Equal(t, [][]int{{1, 2}, {3}}, in.TokensList)
		}},
	}

	for _, tc := range cases {
		var in api.EmbeddingInput
		require.NoError(t, json.Unmarshal([]byte(tc.payload), &in), tc.payload)
		tc.check(t, &in)
		assert.False(t, in.IsEmpty())
	}

	var empty api.EmbeddingInput
	require.NoError(t, json.Unmarshal([]byte(`""`), &empty))
	assert.True(t, empty.IsEmpty())
}

func TestProblemJSONMergesExtensions(t *testing.T) {
	p := api.NewError(403, "Model Not Allowed", "nope",
		api.WithExtension("model", "openai/gpt-4"),
		api.WithType("https://example.com/errors/model-not-allowed"),
	)

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(403), decoded["status"])
	assert.Equal(t, "Model Not Allowed", decoded["title"])
	assert.Equal(t, "openai/gpt-4", decoded["model"])
	assert.Equal(t, "https://example.com/errors/model-not-allowed", decoded["type"])
}

func TestUpstreamErrorStatusClamp(t *testing.T) {
	assert.Equal(t, 429, api.UpstreamError(429, "rate limited").Status)
	assert.Equal(t, 502, api.UpstreamError(0, "no status").Status)
	assert.Equal(t, 502, api.UpstreamError(200, "weird 200 error").Status)
}
