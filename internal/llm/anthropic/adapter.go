package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nulzo/bifrost/internal/config"
	"github.com/nulzo/bifrost/internal/httpclient"
	"github.com/nulzo/bifrost/internal/llm"
	"github.com/nulzo/bifrost/internal/llm/processing"
	"github.com/nulzo/bifrost/pkg/api"
)

func init() {
	llm.Register("anthropic", NewAdapter)
}

const defaultVersion = "2023-06-01"

type Adapter struct {
	config config.ProviderConfig
	client *http.Client
}

func NewAdapter(config config.ProviderConfig) (llm.Provider, error) {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.anthropic.com/v1"
	}
	return &Adapter{
		config: config,
		client: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

func (a *Adapter) Name() string { return a.config.Name }
func (a *Adapter) Type() string { return "anthropic" }

type Message struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string or []Content
}

type Request struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	System    string    `json:"system,omitempty"`
	MaxTokens int       `json:"max_tokens"`
	Tools     []Tool    `json:"tools,omitempty"`
	Stream    bool      `json:"stream,omitempty"`
}

type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

type Response struct {
	ID         string    `json:"id"`
	Content    []Content `json:"content"`
	Model      string    `json:"model"`
	StopReason string    `json:"stop_reason"`
	Usage      Usage     `json:"usage"`
}

type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`

	// image blocks
	Source *ImageSource `json:"source,omitempty"`

	// tool_use blocks
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result blocks
	ToolUseID string `json:"tool_use_id,omitempty"`
}

type ImageSource struct {
	Type      string `json:"type"`       // "base64"
	MediaType string `json:"media_type"` // "image/jpeg"
	Data      string `json:"data"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type StreamEvent struct {
	Type         string   `json:"type"`
	Delta        *Delta   `json:"delta,omitempty"`
	ContentBlock *Content `json:"content_block,omitempty"` // content_block_start
	Index        int      `json:"index,omitempty"`
	Usage        *Usage   `json:"usage,omitempty"`
	Message      *struct {
		ID    string `json:"id"`
		Usage Usage  `json:"usage"`
	} `json:"message,omitempty"` // message_start
}

type Delta struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	StopReason  string `json:"stop_reason,omitempty"`
}

// Convert unified -> Anthropic
func toAnthropicReq(req *api.ChatRequest) Request {
	ar := Request{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		Stream:    req.Stream,
	}
	if ar.MaxTokens == 0 {
		ar.MaxTokens = 4096
	}

	for _, t := range req.Tools {
		ar.Tools = append(ar.Tools, Tool{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			InputSchema: t.Function.Parameters,
		})
	}

	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			ar.System += m.Content.Text + "\n"
		case "tool":
			// OpenAI tool replies become user-role tool_result blocks
			ar.Messages = append(ar.Messages, Message{
				Role: "user",
				Content: []Content{{
					Type:      "tool_result",
					ToolUseID: m.ToolCallID,
					Text:      m.Content.Text,
				}},
			})
		case "assistant":
			var parts []Content
			if m.Content.Text != "" {
				parts = append(parts, Content{Type: "text", Text: m.Content.Text})
			}
			for _, tc := range m.ToolCalls {
				input := json.RawMessage(tc.Function.Arguments)
				if len(input) == 0 {
					input = json.RawMessage("{}")
				}
				parts = append(parts, Content{
					Type:  "tool_use",
					ID:    tc.ID,
					Name:  tc.Function.Name,
					Input: input,
				})
			}
			if len(parts) > 0 {
				ar.Messages = append(ar.Messages, Message{Role: "assistant", Content: parts})
			}
		default:
			parts := convertUserContent(m.Content)
			if len(parts) > 0 {
				ar.Messages = append(ar.Messages, Message{Role: "user", Content: parts})
			}
		}
	}
	return ar
}

func convertUserContent(c api.Content) []Content {
	var parts []Content

	if c.Text != "" && len(c.Parts) == 0 {
		return []Content{{Type: "text", Text: c.Text}}
	}

	for _, part := range c.Parts {
		switch {
		case part.Type == "text":
			parts = append(parts, Content{Type: "text", Text: part.Text})
		case part.Type == "image_url" && part.ImageURL != nil:
			// remote URLs and data URIs both become inline base64
			imgData, err := processing.ProcessImageURL(part.ImageURL.URL)
			if err != nil {
				continue
			}
			parts = append(parts, Content{
				Type: "image",
				Source: &ImageSource{
					Type:      "base64",
					MediaType: imgData.MediaType,
					Data:      imgData.Data,
				},
			})
		}
	}
	return parts
}

func mapStopReason(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	case "tool_use":
		return "tool_calls"
	default:
		return reason
	}
}

func (a *Adapter) headers() map[string]string {
	headers := map[string]string{
		"x-api-key":         a.config.APIKey,
		"anthropic-version": defaultVersion,
	}
	if v, ok := a.config.Config["version"]; ok {
		headers["anthropic-version"] = v
	}
	return headers
}

type upstreamErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *Adapter) handleUpstreamError(err error) error {
	var upstreamErr *httpclient.UpstreamError
	if !errors.As(err, &upstreamErr) {
		return err
	}

	var apiErr upstreamErrorResponse
	if jsonErr := json.Unmarshal(upstreamErr.Body, &apiErr); jsonErr != nil || apiErr.Error.Message == "" {
		return api.UpstreamError(
			upstreamErr.StatusCode,
			string(upstreamErr.Body),
			api.WithExtension("provider", a.Name()),
			api.WithLog(err),
		)
	}

	return api.UpstreamError(
		upstreamErr.StatusCode,
		apiErr.Error.Message,
		api.WithExtension("provider", a.Name()),
		api.WithExtension("upstream_type", apiErr.Error.Type),
		api.WithLog(err),
	)
}

func (a *Adapter) Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
	ar := toAnthropicReq(req)
	ar.Stream = false

	var anthroResp Response
	url := fmt.Sprintf("%s/messages", strings.TrimRight(a.config.BaseURL, "/"))
	if err := httpclient.SendRequest(ctx, a.client, "POST", url, a.headers(), ar, &anthroResp); err != nil {
		return nil, a.handleUpstreamError(err)
	}

	// Convert Anthropic -> unified
	msg := &api.ChatMessage{Role: "assistant"}
	for _, c := range anthroResp.Content {
		switch c.Type {
		case "text":
			msg.Content.Text += c.Text
		case "tool_use":
			args := string(c.Input)
			if args == "" {
				args = "{}"
			}
			msg.ToolCalls = append(msg.ToolCalls, api.ToolCall{
				ID:   c.ID,
				Type: "function",
				Function: api.FunctionCall{
					Name:      c.Name,
					Arguments: args,
				},
			})
		}
	}

	return &api.ChatResponse{
		ID:      anthroResp.ID,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   anthroResp.Model,
		Choices: []api.Choice{{
			Index:              0,
			Message:            msg,
			FinishReason:       mapStopReason(anthroResp.StopReason),
			NativeFinishReason: anthroResp.StopReason,
		}},
		Usage: &api.ResponseUsage{
			PromptTokens:     anthroResp.Usage.InputTokens,
			CompletionTokens: anthroResp.Usage.OutputTokens,
			TotalTokens:      anthroResp.Usage.InputTokens + anthroResp.Usage.OutputTokens,
		},
	}, nil
}

func (a *Adapter) Stream(ctx context.Context, req *api.ChatRequest) (<-chan api.StreamResult, error) {
	ch := make(chan api.StreamResult)
	ar := toAnthropicReq(req)
	ar.Stream = true

	url := fmt.Sprintf("%s/messages", strings.TrimRight(a.config.BaseURL, "/"))
	headers := a.headers()

	go func() {
		defer close(ch)

		var messageID string
		// content block index -> running tool call slot for this stream
		toolSlots := make(map[int]int)
		nextSlot := 0

		emit := func(resp *api.ChatResponse) error {
			resp.ID = messageID
			resp.Object = "chat.completion.chunk"
			select {
			case ch <- api.StreamResult{Response: resp}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := httpclient.StreamRequest(ctx, a.client, "POST", url, headers, ar, func(line string) error {
			if !strings.HasPrefix(line, "data: ") {
				return nil
			}
			data := strings.TrimPrefix(line, "data: ")

			var event StreamEvent
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				return nil
			}

			switch event.Type {
			case "message_start":
				if event.Message != nil {
					messageID = event.Message.ID
					return emit(&api.ChatResponse{
						Usage: &api.ResponseUsage{PromptTokens: event.Message.Usage.InputTokens},
					})
				}
			case "content_block_start":
				if event.ContentBlock != nil && event.ContentBlock.Type == "tool_use" {
					slot := nextSlot
					nextSlot++
					toolSlots[event.Index] = slot
					return emit(&api.ChatResponse{
						Choices: []api.Choice{{
							Delta: &api.ChatMessage{
								ToolCalls: []api.ToolCall{{
									Index: intPtr(slot),
									ID:    event.ContentBlock.ID,
									Type:  "function",
									Function: api.FunctionCall{
										Name: event.ContentBlock.Name,
									},
								}},
							},
						}},
					})
				}
			case "content_block_delta":
				if event.Delta == nil {
					return nil
				}
				switch event.Delta.Type {
				case "text_delta":
					return emit(&api.ChatResponse{
						Choices: []api.Choice{{
							Delta: &api.ChatMessage{Content: api.Content{Text: event.Delta.Text}},
						}},
					})
				case "input_json_delta":
					slot, ok := toolSlots[event.Index]
					if !ok {
						return nil
					}
					return emit(&api.ChatResponse{
						Choices: []api.Choice{{
							Delta: &api.ChatMessage{
								ToolCalls: []api.ToolCall{{
									Index: intPtr(slot),
									Function: api.FunctionCall{
										Arguments: event.Delta.PartialJSON,
									},
								}},
							},
						}},
					})
				}
			case "message_delta":
				resp := &api.ChatResponse{}
				if event.Usage != nil {
					resp.Usage = &api.ResponseUsage{CompletionTokens: event.Usage.OutputTokens}
				}
				if event.Delta != nil && event.Delta.StopReason != "" {
					resp.Choices = []api.Choice{{
						Delta:              &api.ChatMessage{},
						FinishReason:       mapStopReason(event.Delta.StopReason),
						NativeFinishReason: event.Delta.StopReason,
					}}
				}
				if resp.Usage != nil || len(resp.Choices) > 0 {
					return emit(resp)
				}
			case "message_stop":
				return httpclient.ErrStopStream
			}
			return nil
		})

		if err != nil && !errors.Is(err, context.Canceled) {
			// the consumer may already be gone; never park on the send
			select {
			case ch <- api.StreamResult{Err: a.handleUpstreamError(err)}:
			case <-ctx.Done():
			}
		}
	}()

	return ch, nil
}

// Embed is unsupported upstream; the router surfaces this as a normalized
// client error rather than dispatching a doomed call.
func (a *Adapter) Embed(ctx context.Context, req *api.EmbeddingRequest) (*api.EmbeddingResponse, error) {
	return nil, api.BadRequestError(
		fmt.Sprintf("provider '%s' does not support embeddings", a.Name()),
		api.WithExtension("provider", a.Name()),
	)
}

func (a *Adapter) Models(ctx context.Context) ([]api.ModelDefinition, error) {
	return a.config.Models, nil
}

func intPtr(i int) *int { return &i }
