package openai

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
	"github.com/nulzo/bifrost/pkg/api"
)

func init() {
	llm.Register("openai", NewAdapter)
}

type Adapter struct {
	config config.ProviderConfig
	client *http.Client
}

func NewAdapter(config config.ProviderConfig) (llm.Provider, error) {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}
	return &Adapter{
		config: config,
		client: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

func (a *Adapter) Name() string {
	return a.config.Name
}

func (a *Adapter) Type() string {
	return "openai"
}

func (a *Adapter) headers() map[string]string {
	headers := map[string]string{
		"Authorization": "Bearer " + a.config.APIKey,
	}
	if org, ok := a.config.Config["organization"]; ok {
		headers["OpenAI-Organization"] = org
	}
	return headers
}

// upstreamErrorResponse mirrors the standard OpenAI error shape
type upstreamErrorResponse struct {
	Error struct {
		Message string      `json:"message"`
		Type    string      `json:"type"`
		Param   interface{} `json:"param"`
		Code    interface{} `json:"code"`
	} `json:"error"`
}

func (a *Adapter) handleUpstreamError(err error) error {
	var upstreamErr *httpclient.UpstreamError
	if !errors.As(err, &upstreamErr) {
		return err
	}

	// parse the upstream error envelope
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
		api.WithExtension("upstream_code", apiErr.Error.Code),
		api.WithExtension("upstream_type", apiErr.Error.Type),
		api.WithExtension("upstream_param", apiErr.Error.Param),
		api.WithLog(err),
	)
}

func (a *Adapter) Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
	var resp api.ChatResponse
	url := fmt.Sprintf("%s/chat/completions", strings.TrimRight(a.config.BaseURL, "/"))

	// ensure stream is false for this method
	req.Stream = false

	if err := httpclient.SendRequest(ctx, a.client, "POST", url, a.headers(), req, &resp); err != nil {
		return nil, a.handleUpstreamError(err)
	}

	return &resp, nil
}

func (a *Adapter) Stream(ctx context.Context, req *api.ChatRequest) (<-chan api.StreamResult, error) {
	ch := make(chan api.StreamResult)

	req.Stream = true
	req.StreamOptions = &api.StreamOptions{IncludeUsage: true}
	url := fmt.Sprintf("%s/chat/completions", strings.TrimRight(a.config.BaseURL, "/"))
	headers := a.headers()

	go func() {
		defer close(ch)

		err := httpclient.StreamRequest(ctx, a.client, "POST", url, headers, req, func(line string) error {
			// SSE format: data: {...}
			if !strings.HasPrefix(line, "data: ") {
				return nil
			}

			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				return httpclient.ErrStopStream
			}

			var chatResp api.ChatResponse
			if err := json.Unmarshal([]byte(data), &chatResp); err != nil {
				// skip malformed keep-alive lines
				return nil
			}

			select {
			case ch <- api.StreamResult{Response: &chatResp}:
			case <-ctx.Done():
				return ctx.Err()
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

func (a *Adapter) Embed(ctx context.Context, req *api.EmbeddingRequest) (*api.EmbeddingResponse, error) {
	var resp api.EmbeddingResponse
	url := fmt.Sprintf("%s/embeddings", strings.TrimRight(a.config.BaseURL, "/"))

	if err := httpclient.SendRequest(ctx, a.client, "POST", url, a.headers(), req, &resp); err != nil {
		return nil, a.handleUpstreamError(err)
	}

	return &resp, nil
}

func (a *Adapter) Models(ctx context.Context) ([]api.ModelDefinition, error) {
	// static configuration is the source of truth; the upstream /models
	// endpoint carries no capability or pricing detail worth discovering
	return a.config.Models, nil
}
