// Package gateway routes OpenAI-shaped requests to the upstream provider
// named by the model prefix, enforcing virtual-key model visibility along
// the way.
package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/nulzo/bifrost/internal/analytics"
	"github.com/nulzo/bifrost/internal/auth"
	"github.com/nulzo/bifrost/internal/catalog"
	"github.com/nulzo/bifrost/internal/llm"
	"github.com/nulzo/bifrost/internal/platform/logger"
	"github.com/nulzo/bifrost/internal/registry"
	"github.com/nulzo/bifrost/internal/store/model"
	"github.com/nulzo/bifrost/pkg/api"
	"go.uber.org/zap"
)

// Service is the inference routing surface exposed to the HTTP handlers.
// Every method reads the resolved auth outcome from the context.
type Service interface {
	ListModels(ctx context.Context) api.ModelList
	Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error)
	StreamChat(ctx context.Context, req *api.ChatRequest) (<-chan api.StreamResult, error)
	Embed(ctx context.Context, req *api.EmbeddingRequest) (*api.EmbeddingResponse, error)
}

// providerEntry pairs a connected adapter with its model definitions, keyed
// by public model name for upstream-id mapping.
type providerEntry struct {
	adapter llm.Provider
	models  map[string]api.ModelDefinition
}

type service struct {
	registry  *registry.Registry
	providers map[string]providerEntry
	ingestor  *analytics.Ingestor
}

func NewService(reg *registry.Registry, providers map[string]providerEntry, ingestor *analytics.Ingestor) Service {
	return &service{
		registry:  reg,
		providers: providers,
		ingestor:  ingestor,
	}
}

func (s *service) ListModels(ctx context.Context) api.ModelList {
	outcome := auth.OutcomeFrom(ctx)
	models := catalog.Filter(s.registry.ListAllModels(), outcome)
	return api.ModelList{Object: "list", Data: models}
}

// resolveModel validates the public `provider/model` id against the catalog
// and the caller's visibility, returning the adapter and the upstream model
// id to put on the wire.
func (s *service) resolveModel(ctx context.Context, modelID string) (providerEntry, string, error) {
	if _, ok := s.registry.Lookup(modelID); !ok {
		return providerEntry{}, "", api.NotFoundError(
			fmt.Sprintf("model '%s' not found", modelID),
			api.WithExtension("model", modelID),
		)
	}

	outcome := auth.OutcomeFrom(ctx)
	if !catalog.Allows(outcome, modelID) {
		return providerEntry{}, "", api.ModelNotAllowedError(modelID)
	}

	providerName, modelName, _ := strings.Cut(modelID, "/")
	entry, ok := s.providers[providerName]
	if !ok {
		// registry and provider table are loaded from the same config, so
		// this indicates a bootstrap bug rather than client error
		return providerEntry{}, "", api.InternalError(
			fmt.Sprintf("provider '%s' not connected", providerName), nil,
		)
	}

	upstreamID := modelName
	if def, ok := entry.models[modelName]; ok && def.UpstreamID != "" {
		upstreamID = def.UpstreamID
	}
	return entry, upstreamID, nil
}

func (s *service) Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
	publicModel := req.Model
	entry, upstreamID, err := s.resolveModel(ctx, publicModel)
	if err != nil {
		return nil, err
	}

	upstreamReq := *req
	upstreamReq.Model = upstreamID

	start := time.Now()
	resp, err := entry.adapter.Chat(ctx, &upstreamReq)
	latency := time.Since(start)

	if err != nil {
		s.record(ctx, entry, publicModel, "chat", latency, nil, "", false, statusOf(err))
		return nil, err
	}

	resp.Model = publicModel

	finish := ""
	if len(resp.Choices) > 0 {
		finish = resp.Choices[0].FinishReason
	}
	s.record(ctx, entry, publicModel, "chat", latency, resp.Usage, finish, false, 200)
	return resp, nil
}

func (s *service) StreamChat(ctx context.Context, req *api.ChatRequest) (<-chan api.StreamResult, error) {
	publicModel := req.Model
	entry, upstreamID, err := s.resolveModel(ctx, publicModel)
	if err != nil {
		return nil, err
	}

	upstreamReq := *req
	upstreamReq.Model = upstreamID

	start := time.Now()
	upstream, err := entry.adapter.Stream(ctx, &upstreamReq)
	if err != nil {
		s.record(ctx, entry, publicModel, "chat", time.Since(start), nil, "", true, statusOf(err))
		return nil, err
	}

	out := make(chan api.StreamResult)
	go func() {
		defer close(out)

		var (
			ttft    time.Duration
			usage   api.ResponseUsage
			finish  string
			status  = 200
			gotAny  bool
			gotTTFT bool
		)

		for result := range upstream {
			if result.Response != nil {
				if !gotTTFT {
					ttft = time.Since(start)
					gotTTFT = true
				}
				gotAny = true
				result.Response.Model = publicModel
				if u := result.Response.Usage; u != nil {
					if u.PromptTokens > 0 {
						usage.PromptTokens = u.PromptTokens
					}
					if u.CompletionTokens > 0 {
						usage.CompletionTokens = u.CompletionTokens
					}
				}
				for _, c := range result.Response.Choices {
					if c.FinishReason != "" {
						finish = c.FinishReason
					}
				}
			}
			if result.Err != nil {
				status = statusOf(result.Err)
			}

			select {
			case out <- result:
			case <-ctx.Done():
				return
			}
		}

		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
		log := s.buildLog(ctx, entry, publicModel, "chat", time.Since(start), &usage, finish, true, status)
		if gotTTFT {
			log.TTFTMS = sql.NullInt64{Int64: ttft.Milliseconds(), Valid: true}
		}
		if gotAny || status != 200 {
			s.ingestor.Record(log)
		}
	}()

	return out, nil
}

func (s *service) Embed(ctx context.Context, req *api.EmbeddingRequest) (*api.EmbeddingResponse, error) {
	publicModel := req.Model
	entry, upstreamID, err := s.resolveModel(ctx, publicModel)
	if err != nil {
		return nil, err
	}

	_, modelName, _ := strings.Cut(publicModel, "/")
	if def, ok := entry.models[modelName]; ok && !def.Embeddings {
		return nil, api.BadRequestError(
			fmt.Sprintf("model '%s' does not support embeddings", publicModel),
			api.WithExtension("model", publicModel),
		)
	}

	upstreamReq := *req
	upstreamReq.Model = upstreamID

	start := time.Now()
	resp, err := entry.adapter.Embed(ctx, &upstreamReq)
	latency := time.Since(start)

	if err != nil {
		s.record(ctx, entry, publicModel, "embeddings", latency, nil, "", false, statusOf(err))
		return nil, err
	}

	resp.Model = publicModel
	s.record(ctx, entry, publicModel, "embeddings", latency, resp.Usage, "", false, 200)
	return resp, nil
}

func (s *service) record(ctx context.Context, entry providerEntry, modelID, operation string, latency time.Duration, usage *api.ResponseUsage, finish string, streamed bool, status int) {
	s.ingestor.Record(s.buildLog(ctx, entry, modelID, operation, latency, usage, finish, streamed, status))
}

func (s *service) buildLog(ctx context.Context, entry providerEntry, modelID, operation string, latency time.Duration, usage *api.ResponseUsage, finish string, streamed bool, status int) *model.RequestLog {
	log := &model.RequestLog{
		Provider:     entry.adapter.Name(),
		ModelID:      modelID,
		Operation:    operation,
		FinishReason: finish,
		LatencyMS:    latency.Milliseconds(),
		StatusCode:   status,
		IsStreamed:   streamed,
	}
	if usage != nil {
		log.InputTokens = usage.PromptTokens
		log.OutputTokens = usage.CompletionTokens
	}
	if outcome := auth.OutcomeFrom(ctx); outcome.Key != nil {
		log.VirtualKeyID = outcome.Key.ID
	}
	return log
}

func statusOf(err error) int {
	if problem, ok := err.(*api.Problem); ok && problem.Status > 0 {
		return problem.Status
	}
	logger.Debug("non-problem upstream error", zap.Error(err))
	return 502
}
