package llm

import (
	"context"

	"github.com/nulzo/bifrost/pkg/api"
)

// Provider is a connected upstream vendor. Name doubles as the public model
// prefix (`<name>/<model>`); Type selects the wire adapter.
type Provider interface {
	Name() string
	Type() string // e.g., "openai", "anthropic"
	Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error)
	Stream(ctx context.Context, req *api.ChatRequest) (<-chan api.StreamResult, error)
	Embed(ctx context.Context, req *api.EmbeddingRequest) (*api.EmbeddingResponse, error)
	Models(ctx context.Context) ([]api.ModelDefinition, error)
}
