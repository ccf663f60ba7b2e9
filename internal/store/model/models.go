package model

import (
	"database/sql"
	"time"

	"github.com/nulzo/bifrost/pkg/api"
)

// VirtualKey is the stored credential record. Value is the secret presented
// in the x-bf-vk header; it is indexed uniquely for O(1) auth lookups.
type VirtualKey struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Value     string    `db:"value"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	// Loaded from virtual_key_provider_configs, ordered by position.
	ProviderConfigs []ProviderConfig `db:"-"`
}

// ProviderConfig scopes a virtual key to one provider. AllowedModels empty
// means every model of the provider; the row existing at all is what grants
// the provider.
type ProviderConfig struct {
	Provider      string
	AllowedModels []string
	Weight        float64
	Position      int
}

// API converts the stored record to its public JSON shape. AllowedModels is
// never nil on the wire: governance clients assert `allowed_models == []`.
func (vk *VirtualKey) API() *api.VirtualKey {
	configs := make([]api.ProviderConfig, 0, len(vk.ProviderConfigs))
	for _, pc := range vk.ProviderConfigs {
		allowed := pc.AllowedModels
		if allowed == nil {
			allowed = []string{}
		}
		configs = append(configs, api.ProviderConfig{
			Provider:      pc.Provider,
			AllowedModels: allowed,
			Weight:        pc.Weight,
		})
	}
	return &api.VirtualKey{
		ID:              vk.ID,
		Name:            vk.Name,
		Value:           vk.Value,
		IsActive:        vk.IsActive,
		ProviderConfigs: configs,
		CreatedAt:       vk.CreatedAt,
		UpdatedAt:       vk.UpdatedAt,
	}
}

// RequestLog captures the detail of a completed inference request.
type RequestLog struct {
	ID           string        `db:"id"`
	VirtualKeyID string        `db:"virtual_key_id"`
	Provider     string        `db:"provider"`
	ModelID      string        `db:"model_id"`
	Operation    string        `db:"operation"` // "chat", "embeddings"
	FinishReason string        `db:"finish_reason"`
	InputTokens  int           `db:"input_tokens"`
	OutputTokens int           `db:"output_tokens"`
	LatencyMS    int64         `db:"latency_ms"`
	TTFTMS       sql.NullInt64 `db:"ttft_ms"`
	StatusCode   int           `db:"status_code"`
	IsStreamed   bool          `db:"is_streamed"`
	CreatedAt    time.Time     `db:"created_at"`
}
