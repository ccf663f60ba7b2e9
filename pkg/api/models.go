package api

// Model is a single entry of the public model catalog. The ID is always in
// shape `<provider>/<model>`.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"` // "model"
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// Provider returns the `<provider>` half of the model ID, empty when the ID
// carries no prefix.
func (m Model) Provider() string {
	for i := 0; i < len(m.ID); i++ {
		if m.ID[i] == '/' {
			return m.ID[:i]
		}
	}
	return ""
}

// Name returns the `<model>` half of the model ID.
func (m Model) Name() string {
	for i := 0; i < len(m.ID); i++ {
		if m.ID[i] == '/' {
			return m.ID[i+1:]
		}
	}
	return m.ID
}

// ModelList is the `/v1/models` response envelope.
type ModelList struct {
	Object string  `json:"object"` // "list"
	Data   []Model `json:"data"`
}

// ModelDefinition is the static configuration for a model exposed by a
// provider entry in the gateway config.
type ModelDefinition struct {
	// Name as the upstream knows it (no provider prefix)
	Name string `mapstructure:"name" json:"name"`
	// UpstreamID overrides Name on the wire when set (aliasing)
	UpstreamID string `mapstructure:"upstream_id" json:"upstream_id,omitempty"`
	// Embeddings marks the model as an embedding model
	Embeddings bool `mapstructure:"embeddings" json:"embeddings,omitempty"`
}
