package api

import "time"

// HeaderVirtualKey is the inbound header carrying a virtual key credential.
const HeaderVirtualKey = "x-bf-vk"

// ProviderConfig scopes a virtual key to one upstream provider. An empty
// AllowedModels list means every model of that provider is visible; the
// absence of any config for a provider means none of its models are.
type ProviderConfig struct {
	Provider      string   `json:"provider" binding:"required"`
	AllowedModels []string `json:"allowed_models"`
	Weight        float64  `json:"weight,omitempty"`
}

// VirtualKey is the caller-facing credential record. Value is the secret
// presented in the x-bf-vk header.
type VirtualKey struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Value           string           `json:"value"`
	IsActive        bool             `json:"is_active"`
	ProviderConfigs []ProviderConfig `json:"provider_configs"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// CreateVirtualKeyRequest is the governance create payload. ProviderConfigs
// may be empty (unrestricted key); each entry must name its provider.
type CreateVirtualKeyRequest struct {
	Name            string           `json:"name" binding:"required"`
	IsActive        *bool            `json:"is_active,omitempty"`
	ProviderConfigs []ProviderConfig `json:"provider_configs" binding:"dive"`
}

// UpdateVirtualKeyRequest applies a partial update; nil fields are left
// untouched.
type UpdateVirtualKeyRequest struct {
	Name            *string           `json:"name,omitempty"`
	IsActive        *bool             `json:"is_active,omitempty"`
	ProviderConfigs *[]ProviderConfig `json:"provider_configs,omitempty" binding:"omitempty,dive"`
}

// VirtualKeyEnvelope wraps governance responses.
type VirtualKeyEnvelope struct {
	VirtualKey *VirtualKey `json:"virtual_key"`
}
