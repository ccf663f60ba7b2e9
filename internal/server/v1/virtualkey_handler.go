package v1

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nulzo/bifrost/internal/server/validator"
	"github.com/nulzo/bifrost/internal/store"
	"github.com/nulzo/bifrost/internal/store/model"
	"github.com/nulzo/bifrost/pkg/api"
)

// VirtualKeyHandler implements the governance CRUD surface for virtual keys.
type VirtualKeyHandler struct {
	repo store.Repository
}

func NewVirtualKeyHandler(repo store.Repository) *VirtualKeyHandler {
	return &VirtualKeyHandler{repo: repo}
}

func (h *VirtualKeyHandler) Create(c *gin.Context) {
	var req api.CreateVirtualKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationError(validator.ParseError(err)))
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	now := time.Now().UTC()
	vk := &model.VirtualKey{
		ID:              uuid.NewString(),
		Name:            req.Name,
		Value:           "bf-" + uuid.NewString(),
		IsActive:        isActive,
		ProviderConfigs: toStoredConfigs(req.ProviderConfigs),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := h.repo.VirtualKeys().Create(c.Request.Context(), vk); err != nil {
		_ = c.Error(api.InternalError("failed to create virtual key", err))
		return
	}

	c.JSON(http.StatusOK, api.VirtualKeyEnvelope{VirtualKey: vk.API()})
}

func (h *VirtualKeyHandler) Get(c *gin.Context) {
	id := c.Param("id")

	vk, err := h.repo.VirtualKeys().Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = c.Error(api.NotFoundError(fmt.Sprintf("virtual key '%s' not found", id)))
			return
		}
		_ = c.Error(api.InternalError("failed to load virtual key", err))
		return
	}

	c.JSON(http.StatusOK, api.VirtualKeyEnvelope{VirtualKey: vk.API()})
}

func (h *VirtualKeyHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var req api.UpdateVirtualKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationError(validator.ParseError(err)))
		return
	}

	patch := store.VirtualKeyPatch{
		Name:     req.Name,
		IsActive: req.IsActive,
	}
	if req.ProviderConfigs != nil {
		stored := toStoredConfigs(*req.ProviderConfigs)
		patch.ProviderConfigs = &stored
	}

	vk, err := h.repo.VirtualKeys().Update(c.Request.Context(), id, patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = c.Error(api.NotFoundError(fmt.Sprintf("virtual key '%s' not found", id)))
			return
		}
		_ = c.Error(api.InternalError("failed to update virtual key", err))
		return
	}

	c.JSON(http.StatusOK, api.VirtualKeyEnvelope{VirtualKey: vk.API()})
}

func toStoredConfigs(configs []api.ProviderConfig) []model.ProviderConfig {
	out := make([]model.ProviderConfig, 0, len(configs))
	for i, pc := range configs {
		out = append(out, model.ProviderConfig{
			Provider:      pc.Provider,
			AllowedModels: pc.AllowedModels,
			Weight:        pc.Weight,
			Position:      i,
		})
	}
	return out
}
