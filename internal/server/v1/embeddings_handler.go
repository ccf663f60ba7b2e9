package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/bifrost/internal/gateway"
	"github.com/nulzo/bifrost/internal/server/validator"
	"github.com/nulzo/bifrost/pkg/api"
)

type EmbeddingsHandler struct {
	service gateway.Service
}

func NewEmbeddingsHandler(service gateway.Service) *EmbeddingsHandler {
	return &EmbeddingsHandler{service: service}
}

func (h *EmbeddingsHandler) CreateEmbeddings(c *gin.Context) {
	var req api.EmbeddingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationError(validator.ParseError(err)))
		return
	}

	if req.Input.IsEmpty() {
		_ = c.Error(api.ValidationError(map[string]string{
			"input": "input must not be empty",
		}))
		return
	}

	resp, err := h.service.Embed(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
