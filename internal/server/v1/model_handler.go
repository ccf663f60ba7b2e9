package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/bifrost/internal/gateway"
)

type ModelHandler struct {
	service gateway.Service
}

func NewModelHandler(service gateway.Service) *ModelHandler {
	return &ModelHandler{service: service}
}

// ListModels returns the catalog visible to the request's credential. A
// request with no virtual key (or an invalid one, under the open policy)
// sees everything.
func (h *ModelHandler) ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.ListModels(c.Request.Context()))
}
