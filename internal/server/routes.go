package server

import (
	"github.com/nulzo/bifrost/internal/server/middleware"
	v1 "github.com/nulzo/bifrost/internal/server/v1"
)

func (s *Server) setupRoutes() {
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.ErrorHandler(s.logger))

	if s.config.Tracing.Enabled {
		s.router.Use(middleware.Tracing("bifrost"))
	}

	rl := middleware.NewRateLimiter(
		s.config.RateLimit.RequestsPerSecond,
		s.config.RateLimit.Burst,
		s.logger,
	)

	healthHandler := v1.NewHealthHandler()
	s.router.GET("/health", healthHandler.Health)

	// OpenAI-compatible inference surface. The virtual key header is
	// optional; its outcome shapes model visibility for the request.
	inference := s.router.Group("/v1")
	inference.Use(rl.Middleware())
	inference.Use(middleware.VirtualKeyAuth(s.resolver, s.config.Auth.RejectInvalidKeys))
	{
		chatHandler := v1.NewChatHandler(s.service)
		inference.POST("/chat/completions", chatHandler.CreateCompletion)

		embeddingsHandler := v1.NewEmbeddingsHandler(s.service)
		inference.POST("/embeddings", embeddingsHandler.CreateEmbeddings)

		modelHandler := v1.NewModelHandler(s.service)
		inference.GET("/models", modelHandler.ListModels)
	}

	// Governance management plane: virtual key CRUD.
	governance := s.router.Group("/api/v1/governance")
	governance.Use(rl.Middleware())
	{
		vkHandler := v1.NewVirtualKeyHandler(s.repo)
		governance.POST("/virtual-keys", vkHandler.Create)
		governance.GET("/virtual-keys/:id", vkHandler.Get)
		governance.PUT("/virtual-keys/:id", vkHandler.Update)
	}
}
