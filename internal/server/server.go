package server

import (
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/nulzo/bifrost/internal/auth"
	"github.com/nulzo/bifrost/internal/config"
	"github.com/nulzo/bifrost/internal/gateway"
	"github.com/nulzo/bifrost/internal/server/validator"
	"github.com/nulzo/bifrost/internal/store"
	"go.uber.org/zap"
)

type Server struct {
	router   *gin.Engine
	config   *config.Config
	logger   *zap.Logger
	service  gateway.Service
	repo     store.Repository
	resolver *auth.Resolver
}

func New(cfg *config.Config, logger *zap.Logger, service gateway.Service, repo store.Repository) *Server {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	validator.Init()

	engine := gin.New()
	engine.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	engine.Use(ginzap.RecoveryWithZap(logger, true))

	s := &Server{
		router:   engine,
		config:   cfg,
		logger:   logger,
		service:  service,
		repo:     repo,
		resolver: auth.NewResolver(repo),
	}

	s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}
