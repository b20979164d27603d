package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rkreddybogati/scalr/internal/api/middleware"
	"github.com/rkreddybogati/scalr/internal/behavior"
	"github.com/rkreddybogati/scalr/internal/config"
	"github.com/rkreddybogati/scalr/internal/domain/server"
	"github.com/rkreddybogati/scalr/internal/event"
	"github.com/rkreddybogati/scalr/internal/usecase/launch"
)

type Router struct {
	engine       *gin.Engine
	server       *http.Server
	cfg          *config.Config
	orchestrator *launch.Orchestrator
	servers      server.Repository
	behaviors    *behavior.Dispatcher
	events       *event.Service
	logger       *zap.Logger
}

func NewRouter(
	cfg *config.Config,
	orchestrator *launch.Orchestrator,
	servers server.Repository,
	behaviors *behavior.Dispatcher,
	events *event.Service,
	logger *zap.Logger,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics())
	r.Use(middleware.Logger(logger))

	api := &Router{
		engine:       r,
		cfg:          cfg,
		orchestrator: orchestrator,
		servers:      servers,
		behaviors:    behaviors,
		events:       events,
		logger:       logger,
	}

	api.RegisterRoutes()
	return api
}

func (r *Router) RegisterRoutes() {
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.engine.Group("/v1")
	{
		v1.POST("/servers/launch", r.LaunchServer)
		v1.GET("/servers/:serverID", r.GetServer)

		// Inbound agent protocol messages.
		v1.POST("/messages/:serverID", r.HandleAgentMessage)
	}
}

func (r *Router) Run() error {
	r.server = &http.Server{
		Addr:         ":" + r.cfg.Port,
		Handler:      r.engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return r.server.ListenAndServe()
}

func (r *Router) Shutdown(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	return r.server.Shutdown(ctx)
}
