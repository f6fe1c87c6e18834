// Package router serves the operational HTTP surface: health and metrics.
// Business traffic never arrives over HTTP; it lives on the bus.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"message-processor/pkg/config"
	"message-processor/pkg/health"
)

// Router wraps the gin engine for the admin endpoints
type Router struct {
	Engine  *gin.Engine
	checker *health.Checker
}

// New creates the admin router
func New(checker *health.Checker) *Router {
	cfg := config.Get()
	if cfg.Server.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Router{
		Engine:  engine,
		checker: checker,
	}
}

// SetupRoutes registers the admin endpoints
func (r *Router) SetupRoutes() {
	r.Engine.GET("/health", gin.WrapF(r.checker.HTTPHandler()))
	r.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
