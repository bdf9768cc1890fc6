package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/vspace/internal/adapters/signal"
	"github.com/dkeye/vspace/internal/config"
)

// SetupRouter serves the signalling websocket, the conference listing,
// health and metrics. Debug mode also mints tokens for local testing.
func SetupRouter(ctx context.Context, cfg *config.ServerConfig, ctrl *signal.SignalWSController, gatherer prometheus.Gatherer) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api")

	api.GET("/ws/conference", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("remote", c.ClientIP()).Msg("ws conference endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	api.GET("/conferences", func(c *gin.Context) {
		c.JSON(http.StatusOK, ctrl.Orch.Conferences.List())
	})

	if cfg.Mode == "debug" {
		api.POST("/token", func(c *gin.Context) {
			name := c.Query("name")
			if name == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
				return
			}
			token, err := ctrl.Auth.Generate(name, name)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"token": token})
		})
	}

	return r
}
