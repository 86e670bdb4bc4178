package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tmirror/todoist-notion-sync/internal/config"
	"github.com/tmirror/todoist-notion-sync/internal/handlers"
	"github.com/tmirror/todoist-notion-sync/internal/store"
	"github.com/tmirror/todoist-notion-sync/internal/sync"
)

// NewRouter wires public endpoints and the webhook surface.
// Public: /health, /ready
// Webhook: /webhooks/todoist (authenticated per-delivery via HMAC signature)
// Ops: /stats, /audit over the audit store
func NewRouter(cfg config.Config, engine *sync.Orchestrator, st *store.PostgresStore) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: confirms the audit store dependency is reachable.
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	handlers.RegisterWebhookRoutes(r, engine, cfg.EventTimeout)
	handlers.RegisterStatsRoutes(r, st)

	return r
}
