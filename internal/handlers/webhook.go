package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tmirror/todoist-notion-sync/internal/models"
	"github.com/tmirror/todoist-notion-sync/internal/signature"
	"github.com/tmirror/todoist-notion-sync/internal/sync"
)

// maxBodyBytes caps webhook payload size. Todoist events are small; a
// larger body is not one of ours.
const maxBodyBytes = 1 << 20

// RegisterWebhookRoutes registers the Todoist webhook endpoint.
//
// GET  /webhooks/todoist?verification_token=...  endpoint-ownership handshake
// POST /webhooks/todoist                         signed event delivery
//
// The handler reads the raw body itself: signature verification runs over
// the exact bytes received, so nothing may parse or re-serialize the
// request first.
func RegisterWebhookRoutes(r gin.IRoutes, engine *sync.Orchestrator, eventTimeout time.Duration) {
	// One-time handshake: Todoist proves endpoint ownership by expecting
	// its token echoed back verbatim. No signature is involved; this path
	// must never be confused with payload verification.
	r.GET("/webhooks/todoist", func(c *gin.Context) {
		token := c.Query("verification_token")
		if token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "verification_token required"})
			return
		}
		c.String(http.StatusOK, token)
	})

	r.POST("/webhooks/todoist", func(c *gin.Context) {
		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable request body"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), eventTimeout)
		defer cancel()

		out := engine.Process(ctx, body, c.GetHeader(signature.Header))

		switch out.Status {
		case sync.StatusApplied, sync.StatusIgnored:
			c.JSON(http.StatusOK, gin.H{
				"status":        "ok",
				"action":        string(out.Action),
				"processing_id": out.ProcessingID,
			})
		case sync.StatusRejected:
			if errors.Is(out.Err, models.ErrMalformed) {
				c.JSON(http.StatusBadRequest, gin.H{"error": out.Err.Error()})
				return
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		case sync.StatusFailed:
			// Integrity faults are ours; everything else is the sink's,
			// and a 5xx tells Todoist to redeliver.
			status := http.StatusBadGateway
			if sync.IsConsistencyViolation(out.Err) {
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{
				"error":         out.Err.Error(),
				"processing_id": out.ProcessingID,
			})
		}
	})
}
