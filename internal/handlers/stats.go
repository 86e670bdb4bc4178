package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tmirror/todoist-notion-sync/internal/store"
)

// RegisterStatsRoutes registers observability endpoints over the audit log.
//
// GET /stats?from=...&to=...      outcome counts for the window [from,to)
// GET /audit?identity=...&limit=  processing history for one source id
func RegisterStatsRoutes(r gin.IRoutes, st *store.PostgresStore) {
	r.GET("/stats", func(c *gin.Context) {
		fromStr := c.Query("from")
		toStr := c.Query("to")
		if fromStr == "" || toStr == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from, to are required"})
			return
		}

		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
			return
		}
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
			return
		}

		from = from.UTC()
		to = to.UTC()
		if !from.Before(to) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be < to"})
			return
		}

		counts, err := st.StatusCounts(c.Request.Context(), from, to)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db query failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"outcomes": counts})
	})

	r.GET("/audit", func(c *gin.Context) {
		identity := c.Query("identity")
		if identity == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "identity is required"})
			return
		}
		limit, _ := strconv.Atoi(c.Query("limit"))

		entries, err := st.History(c.Request.Context(), identity, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db query failed"})
			return
		}

		out := make([]gin.H, 0, len(entries))
		for _, e := range entries {
			out = append(out, gin.H{
				"processing_id": e.ProcessingID,
				"event_name":    e.EventName,
				"action":        e.Action,
				"status":        e.Status,
				"detail":        e.Detail,
				"occurred_at":   e.OccurredAt.UTC().Format(time.RFC3339),
			})
		}
		c.JSON(http.StatusOK, gin.H{"identity": identity, "entries": out})
	})
}
