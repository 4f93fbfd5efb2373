package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status       string `json:"status"`
	Postgres     string `json:"postgres"`
	SessionStore string `json:"sessionStore"`
	Environment  string `json:"environment"`
}

// Health reports liveness of the two stores the service cannot answer
// without: Postgres for grants and redis for sessions. Degraded stores are
// reported but the endpoint itself stays 200 for the load balancer.
func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:       "ok",
		Postgres:     "ok",
		SessionStore: "ok",
		Environment:  h.cfg.Environment,
	}

	if err := h.db.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Postgres = "error"
		h.log.Error().Err(err).Msg("postgres ping failed")
	}
	if err := h.cache.Ping(ctx).Err(); err != nil {
		resp.Status = "degraded"
		resp.SessionStore = "error"
		h.log.Error().Err(err).Msg("session store ping failed")
	}

	c.JSON(http.StatusOK, resp)
}
