package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/overleaf/overleaf-sub002/internal/authz"
	"github.com/overleaf/overleaf-sub002/internal/middleware"
)

// ProjectAccess reports the actor's effective privilege on a project.
func (h HandlerSet) ProjectAccess(c *gin.Context) {
	actor := middleware.ActorFrom(c)

	details, err := h.accessService.Resolve(c.Request.Context(), actor, c.Param("projectId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"privilegeLevel":   details.PrivilegeLevel,
		"source":           details.Source,
		"isRestrictedUser": details.IsRestrictedUser,
	})
}

type joinRequest struct {
	AnonymousAccessToken string `json:"anonymousAccessToken"`
}

// JoinProject authorizes a live editing session for the real-time backend.
func (h HandlerSet) JoinProject(c *gin.Context) {
	var req joinRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	actor := middleware.ActorFrom(c)

	result, err := h.accessService.Join(
		c.Request.Context(),
		actor,
		c.Param("projectId"),
		authz.AnonymousAccessToken(req.AnonymousAccessToken),
	)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ProjectTokens reveals the sharing tokens the actor is entitled to see.
func (h HandlerSet) ProjectTokens(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	actor.AnonymousToken = authz.AnonymousAccessToken(c.Query("anonymousAccessToken"))

	view, err := h.tokenService.FetchForActor(c.Request.Context(), actor, c.Param("projectId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
