package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/overleaf/overleaf-sub002/internal/errs"
	"github.com/overleaf/overleaf-sub002/internal/middleware"
	"github.com/overleaf/overleaf-sub002/internal/models"
)

func tokenKindParam(c *gin.Context) (models.TokenKind, error) {
	switch c.Param("kind") {
	case "read":
		return models.TokenKindReadOnly, nil
	case "write":
		return models.TokenKindReadAndWrite, nil
	}
	return "", errs.ErrInvalid
}

// ViewTokenAccess handles the share-link page load. Viewing never grants
// standing access.
func (h HandlerSet) ViewTokenAccess(c *gin.Context) {
	kind, err := tokenKindParam(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	actor := middleware.ActorFrom(c)
	result, err := h.tokenService.View(c.Request.Context(), actor, kind, c.Param("token"))
	if err != nil {
		h.respondPageError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type grantRequest struct {
	ConfirmedByUser bool `json:"confirmedByUser"`
}

// GrantTokenAccess is the explicit accept step of the two-phase flow.
func (h HandlerSet) GrantTokenAccess(c *gin.Context) {
	kind, err := tokenKindParam(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var req grantRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	actor := middleware.ActorFrom(c)
	result, err := h.tokenService.Accept(c.Request.Context(), actor, kind, c.Param("token"), req.ConfirmedByUser)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
