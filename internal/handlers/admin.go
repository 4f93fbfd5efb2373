package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/overleaf/overleaf-sub002/internal/middleware"
)

type privilegeModeRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// SetAdminPrivilegeMode toggles admin override for the calling admin's
// session. With the mode off, admins are ordinary non-members.
func (h HandlerSet) SetAdminPrivilegeMode(c *gin.Context) {
	var req privilegeModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := middleware.ActorFrom(c)
	sess, _ := middleware.SessionFrom(c)

	if err := h.authService.SetAdminMode(c.Request.Context(), actor.UserID, sess.SID, *req.Enabled); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": *req.Enabled})
}

type adminResetRequest struct {
	UserID      string `json:"userId" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

// AdminResetPassword resets another user's password. The audit entry
// attributes the admin performing the reset, not the target.
func (h HandlerSet) AdminResetPassword(c *gin.Context) {
	var req adminResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := middleware.ActorFrom(c)
	if err := h.authService.ResetPassword(c.Request.Context(), actor.UserID, req.UserID, req.NewPassword); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) ListAudit(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	entries, err := h.audits.ListByUser(c.Request.Context(), c.Param("userId"), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
