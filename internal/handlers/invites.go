package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/overleaf/overleaf-sub002/internal/middleware"
	"github.com/overleaf/overleaf-sub002/internal/models"
)

type createInviteRequest struct {
	Email     string `json:"email" binding:"required"`
	Privilege string `json:"privilege" binding:"required"`
}

type inviteResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Privilege string    `json:"privilege"`
	SenderID  string    `json:"senderId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h HandlerSet) CreateInvite(c *gin.Context) {
	var req createInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := middleware.ActorFrom(c)
	invite, err := h.inviteService.Create(
		c.Request.Context(),
		actor,
		c.Param("projectId"),
		req.Email,
		models.PrivilegeLevel(req.Privilege),
	)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, inviteResponse{
		ID:        invite.ID,
		Email:     invite.Email,
		Privilege: string(invite.Privilege),
		SenderID:  invite.SendingUserID,
		CreatedAt: invite.CreatedAt,
	})
}

func (h HandlerSet) ListInvites(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	invites, err := h.inviteService.List(c.Request.Context(), actor, c.Param("projectId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := make([]inviteResponse, 0, len(invites))
	for _, inv := range invites {
		resp = append(resp, inviteResponse{
			ID:        inv.ID,
			Email:     inv.Email,
			Privilege: string(inv.Privilege),
			SenderID:  inv.SendingUserID,
			CreatedAt: inv.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"invites": resp})
}

func (h HandlerSet) RevokeInvite(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	if err := h.inviteService.Revoke(c.Request.Context(), actor, c.Param("projectId"), c.Param("inviteId")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ViewInvite renders the invite landing page data.
func (h HandlerSet) ViewInvite(c *gin.Context) {
	view, err := h.inviteService.ViewByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.respondPageError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// AcceptInvite consumes the invite for the logged-in caller. Anonymous
// callers are sent into the login flow and return here afterwards.
func (h HandlerSet) AcceptInvite(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	result, err := h.inviteService.Accept(c.Request.Context(), actor, c.Param("token"))
	if err != nil {
		h.respondPageError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
