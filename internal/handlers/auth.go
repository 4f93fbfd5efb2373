package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/overleaf/overleaf-sub002/internal/middleware"
	"github.com/overleaf/overleaf-sub002/internal/service"
)

type registerRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type authResponse struct {
	Token     string       `json:"token"`
	SessionID string       `json:"sessionId"`
	User      userResponse `json:"user"`
}

type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	IsAdmin   bool   `json:"isAdmin"`
}

func (h HandlerSet) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.sendAuthResponse(c, result)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.sendAuthResponse(c, result)
}

func (h HandlerSet) sendAuthResponse(c *gin.Context, result service.AuthResult) {
	c.SetCookie("ol_session", result.Token, int(h.cfg.Security.SessionTTL.Seconds()), "/", "", true, true)
	c.JSON(http.StatusOK, authResponse{
		Token:     result.Token,
		SessionID: result.SessionID,
		User: userResponse{
			ID:        result.User.ID,
			Email:     result.User.Email,
			FirstName: result.User.FirstName,
			LastName:  result.User.LastName,
			IsAdmin:   result.User.IsAdmin,
		},
	})
}

func (h HandlerSet) Logout(c *gin.Context) {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	if err := h.authService.Logout(c.Request.Context(), sess.SID); err != nil {
		h.respondError(c, err)
		return
	}
	c.SetCookie("ol_session", "", -1, "/", "", true, true)
	c.Status(http.StatusNoContent)
}

type sessionResponse struct {
	ID        string    `json:"id"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	CreatedAt time.Time `json:"createdAt"`
	Current   bool      `json:"current"`
}

func (h HandlerSet) ListSessions(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	current, _ := middleware.SessionFrom(c)

	sessions, err := h.authService.ListSessions(c.Request.Context(), actor.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		resp = append(resp, sessionResponse{
			ID:        sess.SID,
			IPAddress: sess.IPAddress,
			UserAgent: sess.UserAgent,
			CreatedAt: sess.CreatedAt,
			Current:   sess.SID == current.SID,
		})
	}

	c.JSON(http.StatusOK, gin.H{"sessions": resp})
}

type sudoRequest struct {
	Password string `json:"password" binding:"required"`
}

func (h HandlerSet) Sudo(c *gin.Context) {
	var req sudoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := middleware.ActorFrom(c)
	sess, _ := middleware.SessionFrom(c)

	if err := h.authService.Sudo(c.Request.Context(), actor.UserID, sess.SID, req.Password); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) ClearOtherSessions(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	sess, _ := middleware.SessionFrom(c)

	cleared, err := h.authService.ClearOtherSessions(c.Request.Context(), actor.UserID, sess.SID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": cleared})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

func (h HandlerSet) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := middleware.ActorFrom(c)
	sess, _ := middleware.SessionFrom(c)

	if _, err := h.authService.ChangePassword(c.Request.Context(), actor.UserID, sess.SID, req.CurrentPassword, req.NewPassword); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
