package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/overleaf/overleaf-sub002/internal/authz"
	"github.com/overleaf/overleaf-sub002/internal/middleware"
	"github.com/overleaf/overleaf-sub002/internal/models"
)

type createProjectRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h HandlerSet) CreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := middleware.ActorFrom(c)
	project, err := h.projectService.Create(c.Request.Context(), actor, req.Name)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"projectId": project.ID,
		"name":      project.Name,
	})
}

// GetProject returns the project for any actor the resolver admits,
// anonymous token holders included. Sharing tokens are only revealed
// through the dedicated tokens endpoint.
func (h HandlerSet) GetProject(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	actor.AnonymousToken = authz.AnonymousAccessToken(c.Query("anonymousAccessToken"))

	project, details, err := h.projectService.Get(c.Request.Context(), actor, c.Param("projectId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"projectId":          project.ID,
		"name":               project.Name,
		"ownerId":            project.OwnerID,
		"publicAccessLevel":  project.PublicAccessLevel,
		"tokenAccessEnabled": project.TokenAccessEnabled,
		"privilegeLevel":     details.PrivilegeLevel,
		"isRestrictedUser":   details.IsRestrictedUser,
	})
}

func (h HandlerSet) DeleteProject(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	if err := h.projectService.Delete(c.Request.Context(), actor, c.Param("projectId")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type accessLevelRequest struct {
	PublicAccessLevel string `json:"publicAccessLevel" binding:"required"`
}

func (h HandlerSet) SetPublicAccessLevel(c *gin.Context) {
	var req accessLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := middleware.ActorFrom(c)
	err := h.projectService.SetPublicAccessLevel(
		c.Request.Context(),
		actor,
		c.Param("projectId"),
		models.PublicAccessLevel(req.PublicAccessLevel),
	)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type tokenAccessRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (h HandlerSet) SetTokenAccess(c *gin.Context) {
	var req tokenAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := middleware.ActorFrom(c)
	tokens, err := h.projectService.SetTokenAccess(c.Request.Context(), actor, c.Param("projectId"), *req.Enabled)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if !*req.Enabled {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"readOnly":           tokens.ReadOnly,
		"readAndWritePrefix": tokens.ReadAndWritePrefix,
	})
}

func (h HandlerSet) RotateTokens(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	tokens, err := h.projectService.RotateTokens(c.Request.Context(), actor, c.Param("projectId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"readOnly":           tokens.ReadOnly,
		"readAndWritePrefix": tokens.ReadAndWritePrefix,
	})
}
