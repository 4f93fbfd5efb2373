package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/overleaf/overleaf-sub002/internal/errs"
	"github.com/overleaf/overleaf-sub002/internal/service"
)

// respondError maps the error taxonomy onto stable HTTP results. Every deny
// path carries a machine-readable key; NotFound wins over Forbidden at the
// call sites that load records, not here.
func (h HandlerSet) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrUnauthenticated):
		c.JSON(http.StatusForbidden, gin.H{
			"error":    "authentication_required",
			"redirect": "/login",
		})
	case errors.Is(err, errs.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, errs.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, errs.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict"})
	case errors.Is(err, errs.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
	}
}

// respondPageError is the page-load variant: unauthenticated viewers are
// redirected into the login flow and returned to where they came from.
func (h HandlerSet) respondPageError(c *gin.Context, err error) {
	if errors.Is(err, errs.ErrUnauthenticated) {
		c.Redirect(http.StatusFound, "/login?redirect="+c.Request.URL.Path)
		return
	}
	h.respondError(c, err)
}
