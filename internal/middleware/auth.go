package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/overleaf/overleaf-sub002/internal/authz"
	"github.com/overleaf/overleaf-sub002/internal/config"
	"github.com/overleaf/overleaf-sub002/internal/models"
	"github.com/overleaf/overleaf-sub002/internal/security"
	"github.com/overleaf/overleaf-sub002/internal/session"
)

const (
	ContextActor   = "actor"
	ContextUser    = "current_user"
	ContextSession = "current_session"
)

// Sessions establishes the caller's identity from the session cookie or a
// bearer token. Every authenticated request must present the session's
// current validation token; a missing or mismatched token tears the session
// down and the request continues as anonymous. Routes that require identity
// use RequireAuth on top.
func Sessions(cfg *config.AppConfig, registry session.Registry, loadUser func(c *gin.Context, id string) (models.User, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerOrCookie(c)
		if tokenStr == "" {
			c.Set(ContextActor, authz.Actor{})
			c.Next()
			return
		}

		claims, err := security.ParseSessionToken(tokenStr, cfg.Security.SessionSecret)
		if err != nil {
			c.Set(ContextActor, authz.Actor{})
			c.Next()
			return
		}

		sess, err := registry.Validate(c.Request.Context(), claims.SessionID, claims.ValidationToken)
		if err != nil || sess.UserID != claims.UserID {
			c.Set(ContextActor, authz.Actor{})
			c.Next()
			return
		}

		user, err := loadUser(c, claims.UserID)
		if err != nil {
			c.Set(ContextActor, authz.Actor{})
			c.Next()
			return
		}

		c.Set(ContextUser, user)
		c.Set(ContextSession, sess)
		c.Set(ContextActor, authz.Actor{
			UserID:    user.ID,
			IsAdmin:   user.IsAdmin,
			AdminMode: sess.AdminMode,
		})
		c.Next()
	}
}

// RequireAuth rejects anonymous callers.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFrom(c)
		if !actor.Authenticated() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":    "authentication_required",
				"redirect": "/login",
			})
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects callers that are not site admins.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFrom(c)
		if !actor.Authenticated() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":    "authentication_required",
				"redirect": "/login",
			})
			return
		}
		if !actor.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// ActorFrom returns the request's actor; the zero value is anonymous.
func ActorFrom(c *gin.Context) authz.Actor {
	if v, ok := c.Get(ContextActor); ok {
		if actor, ok := v.(authz.Actor); ok {
			return actor
		}
	}
	return authz.Actor{}
}

// SessionFrom returns the validated session, if any.
func SessionFrom(c *gin.Context) (models.Session, bool) {
	if v, ok := c.Get(ContextSession); ok {
		if sess, ok := v.(models.Session); ok {
			return sess, true
		}
	}
	return models.Session{}, false
}

const sessionCookie = "ol_session"

func bearerOrCookie(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if cookie, err := c.Cookie(sessionCookie); err == nil {
		return cookie
	}
	return ""
}
