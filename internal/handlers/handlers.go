package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/overleaf/overleaf-sub002/internal/config"
	"github.com/overleaf/overleaf-sub002/internal/middleware"
	"github.com/overleaf/overleaf-sub002/internal/models"
	"github.com/overleaf/overleaf-sub002/internal/repository"
	"github.com/overleaf/overleaf-sub002/internal/service"
	"github.com/overleaf/overleaf-sub002/internal/session"
)

type HandlerSet struct {
	log   zerolog.Logger
	cfg   *config.AppConfig
	db    *pgxpool.Pool
	cache *redis.Client

	registry session.Registry
	users    *repository.UserRepository
	audits   *repository.AuditRepository

	authService    *service.AuthService
	accessService  *service.AccessService
	tokenService   *service.TokenAccessService
	inviteService  *service.InviteService
	projectService *service.ProjectService
	auditService   *service.AuditService
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	grantRepo := repository.NewGrantRepository(db)
	inviteRepo := repository.NewInviteRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	registry := session.NewRedisRegistry(cache, cfg.Security.SessionTTL, cfg.Security.SudoTTL)

	audit := service.NewAuditService(auditRepo, cfg.Audit.Buffer, log)
	access := service.NewAccessService(projectRepo, memberRepo, grantRepo, userRepo, cfg.Access, log)
	grants := service.NewGrantService(memberRepo, grantRepo)
	auth := service.NewAuthService(userRepo, registry, audit, cfg, log)
	tokens := service.NewTokenAccessService(projectRepo, access, grants, log)
	invites := service.NewInviteService(inviteRepo, projectRepo, access, grants, log)
	projects := service.NewProjectService(projectRepo, access, audit, log)

	return HandlerSet{
		log:            log,
		cfg:            cfg,
		db:             db,
		cache:          cache,
		registry:       registry,
		users:          userRepo,
		audits:         auditRepo,
		authService:    auth,
		accessService:  access,
		tokenService:   tokens,
		inviteService:  invites,
		projectService: projects,
		auditService:   audit,
	}
}

// Close flushes the async audit writer.
func (h HandlerSet) Close() {
	h.auditService.Close()
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	v1.Use(middleware.Sessions(h.cfg, h.registry, func(c *gin.Context, id string) (models.User, error) {
		return h.users.GetByID(c.Request.Context(), id)
	}))

	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.RegisterUser)
		auth.POST("/login", h.Login)

		protected := auth.Group("")
		protected.Use(middleware.RequireAuth())
		protected.POST("/logout", h.Logout)
		protected.GET("/sessions", h.ListSessions)
		protected.POST("/sessions/clear", h.ClearOtherSessions)
		protected.POST("/sudo", h.Sudo)
		protected.POST("/password", h.ChangePassword)
	}

	projects := v1.Group("/projects")
	{
		projects.POST("", middleware.RequireAuth(), h.CreateProject)
		projects.GET("/:projectId", h.GetProject)
		projects.GET("/:projectId/access", h.ProjectAccess)
		projects.POST("/:projectId/join", h.JoinProject)
		projects.GET("/:projectId/tokens", h.ProjectTokens)
		projects.DELETE("/:projectId", middleware.RequireAuth(), h.DeleteProject)
		projects.POST("/:projectId/settings/access-level", middleware.RequireAuth(), h.SetPublicAccessLevel)
		projects.POST("/:projectId/settings/token-access", middleware.RequireAuth(), h.SetTokenAccess)
		projects.POST("/:projectId/tokens/rotate", middleware.RequireAuth(), h.RotateTokens)

		projects.GET("/:projectId/invites", middleware.RequireAuth(), h.ListInvites)
		projects.POST("/:projectId/invites", middleware.RequireAuth(), h.CreateInvite)
		projects.DELETE("/:projectId/invites/:inviteId", middleware.RequireAuth(), h.RevokeInvite)
	}

	v1.GET("/token/:kind/:token", h.ViewTokenAccess)
	v1.POST("/token/:kind/:token/grant", h.GrantTokenAccess)

	v1.GET("/invites/:token", h.ViewInvite)
	v1.POST("/invites/:token/accept", h.AcceptInvite)

	admin := v1.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	{
		admin.POST("/privilege-mode", h.SetAdminPrivilegeMode)
		admin.POST("/password-reset", h.AdminResetPassword)
		admin.GET("/audit/:userId", h.ListAudit)
	}
}
