package service

import (
	"context"
	"time"

	"github.com/overleaf/overleaf-sub002/internal/models"
)

// Store contracts consumed by the services. The pgx repositories implement
// them; tests substitute in-memory fakes.

type UserStore interface {
	Create(ctx context.Context, user models.User) error
	GetByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	UpdatePasswordHash(ctx context.Context, id string, hash []byte) error
}

type ProjectStore interface {
	Create(ctx context.Context, p models.Project) error
	GetByID(ctx context.Context, id string) (models.Project, error)
	FindByToken(ctx context.Context, kind models.TokenKind, token models.AccessToken) (models.Project, error)
	SetTokens(ctx context.Context, id string, tokens models.Tokens) error
	SetTokenAccess(ctx context.Context, id string, enabled bool) error
	SetPublicAccessLevel(ctx context.Context, id string, level models.PublicAccessLevel) error
	SoftDelete(ctx context.Context, id string) error
}

type MemberStore interface {
	Upsert(ctx context.Context, m models.Member) error
	Get(ctx context.Context, projectID, userID string) (models.Member, error)
	ListByProject(ctx context.Context, projectID string) ([]models.Member, error)
	Delete(ctx context.Context, projectID, userID string) error
}

type GrantStore interface {
	Upsert(ctx context.Context, g models.TokenGrant) error
	Get(ctx context.Context, projectID, userID string) (models.TokenGrant, error)
}

type InviteStore interface {
	Create(ctx context.Context, inv models.Invite) error
	GetByToken(ctx context.Context, token string) (models.Invite, error)
	GetByID(ctx context.Context, projectID, inviteID string) (models.Invite, error)
	ListByProject(ctx context.Context, projectID string) ([]models.Invite, error)
	Delete(ctx context.Context, projectID, inviteID string) error
}

type AuditStore interface {
	Insert(ctx context.Context, e models.AuditEntry) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.AuditEntry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
