package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/overleaf/overleaf-sub002/internal/authz"
	"github.com/overleaf/overleaf-sub002/internal/config"
	"github.com/overleaf/overleaf-sub002/internal/errs"
	"github.com/overleaf/overleaf-sub002/internal/models"
)

type projectEnv struct {
	projects *fakeProjects
	access   *AccessService
	tokens   *TokenAccessService
	auditDB  *memAudit
	svc      *ProjectService
}

func newProjectEnv(t *testing.T) *projectEnv {
	t.Helper()

	projects := newFakeProjects(models.Project{
		ID:                "p1",
		OwnerID:           "owner",
		Name:              "thesis",
		PublicAccessLevel: models.AccessPrivate,
	})
	members := newFakeMembers()
	grants := newFakeGrants()
	users := newFakeUsers(models.User{ID: "owner", Email: "owner@example.com"})

	access := newTestAccessService(projects, members, grants, users, config.AccessConfig{})
	grantSvc := NewGrantService(members, grants)
	auditDB := &memAudit{}
	audit := NewAuditService(auditDB, 16, zerolog.Nop())
	t.Cleanup(audit.Close)

	return &projectEnv{
		projects: projects,
		access:   access,
		tokens:   NewTokenAccessService(projects, access, grantSvc, zerolog.Nop()),
		auditDB:  auditDB,
		svc:      NewProjectService(projects, access, audit, zerolog.Nop()),
	}
}

func TestProjectCreate(t *testing.T) {
	ctx := context.Background()
	env := newProjectEnv(t)

	project, err := env.svc.Create(ctx, authz.Actor{UserID: "owner"}, "paper")
	require.NoError(t, err)
	require.NotEmpty(t, project.ID)
	require.Equal(t, models.AccessPrivate, project.PublicAccessLevel)
	require.False(t, project.TokenAccessEnabled)

	_, err = env.svc.Create(ctx, authz.Actor{}, "paper")
	require.ErrorIs(t, err, errs.ErrUnauthenticated)
	_, err = env.svc.Create(ctx, authz.Actor{UserID: "owner"}, "")
	require.ErrorIs(t, err, errs.ErrInvalid)
}

func TestProjectGet(t *testing.T) {
	ctx := context.Background()
	env := newProjectEnv(t)
	owner := authz.Actor{UserID: "owner"}

	project, details, err := env.svc.Get(ctx, owner, "p1")
	require.NoError(t, err)
	require.Equal(t, "thesis", project.Name)
	require.Equal(t, models.PrivilegeOwner, details.PrivilegeLevel)

	// The resolver gates reads: strangers are denied, anonymous callers
	// are pushed to login, missing projects are NotFound.
	_, _, err = env.svc.Get(ctx, authz.Actor{UserID: "stranger"}, "p1")
	require.ErrorIs(t, err, errs.ErrForbidden)
	_, _, err = env.svc.Get(ctx, authz.Actor{}, "p1")
	require.ErrorIs(t, err, errs.ErrUnauthenticated)
	_, _, err = env.svc.Get(ctx, owner, "missing")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestProjectGet_AnonymousTokenHolder(t *testing.T) {
	ctx := context.Background()
	env := newProjectEnv(t)
	owner := authz.Actor{UserID: "owner"}

	tokens, err := env.svc.SetTokenAccess(ctx, owner, "p1", true)
	require.NoError(t, err)

	visitor := authz.Actor{AnonymousToken: authz.AnonymousAccessToken(tokens.ReadOnly)}
	project, details, err := env.svc.Get(ctx, visitor, "p1")
	require.NoError(t, err)
	require.Equal(t, "p1", project.ID)
	require.Equal(t, models.PrivilegeReadOnly, details.PrivilegeLevel)
	require.True(t, details.IsRestrictedUser)

	// Re-privatizing kills the anonymous read.
	_, err = env.svc.SetTokenAccess(ctx, owner, "p1", false)
	require.NoError(t, err)
	_, _, err = env.svc.Get(ctx, visitor, "p1")
	require.ErrorIs(t, err, errs.ErrUnauthenticated)
}

func TestSetTokenAccess_IssuesTokensOnce(t *testing.T) {
	ctx := context.Background()
	env := newProjectEnv(t)
	owner := authz.Actor{UserID: "owner"}

	tokens, err := env.svc.SetTokenAccess(ctx, owner, "p1", true)
	require.NoError(t, err)
	require.True(t, tokens.Issued())
	require.Len(t, tokens.ReadAndWritePrefix, 8)

	// Enabling again keeps the links stable.
	again, err := env.svc.SetTokenAccess(ctx, owner, "p1", true)
	require.NoError(t, err)
	require.Equal(t, tokens, again)

	// Disabling and re-enabling does not rotate either.
	_, err = env.svc.SetTokenAccess(ctx, owner, "p1", false)
	require.NoError(t, err)
	restored, err := env.svc.SetTokenAccess(ctx, owner, "p1", true)
	require.NoError(t, err)
	require.Equal(t, tokens, restored)
}

func TestSetTokenAccess_DisableLeavesGrantsDormant(t *testing.T) {
	ctx := context.Background()
	env := newProjectEnv(t)
	owner := authz.Actor{UserID: "owner"}
	collab := authz.Actor{UserID: "collab"}

	tokens, err := env.svc.SetTokenAccess(ctx, owner, "p1", true)
	require.NoError(t, err)

	_, err = env.tokens.Accept(ctx, collab, models.TokenKindReadOnly, string(tokens.ReadOnly), true)
	require.NoError(t, err)

	_, err = env.svc.SetTokenAccess(ctx, owner, "p1", false)
	require.NoError(t, err)
	_, err = env.access.Resolve(ctx, collab, "p1")
	require.ErrorIs(t, err, errs.ErrForbidden)

	_, err = env.svc.SetTokenAccess(ctx, owner, "p1", true)
	require.NoError(t, err)
	details, err := env.access.Resolve(ctx, collab, "p1")
	require.NoError(t, err)
	require.Equal(t, models.PrivilegeReadOnly, details.PrivilegeLevel)
}

func TestRotateTokens_KeepsGrants(t *testing.T) {
	ctx := context.Background()
	env := newProjectEnv(t)
	owner := authz.Actor{UserID: "owner"}
	collab := authz.Actor{UserID: "collab"}

	tokens, err := env.svc.SetTokenAccess(ctx, owner, "p1", true)
	require.NoError(t, err)
	_, err = env.tokens.Accept(ctx, collab, models.TokenKindReadOnly, string(tokens.ReadOnly), true)
	require.NoError(t, err)

	rotated, err := env.svc.RotateTokens(ctx, owner, "p1")
	require.NoError(t, err)
	require.NotEqual(t, tokens.ReadOnly, rotated.ReadOnly)
	require.NotEqual(t, tokens.ReadAndWrite, rotated.ReadAndWrite)

	// The old link is dead.
	_, err = env.tokens.Validate(ctx, models.TokenKindReadOnly, string(tokens.ReadOnly))
	require.ErrorIs(t, err, errs.ErrNotFound)

	// Standing access from an earlier accept is untouched.
	details, err := env.access.Resolve(ctx, collab, "p1")
	require.NoError(t, err)
	require.Equal(t, models.PrivilegeReadOnly, details.PrivilegeLevel)
}

func TestProjectSettings_RequireOwner(t *testing.T) {
	ctx := context.Background()
	env := newProjectEnv(t)
	stranger := authz.Actor{UserID: "stranger"}

	_, err := env.svc.SetTokenAccess(ctx, stranger, "p1", true)
	require.ErrorIs(t, err, errs.ErrForbidden)
	_, err = env.svc.RotateTokens(ctx, stranger, "p1")
	require.ErrorIs(t, err, errs.ErrForbidden)
	err = env.svc.SetPublicAccessLevel(ctx, stranger, "p1", models.AccessReadOnly)
	require.ErrorIs(t, err, errs.ErrForbidden)
	err = env.svc.Delete(ctx, stranger, "p1")
	require.ErrorIs(t, err, errs.ErrForbidden)
}

func TestSetPublicAccessLevel(t *testing.T) {
	ctx := context.Background()
	env := newProjectEnv(t)
	owner := authz.Actor{UserID: "owner"}

	err := env.svc.SetPublicAccessLevel(ctx, owner, "p1", models.PublicAccessLevel("everyone"))
	require.ErrorIs(t, err, errs.ErrInvalid)

	require.NoError(t, env.svc.SetPublicAccessLevel(ctx, owner, "p1", models.AccessReadOnly))

	details, err := env.access.Resolve(ctx, authz.Actor{UserID: "stranger"}, "p1")
	require.NoError(t, err)
	require.Equal(t, models.PrivilegeReadOnly, details.PrivilegeLevel)
	require.Equal(t, authz.SourcePublic, details.Source)
}

func TestProjectDelete(t *testing.T) {
	ctx := context.Background()
	env := newProjectEnv(t)
	owner := authz.Actor{UserID: "owner"}

	require.NoError(t, env.svc.Delete(ctx, owner, "p1"))

	_, err := env.access.Resolve(ctx, owner, "p1")
	require.ErrorIs(t, err, errs.ErrNotFound)
	err = env.svc.Delete(ctx, owner, "p1")
	require.ErrorIs(t, err, errs.ErrNotFound)
}
