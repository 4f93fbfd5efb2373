package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/overleaf/overleaf-sub002/internal/config"
	"github.com/overleaf/overleaf-sub002/internal/errs"
	"github.com/overleaf/overleaf-sub002/internal/models"
	"github.com/overleaf/overleaf-sub002/internal/security"
)

type authEnv struct {
	users    *fakeUsers
	registry *fakeRegistry
	auditDB  *memAudit
	audit    *AuditService
	svc      *AuthService
}

func newAuthEnv(t *testing.T, cfg config.AppConfig, users ...models.User) *authEnv {
	t.Helper()

	if cfg.Security.SessionSecret == "" {
		cfg.Security.SessionSecret = "test-secret"
	}
	if cfg.Security.SessionTTL == 0 {
		cfg.Security.SessionTTL = time.Hour
	}

	env := &authEnv{
		users:    newFakeUsers(users...),
		registry: newFakeRegistry(),
		auditDB:  &memAudit{},
	}
	env.audit = NewAuditService(env.auditDB, 16, zerolog.Nop())
	t.Cleanup(env.audit.Close)
	env.svc = NewAuthService(env.users, env.registry, env.audit, &cfg, zerolog.Nop())
	return env
}

func testUser(t *testing.T, id, email, password string) models.User {
	t.Helper()
	hash, err := security.HashPassword(password)
	require.NoError(t, err)
	return models.User{ID: id, Email: email, PasswordHash: hash}
}

func (e *authEnv) waitForAudit(t *testing.T, op models.AuditOperation, n int) []models.AuditEntry {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(e.auditDB.byOperation(op)) >= n
	}, 2*time.Second, 10*time.Millisecond)
	return e.auditDB.byOperation(op)
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	env := newAuthEnv(t, config.AppConfig{})

	reg, err := env.svc.Register(ctx, RegisterInput{
		Email:    "Alice@Example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	require.NotEmpty(t, reg.Token)
	require.Equal(t, "alice@example.com", reg.User.Email)

	// The email is taken regardless of case.
	_, err = env.svc.Register(ctx, RegisterInput{Email: "alice@example.com", Password: "x"})
	require.ErrorIs(t, err, errs.ErrConflict)

	login, err := env.svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "correct horse"})
	require.NoError(t, err)
	require.NotEqual(t, reg.SessionID, login.SessionID)

	_, err = env.svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "wrong"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = env.svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "x"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	sessions, err := env.svc.ListSessions(ctx, reg.User.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
}

func TestLogout_RemovesOnlyOneSession(t *testing.T) {
	ctx := context.Background()
	env := newAuthEnv(t, config.AppConfig{}, testUser(t, "u1", "a@example.com", "pw"))

	first, err := env.svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "pw"})
	require.NoError(t, err)
	second, err := env.svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "pw"})
	require.NoError(t, err)

	require.NoError(t, env.svc.Logout(ctx, first.SessionID))

	sessions, err := env.svc.ListSessions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, second.SessionID, sessions[0].SID)
}

func TestChangePassword_InvalidatesOtherSessions(t *testing.T) {
	ctx := context.Background()
	env := newAuthEnv(t, config.AppConfig{}, testUser(t, "u1", "a@example.com", "old-pw"))

	var sids []string
	for i := 0; i < 3; i++ {
		res, err := env.svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "old-pw"})
		require.NoError(t, err)
		sids = append(sids, res.SessionID)
	}
	current := sids[1]

	_, err := env.svc.ChangePassword(ctx, "u1", current, "old-pw", "new-pw")
	require.NoError(t, err)

	// Only the calling session survives.
	sessions, err := env.svc.ListSessions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, current, sessions[0].SID)

	// Old password stops working, new one logs in.
	_, err = env.svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "old-pw"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = env.svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "new-pw"})
	require.NoError(t, err)

	entries := env.waitForAudit(t, models.AuditPasswordChanged, 1)
	require.Equal(t, "u1", entries[0].UserID)
	require.Equal(t, "u1", entries[0].InitiatorID)
}

func TestChangePassword_Rejections(t *testing.T) {
	ctx := context.Background()
	env := newAuthEnv(t, config.AppConfig{}, testUser(t, "u1", "a@example.com", "pw"))

	_, err := env.svc.ChangePassword(ctx, "u1", "sid", "wrong-current", "new-pw")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// Reusing the current password is rejected but still audited.
	_, err = env.svc.ChangePassword(ctx, "u1", "sid", "pw", "pw")
	require.ErrorIs(t, err, errs.ErrConflict)

	entries := env.waitForAudit(t, models.AuditPasswordChanged, 1)
	require.Equal(t, "same-as-current", entries[0].Info["rejected"])
}

func TestResetPassword_AttributesInitiator(t *testing.T) {
	ctx := context.Background()
	env := newAuthEnv(t, config.AppConfig{},
		testUser(t, "target", "t@example.com", "pw"),
		testUser(t, "admin", "admin@example.com", "admin-pw"),
	)

	for i := 0; i < 2; i++ {
		_, err := env.svc.Login(ctx, LoginInput{Email: "t@example.com", Password: "pw"})
		require.NoError(t, err)
	}

	require.NoError(t, env.svc.ResetPassword(ctx, "admin", "target", "issued-pw"))

	// Every session of the target is gone.
	sessions, err := env.svc.ListSessions(ctx, "target")
	require.NoError(t, err)
	require.Empty(t, sessions)

	_, err = env.svc.Login(ctx, LoginInput{Email: "t@example.com", Password: "issued-pw"})
	require.NoError(t, err)

	entries := env.waitForAudit(t, models.AuditPasswordReset, 1)
	require.Equal(t, "target", entries[0].UserID)
	require.Equal(t, "admin", entries[0].InitiatorID)
}

func TestClearOtherSessions_RequiresSudo(t *testing.T) {
	ctx := context.Background()
	env := newAuthEnv(t, config.AppConfig{}, testUser(t, "u1", "a@example.com", "pw"))

	var sids []string
	for i := 0; i < 3; i++ {
		res, err := env.svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "pw"})
		require.NoError(t, err)
		sids = append(sids, res.SessionID)
	}
	current := sids[0]

	_, err := env.svc.ClearOtherSessions(ctx, "u1", current)
	require.ErrorIs(t, err, errs.ErrForbidden)

	// A wrong password does not elevate.
	err = env.svc.Sudo(ctx, "u1", current, "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, env.svc.Sudo(ctx, "u1", current, "pw"))
	cleared, err := env.svc.ClearOtherSessions(ctx, "u1", current)
	require.NoError(t, err)
	require.Equal(t, 2, cleared)

	sessions, err := env.svc.ListSessions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	entries := env.waitForAudit(t, models.AuditSessionsCleared, 1)
	require.Equal(t, 2, entries[0].Info["cleared"])
}

func TestSetAdminMode(t *testing.T) {
	ctx := context.Background()

	admin := testUser(t, "staff", "staff@example.com", "pw")
	admin.IsAdmin = true
	regular := testUser(t, "u1", "u@example.com", "pw")

	// Deployment flag off: nobody can enter admin mode.
	env := newAuthEnv(t, config.AppConfig{}, admin, regular)
	res, err := env.svc.Login(ctx, LoginInput{Email: "staff@example.com", Password: "pw"})
	require.NoError(t, err)
	err = env.svc.SetAdminMode(ctx, "staff", res.SessionID, true)
	require.ErrorIs(t, err, errs.ErrForbidden)

	cfg := config.AppConfig{Access: config.AccessConfig{AdminPrivilegeAvailable: true}}
	env = newAuthEnv(t, cfg, admin, regular)

	res, err = env.svc.Login(ctx, LoginInput{Email: "u@example.com", Password: "pw"})
	require.NoError(t, err)
	err = env.svc.SetAdminMode(ctx, "u1", res.SessionID, true)
	require.ErrorIs(t, err, errs.ErrForbidden)

	res, err = env.svc.Login(ctx, LoginInput{Email: "staff@example.com", Password: "pw"})
	require.NoError(t, err)
	require.NoError(t, env.svc.SetAdminMode(ctx, "staff", res.SessionID, true))

	sess, err := env.registry.Get(ctx, res.SessionID)
	require.NoError(t, err)
	require.True(t, sess.AdminMode)

	entries := env.waitForAudit(t, models.AuditAdminModeToggled, 1)
	require.Equal(t, true, entries[0].Info["enabled"])
}
