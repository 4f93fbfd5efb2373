package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/overleaf/overleaf-sub002/internal/config"
	"github.com/overleaf/overleaf-sub002/internal/errs"
	"github.com/overleaf/overleaf-sub002/internal/ids"
	"github.com/overleaf/overleaf-sub002/internal/models"
	"github.com/overleaf/overleaf-sub002/internal/security"
	"github.com/overleaf/overleaf-sub002/internal/session"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type AuthService struct {
	users    UserStore
	sessions session.Registry
	audit    *AuditService
	cfg      *config.AppConfig
	log      zerolog.Logger
}

func NewAuthService(
	users UserStore,
	sessions session.Registry,
	audit *AuditService,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		audit:    audit,
		cfg:      cfg,
		log:      log,
	}
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	IPAddress string
	UserAgent string
}

type AuthResult struct {
	Token     string
	SessionID string
	User      models.User
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if input.Email == "" || input.Password == "" {
		return AuthResult{}, errs.ErrInvalid
	}

	if _, err := s.users.FindByEmail(ctx, input.Email); err == nil {
		return AuthResult{}, errs.ErrConflict
	} else if !errors.Is(err, errs.ErrNotFound) {
		return AuthResult{}, err
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return AuthResult{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Email:        input.Email,
		PasswordHash: passwordHash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return AuthResult{}, err
	}

	return s.createSession(ctx, user, input.IPAddress, input.UserAgent)
}

type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !ok {
		return AuthResult{}, ErrInvalidCredentials
	}

	return s.createSession(ctx, user, input.IPAddress, input.UserAgent)
}

func (s *AuthService) createSession(ctx context.Context, user models.User, ip, userAgent string) (AuthResult, error) {
	validationToken, err := security.GenerateValidationToken()
	if err != nil {
		return AuthResult{}, err
	}

	sess := models.Session{
		SID:             ids.New(),
		UserID:          user.ID,
		ValidationToken: validationToken,
		IPAddress:       ip,
		UserAgent:       userAgent,
		CreatedAt:       time.Now(),
	}
	if err := s.sessions.Register(ctx, sess); err != nil {
		return AuthResult{}, err
	}

	token, err := security.GenerateSessionToken(
		s.cfg.Security.SessionSecret,
		user.ID,
		sess.SID,
		validationToken,
		s.cfg.Security.SessionTTL,
	)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{Token: token, SessionID: sess.SID, User: user}, nil
}

// Logout removes exactly one session.
func (s *AuthService) Logout(ctx context.Context, sid string) error {
	return s.sessions.Destroy(ctx, sid)
}

func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]models.Session, error) {
	return s.sessions.List(ctx, userID)
}

// ChangePassword rotates the user's password. All other sessions are
// invalidated before this returns: once the caller observes success, no
// other login can make a further authenticated request. Reusing the current
// password is rejected as a conflict but still audited as an attempt.
func (s *AuthService) ChangePassword(ctx context.Context, userID, sid, currentPassword, newPassword string) (AuthResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return AuthResult{}, err
	}

	ok, err := security.VerifyPassword(currentPassword, user.PasswordHash)
	if err != nil || !ok {
		return AuthResult{}, ErrInvalidCredentials
	}

	if newPassword == currentPassword {
		s.audit.Record(models.AuditEntry{
			UserID:    userID,
			Operation: models.AuditPasswordChanged,
			Info:      map[string]any{"rejected": "same-as-current"},
		})
		return AuthResult{}, errs.ErrConflict
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return AuthResult{}, err
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return AuthResult{}, err
	}

	if _, err := s.sessions.InvalidateOthers(ctx, userID, sid); err != nil {
		return AuthResult{}, err
	}

	s.audit.Record(models.AuditEntry{
		UserID:    userID,
		Operation: models.AuditPasswordChanged,
	})

	user.PasswordHash = hash
	return AuthResult{SessionID: sid, User: user}, nil
}

// ResetPassword sets a new password on behalf of initiatorID, who may be an
// admin acting on another account. Every session of the target user is
// invalidated before this returns; the audit entry attributes the causing
// identity, not the target.
func (s *AuthService) ResetPassword(ctx context.Context, initiatorID, targetUserID, newPassword string) error {
	if _, err := s.users.GetByID(ctx, targetUserID); err != nil {
		return err
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, targetUserID, hash); err != nil {
		return err
	}

	if _, err := s.sessions.InvalidateOthers(ctx, targetUserID, ""); err != nil {
		return err
	}

	s.audit.Record(models.AuditEntry{
		UserID:      targetUserID,
		InitiatorID: initiatorID,
		Operation:   models.AuditPasswordReset,
	})
	return nil
}

// Sudo re-verifies the current password and marks the session elevated for
// a short window. Destructive session operations require this.
func (s *AuthService) Sudo(ctx context.Context, userID, sid, password string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}
	return s.sessions.MarkSudo(ctx, sid)
}

// ClearOtherSessions removes every session except the calling one. It is
// only permitted from a sudo context and records how many were cleared.
func (s *AuthService) ClearOtherSessions(ctx context.Context, userID, sid string) (int, error) {
	elevated, err := s.sessions.IsSudo(ctx, sid)
	if err != nil {
		return 0, err
	}
	if !elevated {
		return 0, errs.ErrForbidden
	}

	cleared, err := s.sessions.InvalidateOthers(ctx, userID, sid)
	if err != nil {
		return cleared, err
	}

	s.audit.Record(models.AuditEntry{
		UserID:    userID,
		Operation: models.AuditSessionsCleared,
		Info:      map[string]any{"cleared": cleared},
	})
	return cleared, nil
}

// SetAdminMode toggles the per-session admin privilege mode. It is only
// available to site admins and only while the deployment flag allows it.
func (s *AuthService) SetAdminMode(ctx context.Context, userID, sid string, enabled bool) error {
	if !s.cfg.Access.AdminPrivilegeAvailable {
		return errs.ErrForbidden
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.IsAdmin {
		return errs.ErrForbidden
	}

	if err := s.sessions.SetAdminMode(ctx, sid, enabled); err != nil {
		return err
	}

	s.audit.Record(models.AuditEntry{
		UserID:    userID,
		Operation: models.AuditAdminModeToggled,
		Info:      map[string]any{"enabled": enabled},
	})
	return nil
}
