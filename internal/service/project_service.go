package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/overleaf/overleaf-sub002/internal/authz"
	"github.com/overleaf/overleaf-sub002/internal/errs"
	"github.com/overleaf/overleaf-sub002/internal/ids"
	"github.com/overleaf/overleaf-sub002/internal/models"
	"github.com/overleaf/overleaf-sub002/internal/security"
)

// ProjectService owns the thin project surface that affects privilege
// computation: creation, deletion and the sharing settings.
type ProjectService struct {
	projects ProjectStore
	access   *AccessService
	audit    *AuditService
	log      zerolog.Logger
}

func NewProjectService(projects ProjectStore, access *AccessService, audit *AuditService, log zerolog.Logger) *ProjectService {
	return &ProjectService{
		projects: projects,
		access:   access,
		audit:    audit,
		log:      log,
	}
}

func (s *ProjectService) Create(ctx context.Context, actor authz.Actor, name string) (models.Project, error) {
	if !actor.Authenticated() {
		return models.Project{}, errs.ErrUnauthenticated
	}
	if name == "" {
		return models.Project{}, errs.ErrInvalid
	}

	project := models.Project{
		ID:                ids.New(),
		OwnerID:           actor.UserID,
		Name:              name,
		PublicAccessLevel: models.AccessPrivate,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return models.Project{}, err
	}
	return project, nil
}

// Get returns the project together with the actor's effective access. Any
// actor the resolver admits may read it; the sharing tokens themselves are
// not part of this view.
func (s *ProjectService) Get(ctx context.Context, actor authz.Actor, projectID string) (models.Project, authz.AccessDetails, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return models.Project{}, authz.AccessDetails{}, err
	}
	details, err := s.access.resolveLoaded(ctx, actor, &project)
	if err != nil {
		return models.Project{}, authz.AccessDetails{}, err
	}
	return project, details, nil
}

func (s *ProjectService) requireSettingsAdmin(ctx context.Context, actor authz.Actor, projectID string) (models.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return models.Project{}, err
	}
	details, err := s.access.resolveLoaded(ctx, actor, &project)
	if err != nil {
		return models.Project{}, err
	}
	if !details.CanAdminSettings() {
		return models.Project{}, errs.ErrForbidden
	}
	return project, nil
}

func (s *ProjectService) Delete(ctx context.Context, actor authz.Actor, projectID string) error {
	if _, err := s.requireSettingsAdmin(ctx, actor, projectID); err != nil {
		return err
	}
	return s.projects.SoftDelete(ctx, projectID)
}

// SetPublicAccessLevel updates the legacy whole-project sharing flag.
func (s *ProjectService) SetPublicAccessLevel(ctx context.Context, actor authz.Actor, projectID string, level models.PublicAccessLevel) error {
	if !level.Valid() {
		return errs.ErrInvalid
	}
	if _, err := s.requireSettingsAdmin(ctx, actor, projectID); err != nil {
		return err
	}
	return s.projects.SetPublicAccessLevel(ctx, projectID, level)
}

// SetTokenAccess enables or disables link sharing. Enabling issues tokens
// once and keeps them stable afterwards. Disabling re-privatizes the
// project: outstanding tokens and grants become inert but are not deleted,
// so re-enabling restores standing access without re-acceptance.
func (s *ProjectService) SetTokenAccess(ctx context.Context, actor authz.Actor, projectID string, enabled bool) (models.Tokens, error) {
	project, err := s.requireSettingsAdmin(ctx, actor, projectID)
	if err != nil {
		return models.Tokens{}, err
	}

	if enabled && !project.Tokens.Issued() {
		tokens, err := s.issueTokens()
		if err != nil {
			return models.Tokens{}, err
		}
		if err := s.projects.SetTokens(ctx, projectID, tokens); err != nil {
			return models.Tokens{}, err
		}
		project.Tokens = tokens
	}

	if err := s.projects.SetTokenAccess(ctx, projectID, enabled); err != nil {
		return models.Tokens{}, err
	}

	s.audit.Record(models.AuditEntry{
		UserID:      project.OwnerID,
		InitiatorID: actor.UserID,
		Operation:   models.AuditTokenAccessChanged,
		Info:        map[string]any{"projectId": projectID, "enabled": enabled},
	})

	if !enabled {
		return models.Tokens{}, nil
	}
	return project.Tokens, nil
}

// RotateTokens replaces both sharing tokens. Existing grants keep their
// standing access; only the links themselves change.
func (s *ProjectService) RotateTokens(ctx context.Context, actor authz.Actor, projectID string) (models.Tokens, error) {
	if _, err := s.requireSettingsAdmin(ctx, actor, projectID); err != nil {
		return models.Tokens{}, err
	}

	tokens, err := s.issueTokens()
	if err != nil {
		return models.Tokens{}, err
	}
	if err := s.projects.SetTokens(ctx, projectID, tokens); err != nil {
		return models.Tokens{}, err
	}
	return tokens, nil
}

func (s *ProjectService) issueTokens() (models.Tokens, error) {
	ro, err := security.GenerateReadOnlyToken()
	if err != nil {
		return models.Tokens{}, err
	}
	rw, prefix, err := security.GenerateReadAndWriteToken()
	if err != nil {
		return models.Tokens{}, err
	}
	return models.Tokens{
		ReadOnly:           ro,
		ReadAndWrite:       rw,
		ReadAndWritePrefix: prefix,
	}, nil
}
