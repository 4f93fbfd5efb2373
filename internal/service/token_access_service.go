package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/overleaf/overleaf-sub002/internal/authz"
	"github.com/overleaf/overleaf-sub002/internal/errs"
	"github.com/overleaf/overleaf-sub002/internal/models"
	"github.com/overleaf/overleaf-sub002/internal/security"
)

// TokenAccessService implements the two-phase token sharing flow: viewing a
// link never grants anything, a separate explicit accept step does.
type TokenAccessService struct {
	projects ProjectStore
	access   *AccessService
	grants   *GrantService
	log      zerolog.Logger
}

func NewTokenAccessService(projects ProjectStore, access *AccessService, grants *GrantService, log zerolog.Logger) *TokenAccessService {
	return &TokenAccessService{
		projects: projects,
		access:   access,
		grants:   grants,
		log:      log,
	}
}

func kindPrivilege(kind models.TokenKind) models.PrivilegeLevel {
	if kind == models.TokenKindReadAndWrite {
		return models.PrivilegeReadAndWrite
	}
	return models.PrivilegeReadOnly
}

// Validate returns the project owning a live token. A deleted project, a
// re-privatized project and globally disabled link sharing all surface as
// NotFound so token holders cannot probe project existence.
func (s *TokenAccessService) Validate(ctx context.Context, kind models.TokenKind, raw string) (models.Project, error) {
	if !security.ValidTokenFormat(kind, raw) {
		return models.Project{}, errs.ErrInvalid
	}
	if s.access.Settings().LinkSharingDisabled {
		return models.Project{}, errs.ErrNotFound
	}

	project, err := s.projects.FindByToken(ctx, kind, models.AccessToken(raw))
	if err != nil {
		return models.Project{}, err
	}
	if !project.TokenAccessEnabled {
		return models.Project{}, errs.ErrNotFound
	}
	return project, nil
}

type TokenViewResult struct {
	ProjectID   string                `json:"projectId"`
	ProjectName string                `json:"projectName"`
	Privilege   models.PrivilegeLevel `json:"privilege"`

	// RequireAccept tells authenticated viewers that a second explicit
	// accept call is needed before they gain standing access.
	RequireAccept bool `json:"requireAccept"`

	// AnonymousAccessToken authorizes a single join call for anonymous
	// viewers; no durable membership is created for them.
	AnonymousAccessToken authz.AnonymousAccessToken `json:"anonymousAccessToken,omitempty"`
}

// View handles a share-link page load.
func (s *TokenAccessService) View(ctx context.Context, actor authz.Actor, kind models.TokenKind, raw string) (TokenViewResult, error) {
	project, err := s.Validate(ctx, kind, raw)
	if err != nil {
		return TokenViewResult{}, err
	}

	if !actor.Authenticated() && kind == models.TokenKindReadAndWrite &&
		!s.access.Settings().AnonymousReadAndWriteEnabled {
		// Deprecated capability: anonymous writers must register first.
		return TokenViewResult{}, errs.ErrUnauthenticated
	}

	result := TokenViewResult{
		ProjectID:     project.ID,
		ProjectName:   project.Name,
		Privilege:     kindPrivilege(kind),
		RequireAccept: actor.Authenticated() && actor.UserID != project.OwnerID,
	}
	if !actor.Authenticated() {
		result.AnonymousAccessToken = authz.AnonymousAccessToken(raw)
	}
	return result, nil
}

type TokenAcceptResult struct {
	ProjectID string                `json:"projectId"`
	Privilege models.PrivilegeLevel `json:"privilege"`
}

// Accept records a durable token grant for an authenticated user. Accepting
// the read-and-write token after the read-only one upgrades immediately;
// the reverse never downgrades. The owner accepting their own link is a
// no-op success.
func (s *TokenAccessService) Accept(ctx context.Context, actor authz.Actor, kind models.TokenKind, raw string, confirmed bool) (TokenAcceptResult, error) {
	if !actor.Authenticated() {
		return TokenAcceptResult{}, errs.ErrUnauthenticated
	}

	project, err := s.Validate(ctx, kind, raw)
	if err != nil {
		return TokenAcceptResult{}, err
	}

	if actor.UserID == project.OwnerID {
		return TokenAcceptResult{ProjectID: project.ID, Privilege: models.PrivilegeOwner}, nil
	}

	privilege := kindPrivilege(kind)
	if err := s.grants.RecordTokenAccept(ctx, actor.UserID, project.ID, privilege, models.AccessToken(raw)); err != nil {
		return TokenAcceptResult{}, err
	}

	s.log.Info().
		Str("project_id", project.ID).
		Str("user_id", actor.UserID).
		Str("privilege", string(privilege)).
		Bool("confirmed", confirmed).
		Msg("token grant recorded")

	details, err := s.access.Resolve(ctx, actor, project.ID)
	if err != nil {
		return TokenAcceptResult{}, err
	}
	return TokenAcceptResult{ProjectID: project.ID, Privilege: details.PrivilegeLevel}, nil
}

type TokensView struct {
	ReadOnly           models.AccessToken `json:"readOnly,omitempty"`
	ReadAndWrite       models.AccessToken `json:"readAndWrite,omitempty"`
	ReadAndWritePrefix string             `json:"readAndWritePrefix,omitempty"`
}

// FetchForActor returns only the tokens the actor is entitled to see:
// owners, admins and invited members see both, a token-grant holder sees
// the one they accepted, an anonymous visitor sees the one they presented.
// A deleted project yields NotFound in preference to Forbidden.
func (s *TokenAccessService) FetchForActor(ctx context.Context, actor authz.Actor, projectID string) (TokensView, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return TokensView{}, err
	}

	details, err := s.access.resolveLoaded(ctx, actor, &project)
	if err != nil {
		return TokensView{}, err
	}

	switch details.Source {
	case authz.SourceOwner, authz.SourceAdmin, authz.SourceInvite:
		return TokensView{
			ReadOnly:           project.Tokens.ReadOnly,
			ReadAndWrite:       project.Tokens.ReadAndWrite,
			ReadAndWritePrefix: project.Tokens.ReadAndWritePrefix,
		}, nil
	case authz.SourceToken:
		if details.PrivilegeLevel.AtLeast(models.PrivilegeReadAndWrite) {
			return TokensView{
				ReadAndWrite:       project.Tokens.ReadAndWrite,
				ReadAndWritePrefix: project.Tokens.ReadAndWritePrefix,
			}, nil
		}
		return TokensView{ReadOnly: project.Tokens.ReadOnly}, nil
	case authz.SourceAnonymous:
		presented := models.AccessToken(actor.AnonymousToken)
		if security.TokensMatch(presented, project.Tokens.ReadAndWrite) {
			return TokensView{ReadAndWrite: project.Tokens.ReadAndWrite}, nil
		}
		return TokensView{ReadOnly: project.Tokens.ReadOnly}, nil
	}
	return TokensView{}, errs.ErrForbidden
}
