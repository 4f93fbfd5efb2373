package service

import (
	"context"
	"errors"
	"net/mail"

	"github.com/rs/zerolog"

	"github.com/overleaf/overleaf-sub002/internal/authz"
	"github.com/overleaf/overleaf-sub002/internal/errs"
	"github.com/overleaf/overleaf-sub002/internal/ids"
	"github.com/overleaf/overleaf-sub002/internal/models"
	"github.com/overleaf/overleaf-sub002/internal/security"
)

// InviteService manages time-unlimited email invites. Invites bind a
// privilege to a recipient email; multiple outstanding invites to the same
// email may coexist until one is accepted or revoked.
type InviteService struct {
	invites  InviteStore
	projects ProjectStore
	access   *AccessService
	grants   *GrantService
	log      zerolog.Logger
}

func NewInviteService(invites InviteStore, projects ProjectStore, access *AccessService, grants *GrantService, log zerolog.Logger) *InviteService {
	return &InviteService{
		invites:  invites,
		projects: projects,
		access:   access,
		grants:   grants,
		log:      log,
	}
}

func (s *InviteService) requireInviteAdmin(ctx context.Context, actor authz.Actor, projectID string) error {
	details, err := s.access.Resolve(ctx, actor, projectID)
	if err != nil {
		return err
	}
	if !details.CanAdminSettings() {
		return errs.ErrForbidden
	}
	return nil
}

func (s *InviteService) Create(ctx context.Context, actor authz.Actor, projectID, email string, privilege models.PrivilegeLevel) (models.Invite, error) {
	if err := s.requireInviteAdmin(ctx, actor, projectID); err != nil {
		return models.Invite{}, err
	}

	if !privilege.ValidForMember() {
		return models.Invite{}, errs.ErrInvalid
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return models.Invite{}, errs.ErrInvalid
	}

	token, err := security.GenerateInviteToken()
	if err != nil {
		return models.Invite{}, err
	}

	invite := models.Invite{
		ID:            ids.New(),
		ProjectID:     projectID,
		Token:         token,
		Email:         email,
		Privilege:     privilege,
		SendingUserID: actor.UserID,
	}
	if err := s.invites.Create(ctx, invite); err != nil {
		return models.Invite{}, err
	}

	// Delivery is owned by the mail collaborator; this core only records
	// that an invite went out.
	s.log.Info().
		Str("project_id", projectID).
		Str("invite_id", invite.ID).
		Str("privilege", string(privilege)).
		Msg("invite created")

	return invite, nil
}

func (s *InviteService) List(ctx context.Context, actor authz.Actor, projectID string) ([]models.Invite, error) {
	if err := s.requireInviteAdmin(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return s.invites.ListByProject(ctx, projectID)
}

// Revoke deletes the invite. Its token is invalid from the moment this
// returns: an accept issued earlier but processed later fails NotFound.
func (s *InviteService) Revoke(ctx context.Context, actor authz.Actor, projectID, inviteID string) error {
	if err := s.requireInviteAdmin(ctx, actor, projectID); err != nil {
		return err
	}
	return s.invites.Delete(ctx, projectID, inviteID)
}

type InviteView struct {
	InviteID    string                `json:"inviteId"`
	ProjectID   string                `json:"projectId"`
	ProjectName string                `json:"projectName"`
	Privilege   models.PrivilegeLevel `json:"privilege"`
	SenderID    string                `json:"senderId"`
}

// ViewByToken renders the invite landing data. Viewing never accepts.
func (s *InviteService) ViewByToken(ctx context.Context, token string) (InviteView, error) {
	invite, err := s.invites.GetByToken(ctx, token)
	if err != nil {
		return InviteView{}, err
	}
	project, err := s.projects.GetByID(ctx, invite.ProjectID)
	if err != nil {
		return InviteView{}, err
	}
	return InviteView{
		InviteID:    invite.ID,
		ProjectID:   invite.ProjectID,
		ProjectName: project.Name,
		Privilege:   invite.Privilege,
		SenderID:    invite.SendingUserID,
	}, nil
}

type InviteAcceptResult struct {
	ProjectID string                `json:"projectId"`
	Privilege models.PrivilegeLevel `json:"privilege"`
}

// Accept consumes the invite for the authenticated actor. The accepting
// account's email is deliberately not checked against the invited address:
// the unguessable token is the capability, the email is routing metadata.
// Accepting a project the user already belongs to is an idempotent success.
func (s *InviteService) Accept(ctx context.Context, actor authz.Actor, token string) (InviteAcceptResult, error) {
	if !actor.Authenticated() {
		return InviteAcceptResult{}, errs.ErrUnauthenticated
	}

	invite, err := s.invites.GetByToken(ctx, token)
	if err != nil {
		return InviteAcceptResult{}, err
	}
	project, err := s.projects.GetByID(ctx, invite.ProjectID)
	if err != nil {
		return InviteAcceptResult{}, err
	}

	if actor.UserID != project.OwnerID {
		if err := s.grants.RecordInviteAccept(ctx, actor.UserID, project.ID, invite.Privilege); err != nil {
			return InviteAcceptResult{}, err
		}
	}

	// Consume the invite. A concurrent accept may have removed it already;
	// membership is in place either way.
	if err := s.invites.Delete(ctx, invite.ProjectID, invite.ID); err != nil && !errors.Is(err, errs.ErrNotFound) {
		return InviteAcceptResult{}, err
	}

	details, err := s.access.Resolve(ctx, actor, project.ID)
	if err != nil {
		return InviteAcceptResult{}, err
	}
	return InviteAcceptResult{ProjectID: project.ID, Privilege: details.PrivilegeLevel}, nil
}
