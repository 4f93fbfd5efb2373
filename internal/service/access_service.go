package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/overleaf/overleaf-sub002/internal/authz"
	"github.com/overleaf/overleaf-sub002/internal/config"
	"github.com/overleaf/overleaf-sub002/internal/errs"
	"github.com/overleaf/overleaf-sub002/internal/models"
)

// AccessService loads the records the resolver needs and runs it.
type AccessService struct {
	projects ProjectStore
	members  MemberStore
	grants   GrantStore
	users    UserStore
	cfg      config.AccessConfig
	log      zerolog.Logger
}

func NewAccessService(
	projects ProjectStore,
	members MemberStore,
	grants GrantStore,
	users UserStore,
	cfg config.AccessConfig,
	log zerolog.Logger,
) *AccessService {
	return &AccessService{
		projects: projects,
		members:  members,
		grants:   grants,
		users:    users,
		cfg:      cfg,
		log:      log,
	}
}

// Settings snapshots the access flags for a single resolver call.
func (s *AccessService) Settings() authz.Settings {
	return authz.Settings{
		AdminPrivilegeAvailable:      s.cfg.AdminPrivilegeAvailable,
		AnonymousReadAndWriteEnabled: s.cfg.AnonymousReadAndWriteEnabled,
		LinkSharingDisabled:          s.cfg.LinkSharingDisabled,
	}
}

// Resolve returns the actor's effective access on the project.
func (s *AccessService) Resolve(ctx context.Context, actor authz.Actor, projectID string) (authz.AccessDetails, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return authz.AccessDetails{}, err
	}
	return s.resolveLoaded(ctx, actor, &project)
}

func (s *AccessService) resolveLoaded(ctx context.Context, actor authz.Actor, project *models.Project) (authz.AccessDetails, error) {
	var (
		member *models.Member
		grant  *models.TokenGrant
	)
	if actor.Authenticated() {
		if m, err := s.members.Get(ctx, project.ID, actor.UserID); err == nil {
			member = &m
		} else if !errors.Is(err, errs.ErrNotFound) {
			return authz.AccessDetails{}, err
		}
		if g, err := s.grants.Get(ctx, project.ID, actor.UserID); err == nil {
			grant = &g
		} else if !errors.Is(err, errs.ErrNotFound) {
			return authz.AccessDetails{}, err
		}
	}

	return authz.Resolve(actor, project, member, grant, s.Settings())
}

// JoinProject is the project view handed to the real-time collaboration
// backend when a client joins an editing session.
type JoinProject struct {
	ID                string                   `json:"_id"`
	Name              string                   `json:"name"`
	PublicAccessLevel models.PublicAccessLevel `json:"publicAccessLevel"`
	Owner             models.PublicInfo        `json:"owner"`
	Members           []models.PublicInfo      `json:"members,omitempty"`
}

type JoinResult struct {
	PrivilegeLevel   models.PrivilegeLevel `json:"privilegeLevel"`
	IsRestrictedUser bool                  `json:"isRestrictedUser"`
	IsTokenMember    bool                  `json:"isTokenMember"`
	IsInvitedMember  bool                  `json:"isInvitedMember"`
	Project          JoinProject           `json:"project"`
}

// Join authorizes a live editing session. Restricted viewers get the owner
// reduced to an id and no member list at all.
func (s *AccessService) Join(ctx context.Context, actor authz.Actor, projectID string, anonToken authz.AnonymousAccessToken) (JoinResult, error) {
	actor.AnonymousToken = anonToken

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return JoinResult{}, err
	}

	details, err := s.resolveLoaded(ctx, actor, &project)
	if err != nil {
		return JoinResult{}, err
	}

	owner, err := s.users.GetByID(ctx, project.OwnerID)
	if err != nil {
		return JoinResult{}, err
	}

	result := JoinResult{
		PrivilegeLevel:   details.PrivilegeLevel,
		IsRestrictedUser: details.IsRestrictedUser,
		IsTokenMember:    details.IsTokenMember,
		IsInvitedMember:  details.IsInvitedMember,
		Project: JoinProject{
			ID:                project.ID,
			Name:              project.Name,
			PublicAccessLevel: project.PublicAccessLevel,
			Owner:             owner.Public(details.IsRestrictedUser),
		},
	}

	if !details.IsRestrictedUser {
		members, err := s.members.ListByProject(ctx, project.ID)
		if err != nil {
			return JoinResult{}, err
		}
		for _, m := range members {
			u, err := s.users.GetByID(ctx, m.UserID)
			if err != nil {
				if errors.Is(err, errs.ErrNotFound) {
					continue
				}
				return JoinResult{}, err
			}
			result.Project.Members = append(result.Project.Members, u.Public(false))
		}
	}

	return result, nil
}
