package service

import (
	"context"
	"errors"

	"github.com/overleaf/overleaf-sub002/internal/errs"
	"github.com/overleaf/overleaf-sub002/internal/models"
)

// GrantService persists token and invite acceptance as durable membership.
// Every record operation is exactly-once per (user, project, kind):
// re-accepting is a no-op success, upgrades replace the privilege in place
// and a privilege is never downgraded by a later lower-privilege accept.
type GrantService struct {
	members MemberStore
	grants  GrantStore
}

func NewGrantService(members MemberStore, grants GrantStore) *GrantService {
	return &GrantService{members: members, grants: grants}
}

// RecordTokenAccept stores a token grant. An existing invite-derived
// membership is left untouched; the grant coexists with it.
func (s *GrantService) RecordTokenAccept(ctx context.Context, userID, projectID string, privilege models.PrivilegeLevel, tokenUsed models.AccessToken) error {
	level := privilege
	if existing, err := s.grants.Get(ctx, projectID, userID); err == nil {
		level = models.MaxPrivilege(existing.Privilege, privilege)
	} else if !errors.Is(err, errs.ErrNotFound) {
		return err
	}

	if err := s.grants.Upsert(ctx, models.TokenGrant{
		ProjectID: projectID,
		UserID:    userID,
		Privilege: level,
		TokenUsed: tokenUsed,
	}); err != nil {
		return err
	}

	member, err := s.members.Get(ctx, projectID, userID)
	if err == nil && member.Source == models.SourceInvite {
		return nil
	}
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return err
	}

	return s.members.Upsert(ctx, models.Member{
		ProjectID: projectID,
		UserID:    userID,
		Privilege: level,
		Source:    models.SourceToken,
	})
}

// RecordInviteAccept stores invite-derived membership.
func (s *GrantService) RecordInviteAccept(ctx context.Context, userID, projectID string, privilege models.PrivilegeLevel) error {
	level := privilege
	if existing, err := s.members.Get(ctx, projectID, userID); err == nil {
		level = models.MaxPrivilege(existing.Privilege, privilege)
	} else if !errors.Is(err, errs.ErrNotFound) {
		return err
	}

	return s.members.Upsert(ctx, models.Member{
		ProjectID: projectID,
		UserID:    userID,
		Privilege: level,
		Source:    models.SourceInvite,
	})
}
