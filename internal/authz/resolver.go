package authz

import (
	"github.com/overleaf/overleaf-sub002/internal/errs"
	"github.com/overleaf/overleaf-sub002/internal/models"
	"github.com/overleaf/overleaf-sub002/internal/security"
)

// Resolve computes the effective privilege for actor on project.
//
// Precedence, highest first: site admin in admin mode, owner, explicit
// membership (invite-derived or a live token grant), legacy public access
// level, a matching anonymous access token. Anything token-derived is dead
// while the project is private or link sharing is globally disabled; only
// ownership, invite membership and admin override survive re-privatization.
//
// Deny is a typed result: ErrNotFound when the project is gone,
// ErrForbidden for a known identity without privilege, ErrUnauthenticated
// when no identity was presented.
func Resolve(actor Actor, project *models.Project, member *models.Member, grant *models.TokenGrant, s Settings) (AccessDetails, error) {
	if project == nil || project.Deleted() {
		return AccessDetails{}, errs.ErrNotFound
	}

	if actor.IsAdmin && actor.AdminMode && s.AdminPrivilegeAvailable {
		return AccessDetails{
			PrivilegeLevel: models.PrivilegeOwner,
			Source:         SourceAdmin,
		}, nil
	}

	if actor.Authenticated() && actor.UserID == project.OwnerID {
		return AccessDetails{
			PrivilegeLevel: models.PrivilegeOwner,
			Source:         SourceOwner,
		}, nil
	}

	tokensLive := project.TokenAccessEnabled && !s.LinkSharingDisabled

	if details, ok := memberAccess(actor, member, grant, tokensLive); ok {
		return details, nil
	}

	if project.PublicAccessLevel != models.AccessPrivate {
		level := models.PrivilegeReadOnly
		if project.PublicAccessLevel == models.AccessReadAndWrite {
			level = models.PrivilegeReadAndWrite
		}
		return AccessDetails{
			PrivilegeLevel:   level,
			Source:           SourcePublic,
			IsRestrictedUser: !actor.Authenticated() && level == models.PrivilegeReadOnly,
		}, nil
	}

	if details, err, ok := anonymousAccess(actor, project, tokensLive, s); ok {
		return details, err
	}

	if !actor.Authenticated() {
		return AccessDetails{}, errs.ErrUnauthenticated
	}
	return AccessDetails{}, errs.ErrForbidden
}

// memberAccess combines an invite-derived member row with a token grant.
// The two can coexist; the higher live privilege wins. Token-sourced rows
// count only while tokens are live.
func memberAccess(actor Actor, member *models.Member, grant *models.TokenGrant, tokensLive bool) (AccessDetails, bool) {
	if !actor.Authenticated() {
		return AccessDetails{}, false
	}

	var (
		level   models.PrivilegeLevel
		invited bool
		token   bool
	)

	if member != nil && member.UserID == actor.UserID {
		switch member.Source {
		case models.SourceInvite:
			level = member.Privilege
			invited = true
		case models.SourceToken:
			if tokensLive {
				level = member.Privilege
				token = true
			}
		}
	}
	if grant != nil && grant.UserID == actor.UserID && tokensLive {
		if !invited || grant.Privilege.AtLeast(level) {
			level = models.MaxPrivilege(level, grant.Privilege)
			token = true
		}
	}

	if level == "" {
		return AccessDetails{}, false
	}

	source := SourceInvite
	if token && !invited {
		source = SourceToken
	}
	return AccessDetails{
		PrivilegeLevel:   level,
		Source:           source,
		IsRestrictedUser: source == SourceToken && level == models.PrivilegeReadOnly,
		IsTokenMember:    token,
		IsInvitedMember:  invited,
	}, true
}

// anonymousAccess matches a per-request token against the project's live
// tokens. It grants a single call only; no durable membership results.
func anonymousAccess(actor Actor, project *models.Project, tokensLive bool, s Settings) (AccessDetails, error, bool) {
	if actor.Authenticated() || actor.AnonymousToken == "" || !tokensLive {
		return AccessDetails{}, nil, false
	}

	presented := models.AccessToken(actor.AnonymousToken)

	if security.TokensMatch(presented, project.Tokens.ReadOnly) {
		return AccessDetails{
			PrivilegeLevel:   models.PrivilegeReadOnly,
			Source:           SourceAnonymous,
			IsRestrictedUser: true,
		}, nil, true
	}

	if security.TokensMatch(presented, project.Tokens.ReadAndWrite) {
		if !s.AnonymousReadAndWriteEnabled {
			// Deprecated capability: the holder has to log in instead.
			return AccessDetails{}, errs.ErrUnauthenticated, true
		}
		return AccessDetails{
			PrivilegeLevel: models.PrivilegeReadAndWrite,
			Source:         SourceAnonymous,
		}, nil, true
	}

	return AccessDetails{}, nil, false
}
