// Package authz decides what privilege level applies to an (actor, project)
// pair. Resolve is a pure function over already-loaded records so tests can
// vary every input, including global flags, per call.
package authz

import "github.com/overleaf/overleaf-sub002/internal/models"

// AnonymousAccessToken is the per-request bearer secret presented by fully
// anonymous visitors who followed a share link. It is a distinct type from
// the persisted project token on purpose.
type AnonymousAccessToken string

// Actor is the caller's identity as established by the transport layer. A
// zero UserID means anonymous.
type Actor struct {
	UserID         string
	IsAdmin        bool
	AdminMode      bool
	AnonymousToken AnonymousAccessToken
}

func (a Actor) Authenticated() bool {
	return a.UserID != ""
}

// Settings snapshots the global access-control switches for one call.
type Settings struct {
	AdminPrivilegeAvailable      bool
	AnonymousReadAndWriteEnabled bool
	LinkSharingDisabled          bool
}

type AccessSource string

const (
	SourceOwner     AccessSource = "owner"
	SourceAdmin     AccessSource = "admin"
	SourceInvite    AccessSource = "invite"
	SourceToken     AccessSource = "token"
	SourcePublic    AccessSource = "public"
	SourceAnonymous AccessSource = "anonymous"
)

// AccessDetails is the resolver's positive outcome.
type AccessDetails struct {
	PrivilegeLevel models.PrivilegeLevel
	Source         AccessSource

	// IsRestrictedUser marks token/anonymous read-only viewers, who must
	// never see collaborator contact details.
	IsRestrictedUser bool
	IsTokenMember    bool
	IsInvitedMember  bool
}

// CanAdminSettings reports whether the actor may rename the project, change
// sharing settings or manage invites. These are owner-only operations;
// read-and-write collaborators never get them.
func (d AccessDetails) CanAdminSettings() bool {
	return d.Source == SourceOwner || d.Source == SourceAdmin
}

// CanWrite reports whether the actor may modify project content.
func (d AccessDetails) CanWrite() bool {
	return d.PrivilegeLevel.AtLeast(models.PrivilegeReview)
}
