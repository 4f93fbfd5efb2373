package models

import "time"

type PrivilegeLevel string

const (
	PrivilegeOwner        PrivilegeLevel = "owner"
	PrivilegeReadAndWrite PrivilegeLevel = "readAndWrite"
	PrivilegeReview       PrivilegeLevel = "review"
	PrivilegeReadOnly     PrivilegeLevel = "readOnly"
)

// rank orders privileges for upgrade decisions. Review sits below
// readAndWrite: it can write content but not resolve tracked changes.
func (p PrivilegeLevel) rank() int {
	switch p {
	case PrivilegeOwner:
		return 4
	case PrivilegeReadAndWrite:
		return 3
	case PrivilegeReview:
		return 2
	case PrivilegeReadOnly:
		return 1
	}
	return 0
}

func (p PrivilegeLevel) AtLeast(other PrivilegeLevel) bool {
	return p.rank() >= other.rank()
}

// ValidForMember reports whether p may be bound to a collaborator.
func (p PrivilegeLevel) ValidForMember() bool {
	switch p {
	case PrivilegeReadOnly, PrivilegeReadAndWrite, PrivilegeReview:
		return true
	}
	return false
}

// MaxPrivilege returns the higher of two privilege levels.
func MaxPrivilege(a, b PrivilegeLevel) PrivilegeLevel {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

type PublicAccessLevel string

const (
	AccessPrivate      PublicAccessLevel = "private"
	AccessReadOnly     PublicAccessLevel = "readOnly"
	AccessReadAndWrite PublicAccessLevel = "readAndWrite"
)

func (l PublicAccessLevel) Valid() bool {
	switch l {
	case AccessPrivate, AccessReadOnly, AccessReadAndWrite:
		return true
	}
	return false
}

// AccessToken is a persisted project sharing token. It is deliberately a
// distinct type from the per-request anonymous token presented by visitors,
// so the two cannot be conflated in the resolver.
type AccessToken string

type TokenKind string

const (
	TokenKindReadOnly     TokenKind = "readOnly"
	TokenKindReadAndWrite TokenKind = "readAndWrite"
)

// Tokens holds a project's sharing tokens. The read-and-write prefix is the
// numeric head of the full token, used for partial reveal in listings.
type Tokens struct {
	ReadOnly           AccessToken
	ReadAndWrite       AccessToken
	ReadAndWritePrefix string
}

func (t Tokens) Issued() bool {
	return t.ReadOnly != "" && t.ReadAndWrite != ""
}

type Project struct {
	ID                 string
	OwnerID            string
	Name               string
	PublicAccessLevel  PublicAccessLevel
	TokenAccessEnabled bool
	Tokens             Tokens
	DeletedAt          *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (p Project) Deleted() bool {
	return p.DeletedAt != nil
}

type MemberSource string

const (
	SourceInvite MemberSource = "invite"
	SourceToken  MemberSource = "token"
)

type Member struct {
	ProjectID string
	UserID    string
	Privilege PrivilegeLevel
	Source    MemberSource
	CreatedAt time.Time
}

// TokenGrant records that a user accepted a project sharing token at least
// once. It is never deleted on re-privatization, only dormant.
type TokenGrant struct {
	ProjectID string
	UserID    string
	Privilege PrivilegeLevel
	TokenUsed AccessToken
	CreatedAt time.Time
}
