package models

import "time"

type AuditOperation string

const (
	AuditPasswordChanged    AuditOperation = "password-changed"
	AuditPasswordReset      AuditOperation = "password-reset"
	AuditSessionsCleared    AuditOperation = "sessions-cleared"
	AuditAdminModeToggled   AuditOperation = "admin-mode-toggled"
	AuditTokenAccessChanged AuditOperation = "token-access-changed"
)

// AuditEntry attributes an operation on UserID to InitiatorID, which differs
// when e.g. an admin resets someone else's password.
type AuditEntry struct {
	ID          int64
	UserID      string
	InitiatorID string
	Operation   AuditOperation
	Info        map[string]any
	CreatedAt   time.Time
}
