package models

import "time"

type Invite struct {
	ID            string
	ProjectID     string
	Token         string
	Email         string
	Privilege     PrivilegeLevel
	SendingUserID string
	CreatedAt     time.Time
}
