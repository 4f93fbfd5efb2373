package models

import "time"

// Session is a single login, stored in the key/expiry store. ValidationToken
// is a per-login secret mirrored into the signed session cookie; a mismatch
// invalidates the session.
type Session struct {
	SID             string
	UserID          string
	ValidationToken string
	IPAddress       string
	UserAgent       string
	AdminMode       bool
	CreatedAt       time.Time
}
