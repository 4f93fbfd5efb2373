package models

import "time"

type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	FirstName    string
	LastName     string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicInfo is the subset of user fields safe to show to collaborators.
type PublicInfo struct {
	ID        string `json:"_id"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Public returns the collaborator-visible view. Restricted viewers only ever
// see the id.
func (u User) Public(restricted bool) PublicInfo {
	if restricted {
		return PublicInfo{ID: u.ID}
	}
	return PublicInfo{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}
