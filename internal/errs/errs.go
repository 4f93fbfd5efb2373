// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

var (
	// ErrUnauthenticated indicates the caller presented no usable identity.
	// Page loads surface it as a redirect to login, API calls as 403 JSON.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrForbidden indicates a known identity with insufficient privilege.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates the project, token or invite no longer exists.
	// When both could apply, NotFound takes precedence over Forbidden.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a rejected-but-logged attempt, e.g. reusing the
	// current password.
	ErrConflict = errors.New("conflict")

	// ErrInvalid indicates a malformed identifier or request payload.
	ErrInvalid = errors.New("invalid")
)
