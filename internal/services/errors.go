package services

import "errors"

var (
	// ErrInvalidCredentials is returned when an email/password pair does not
	// match an account.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotAdmin is returned when valid credentials belong to a non-admin
	// account on the admin login.
	ErrNotAdmin = errors.New("not an admin")
	// ErrForbidden is returned when the principal may not act on a resource.
	ErrForbidden = errors.New("forbidden")
)
