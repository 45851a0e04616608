package types

import "time"

// User represents a rider, driver or administrator account.
// It contains identity, optional profile data, and the admin flag.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Name is the user's display or family name.
	Name string `json:"name" db:"name"`

	// FirstName is the user's optional given name.
	FirstName *string `json:"first_name" db:"first_name"`

	// Gender is an optional free-form gender label.
	Gender *string `json:"gender" db:"gender"`

	// Email is the unique login address of the user.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password"`

	// Phone is the optional phone number used for SMS notifications.
	Phone *string `json:"phone" db:"phone"`

	// IsAdmin grants access to the administration API.
	IsAdmin bool `json:"is_admin" db:"is_admin"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ProfileUpdate carries the profile fields a user may change on their own
// account. Nil fields are left untouched.
type ProfileUpdate struct {
	Name      *string
	FirstName *string
	Gender    *string
	Phone     *string
}

// Empty reports whether the update changes nothing.
func (p ProfileUpdate) Empty() bool {
	return p.Name == nil && p.FirstName == nil && p.Gender == nil && p.Phone == nil
}

// Principal is the authenticated caller extracted from a bearer token.
type Principal struct {
	UserID  int
	IsAdmin bool
}
