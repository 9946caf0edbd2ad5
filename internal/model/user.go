package model

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Role classifies a user account.
type Role string

const (
	// RoleRoot may manage all user accounts and its own resources.
	RoleRoot Role = "root"
	// RoleUser may manage only its own account and its own resources.
	RoleUser Role = "user"
	// RoleService may resolve accounts and tokens but owns no resources.
	RoleService Role = "service"
)

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleRoot, RoleUser, RoleService:
		return true
	}
	return false
}

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{1,63}$`)

// User is a user account. The SecondFactor field holds a TOTP secret when
// two-factor authentication is configured for the account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	FullName     string    `json:"fullname"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	PasswordDate time.Time `json:"password_date"`
	SecondFactor *string   `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) RecordKind() Kind { return KindUser }
func (u *User) RecordID() string { return u.ID }
func (u *User) SetRecordID(id string) { u.ID = id }

// HasSecondFactor reports whether two-factor authentication is configured.
func (u *User) HasSecondFactor() bool {
	return u.SecondFactor != nil && *u.SecondFactor != ""
}

// Validate checks the fields that must be set before the account is stored.
func (u *User) Validate() error {
	return validation.ValidateStruct(u,
		validation.Field(&u.Username, validation.Required, validation.Match(usernamePattern)),
		validation.Field(&u.FullName, validation.Required, validation.Length(1, 128)),
		validation.Field(&u.Email, validation.Required, validation.Length(3, 128)),
		validation.Field(&u.Role, validation.Required, validation.By(func(any) error {
			if !u.Role.Valid() {
				return validation.NewError("validation_role", "must be root, user or service")
			}
			return nil
		})),
	)
}
