package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Tag is a user-owned label.
type Tag struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Title   string `json:"title"`
	Color   string `json:"color,omitempty"`
}

func (t *Tag) RecordKind() Kind { return KindTag }
func (t *Tag) RecordID() string { return t.ID }
func (t *Tag) SetRecordID(id string) { t.ID = id }
func (t *Tag) Owner() string { return t.OwnerID }
func (t *Tag) SetOwner(userID string) { t.OwnerID = userID }

func (t *Tag) Validate() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.Title, validation.Required, validation.Length(1, 128)),
		validation.Field(&t.Color, validation.Length(0, 32)),
	)
}

// APIClient is a registered application allowed to request long-lived tokens.
type APIClient struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	AppName      string    `json:"app_name"`
	AppPublisher string    `json:"app_publisher"`
	RedirectURL  string    `json:"redirect_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (c *APIClient) RecordKind() Kind { return KindAPIClient }
func (c *APIClient) RecordID() string { return c.ID }
func (c *APIClient) SetRecordID(id string) { c.ID = id }
func (c *APIClient) Owner() string { return c.OwnerID }
func (c *APIClient) SetOwner(userID string) { c.OwnerID = userID }

func (c *APIClient) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.AppName, validation.Required, validation.Length(1, 128)),
		validation.Field(&c.AppPublisher, validation.Required, validation.Length(1, 128)),
	)
}

// APIToken is a bearer credential owned by a user. A token tied to an API
// client is long lived and constrained by granted scopes; a token without a
// client is a short lived session token.
type APIToken struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	APIClientID *string   `json:"api_client_id,omitempty"`
	Title       string    `json:"title"`
	Token       string    `json:"-"`
	Enabled     bool      `json:"enabled"`
	Expires     time.Time `json:"expires"`
	CreatedAt   time.Time `json:"created_at"`
}

func (t *APIToken) RecordKind() Kind { return KindAPIToken }
func (t *APIToken) RecordID() string { return t.ID }
func (t *APIToken) SetRecordID(id string) { t.ID = id }
func (t *APIToken) Owner() string { return t.OwnerID }
func (t *APIToken) SetOwner(userID string) { t.OwnerID = userID }

// LongLived reports whether the token is bound to a registered API client.
func (t *APIToken) LongLived() bool {
	return t.APIClientID != nil && *t.APIClientID != ""
}

// Expired reports whether the token expiry lies at or before now.
func (t *APIToken) Expired(now time.Time) bool {
	return !t.Expires.After(now)
}

func (t *APIToken) Validate() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.Title, validation.Required, validation.Length(1, 128)),
		validation.Field(&t.Expires, validation.Required),
	)
}

// UserSetting is a per-user configuration entry.
type UserSetting struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Setting string `json:"setting"`
	Value   string `json:"value"`
}

func (s *UserSetting) RecordKind() Kind { return KindUserSetting }
func (s *UserSetting) RecordID() string { return s.ID }
func (s *UserSetting) SetRecordID(id string) { s.ID = id }
func (s *UserSetting) Owner() string { return s.OwnerID }
func (s *UserSetting) SetOwner(userID string) { s.OwnerID = userID }

func (s *UserSetting) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Setting, validation.Required, validation.Length(1, 128)),
	)
}
