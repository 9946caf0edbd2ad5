package model

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var scopePartPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// APIScope is a global permission name. Scopes are not owned by any user and
// are read only from the engine's perspective.
type APIScope struct {
	ID      string `json:"id"`
	Module  string `json:"module"`
	Subject string `json:"subject"`
}

func (s *APIScope) RecordKind() Kind { return KindAPIScope }
func (s *APIScope) RecordID() string { return s.ID }
func (s *APIScope) SetRecordID(id string) { s.ID = id }

// Name returns the dotted scope name, "module.subject".
func (s *APIScope) Name() string {
	return s.Module + "." + s.Subject
}

func (s *APIScope) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Module, validation.Required, validation.Match(scopePartPattern)),
		validation.Field(&s.Subject, validation.Required, validation.Match(scopePartPattern)),
	)
}

// APITokenScope grants an API scope to a long lived token.
type APITokenScope struct {
	ID         string `json:"id"`
	APITokenID string `json:"api_token_id"`
	APIScopeID string `json:"api_scope_id"`
}

func (s *APITokenScope) RecordKind() Kind { return KindAPITokenScope }
func (s *APITokenScope) RecordID() string { return s.ID }
func (s *APITokenScope) SetRecordID(id string) { s.ID = id }
