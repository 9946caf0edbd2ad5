// Package seed bulk-loads users, their owned resources and the scope catalog
// from a JSON document. Seeding writes through the store directly: it is a
// provisioning step that runs before the access engine is exercised, not an
// operation performed on behalf of a user.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"dataward.org/internal/model"
	"dataward.org/internal/obs"
	"dataward.org/internal/store"
)

// File is the root of a seed document.
type File struct {
	APIScopes []ScopeSpec `json:"api_scopes"`
	Users     []UserSpec  `json:"users"`
}

// ScopeSpec declares one catalog scope.
type ScopeSpec struct {
	Module  string `json:"module"`
	Subject string `json:"subject"`
}

// UserSpec declares one account with its owned resources.
type UserSpec struct {
	Username     string  `json:"username"`
	FullName     string  `json:"fullname"`
	Email        string  `json:"email"`
	Role         string  `json:"role"`
	Password     string  `json:"password"`
	SecondFactor *string `json:"second_factor,omitempty"`

	Tags         []TagSpec     `json:"tags,omitempty"`
	APIClients   []ClientSpec  `json:"api_clients,omitempty"`
	APITokens    []TokenSpec   `json:"api_tokens,omitempty"`
	UserSettings []SettingSpec `json:"user_settings,omitempty"`
}

// TagSpec declares one tag.
type TagSpec struct {
	Title string `json:"title"`
	Color string `json:"color,omitempty"`
}

// ClientSpec declares one registered API client.
type ClientSpec struct {
	AppName      string `json:"app_name"`
	AppPublisher string `json:"app_publisher"`
	RedirectURL  string `json:"redirect_url,omitempty"`
}

// TokenSpec declares one API token. Client references the app_name of one of
// the user's api_clients to make the token long lived; Scopes grants catalog
// scopes by dotted name.
type TokenSpec struct {
	Title   string    `json:"title"`
	Token   string    `json:"token"`
	Enabled bool      `json:"enabled"`
	Expires time.Time `json:"expires"`
	Client  string    `json:"client,omitempty"`
	Scopes  []string  `json:"scopes,omitempty"`
}

// SettingSpec declares one user setting.
type SettingSpec struct {
	Setting string `json:"setting"`
	Value   string `json:"value"`
}

// LoadFile seeds the store from a JSON file on disk.
func LoadFile(ctx context.Context, st *store.Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("seed: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(ctx, st, f)
}

// Load seeds the store from a JSON document. The whole load is one
// transaction: either everything lands or nothing does.
func Load(ctx context.Context, st *store.Store, r io.Reader) error {
	var doc File
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("seed: decode: %w", err)
	}

	sess := st.Session()
	defer sess.Close()

	scopeIDs := make(map[string]string, len(doc.APIScopes))
	for _, spec := range doc.APIScopes {
		scope := &model.APIScope{Module: spec.Module, Subject: spec.Subject}
		if err := scope.Validate(); err != nil {
			return fmt.Errorf("seed: scope %s.%s: %w", spec.Module, spec.Subject, err)
		}
		if err := sess.StageAdd(ctx, scope); err != nil {
			return err
		}
		scopeIDs[scope.Name()] = scope.ID
	}

	for _, spec := range doc.Users {
		if err := loadUser(ctx, sess, spec, scopeIDs); err != nil {
			return err
		}
	}

	if err := sess.Commit(); err != nil {
		return err
	}
	obs.Event(map[string]any{
		"msg":    "seed loaded",
		"users":  len(doc.Users),
		"scopes": len(doc.APIScopes),
	})
	return nil
}

func loadUser(ctx context.Context, sess *store.Session, spec UserSpec, scopeIDs map[string]string) error {
	user := &model.User{
		Username:     spec.Username,
		FullName:     spec.FullName,
		Email:        spec.Email,
		Role:         model.Role(spec.Role),
		SecondFactor: spec.SecondFactor,
	}
	if spec.Password != "" {
		if err := user.SetPassword(spec.Password); err != nil {
			return fmt.Errorf("seed: user %s: %w", spec.Username, err)
		}
	}
	if err := user.Validate(); err != nil {
		return fmt.Errorf("seed: user %s: %w", spec.Username, err)
	}
	if err := sess.StageAdd(ctx, user); err != nil {
		return err
	}

	for _, t := range spec.Tags {
		tag := &model.Tag{OwnerID: user.ID, Title: t.Title, Color: t.Color}
		if err := sess.StageAdd(ctx, tag); err != nil {
			return err
		}
	}
	for _, s := range spec.UserSettings {
		setting := &model.UserSetting{OwnerID: user.ID, Setting: s.Setting, Value: s.Value}
		if err := sess.StageAdd(ctx, setting); err != nil {
			return err
		}
	}

	clientIDs := make(map[string]string, len(spec.APIClients))
	for _, c := range spec.APIClients {
		client := &model.APIClient{
			OwnerID:      user.ID,
			AppName:      c.AppName,
			AppPublisher: c.AppPublisher,
			RedirectURL:  c.RedirectURL,
		}
		if err := sess.StageAdd(ctx, client); err != nil {
			return err
		}
		clientIDs[c.AppName] = client.ID
	}

	for _, t := range spec.APITokens {
		value := t.Token
		if value == "" {
			generated, err := model.NewTokenValue()
			if err != nil {
				return fmt.Errorf("seed: token %s: %w", t.Title, err)
			}
			value = generated
		}
		token := &model.APIToken{
			OwnerID: user.ID,
			Title:   t.Title,
			Token:   value,
			Enabled: t.Enabled,
			Expires: t.Expires,
		}
		if t.Client != "" {
			clientID, ok := clientIDs[t.Client]
			if !ok {
				return fmt.Errorf("seed: token %s references unknown client %q",
					t.Title, t.Client)
			}
			token.APIClientID = &clientID
		}
		if err := sess.StageAdd(ctx, token); err != nil {
			return err
		}
		for _, name := range t.Scopes {
			scopeID, ok := scopeIDs[name]
			if !ok {
				return fmt.Errorf("seed: token %s references unknown scope %q",
					t.Title, name)
			}
			grant := &model.APITokenScope{APITokenID: token.ID, APIScopeID: scopeID}
			if err := sess.StageAdd(ctx, grant); err != nil {
				return err
			}
		}
	}
	return nil
}
