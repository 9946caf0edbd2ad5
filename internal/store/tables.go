package store

import (
	"dataward.org/internal/model"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// tableSpec binds a record kind to its table layout. The columns slice is the
// canonical order used by select, insert and update statements; the first
// column is always the primary key.
type tableSpec struct {
	table   string
	columns []string
	scan    func(rowScanner) (model.Record, error)
	values  func(model.Record) []any
}

var tables = map[model.Kind]tableSpec{
	model.KindUser: {
		table: "users",
		columns: []string{
			"id", "username", "fullname", "email", "role",
			"password_hash", "password_date", "second_factor",
			"created_at", "updated_at",
		},
		scan: func(r rowScanner) (model.Record, error) {
			var u model.User
			err := r.Scan(&u.ID, &u.Username, &u.FullName, &u.Email, &u.Role,
				&u.PasswordHash, &u.PasswordDate, &u.SecondFactor,
				&u.CreatedAt, &u.UpdatedAt)
			return &u, err
		},
		values: func(rec model.Record) []any {
			u := rec.(*model.User)
			return []any{u.ID, u.Username, u.FullName, u.Email, u.Role,
				u.PasswordHash, u.PasswordDate, u.SecondFactor,
				u.CreatedAt, u.UpdatedAt}
		},
	},
	model.KindTag: {
		table:   "tags",
		columns: []string{"id", "owner_id", "title", "color"},
		scan: func(r rowScanner) (model.Record, error) {
			var t model.Tag
			err := r.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Color)
			return &t, err
		},
		values: func(rec model.Record) []any {
			t := rec.(*model.Tag)
			return []any{t.ID, t.OwnerID, t.Title, t.Color}
		},
	},
	model.KindAPIClient: {
		table: "api_clients",
		columns: []string{
			"id", "owner_id", "app_name", "app_publisher", "redirect_url", "created_at",
		},
		scan: func(r rowScanner) (model.Record, error) {
			var c model.APIClient
			err := r.Scan(&c.ID, &c.OwnerID, &c.AppName, &c.AppPublisher,
				&c.RedirectURL, &c.CreatedAt)
			return &c, err
		},
		values: func(rec model.Record) []any {
			c := rec.(*model.APIClient)
			return []any{c.ID, c.OwnerID, c.AppName, c.AppPublisher,
				c.RedirectURL, c.CreatedAt}
		},
	},
	model.KindAPIToken: {
		table: "api_tokens",
		columns: []string{
			"id", "owner_id", "api_client_id", "title", "token",
			"enabled", "expires", "created_at",
		},
		scan: func(r rowScanner) (model.Record, error) {
			var t model.APIToken
			err := r.Scan(&t.ID, &t.OwnerID, &t.APIClientID, &t.Title, &t.Token,
				&t.Enabled, &t.Expires, &t.CreatedAt)
			return &t, err
		},
		values: func(rec model.Record) []any {
			t := rec.(*model.APIToken)
			return []any{t.ID, t.OwnerID, t.APIClientID, t.Title, t.Token,
				t.Enabled, t.Expires, t.CreatedAt}
		},
	},
	model.KindUserSetting: {
		table:   "user_settings",
		columns: []string{"id", "owner_id", "setting", "value"},
		scan: func(r rowScanner) (model.Record, error) {
			var s model.UserSetting
			err := r.Scan(&s.ID, &s.OwnerID, &s.Setting, &s.Value)
			return &s, err
		},
		values: func(rec model.Record) []any {
			s := rec.(*model.UserSetting)
			return []any{s.ID, s.OwnerID, s.Setting, s.Value}
		},
	},
	model.KindAPIScope: {
		table:   "api_scopes",
		columns: []string{"id", "module", "subject"},
		scan: func(r rowScanner) (model.Record, error) {
			var s model.APIScope
			err := r.Scan(&s.ID, &s.Module, &s.Subject)
			return &s, err
		},
		values: func(rec model.Record) []any {
			s := rec.(*model.APIScope)
			return []any{s.ID, s.Module, s.Subject}
		},
	},
	model.KindAPITokenScope: {
		table:   "api_token_scopes",
		columns: []string{"id", "api_token_id", "api_scope_id"},
		scan: func(r rowScanner) (model.Record, error) {
			var s model.APITokenScope
			err := r.Scan(&s.ID, &s.APITokenID, &s.APIScopeID)
			return &s, err
		},
		values: func(rec model.Record) []any {
			s := rec.(*model.APITokenScope)
			return []any{s.ID, s.APITokenID, s.APIScopeID}
		},
	},
}

func specFor(kind model.Kind) (tableSpec, bool) {
	spec, ok := tables[kind]
	return spec, ok
}
