package authz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"dataward.org/internal/access"
	"dataward.org/internal/model"
	"dataward.org/internal/store"
)

var tokenColumns = []string{
	"id", "owner_id", "api_client_id", "title", "token",
	"enabled", "expires", "created_at",
}

var userColumns = []string{
	"id", "username", "fullname", "email", "role",
	"password_hash", "password_date", "second_factor",
	"created_at", "updated_at",
}

func newMockResolver(t *testing.T) (*Resolver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	data := access.New(store.NewWithDB(db))
	r := NewResolver(data, "bridge", "bridge-pw", WithClock(func() time.Time { return testNow }))
	return r, mock
}

func bridgeRow(t *testing.T) *sqlmock.Rows {
	t.Helper()
	svc := &model.User{ID: "u-svc", Username: "bridge", Role: model.RoleService}
	if err := svc.SetPassword("bridge-pw"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	return sqlmock.NewRows(userColumns).AddRow(
		svc.ID, svc.Username, "", "", string(svc.Role),
		svc.PasswordHash, testNow, nil, testNow, testNow,
	)
}

func ownerRow() *sqlmock.Rows {
	return sqlmock.NewRows(userColumns).AddRow(
		"u-alice", "alice", "Alice", "alice@example.org", "user",
		"x", testNow, nil, testNow, testNow,
	)
}

func expectBridgeLogin(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	mock.ExpectBegin()
	mock.ExpectQuery(`select .+ from users where username = \$1 and role = \$2 limit 2`).
		WithArgs("bridge", "service").
		WillReturnRows(bridgeRow(t))
}

func TestResolveShortLivedToken(t *testing.T) {
	r, mock := newMockResolver(t)

	expectBridgeLogin(t, mock)
	mock.ExpectQuery(`select .+ from api_tokens where token = \$1 limit 2`).
		WithArgs("tok-value").
		WillReturnRows(sqlmock.NewRows(tokenColumns).AddRow(
			"t1", "u-alice", nil, "session", "tok-value",
			true, testNow.Add(time.Hour), testNow,
		))
	mock.ExpectQuery(`select .+ from users where id = \$1 limit 1`).
		WithArgs("u-alice").
		WillReturnRows(ownerRow())
	mock.ExpectCommit()

	auth := r.Token("tok-value")
	state, err := auth.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !state.IsValidToken() || !state.IsShortLived() {
		t.Fatalf("unexpected state: user=%v token=%v", state.User, state.Token)
	}
	if state.User.Username != "alice" {
		t.Fatalf("resolved user = %q, want alice", state.User.Username)
	}
	// No scope loading for session tokens.
	if state.ScopeNames != nil {
		t.Fatalf("session token has scopes %v", state.ScopeNames)
	}

	// The second resolve reuses the cached state without touching the store.
	if _, err := auth.Resolve(context.Background()); err != nil {
		t.Fatalf("cached resolve: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestResolveLongLivedTokenLoadsScopes(t *testing.T) {
	r, mock := newMockResolver(t)

	expectBridgeLogin(t, mock)
	mock.ExpectQuery(`select .+ from api_tokens where token = \$1 limit 2`).
		WithArgs("tok-value").
		WillReturnRows(sqlmock.NewRows(tokenColumns).AddRow(
			"t1", "u-alice", "client1", "integration", "tok-value",
			true, testNow.Add(24*time.Hour), testNow,
		))
	mock.ExpectQuery(`select .+ from users where id = \$1 limit 1`).
		WillReturnRows(ownerRow())
	mock.ExpectQuery(`select .+ from api_token_scopes where api_token_id = \$1`).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "api_token_id", "api_scope_id"}).
			AddRow("g1", "t1", "s1"))
	mock.ExpectQuery(`select .+ from api_scopes where id in \(\$1\)`).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "module", "subject"}).
			AddRow("s1", "users", "read"))
	mock.ExpectCommit()

	state, err := r.Token("tok-value").Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !state.IsLongLived() {
		t.Fatal("expected a long lived token")
	}
	if len(state.ScopeNames) != 1 || state.ScopeNames[0] != "users.read" {
		t.Fatalf("scopes = %v, want [users.read]", state.ScopeNames)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestResolveUnknownTokenIsInvalidNotError(t *testing.T) {
	r, mock := newMockResolver(t)

	expectBridgeLogin(t, mock)
	mock.ExpectQuery(`select .+ from api_tokens where token = \$1 limit 2`).
		WithArgs("tok-gone").
		WillReturnRows(sqlmock.NewRows(tokenColumns))
	mock.ExpectCommit()

	state, err := r.Token("tok-gone").Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if state.IsValidUser() || state.IsValidToken() {
		t.Fatal("unknown token must resolve to an invalid state")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestResolveEmptyTokenSkipsStore(t *testing.T) {
	r, mock := newMockResolver(t)

	state, err := r.Token("").Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if state.IsValidUser() {
		t.Fatal("empty token must resolve to an invalid state")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestAuthorizeRunsChainAgainstResolvedState(t *testing.T) {
	r, mock := newMockResolver(t)

	expectBridgeLogin(t, mock)
	mock.ExpectQuery(`select .+ from api_tokens where token = \$1 limit 2`).
		WillReturnRows(sqlmock.NewRows(tokenColumns).AddRow(
			"t1", "u-alice", nil, "session", "tok-value",
			true, testNow.Add(time.Hour), testNow,
		))
	mock.ExpectQuery(`select .+ from users where id = \$1 limit 1`).
		WillReturnRows(ownerRow())
	mock.ExpectCommit()

	auth := r.Token("tok-value")
	if err := auth.Authorize(context.Background(), ValidToken()); err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
	if err := auth.Authorize(context.Background(), ShortLivedToken()); err != nil {
		t.Fatalf("session token rejected: %v", err)
	}
	// Scope checks exempt session tokens by default.
	if err := auth.Authorize(context.Background(), RequireScopes([]string{"users.read"})); err != nil {
		t.Fatalf("session token not exempt: %v", err)
	}
	err := auth.Authorize(context.Background(), RequireScopes([]string{"users.read"}, DisallowShortLived()))
	if !errors.Is(err, ErrAuthorizationFailed) {
		t.Fatalf("err = %v, want ErrAuthorizationFailed", err)
	}
	err = auth.Authorize(context.Background(), InvalidToken())
	if !errors.Is(err, ErrAuthorizationFailed) {
		t.Fatalf("err = %v, want ErrAuthorizationFailed", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestAuthorizeEmptyTokenAdmitsLoggedOffOnly(t *testing.T) {
	r, _ := newMockResolver(t)

	auth := r.Token("")
	if err := auth.Authorize(context.Background(), InvalidToken()); err != nil {
		t.Fatalf("logged-off gate rejected empty token: %v", err)
	}
	if err := auth.Authorize(context.Background(), ValidToken()); !errors.Is(err, ErrAuthorizationFailed) {
		t.Fatalf("err = %v, want ErrAuthorizationFailed", err)
	}
}

func TestResolveBridgeFailurePropagates(t *testing.T) {
	r, mock := newMockResolver(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`select .+ from users where username = \$1 and role = \$2 limit 2`).
		WillReturnRows(sqlmock.NewRows(userColumns))
	mock.ExpectRollback()

	_, err := r.Token("tok-value").Resolve(context.Background())
	if !errors.Is(err, access.ErrPermissionDenied) {
		t.Fatalf("err = %v, want access.ErrPermissionDenied", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
