package access

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"dataward.org/internal/model"
	"dataward.org/internal/store"
)

func newMockData(t *testing.T) (*Data, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(store.NewWithDB(db)), mock
}

func rootUser() *model.User {
	return &model.User{ID: "u-root", Username: "admin", Role: model.RoleRoot}
}

func normalUser() *model.User {
	return &model.User{ID: "u-alice", Username: "alice", Role: model.RoleUser}
}

func serviceUser() *model.User {
	return &model.User{ID: "u-svc", Username: "bridge", Role: model.RoleService}
}

var userColumns = []string{
	"id", "username", "fullname", "email", "role",
	"password_hash", "password_date", "second_factor",
	"created_at", "updated_at",
}

func userRow(u *model.User) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(userColumns).AddRow(
		u.ID, u.Username, u.FullName, u.Email, string(u.Role),
		u.PasswordHash, now, nil, now, now,
	)
}

func TestOpenRejectsServiceAndNilUser(t *testing.T) {
	data, _ := newMockData(t)

	if _, err := data.Open(context.Background(), nil); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
	if _, err := data.Open(context.Background(), serviceUser()); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
}

func TestCloseCommitsStagedWrites(t *testing.T) {
	data, mock := newMockData(t)

	mock.ExpectBegin()
	mock.ExpectExec(`insert into tags`).
		WithArgs(sqlmock.AnyArg(), "u-alice", "work", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, err := data.Open(context.Background(), normalUser())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer c.Close()

	if err := c.Tags.Create(context.Background(), &model.Tag{Title: "work"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestAbortDiscardsStagedWrites(t *testing.T) {
	data, mock := newMockData(t)

	mock.ExpectBegin()
	mock.ExpectExec(`insert into tags`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	c, err := data.Open(context.Background(), normalUser())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer c.Close()

	if err := c.Tags.Create(context.Background(), &model.Tag{Title: "scrap"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := c.Abort(); err != nil {
		t.Fatalf("abort: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestOpenServiceHappyPath(t *testing.T) {
	data, mock := newMockData(t)

	svc := serviceUser()
	if err := svc.SetPassword("bridge-secret"); err != nil {
		t.Fatalf("set password: %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`select .+ from users where username = \$1 and role = \$2 limit 2`).
		WithArgs("bridge", "service").
		WillReturnRows(userRow(svc))
	mock.ExpectCommit()

	c, err := data.OpenService(context.Background(), "bridge", "bridge-secret")
	if err != nil {
		t.Fatalf("open service: %v", err)
	}
	if c.User().Username != "bridge" {
		t.Fatalf("bound user = %q, want bridge", c.User().Username)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestOpenServiceRejectsMissingCredentials(t *testing.T) {
	data, _ := newMockData(t)

	if _, err := data.OpenService(context.Background(), "", ""); !errors.Is(err, ErrServiceUserNotConfigured) {
		t.Fatalf("err = %v, want ErrServiceUserNotConfigured", err)
	}
}

func TestOpenServiceRejectsUnknownAccount(t *testing.T) {
	data, mock := newMockData(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`select .+ from users where username = \$1 and role = \$2 limit 2`).
		WithArgs("ghost", "service").
		WillReturnRows(sqlmock.NewRows(userColumns))
	mock.ExpectRollback()

	if _, err := data.OpenService(context.Background(), "ghost", "pw"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestOpenServiceRejectsWrongPassword(t *testing.T) {
	data, mock := newMockData(t)

	svc := serviceUser()
	if err := svc.SetPassword("correct"); err != nil {
		t.Fatalf("set password: %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`select .+ from users where username = \$1 and role = \$2 limit 2`).
		WithArgs("bridge", "service").
		WillReturnRows(userRow(svc))
	mock.ExpectRollback()

	if _, err := data.OpenService(context.Background(), "bridge", "wrong"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestServiceUserByToken(t *testing.T) {
	data, mock := newMockData(t)

	svc := serviceUser()
	if err := svc.SetPassword("pw"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	owner := normalUser()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`select .+ from users where username = \$1 and role = \$2 limit 2`).
		WillReturnRows(userRow(svc))
	mock.ExpectQuery(`select .+ from api_tokens where token = \$1 limit 2`).
		WithArgs("tok-value").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "owner_id", "api_client_id", "title", "token",
			"enabled", "expires", "created_at",
		}).AddRow("tok1", owner.ID, nil, "cli", "tok-value", true, now.Add(time.Hour), now))
	mock.ExpectQuery(`select .+ from users where id = \$1 limit 1`).
		WithArgs(owner.ID).
		WillReturnRows(userRow(owner))
	mock.ExpectCommit()

	c, err := data.OpenService(context.Background(), "bridge", "pw")
	if err != nil {
		t.Fatalf("open service: %v", err)
	}
	defer c.Close()

	user, token, err := c.UserByToken(context.Background(), "tok-value")
	if err != nil {
		t.Fatalf("user by token: %v", err)
	}
	if user.ID != owner.ID {
		t.Fatalf("owner = %q, want %q", user.ID, owner.ID)
	}
	if token.Token != "tok-value" || !token.Enabled {
		t.Fatalf("unexpected token %+v", token)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestServiceTokenScopeNames(t *testing.T) {
	data, mock := newMockData(t)

	svc := serviceUser()
	if err := svc.SetPassword("pw"); err != nil {
		t.Fatalf("set password: %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`select .+ from users where username = \$1 and role = \$2 limit 2`).
		WillReturnRows(userRow(svc))
	mock.ExpectQuery(`select id, api_token_id, api_scope_id from api_token_scopes where api_token_id = \$1`).
		WithArgs("tok1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "api_token_id", "api_scope_id"}).
			AddRow("g1", "tok1", "s1").
			AddRow("g2", "tok1", "s2"))
	mock.ExpectQuery(`select id, module, subject from api_scopes where id in \(\$1, \$2\)`).
		WithArgs("s1", "s2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "module", "subject"}).
			AddRow("s2", "users", "read").
			AddRow("s1", "tags", "write"))
	mock.ExpectCommit()

	c, err := data.OpenService(context.Background(), "bridge", "pw")
	if err != nil {
		t.Fatalf("open service: %v", err)
	}
	defer c.Close()

	names, err := c.TokenScopeNames(context.Background(), "tok1")
	if err != nil {
		t.Fatalf("token scope names: %v", err)
	}
	if len(names) != 2 || names[0] != "tags.write" || names[1] != "users.read" {
		t.Fatalf("names = %v, want sorted [tags.write users.read]", names)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestServiceUserByUsernameUnknown(t *testing.T) {
	data, mock := newMockData(t)

	svc := serviceUser()
	if err := svc.SetPassword("pw"); err != nil {
		t.Fatalf("set password: %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`select .+ from users where username = \$1 and role = \$2 limit 2`).
		WillReturnRows(userRow(svc))
	mock.ExpectQuery(`select .+ from users where username = \$1 limit 2`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(userColumns))
	mock.ExpectCommit()

	c, err := data.OpenService(context.Background(), "bridge", "pw")
	if err != nil {
		t.Fatalf("open service: %v", err)
	}
	defer c.Close()

	if _, err := c.UserByUsername(context.Background(), "ghost"); !errors.Is(err, ErrUnknownUserAccount) {
		t.Fatalf("err = %v, want ErrUnknownUserAccount", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSelectErrorClosesServiceSession(t *testing.T) {
	data, mock := newMockData(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`select .+ from users`).WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	if _, err := data.OpenService(context.Background(), "bridge", "pw"); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
