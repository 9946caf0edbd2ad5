package access

import (
	"context"
	"errors"
	"fmt"

	"dataward.org/internal/model"
	"dataward.org/internal/obs"
	"dataward.org/internal/store"
)

// Data is the root of the access engine. It owns the store handle and opens
// identity-bound contexts against it.
type Data struct {
	store *store.Store
}

// New constructs the engine over an opened store.
func New(st *store.Store) *Data {
	return &Data{store: st}
}

// sessionHandle carries the session lifecycle shared by AccessContext and
// ServiceContext. The session must be released exactly once on every exit
// path; callers are expected to `defer c.Close()` right after opening.
type sessionHandle struct {
	sess    *store.Session
	traceID string
}

// Commit makes all staged writes durable without releasing the session.
func (h *sessionHandle) Commit() error { return h.sess.Commit() }

// Abort discards staged writes without releasing the session. The caller
// still has to close the context.
func (h *sessionHandle) Abort() error { return h.sess.Rollback() }

// Close commits pending writes and releases the session. Safe to call after
// Abort and safe to call more than once.
func (h *sessionHandle) Close() error {
	commitErr := h.sess.Commit()
	closeErr := h.sess.Close()
	return errors.Join(commitErr, closeErr)
}

// AccessContext binds one user account to one transactional session and
// exposes a ResourceManager per record kind. Every manipulation performed
// through it carries the permissions of the bound user.
type AccessContext struct {
	sessionHandle
	user *model.User

	Users        *ResourceManager[*model.User]
	Tags         *ResourceManager[*model.Tag]
	APIClients   *ResourceManager[*model.APIClient]
	APITokens    *ResourceManager[*model.APIToken]
	UserSettings *ResourceManager[*model.UserSetting]
}

// User returns the account the context is bound to.
func (c *AccessContext) User() *model.User { return c.user }

// Open binds a root or normal user to a fresh session. Service accounts
// cannot open a normal access context; use OpenService instead.
func (d *Data) Open(ctx context.Context, user *model.User) (*AccessContext, error) {
	if user == nil {
		return nil, fmt.Errorf("%w: no user bound to context", ErrPermissionDenied)
	}
	if user.Role != model.RoleRoot && user.Role != model.RoleUser {
		return nil, fmt.Errorf("%w: role %q cannot open an access context",
			ErrPermissionDenied, user.Role)
	}
	sess := d.store.Session()
	c := &AccessContext{
		sessionHandle: sessionHandle{sess: sess, traceID: obs.NewTraceID()},
		user:          user,
	}
	c.Users = newResourceManager[*model.User](model.KindUser, sess, user)
	c.Tags = newResourceManager[*model.Tag](model.KindTag, sess, user)
	c.APIClients = newResourceManager[*model.APIClient](model.KindAPIClient, sess, user)
	c.APITokens = newResourceManager[*model.APIToken](model.KindAPIToken, sess, user)
	c.UserSettings = newResourceManager[*model.UserSetting](model.KindUserSetting, sess, user)

	obs.Event(map[string]any{
		"msg":      "access context opened",
		"trace_id": c.traceID,
		"user":     user.Username,
		"role":     string(user.Role),
	})
	return c, nil
}

// OpenService authenticates the bridge service account and binds it to a
// fresh session. Only service accounts can be opened this way.
func (d *Data) OpenService(ctx context.Context, username, password string) (*ServiceContext, error) {
	if username == "" || password == "" {
		return nil, ErrServiceUserNotConfigured
	}
	sess := d.store.Session()
	recs, err := sess.Select(ctx, model.KindUser, store.Query{
		Where: store.And(
			store.Eq("username", username),
			store.Eq("role", string(model.RoleService)),
		),
		Limit: 2,
	})
	if err != nil {
		_ = sess.Close()
		return nil, err
	}
	if len(recs) != 1 {
		_ = sess.Close()
		return nil, fmt.Errorf("%w: service account %q does not exist",
			ErrPermissionDenied, username)
	}
	user := recs[0].(*model.User)
	if !user.VerifyCredentials(password, nil) {
		_ = sess.Close()
		return nil, fmt.Errorf("%w: service account credentials rejected",
			ErrPermissionDenied)
	}
	return &ServiceContext{
		sessionHandle: sessionHandle{sess: sess, traceID: obs.NewTraceID()},
		user:          user,
	}, nil
}
