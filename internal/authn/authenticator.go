// Package authn turns weak credentials (username, password, optional TOTP
// code) into a verified user account, and issues short lived session tokens
// for authenticated users.
package authn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"dataward.org/internal/access"
	"dataward.org/internal/model"
	"dataward.org/internal/obs"
)

// ErrAuthenticationFailed is the only failure Authenticate reports. Account
// lookup misses and credential mismatches are deliberately folded into one
// outcome so callers cannot probe which usernames exist.
var ErrAuthenticationFailed = errors.New("authn: authentication failed")

const (
	defaultLoginRate  = rate.Limit(10)
	defaultLoginBurst = 20
)

// Authenticator validates presented credentials through the bridge service
// account. Construct one per process; it is safe for concurrent use.
type Authenticator struct {
	data           *access.Data
	bridgeUsername string
	bridgePassword string
	limiter        *rate.Limiter
	now            func() time.Time
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithLoginRate bounds the credential verification rate across all callers.
func WithLoginRate(limit rate.Limit, burst int) Option {
	return func(a *Authenticator) {
		a.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithClock overrides the time source. Useful in tests.
func WithClock(fn func() time.Time) Option {
	return func(a *Authenticator) {
		if fn != nil {
			a.now = fn
		}
	}
}

// New constructs an Authenticator with the bridge credentials it will use to
// resolve accounts.
func New(data *access.Data, bridgeUsername, bridgePassword string, opts ...Option) *Authenticator {
	a := &Authenticator{
		data:           data,
		bridgeUsername: bridgeUsername,
		bridgePassword: bridgePassword,
		limiter:        rate.NewLimiter(defaultLoginRate, defaultLoginBurst),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authenticate verifies the credentials and returns the matching account.
// Service accounts can never authenticate this way.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string, secondFactor *string) (*model.User, error) {
	if !a.limiter.Allow() {
		obs.RecordAuthnAttempt("throttled")
		return nil, ErrAuthenticationFailed
	}

	// Bridge failures are about this process, not the presented credentials;
	// they propagate as themselves.
	svc, err := a.data.OpenService(ctx, a.bridgeUsername, a.bridgePassword)
	if err != nil {
		return nil, err
	}
	defer svc.Close()

	user, err := svc.UserByUsername(ctx, username)
	if err != nil {
		obs.RecordAuthnAttempt("failure")
		return nil, ErrAuthenticationFailed
	}
	if user.Role == model.RoleService {
		obs.RecordAuthnAttempt("failure")
		return nil, ErrAuthenticationFailed
	}
	// A second factor offered against an account without one configured is
	// treated the same as a wrong code.
	if secondFactor != nil && !user.HasSecondFactor() {
		obs.RecordAuthnAttempt("failure")
		return nil, ErrAuthenticationFailed
	}
	if !user.VerifyCredentials(password, secondFactor) {
		obs.RecordAuthnAttempt("failure")
		return nil, ErrAuthenticationFailed
	}

	obs.RecordAuthnAttempt("success")
	return user, nil
}

// IssueToken creates a short lived session token for an authenticated user
// and returns the raw token value. This is the only moment the raw value is
// available; the store keeps it for resolution only.
func (a *Authenticator) IssueToken(ctx context.Context, user *model.User, ttl time.Duration, title string) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("authn: token ttl must be positive")
	}
	value, err := model.NewTokenValue()
	if err != nil {
		return "", fmt.Errorf("authn: generate token: %w", err)
	}
	token := &model.APIToken{
		Title:   title,
		Token:   value,
		Enabled: true,
		Expires: a.now().UTC().Add(ttl),
	}

	c, err := a.data.Open(ctx, user)
	if err != nil {
		return "", err
	}
	defer c.Close()

	if err := c.APITokens.Create(ctx, token); err != nil {
		_ = c.Abort()
		return "", err
	}
	if err := c.Close(); err != nil {
		return "", err
	}
	obs.RecordTokenIssued()
	return value, nil
}
