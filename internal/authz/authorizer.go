// Package authz admits or rejects bearer tokens. A TokenAuthorizer resolves
// a presented token to its account and token record once, lazily, and then
// runs an explicit ordered chain of admission policies against the resolved
// state. Admission is binary: any policy failure is ErrAuthorizationFailed.
package authz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dataward.org/internal/access"
	"dataward.org/internal/model"
	"dataward.org/internal/obs"
)

// ErrAuthorizationFailed indicates a policy rejected the resolved token.
var ErrAuthorizationFailed = errors.New("authz: authorization failed")

// Resolver opens bridge service contexts to resolve bearer tokens. Construct
// one per process with the bridge credentials; it is safe for concurrent use.
type Resolver struct {
	data           *access.Data
	bridgeUsername string
	bridgePassword string
	now            func() time.Time
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithClock overrides the time source used for expiry checks.
func WithClock(fn func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if fn != nil {
			r.now = fn
		}
	}
}

// NewResolver constructs a Resolver with injected bridge credentials.
func NewResolver(data *access.Data, bridgeUsername, bridgePassword string, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		data:           data,
		bridgeUsername: bridgeUsername,
		bridgePassword: bridgePassword,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Token returns an authorizer for one presented bearer token value. The
// token is resolved at most once, on first use.
func (r *Resolver) Token(token string) *TokenAuthorizer {
	return &TokenAuthorizer{resolver: r, token: token}
}

// State is the resolved identity/token pair a policy decides on. An
// unresolvable or absent token yields a State with nil User and Token; that
// is not itself a failure, it is the invalid state policies react to.
type State struct {
	User       *model.User
	Token      *model.APIToken
	ScopeNames []string
	now        time.Time
}

// IsValidUser reports whether the token resolved to an account.
func (s *State) IsValidUser() bool { return s.User != nil }

// IsEnabled reports whether the token record is enabled.
func (s *State) IsEnabled() bool { return s.Token != nil && s.Token.Enabled }

// IsNotExpired reports whether the token expiry lies in the future.
func (s *State) IsNotExpired() bool {
	return s.Token != nil && !s.Token.Expired(s.now)
}

// IsValidToken is the conjunction of a resolved account, an enabled token
// and an unexpired token.
func (s *State) IsValidToken() bool {
	return s.IsValidUser() && s.IsEnabled() && s.IsNotExpired()
}

// IsLongLived reports whether the token is bound to a registered API client.
func (s *State) IsLongLived() bool { return s.Token != nil && s.Token.LongLived() }

// IsShortLived reports whether the token is a session token without a
// registered API client.
func (s *State) IsShortLived() bool { return s.Token != nil && !s.Token.LongLived() }

// HasScope reports whether the dotted scope name was granted to the token.
func (s *State) HasScope(name string) bool {
	for _, granted := range s.ScopeNames {
		if granted == name {
			return true
		}
	}
	return false
}

// TokenAuthorizer caches the resolution of one bearer token and runs policy
// chains against it. Not safe for concurrent use.
type TokenAuthorizer struct {
	resolver *Resolver
	token    string

	resolved bool
	state    State
}

// Resolve returns the resolved state for the token, loading it on first
// call. An absent or unknown token resolves to an invalid state, not an
// error; errors are reserved for store failures.
func (t *TokenAuthorizer) Resolve(ctx context.Context) (*State, error) {
	if t.resolved {
		return &t.state, nil
	}
	state := State{now: t.resolver.now().UTC()}
	if t.token != "" {
		svc, err := t.resolver.data.OpenService(ctx, t.resolver.bridgeUsername, t.resolver.bridgePassword)
		if err != nil {
			return nil, err
		}
		defer svc.Close()

		user, apiToken, err := svc.UserByToken(ctx, t.token)
		switch {
		case errors.Is(err, access.ErrUnknownUserAccount):
			// Unknown token: resolved, invalid.
		case err != nil:
			return nil, err
		default:
			state.User = user
			state.Token = apiToken
			if apiToken.LongLived() {
				names, err := svc.TokenScopeNames(ctx, apiToken.ID)
				if err != nil {
					return nil, err
				}
				state.ScopeNames = names
			}
		}
	}
	t.state = state
	t.resolved = true
	return &t.state, nil
}

// Authorize resolves the token and evaluates the chain left to right,
// stopping at the first failing policy.
func (t *TokenAuthorizer) Authorize(ctx context.Context, chain Chain) error {
	state, err := t.Resolve(ctx)
	if err != nil {
		return err
	}
	for _, policy := range chain {
		if err := policy.Check(state); err != nil {
			obs.RecordAuthzDecision(policy.Name(), "deny")
			return fmt.Errorf("%w: %s: %v", ErrAuthorizationFailed, policy.Name(), err)
		}
		obs.RecordAuthzDecision(policy.Name(), "allow")
	}
	return nil
}
