package authz

import (
	"errors"
	"fmt"
)

// Policy is one admission check over a resolved token state.
type Policy interface {
	Name() string
	Check(state *State) error
}

// Chain is an ordered list of policies evaluated left to right with
// short-circuit on the first failure. Composition order is part of the
// chain's meaning and is visible in the slice itself.
type Chain []Policy

type invalidTokenPolicy struct{}

func (invalidTokenPolicy) Name() string { return "invalid_token" }

func (invalidTokenPolicy) Check(state *State) error {
	if state.IsValidUser() {
		return errors.New("an account is logged on")
	}
	return nil
}

// InvalidToken admits only callers without a resolved account. Gate for
// logged-off-only operations.
func InvalidToken() Chain {
	return Chain{invalidTokenPolicy{}}
}

type validTokenPolicy struct{}

func (validTokenPolicy) Name() string { return "valid_token" }

func (validTokenPolicy) Check(state *State) error {
	if !state.IsValidToken() {
		return errors.New("no valid token resolved")
	}
	return nil
}

// ValidToken admits only callers with a resolved account and an enabled,
// unexpired token.
func ValidToken() Chain {
	return Chain{validTokenPolicy{}}
}

type shortLivedPolicy struct{}

func (shortLivedPolicy) Name() string { return "short_lived_token" }

func (shortLivedPolicy) Check(state *State) error {
	if !state.IsShortLived() {
		return errors.New("token is not a session token")
	}
	return nil
}

// ShortLivedToken admits only valid session tokens. The chain makes the
// composition with the validity check explicit.
func ShortLivedToken() Chain {
	return Chain{validTokenPolicy{}, shortLivedPolicy{}}
}

type scopePolicy struct {
	required        []string
	allowShortLived bool
}

func (scopePolicy) Name() string { return "api_scope" }

func (p scopePolicy) Check(state *State) error {
	if state.IsShortLived() {
		if p.allowShortLived {
			return nil
		}
		return errors.New("session tokens are not allowed for this operation")
	}
	// Long lived tokens need every required scope; missing any one fails.
	for _, name := range p.required {
		if !state.HasScope(name) {
			return fmt.Errorf("scope %q not granted", name)
		}
	}
	return nil
}

// ScopeOption configures RequireScopes.
type ScopeOption func(*scopePolicy)

// DisallowShortLived makes the scope check reject session tokens instead of
// exempting them.
func DisallowShortLived() ScopeOption {
	return func(p *scopePolicy) { p.allowShortLived = false }
}

// RequireScopes admits valid long lived tokens granted every one of the
// required dotted scope names. Session tokens are exempt unless explicitly
// disallowed.
func RequireScopes(required []string, opts ...ScopeOption) Chain {
	p := scopePolicy{required: required, allowShortLived: true}
	for _, opt := range opts {
		opt(&p)
	}
	return Chain{validTokenPolicy{}, p}
}
