package access

import (
	"context"
	"fmt"
	"sort"

	"dataward.org/internal/model"
	"dataward.org/internal/store"
)

// ServiceContext is the context specialization for the bridge service
// account. It resolves accounts and tokens without ownership filtering: a
// service account owns nothing, so there is nothing to filter by. All
// lookups still fail explicitly when no record matches.
type ServiceContext struct {
	sessionHandle
	user *model.User
}

// User returns the service account the context is bound to.
func (c *ServiceContext) User() *model.User { return c.user }

// UserByUsername resolves an account by its exact username.
func (c *ServiceContext) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	recs, err := c.sess.Select(ctx, model.KindUser, store.Query{
		Where: store.Eq("username", username),
		Limit: 2,
	})
	if err != nil {
		return nil, err
	}
	if len(recs) != 1 {
		return nil, fmt.Errorf("%w: username %q", ErrUnknownUserAccount, username)
	}
	return recs[0].(*model.User), nil
}

// UserByToken resolves the owner of a bearer token value, together with the
// token record itself.
func (c *ServiceContext) UserByToken(ctx context.Context, token string) (*model.User, *model.APIToken, error) {
	recs, err := c.sess.Select(ctx, model.KindAPIToken, store.Query{
		Where: store.Eq("token", token),
		Limit: 2,
	})
	if err != nil {
		return nil, nil, err
	}
	if len(recs) != 1 {
		return nil, nil, fmt.Errorf("%w: token not found", ErrUnknownUserAccount)
	}
	apiToken := recs[0].(*model.APIToken)

	users, err := c.sess.Select(ctx, model.KindUser, store.Query{
		Where: store.Eq("id", apiToken.OwnerID),
		Limit: 1,
	})
	if err != nil {
		return nil, nil, err
	}
	if len(users) != 1 {
		return nil, nil, fmt.Errorf("%w: token owner not found", ErrUnknownUserAccount)
	}
	return users[0].(*model.User), apiToken, nil
}

// Scopes lists the global scope catalog, optionally filtered.
func (c *ServiceContext) Scopes(ctx context.Context, pred store.Predicate) ([]*model.APIScope, error) {
	recs, err := c.sess.Select(ctx, model.KindAPIScope, store.Query{
		Where: pred,
		Sort:  []store.Sort{{Column: "module"}, {Column: "subject"}},
	})
	if err != nil {
		return nil, err
	}
	return asTyped[*model.APIScope](recs)
}

// TokenScopeNames returns the sorted dotted names of every scope granted to
// the given token.
func (c *ServiceContext) TokenScopeNames(ctx context.Context, tokenID string) ([]string, error) {
	grants, err := c.sess.Select(ctx, model.KindAPITokenScope, store.Query{
		Where: store.Eq("api_token_id", tokenID),
	})
	if err != nil {
		return nil, err
	}
	if len(grants) == 0 {
		return nil, nil
	}
	scopeIDs := make([]any, 0, len(grants))
	for _, g := range grants {
		scopeIDs = append(scopeIDs, g.(*model.APITokenScope).APIScopeID)
	}
	scopes, err := c.sess.Select(ctx, model.KindAPIScope, store.Query{
		Where: store.In("id", scopeIDs...),
	})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(scopes))
	for _, s := range scopes {
		names = append(names, s.(*model.APIScope).Name())
	}
	sort.Strings(names)
	return names, nil
}
