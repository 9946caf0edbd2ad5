package access

import (
	"context"
	"fmt"
	"slices"

	"dataward.org/internal/model"
	"dataward.org/internal/store"
)

// Creator stages new records with ownership stamped or validated.
type Creator interface {
	Create(ctx context.Context, recs []model.Record) error
}

// Retriever reads records with the mandatory context filter applied.
type Retriever interface {
	Retrieve(ctx context.Context, q store.Query) ([]model.Record, error)
	Count(ctx context.Context, pred store.Predicate) (int64, error)
}

// Updater stages changed records after re-validating ownership against the
// currently stored value.
type Updater interface {
	Update(ctx context.Context, recs []model.Record) error
}

// Deleter stages record removal after re-validating ownership against the
// currently stored value.
type Deleter interface {
	Delete(ctx context.Context, recs []model.Record) error
}

type validatable interface {
	Validate() error
}

// manipulator carries the (kind, session, actor) tuple every strategy is
// constructed with.
type manipulator struct {
	kind  model.Kind
	sess  *store.Session
	actor *model.User
}

func (m manipulator) checkKind(rec model.Record) error {
	if rec.RecordKind() != m.kind {
		return fmt.Errorf("%w: got %q, want %q",
			ErrWrongDataManipulator, rec.RecordKind(), m.kind)
	}
	return nil
}

func (m manipulator) validate(rec model.Record) error {
	if v, ok := rec.(validatable); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
	}
	return nil
}

// currentOwner loads the stored owner of the record with the given id at the
// moment of the call. The live read is what prevents ownership checks against
// a stale copy.
func (m manipulator) currentOwner(ctx context.Context, id string) (string, bool, error) {
	recs, err := m.sess.Select(ctx, m.kind, store.Query{
		Where: store.Eq("id", id),
		Limit: 1,
	})
	if err != nil {
		return "", false, err
	}
	if len(recs) == 0 {
		return "", false, nil
	}
	owned, ok := recs[0].(model.Owned)
	if !ok {
		return "", false, fmt.Errorf("%w: %q is not an owned kind",
			ErrWrongDataManipulator, m.kind)
	}
	return owned.Owner(), true, nil
}

func ownedKind(kind model.Kind) bool {
	return slices.Contains(model.OwnedKinds, kind)
}

// --- Owned resource strategies ---------------------------------------------

type ownedCreator struct{ manipulator }

func (c ownedCreator) Create(ctx context.Context, recs []model.Record) error {
	if !ownedKind(c.kind) {
		return fmt.Errorf("%w: %q is not an owned kind", ErrWrongDataManipulator, c.kind)
	}
	if c.actor.Role != model.RoleRoot && c.actor.Role != model.RoleUser {
		return fmt.Errorf("%w: role %q cannot create owned records",
			ErrPermissionDenied, c.actor.Role)
	}
	for _, rec := range recs {
		if err := c.checkKind(rec); err != nil {
			return err
		}
		owned := rec.(model.Owned)
		if owner := owned.Owner(); owner != "" && owner != c.actor.ID {
			return fmt.Errorf("%w: cannot create a record owned by another user",
				ErrPermissionDenied)
		}
		owned.SetOwner(c.actor.ID)
		if err := c.validate(rec); err != nil {
			return err
		}
		if err := c.sess.StageAdd(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

type ownedRetriever struct{ manipulator }

func (r ownedRetriever) contextFilter() (store.Predicate, error) {
	if !ownedKind(r.kind) {
		return nil, fmt.Errorf("%w: %q is not an owned kind", ErrWrongDataManipulator, r.kind)
	}
	if r.actor.Role != model.RoleRoot && r.actor.Role != model.RoleUser {
		return nil, fmt.Errorf("%w: role %q cannot retrieve owned records",
			ErrPermissionDenied, r.actor.Role)
	}
	return store.Eq("owner_id", r.actor.ID), nil
}

func (r ownedRetriever) Retrieve(ctx context.Context, q store.Query) ([]model.Record, error) {
	flt, err := r.contextFilter()
	if err != nil {
		return nil, err
	}
	q.Where = store.And(flt, q.Where)
	return r.sess.Select(ctx, r.kind, q)
}

func (r ownedRetriever) Count(ctx context.Context, pred store.Predicate) (int64, error) {
	flt, err := r.contextFilter()
	if err != nil {
		return 0, err
	}
	return r.sess.Count(ctx, r.kind, store.And(flt, pred))
}

type ownedUpdater struct{ manipulator }

func (u ownedUpdater) Update(ctx context.Context, recs []model.Record) error {
	if !ownedKind(u.kind) {
		return fmt.Errorf("%w: %q is not an owned kind", ErrWrongDataManipulator, u.kind)
	}
	if u.actor.Role != model.RoleRoot && u.actor.Role != model.RoleUser {
		return fmt.Errorf("%w: role %q cannot update owned records",
			ErrPermissionDenied, u.actor.Role)
	}
	for _, rec := range recs {
		if err := u.checkKind(rec); err != nil {
			return err
		}
		owned := rec.(model.Owned)
		if owned.Owner() != u.actor.ID {
			return fmt.Errorf("%w: not allowed to edit this record", ErrPermissionDenied)
		}
		owner, found, err := u.currentOwner(ctx, rec.RecordID())
		if err != nil {
			return err
		}
		if !found || owner != u.actor.ID {
			return fmt.Errorf("%w: not allowed to edit this record", ErrPermissionDenied)
		}
		if err := u.validate(rec); err != nil {
			return err
		}
		if err := u.sess.StageUpdate(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

type ownedDeleter struct{ manipulator }

func (d ownedDeleter) Delete(ctx context.Context, recs []model.Record) error {
	if !ownedKind(d.kind) {
		return fmt.Errorf("%w: %q is not an owned kind", ErrWrongDataManipulator, d.kind)
	}
	if d.actor.Role != model.RoleRoot && d.actor.Role != model.RoleUser {
		return fmt.Errorf("%w: role %q cannot delete owned records",
			ErrPermissionDenied, d.actor.Role)
	}
	for _, rec := range recs {
		if err := d.checkKind(rec); err != nil {
			return err
		}
		owner, found, err := d.currentOwner(ctx, rec.RecordID())
		if err != nil {
			return err
		}
		if !found || owner != d.actor.ID {
			return fmt.Errorf("%w: not allowed to delete this record", ErrPermissionDenied)
		}
		if err := d.sess.StageDelete(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// --- User account strategies ------------------------------------------------

type userCreator struct{ manipulator }

func (c userCreator) Create(ctx context.Context, recs []model.Record) error {
	if c.kind != model.KindUser {
		return fmt.Errorf("%w: %q is not the user kind", ErrWrongDataManipulator, c.kind)
	}
	if c.actor.Role != model.RoleRoot {
		return fmt.Errorf("%w: only root may create user accounts", ErrPermissionDenied)
	}
	for _, rec := range recs {
		if err := c.checkKind(rec); err != nil {
			return err
		}
		if err := c.validate(rec); err != nil {
			return err
		}
		if err := c.sess.StageAdd(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

type userRetriever struct{ manipulator }

func (r userRetriever) contextFilter() (store.Predicate, error) {
	if r.kind != model.KindUser {
		return nil, fmt.Errorf("%w: %q is not the user kind", ErrWrongDataManipulator, r.kind)
	}
	switch r.actor.Role {
	case model.RoleRoot:
		// Root sees every account.
		return nil, nil
	case model.RoleUser:
		return store.Eq("id", r.actor.ID), nil
	default:
		return nil, fmt.Errorf("%w: role %q cannot retrieve user accounts",
			ErrPermissionDenied, r.actor.Role)
	}
}

func (r userRetriever) Retrieve(ctx context.Context, q store.Query) ([]model.Record, error) {
	flt, err := r.contextFilter()
	if err != nil {
		return nil, err
	}
	q.Where = store.And(flt, q.Where)
	return r.sess.Select(ctx, r.kind, q)
}

func (r userRetriever) Count(ctx context.Context, pred store.Predicate) (int64, error) {
	flt, err := r.contextFilter()
	if err != nil {
		return 0, err
	}
	return r.sess.Count(ctx, r.kind, store.And(flt, pred))
}

type userUpdater struct{ manipulator }

func (u userUpdater) Update(ctx context.Context, recs []model.Record) error {
	if u.kind != model.KindUser {
		return fmt.Errorf("%w: %q is not the user kind", ErrWrongDataManipulator, u.kind)
	}
	for _, rec := range recs {
		if err := u.checkKind(rec); err != nil {
			return err
		}
		switch u.actor.Role {
		case model.RoleRoot:
			// Root may update any account.
		case model.RoleUser:
			if rec.RecordID() != u.actor.ID {
				return fmt.Errorf("%w: not allowed to edit this user account",
					ErrPermissionDenied)
			}
		default:
			return fmt.Errorf("%w: role %q cannot update user accounts",
				ErrPermissionDenied, u.actor.Role)
		}
		if err := u.validate(rec); err != nil {
			return err
		}
		if err := u.sess.StageUpdate(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

type userDeleter struct{ manipulator }

func (d userDeleter) Delete(ctx context.Context, recs []model.Record) error {
	if d.kind != model.KindUser {
		return fmt.Errorf("%w: %q is not the user kind", ErrWrongDataManipulator, d.kind)
	}
	if d.actor.Role != model.RoleRoot {
		return fmt.Errorf("%w: only root may delete user accounts", ErrPermissionDenied)
	}
	for _, rec := range recs {
		if err := d.checkKind(rec); err != nil {
			return err
		}
		// Self-deletion always fails, regardless of role.
		if rec.RecordID() == d.actor.ID {
			return fmt.Errorf("%w: cannot delete the acting user account",
				ErrPermissionDenied)
		}
		if err := d.sess.StageDelete(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}
