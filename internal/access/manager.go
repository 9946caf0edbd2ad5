package access

import (
	"context"
	"fmt"

	"dataward.org/internal/model"
	"dataward.org/internal/store"
)

// RetrieveOption narrows or orders a retrieval.
type RetrieveOption func(*store.Query)

// Filter ANDs an additional predicate with the mandatory context filter.
func Filter(pred store.Predicate) RetrieveOption {
	return func(q *store.Query) {
		q.Where = store.And(q.Where, pred)
	}
}

// SortBy orders the result by a column.
func SortBy(column string, desc bool) RetrieveOption {
	return func(q *store.Query) {
		q.Sort = append(q.Sort, store.Sort{Column: column, Desc: desc})
	}
}

// Offset skips the first n matching records.
func Offset(n int) RetrieveOption {
	return func(q *store.Query) { q.Offset = n }
}

// Limit caps the number of returned records.
func Limit(n int) RetrieveOption {
	return func(q *store.Query) { q.Limit = n }
}

// ResourceManager binds one record kind to its four strategies, all
// constructed with the same (kind, session, actor) tuple. It is the only
// surface an AccessContext exposes for record manipulation.
type ResourceManager[T model.Record] struct {
	kind model.Kind
	set  strategySet
}

func newResourceManager[T model.Record](kind model.Kind, sess *store.Session, actor *model.User) *ResourceManager[T] {
	factory, ok := strategyRegistry[kind]
	if !ok {
		// Managers are wired by the context for registered kinds only;
		// an unknown kind here is a programming error surfaced on use.
		factory = func(kind model.Kind, sess *store.Session, actor *model.User) strategySet {
			return strategySet{}
		}
	}
	return &ResourceManager[T]{kind: kind, set: factory(kind, sess, actor)}
}

// Create stages the given records with ownership stamped or validated.
func (m *ResourceManager[T]) Create(ctx context.Context, recs ...T) error {
	return m.set.creator.Create(ctx, asRecords(recs))
}

// Retrieve returns the records visible in this context. A retrieval that
// matches nothing returns an empty slice, not an error.
func (m *ResourceManager[T]) Retrieve(ctx context.Context, opts ...RetrieveOption) ([]T, error) {
	var q store.Query
	for _, opt := range opts {
		opt(&q)
	}
	recs, err := m.set.retriever.Retrieve(ctx, q)
	if err != nil {
		return nil, err
	}
	return asTyped[T](recs)
}

// Update stages the given records after ownership re-validation.
func (m *ResourceManager[T]) Update(ctx context.Context, recs ...T) error {
	return m.set.updater.Update(ctx, asRecords(recs))
}

// Delete stages removal of the given records after ownership re-validation.
func (m *ResourceManager[T]) Delete(ctx context.Context, recs ...T) error {
	return m.set.deleter.Delete(ctx, asRecords(recs))
}

// Count returns the number of visible records matching the predicate.
func (m *ResourceManager[T]) Count(ctx context.Context, pred store.Predicate) (int64, error) {
	return m.set.retriever.Count(ctx, pred)
}

func asRecords[T model.Record](recs []T) []model.Record {
	out := make([]model.Record, len(recs))
	for i, r := range recs {
		out[i] = r
	}
	return out
}

func asTyped[T model.Record](recs []model.Record) ([]T, error) {
	out := make([]T, 0, len(recs))
	for _, r := range recs {
		typed, ok := r.(T)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected record type %T",
				ErrWrongDataManipulator, r)
		}
		out = append(out, typed)
	}
	return out, nil
}
