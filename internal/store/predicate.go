package store

import (
	"errors"
	"fmt"
	"strings"
)

// Predicate is a filter over a single record kind. Predicates compose with
// And and are rendered into a parameterized WHERE clause.
type Predicate interface {
	render(b *clauseBuilder) error
}

type clauseBuilder struct {
	sql  strings.Builder
	args []any
}

func (b *clauseBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

type condition struct {
	column string
	op     string
	value  any
}

func (c condition) render(b *clauseBuilder) error {
	if c.column == "" {
		return errors.New("store: predicate column is empty")
	}
	b.sql.WriteString(c.column)
	b.sql.WriteString(" ")
	b.sql.WriteString(c.op)
	b.sql.WriteString(" ")
	b.sql.WriteString(b.arg(c.value))
	return nil
}

// Eq matches column = value.
func Eq(column string, value any) Predicate { return condition{column, "=", value} }

// Ne matches column <> value.
func Ne(column string, value any) Predicate { return condition{column, "<>", value} }

// Gt matches column > value.
func Gt(column string, value any) Predicate { return condition{column, ">", value} }

// Ge matches column >= value.
func Ge(column string, value any) Predicate { return condition{column, ">=", value} }

// Lt matches column < value.
func Lt(column string, value any) Predicate { return condition{column, "<", value} }

// Le matches column <= value.
func Le(column string, value any) Predicate { return condition{column, "<=", value} }

// Prefix matches values starting with the given string.
func Prefix(column, prefix string) Predicate {
	return condition{column, "like", likeEscape(prefix) + "%"}
}

// Contains matches values containing the given substring.
func Contains(column, substring string) Predicate {
	return condition{column, "like", "%" + likeEscape(substring) + "%"}
}

func likeEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

type inCondition struct {
	column string
	values []any
}

func (c inCondition) render(b *clauseBuilder) error {
	if c.column == "" {
		return errors.New("store: predicate column is empty")
	}
	if len(c.values) == 0 {
		// An empty IN list matches nothing.
		b.sql.WriteString("false")
		return nil
	}
	b.sql.WriteString(c.column)
	b.sql.WriteString(" in (")
	for i, v := range c.values {
		if i > 0 {
			b.sql.WriteString(", ")
		}
		b.sql.WriteString(b.arg(v))
	}
	b.sql.WriteString(")")
	return nil
}

// In matches column against any of the given values.
func In(column string, values ...any) Predicate {
	return inCondition{column: column, values: values}
}

type conjunction []Predicate

func (c conjunction) render(b *clauseBuilder) error {
	wrote := false
	for _, p := range c {
		if p == nil {
			continue
		}
		if wrote {
			b.sql.WriteString(" and ")
		}
		if err := p.render(b); err != nil {
			return err
		}
		wrote = true
	}
	if !wrote {
		b.sql.WriteString("true")
	}
	return nil
}

// And combines predicates; all must match. Nil elements are skipped.
func And(preds ...Predicate) Predicate { return conjunction(preds) }

// Sort orders a result set by one column.
type Sort struct {
	Column string
	Desc   bool
}

// Query bundles the filter, ordering and pagination of a Select.
type Query struct {
	Where  Predicate
	Sort   []Sort
	Offset int
	Limit  int
}

func buildWhere(p Predicate) (string, []any, error) {
	if p == nil {
		return "", nil, nil
	}
	b := &clauseBuilder{}
	if err := p.render(b); err != nil {
		return "", nil, err
	}
	return b.sql.String(), b.args, nil
}
