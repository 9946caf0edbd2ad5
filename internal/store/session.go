package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"dataward.org/internal/ids"
	"dataward.org/internal/model"
)

// Session is one unit of work against the store. All operations run inside a
// single transaction that is opened on first use. Writes are staged until
// Commit; Rollback discards staged writes but keeps the session usable.
// A Session is not safe for concurrent use.
type Session struct {
	db     *sql.DB
	tx     *sql.Tx
	closed bool
}

func (s *Session) ensureTx(ctx context.Context) (*sql.Tx, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.tx != nil {
		return s.tx, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin transaction: %w", err)
	}
	s.tx = tx
	return tx, nil
}

// Select returns the records of the given kind matching the query.
// An empty result is a nil slice, not an error.
func (s *Session) Select(ctx context.Context, kind model.Kind, q Query) ([]model.Record, error) {
	spec, ok := specFor(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	tx, err := s.ensureTx(ctx)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("select ")
	b.WriteString(strings.Join(spec.columns, ", "))
	b.WriteString(" from ")
	b.WriteString(spec.table)

	where, args, err := buildWhere(q.Where)
	if err != nil {
		return nil, err
	}
	if where != "" {
		b.WriteString(" where ")
		b.WriteString(where)
	}
	if len(q.Sort) > 0 {
		b.WriteString(" order by ")
		for i, srt := range q.Sort {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(srt.Column)
			if srt.Desc {
				b.WriteString(" desc")
			}
		}
	}
	if q.Limit > 0 {
		b.WriteString(fmt.Sprintf(" limit %d", q.Limit))
	}
	if q.Offset > 0 {
		b.WriteString(fmt.Sprintf(" offset %d", q.Offset))
	}

	rows, err := tx.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		rec, err := spec.scan(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count returns the number of records of the given kind matching the
// predicate, without materializing them.
func (s *Session) Count(ctx context.Context, kind model.Kind, pred Predicate) (int64, error) {
	spec, ok := specFor(kind)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	tx, err := s.ensureTx(ctx)
	if err != nil {
		return 0, err
	}
	query := "select count(*) from " + spec.table
	where, args, err := buildWhere(pred)
	if err != nil {
		return 0, err
	}
	if where != "" {
		query += " where " + where
	}
	var n int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// StageAdd inserts the record inside the session's transaction. A record
// without an identifier is assigned one.
func (s *Session) StageAdd(ctx context.Context, rec model.Record) error {
	spec, ok := specFor(rec.RecordKind())
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, rec.RecordKind())
	}
	tx, err := s.ensureTx(ctx)
	if err != nil {
		return err
	}
	if rec.RecordID() == "" {
		rec.SetRecordID(ids.New())
	}
	touchCreate(rec, time.Now().UTC())

	placeholders := make([]string, len(spec.columns))
	for i := range spec.columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("insert into %s (%s) values (%s)",
		spec.table, strings.Join(spec.columns, ", "), strings.Join(placeholders, ", "))
	_, err = tx.ExecContext(ctx, query, spec.values(rec)...)
	return err
}

// StageUpdate writes the record's current field values inside the session's
// transaction, keyed by its identifier.
func (s *Session) StageUpdate(ctx context.Context, rec model.Record) error {
	spec, ok := specFor(rec.RecordKind())
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, rec.RecordKind())
	}
	tx, err := s.ensureTx(ctx)
	if err != nil {
		return err
	}
	touchUpdate(rec, time.Now().UTC())

	sets := make([]string, 0, len(spec.columns)-1)
	for i, col := range spec.columns[1:] {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i+2))
	}
	query := fmt.Sprintf("update %s set %s where %s = $1",
		spec.table, strings.Join(sets, ", "), spec.columns[0])
	_, err = tx.ExecContext(ctx, query, spec.values(rec)...)
	return err
}

// StageDelete removes the record inside the session's transaction.
func (s *Session) StageDelete(ctx context.Context, rec model.Record) error {
	spec, ok := specFor(rec.RecordKind())
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, rec.RecordKind())
	}
	tx, err := s.ensureTx(ctx)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("delete from %s where %s = $1", spec.table, spec.columns[0])
	_, err = tx.ExecContext(ctx, query, rec.RecordID())
	return err
}

// Commit makes all staged writes durable. The session stays usable; the
// next operation opens a fresh transaction.
func (s *Session) Commit() error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// Rollback discards all staged writes. The session stays usable.
func (s *Session) Rollback() error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback()
	s.tx = nil
	if err != nil {
		return fmt.Errorf("store: rollback: %w", err)
	}
	return nil
}

// Close releases the session. Writes staged but not committed are discarded.
// Close is idempotent.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback()
	s.tx = nil
	if err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}

func touchCreate(rec model.Record, now time.Time) {
	switch r := rec.(type) {
	case *model.User:
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = now
		}
		if r.PasswordDate.IsZero() {
			r.PasswordDate = now
		}
	case *model.APIClient:
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
	case *model.APIToken:
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
	}
}

func touchUpdate(rec model.Record, now time.Time) {
	if u, ok := rec.(*model.User); ok {
		u.UpdatedAt = now
	}
}
