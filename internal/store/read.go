package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Entry is one history row. Result holds the decoded native form of the
// result value (nil, float64, bool, string, []any or map[string]any).
type Entry struct {
	ID         string
	Seq        int64
	Expression string
	Wd         string
	ResultType string
	Result     any
	ResultHash string
	ErrorCode  string
	Error      string
}

// Failed reports whether the evaluation returned an error.
func (e Entry) Failed() bool { return e.ErrorCode != "" || e.Error != "" }

// ErrNotFound is returned when a requested entry does not exist.
var ErrNotFound = errors.New("not found")

// Definitions returns every saved definition in replay order.
//
// Returns an empty slice (not nil) if nothing is saved.
func (s *Store) Definitions(ctx context.Context) ([]Definition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, name, source, doc, seq
		FROM definitions
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query definitions: %w", err)
	}
	defer rows.Close()

	defs := []Definition{}
	for rows.Next() {
		var (
			d    Definition
			kind string
		)
		if err := rows.Scan(&kind, &d.Name, &d.Source, &d.Doc, &d.Seq); err != nil {
			return nil, fmt.Errorf("scan definition: %w", err)
		}
		d.Kind = Kind(kind)
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate definitions: %w", err)
	}
	return defs, nil
}

// History returns the most recent entries, newest first. A limit of zero or
// less returns every entry.
func (s *Store) History(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, expression, wd, result_type, result, result_hash, error_code, error
		FROM history
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// Entry returns the history entry with the given id, or ErrNotFound.
func (s *Store) Entry(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, expression, wd, result_type, result, result_hash, error_code, error
		FROM history
		WHERE id = ?
	`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("history entry %s: %w", id, ErrNotFound)
	}
	return e, err
}

// EntriesWithResult returns the ids of entries whose result hashes to hash,
// oldest first.
func (s *Store) EntriesWithResult(ctx context.Context, hash string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM history
		WHERE result_hash = ?
		ORDER BY seq ASC
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("query history by result: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan history id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e    Entry
		blob []byte
	)
	err := row.Scan(&e.ID, &e.Seq, &e.Expression, &e.Wd, &e.ResultType, &blob, &e.ResultHash, &e.ErrorCode, &e.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, err
	}
	if err != nil {
		return Entry{}, fmt.Errorf("scan history entry: %w", err)
	}
	if e.Result, err = unmarshalResult(blob); err != nil {
		return Entry{}, err
	}
	return e, nil
}
