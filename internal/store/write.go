package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/tabula/internal/value"
)

// Kind is the namespace of a saved definition.
type Kind string

const (
	KindCommand Kind = "command"
	KindType    Kind = "type"
)

// Definition is the saved source of a `def` or `def-ty`.
type Definition struct {
	Kind   Kind
	Name   string
	Source string
	Doc    string
	Seq    int64
}

// Evaluation is what a host records after evaluating an expression. Result
// is nil when the evaluation failed.
type Evaluation struct {
	Expression string
	Wd         string
	Result     value.Value
	ErrorCode  string
	Error      string
}

// SaveDefinition inserts or replaces a definition. A replaced definition
// takes the next seq so it replays after everything saved before it.
func (s *Store) SaveDefinition(ctx context.Context, d Definition) (Definition, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Definition{}, fmt.Errorf("save definition: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	seq, err := nextSeq(ctx, tx, "definitions")
	if err != nil {
		return Definition{}, fmt.Errorf("save definition: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO definitions (kind, name, source, doc, seq)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(kind, name) DO UPDATE SET
			source = excluded.source,
			doc = excluded.doc,
			seq = excluded.seq
	`, string(d.Kind), d.Name, d.Source, d.Doc, seq)
	if err != nil {
		return Definition{}, fmt.Errorf("save definition: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Definition{}, fmt.Errorf("save definition: commit: %w", err)
	}
	d.Seq = seq
	return d, nil
}

// DeleteDefinition removes a saved definition and reports whether it existed.
func (s *Store) DeleteDefinition(ctx context.Context, kind Kind, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM definitions WHERE kind = ? AND name = ?`, string(kind), name)
	if err != nil {
		return false, fmt.Errorf("delete definition: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete definition: %w", err)
	}
	return n > 0, nil
}

// RecordEvaluation appends a history entry and returns it with its id and seq.
func (s *Store) RecordEvaluation(ctx context.Context, ev Evaluation) (Entry, error) {
	entry := Entry{
		ID:         s.ids.Generate(),
		Expression: ev.Expression,
		Wd:         ev.Wd,
		ErrorCode:  ev.ErrorCode,
		Error:      ev.Error,
	}

	var blob []byte
	if ev.Result != nil {
		var err error
		if blob, err = marshalResult(ev.Result); err != nil {
			return Entry{}, fmt.Errorf("record evaluation: %w", err)
		}
		if entry.ResultHash, err = value.ContentHash(ev.Result); err != nil {
			return Entry{}, fmt.Errorf("record evaluation: %w", err)
		}
		entry.ResultType = value.TypeOf(ev.Result).String()
		if entry.Result, err = unmarshalResult(blob); err != nil {
			return Entry{}, fmt.Errorf("record evaluation: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("record evaluation: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if entry.Seq, err = nextSeq(ctx, tx, "history"); err != nil {
		return Entry{}, fmt.Errorf("record evaluation: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO history
		(id, seq, expression, wd, result_type, result, result_hash, error_code, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID,
		entry.Seq,
		entry.Expression,
		entry.Wd,
		entry.ResultType,
		blob,
		entry.ResultHash,
		entry.ErrorCode,
		entry.Error,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("record evaluation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("record evaluation: commit: %w", err)
	}
	return entry, nil
}

// nextSeq returns one past the largest seq of table.
func nextSeq(ctx context.Context, tx *sql.Tx, table string) (int64, error) {
	var maxSeq sql.NullInt64
	if err := tx.QueryRowContext(ctx, "SELECT MAX(seq) FROM "+table).Scan(&maxSeq); err != nil {
		return 0, fmt.Errorf("next seq: %w", err)
	}
	return maxSeq.Int64 + 1, nil
}
