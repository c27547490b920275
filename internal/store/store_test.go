package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabula/internal/value"
)

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)
	for name, want := range map[string]string{
		"journal_mode": "wal",
		"foreign_keys": "1",
		"user_version": "1",
	} {
		got, err := s.pragma(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tabula.db")
	s1, err := Open(path)
	require.NoError(t, err)
	_, err = s1.SaveDefinition(context.Background(), Definition{Kind: KindCommand, Name: "f", Source: "def f => + 1"})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	defs, err := s2.Definitions(context.Background())
	require.NoError(t, err)
	assert.Len(t, defs, 1)
}

func TestDefinitions_ReplayOrder(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	defs, err := s.Definitions(ctx)
	require.NoError(t, err)
	assert.Empty(t, defs)
	assert.NotNil(t, defs)

	save := func(kind Kind, name, src string) {
		t.Helper()
		_, err := s.SaveDefinition(ctx, Definition{Kind: kind, Name: name, Source: src})
		require.NoError(t, err)
	}
	save(KindCommand, "f", "def f => + 1")
	save(KindType, "Point", "def-ty Point { x:Num y:Num }")
	save(KindCommand, "g", "def g => f")
	// Redefining f moves it after g.
	save(KindCommand, "f", "def f => + 2")
	// A type and a command may share a name.
	save(KindCommand, "Point", "def Point => + 3")

	defs, err = s.Definitions(ctx)
	require.NoError(t, err)
	var names []string
	for _, d := range defs {
		names = append(names, string(d.Kind)+":"+d.Name)
	}
	assert.Equal(t, []string{"type:Point", "command:g", "command:f", "command:Point"}, names)
	assert.Equal(t, "def f => + 2", defs[2].Source)
	assert.Equal(t, int64(4), defs[2].Seq)

	ok, err := s.DeleteDefinition(ctx, KindCommand, "g")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.DeleteDefinition(ctx, KindCommand, "g")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveDefinition_RejectsUnknownKind(t *testing.T) {
	s := createTestStore(t)
	_, err := s.SaveDefinition(context.Background(), Definition{Kind: "macro", Name: "m", Source: "x"})
	assert.Error(t, err)
}

func TestRecordEvaluation(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	tbl, err := value.NewTable(true, [][]value.Entry{
		{value.StrEntry("name"), value.StrEntry("qty")},
		{value.StrEntry("fig"), value.NumEntry(5)},
		{value.StrEntry("kiwi"), value.NilEntry()},
	})
	require.NoError(t, err)

	e1, err := s.RecordEvaluation(ctx, Evaluation{Expression: "open a.csv", Wd: "/data", Result: tbl})
	require.NoError(t, err)
	assert.Equal(t, "entry-1", e1.ID)
	assert.Equal(t, int64(1), e1.Seq)
	assert.Equal(t, "Table", e1.ResultType)
	hash, err := value.ContentHash(tbl)
	require.NoError(t, err)
	assert.Equal(t, hash, e1.ResultHash)

	e2, err := s.RecordEvaluation(ctx, Evaluation{Expression: "open b.csv", Wd: "/data", ErrorCode: "E301", Error: "file `b.csv` not found"})
	require.NoError(t, err)
	assert.True(t, e2.Failed())
	assert.Nil(t, e2.Result)

	e3, err := s.RecordEvaluation(ctx, Evaluation{Expression: "open a.csv", Wd: "/data", Result: tbl})
	require.NoError(t, err)

	got, err := s.Entry(ctx, "entry-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"header": true,
		"rows": []any{
			[]any{"name", "qty"},
			[]any{"fig", float64(5)},
			[]any{"kiwi", nil},
		},
	}, got.Result)
	assert.False(t, got.Failed())

	history, err := s.History(ctx, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, e3.ID, history[0].ID)
	assert.Equal(t, e2.ID, history[1].ID)

	all, err := s.History(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	ids, err := s.EntriesWithResult(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, []string{e1.ID, e3.ID}, ids)

	_, err = s.Entry(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordEvaluation_ScalarsAndRecords(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	schema := &value.Schema{Name: "Point", Fields: []value.Field{{Name: "x", Type: value.TypeNum}, {Name: "y", Type: value.TypeNum}}}
	rec, err := value.NewRecord(schema, value.Num(1), value.Num(2.5))
	require.NoError(t, err)

	tests := []struct {
		result value.Value
		typ    string
		native any
	}{
		{value.Num(2), "Num", float64(2)},
		{value.Str("héllo"), "Str", "héllo"},
		{value.Bool(true), "Bool", true},
		{value.Nil{}, "Nil", nil},
		{rec, "Point", map[string]any{"type": "Point", "fields": map[string]any{"x": float64(1), "y": 2.5}}},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			e, err := s.RecordEvaluation(ctx, Evaluation{Expression: "x", Result: tt.result})
			require.NoError(t, err)
			got, err := s.Entry(ctx, e.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, got.ResultType)
			assert.Equal(t, tt.native, got.Result)
		})
	}
}

func TestUUIDv7Generator(t *testing.T) {
	id := UUIDv7Generator{}.Generate()
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, id, UUIDv7Generator{}.Generate())
}
