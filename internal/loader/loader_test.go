package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const financeBundle = `
types: Point: {
	doc: "a point in the plane"
	fields: {x: "Num", y: "Num"}
}

commands: {
	"add-one": {
		body: "+ 1"
	}
	scale: {
		doc:    "multiply by a factor"
		input:  "Num"
		params: ["by:Num"]
		body:   "* $by"
	}
}
`

func TestLoad_Bundle(t *testing.T) {
	b, err := Load("finance.cue", []byte(financeBundle))
	require.NoError(t, err)
	require.Len(t, b.Defs, 3)

	pt := b.Defs[0]
	assert.Equal(t, KindType, pt.Kind)
	assert.Equal(t, "Point", pt.Name)
	assert.Equal(t, "def-ty Point { x:Num y:Num }", pt.Source)
	assert.Equal(t, "a point in the plane", pt.Doc)
	assert.Equal(t, "finance.cue", pt.Loc.File)
	assert.Positive(t, pt.Loc.Line)

	assert.Equal(t, "def add-one => + 1", b.Defs[1].Source)
	assert.Equal(t, KindCommand, b.Defs[1].Kind)

	scale := b.Defs[2]
	assert.Equal(t, "scale", scale.Name)
	assert.Equal(t, "def scale Num (by:Num) => * $by", scale.Source)
	assert.Equal(t, "multiply by a factor", scale.Doc)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{"cue syntax", "types: {", ""},
		{"missing body", `commands: f: {input: "Num"}`, "commands.f.body"},
		{"missing fields", `types: T: {doc: "x"}`, "types.T.fields"},
		{"empty fields", `types: T: fields: {}`, "at least one field"},
		{"non-string type", `types: T: fields: {x: 1}`, ""},
		{"bad name", `commands: "a b": {body: "+ 1"}`, "invalid name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load("bad.cue", []byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defs.cue")
	require.NoError(t, os.WriteFile(path, []byte(financeBundle), 0o644))

	b, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, b.Path)
	assert.Len(t, b.Defs, 3)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.cue"))
	assert.Error(t, err)
}
