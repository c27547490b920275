package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))
	return dir
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	dir := t.TempDir()
	c, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Minute, c.Cache.Lifespan.Duration)
	assert.Equal(t, 5*time.Millisecond, c.Cache.Debounce.Duration)
	assert.Equal(t, 64, c.Engine.MaxDepth)
	assert.Equal(t, 30, c.Render.RowsLimit)
	assert.Equal(t, 7, c.Render.ColsLimit)
	assert.Empty(t, c.StorePath())
	assert.Equal(t, dir, c.Dir)
}

func TestLoad_OverridesAndKeepsDefaults(t *testing.T) {
	dir := writeConfig(t, `
[cache]
lifespan = "10m"

[engine]
max_depth = 8

[store]
path = ".tabula/tabula.db"

[definitions]
files = ["defs/finance.cue", "/abs/common.cue"]
`)
	c, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Minute, c.Cache.Lifespan.Duration)
	assert.Equal(t, 5*time.Millisecond, c.Cache.Debounce.Duration)
	assert.Equal(t, 8, c.Engine.MaxDepth)
	assert.Equal(t, 30, c.Render.RowsLimit)
	assert.Equal(t, filepath.Join(dir, ".tabula", "tabula.db"), c.StorePath())
	assert.Equal(t, []string{filepath.Join(dir, "defs", "finance.cue"), "/abs/common.cue"}, c.DefinitionFiles())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad duration", "[cache]\nlifespan = \"soon\"\n", "parse error"},
		{"negative duration", "[cache]\ndebounce = \"-1s\"\n", "parse error"},
		{"unknown key", "[cache]\nlifetime = \"1m\"\n", "unknown key \"cache.lifetime\""},
		{"depth", "[engine]\nmax_depth = 0\n", "max_depth"},
		{"rows", "[render]\nrows_limit = 5\n", "rows_limit"},
		{"syntax", "[cache\n", "parse error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
