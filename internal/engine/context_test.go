package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabula/internal/diag"
)

func TestNewContext_WorkingDirectory(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))

	cx, err := NewContext(root, "sub", nil)
	require.NoError(t, err)
	assert.Equal(t, root, cx.Root)
	assert.Equal(t, filepath.Join(root, "sub"), cx.Wd)

	_, err = NewContext(root, "..", nil)
	assert.True(t, diag.IsCategory(err, diag.CategoryPermission))
}

func TestResolvePath(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	outside, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.csv"), []byte("a\n1\n"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.csv"), filepath.Join(root, "link.csv")))
	require.NoError(t, os.Symlink(filepath.Join(root, "sub"), filepath.Join(root, "alias")))

	cx, err := NewContext(root, "sub", nil)
	require.NoError(t, err)

	tests := []struct {
		path string
		want string
		code string
	}{
		{path: "a.csv", want: filepath.Join(root, "sub", "a.csv")},
		{path: "../b.csv", want: filepath.Join(root, "b.csv")},
		{path: filepath.Join(root, "c.csv"), want: filepath.Join(root, "c.csv")},
		{path: "../alias", want: filepath.Join(root, "sub")},
		{path: "../../x.csv", code: diag.ErrCodePathEscape},
		{path: filepath.Join(outside, "secret.csv"), code: diag.ErrCodePathEscape},
		{path: "../link.csv", code: diag.ErrCodePathEscape},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, derr := cx.ResolvePath(tt.path)
			if tt.code != "" {
				require.NotNil(t, derr)
				assert.Equal(t, tt.code, derr.Code)
				assert.Equal(t, diag.CategoryPermission, derr.Cat)
				assert.Contains(t, derr.Desc, tt.path)
				return
			}
			require.Nil(t, derr)
			assert.Equal(t, tt.want, got)
		})
	}
}
