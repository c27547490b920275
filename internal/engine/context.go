package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/tabula/internal/diag"
	"github.com/roach88/tabula/internal/fscache"
)

// Context is threaded by pointer through every stage of an evaluation.
//
// Root bounds filesystem access, Wd resolves relative paths and Env holds the
// variable bindings. Cache may be nil, in which case file-reading commands
// read the file every time.
type Context struct {
	Root  string
	Wd    string
	Env   *Environment
	Cache *fscache.Cache
}

// NewContext canonicalises root and checks that wd lies inside it. A relative
// wd is taken relative to root.
func NewContext(root, wd string, cache *fscache.Cache) (*Context, error) {
	canon, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %q: %w", root, err)
	}
	if canon, err = filepath.EvalSymlinks(canon); err != nil {
		return nil, fmt.Errorf("resolve root %q: %w", root, err)
	}
	cx := &Context{Root: canon, Wd: canon, Cache: cache}
	if wd == "" {
		return cx, nil
	}
	if !filepath.IsAbs(wd) {
		wd = filepath.Join(canon, wd)
	}
	resolved, derr := cx.containedPath(wd, wd)
	if derr != nil {
		return nil, derr
	}
	cx.Wd = resolved
	return cx, nil
}

// withEnv returns a shallow copy bound to env.
func (cx *Context) withEnv(env *Environment) *Context {
	cp := *cx
	cp.Env = env
	return &cp
}

// ResolvePath resolves p against Wd and rejects any result outside Root,
// including escapes through symbolic links. The returned path is absolute
// and, when it exists, free of symbolic links.
func (cx *Context) ResolvePath(p string) (string, *diag.Error) {
	abs := p
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(cx.Wd, abs)
	}
	return cx.containedPath(abs, p)
}

// containedPath checks p, naming it as shown in errors.
func (cx *Context) containedPath(p, shown string) (string, *diag.Error) {
	p = filepath.Clean(p)
	if !within(cx.Root, p) {
		return "", escapeError(shown)
	}
	real, err := filepath.EvalSymlinks(p)
	switch {
	case err == nil:
		if !within(cx.Root, real) {
			return "", escapeError(shown)
		}
		return real, nil
	case errors.Is(err, fs.ErrNotExist):
		// Missing paths are reported by whoever opens them.
		return p, nil
	default:
		return "", diag.New(diag.CategoryEvaluate, diag.ErrCodeIO, err.Error())
	}
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}

func escapeError(p string) *diag.Error {
	return diag.Newf(diag.CategoryPermission, diag.ErrCodePathEscape, "path `%s` is outside the root directory", p)
}
