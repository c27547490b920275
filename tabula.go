// Package tabula embeds the pipeline language: it parses, compiles and
// evaluates expressions against a definition registry, reading files under
// a root directory through a shared content cache.
//
// Hosts that evaluate many expressions should hold a Session. The package
// level functions are thin conveniences over the same pieces for callers
// that manage the registry and cache themselves.
package tabula

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/tabula/internal/ast"
	"github.com/roach88/tabula/internal/defs"
	"github.com/roach88/tabula/internal/diag"
	"github.com/roach88/tabula/internal/engine"
	"github.com/roach88/tabula/internal/fscache"
	"github.com/roach88/tabula/internal/loader"
	"github.com/roach88/tabula/internal/parser"
	"github.com/roach88/tabula/internal/store"
)

// Session owns a registry, an engine over it and a content cache, plus an
// optional store that receives definitions and evaluation history.
//
// A Session is safe for concurrent Eval calls. Definitions may be changed
// while evaluations run; each evaluation sees the registry as it was when
// its expression compiled.
type Session struct {
	root      string
	defs      *defs.Definitions
	eng       *engine.Engine
	cache     *fscache.Cache
	ownsCache bool
	store     *store.Store
	logger    *slog.Logger
}

type options struct {
	logger   *slog.Logger
	maxDepth int
	cache    *fscache.Cache
	noCache  bool
	store    *store.Store
	defs     *defs.Definitions
}

// Option configures a Session.
type Option func(*options)

// WithLogger sets the logger shared by the session, its engine and the
// cache it creates.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMaxDepth bounds nested definition expansion.
//
// Default: DefaultMaxDepth
func WithMaxDepth(depth int) Option {
	return func(o *options) { o.maxDepth = depth }
}

// WithCache uses c instead of a cache created by the session. The caller
// keeps ownership: Close does not close it.
func WithCache(c *Cache) Option {
	return func(o *options) { o.cache = c }
}

// WithoutCache makes every evaluation read files directly.
func WithoutCache() Option {
	return func(o *options) { o.noCache = true }
}

// WithStore records definitions and evaluations in s.
func WithStore(s *Store) Option {
	return func(o *options) { o.store = s }
}

// WithDefinitions evaluates against an existing registry.
func WithDefinitions(d *Definitions) Option {
	return func(o *options) { o.defs = d }
}

// New creates a session rooted at root, which must be a directory.
func New(root string, opts ...Option) (*Session, error) {
	o := options{maxDepth: engine.DefaultMaxDepth}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	canon, err := canonicalRoot(root)
	if err != nil {
		return nil, err
	}

	s := &Session{
		root:   canon,
		defs:   o.defs,
		cache:  o.cache,
		store:  o.store,
		logger: o.logger,
	}
	if s.defs == nil {
		s.defs = engine.NewDefinitions()
	}
	if s.cache == nil && !o.noCache {
		s.cache = fscache.New(fscache.WithLogger(o.logger))
		s.ownsCache = true
	}
	s.eng = engine.New(s.defs, engine.WithMaxDepth(o.maxDepth), engine.WithLogger(o.logger))
	return s, nil
}

func canonicalRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root %q: %w", root, err)
	}
	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolve root %q: %w", root, err)
	}
	info, err := os.Stat(canon)
	if err != nil {
		return "", fmt.Errorf("resolve root %q: %w", root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("root %q is not a directory", root)
	}
	return canon, nil
}

// Root returns the canonical root directory.
func (s *Session) Root() string { return s.root }

// Definitions returns the session's registry.
func (s *Session) Definitions() *Definitions { return s.defs }

// Cache returns the content cache evaluations read through, or nil when
// the session was created WithoutCache.
func (s *Session) Cache() *Cache { return s.cache }

// Close stops the cache if the session created it.
func (s *Session) Close() error {
	if s.ownsCache {
		return s.cache.Close()
	}
	return nil
}

// Parse parses src without compiling it.
func (s *Session) Parse(src string, loc Location) (ParseResult, error) {
	return parser.Parse(src, loc, s.defs)
}

// Compile parses and resolves an expression whose input is of type seed.
func (s *Session) Compile(seed Type, src string, loc Location) (*Plan, error) {
	expr, err := parser.Expression(src, loc, s.defs)
	if err != nil {
		return nil, err
	}
	return s.eng.Compile(seed, expr, nil)
}

// Eval compiles src against the seed's type and evaluates it with wd as the
// working directory. The cache starts on first use; if it cannot watch the
// root, evaluation continues with the cache disabled.
//
// When the session has a store the evaluation is recorded there, failed or
// not. A store failure is logged and does not change the result.
func (s *Session) Eval(ctx context.Context, seed Value, src string, loc Location, wd string) (Value, error) {
	if s.cache != nil {
		if err := s.cache.Start(s.root); err != nil {
			s.logger.Warn("evaluating without content cache", "error", err)
		}
	}
	v, err := s.eval(seed, src, loc, wd)
	s.record(ctx, src, wd, v, err)
	return v, err
}

func (s *Session) eval(seed Value, src string, loc Location, wd string) (Value, error) {
	plan, err := s.Compile(seed.Type(), src, loc)
	if err != nil {
		return nil, err
	}
	cx, err := engine.NewContext(s.root, wd, s.cache)
	if err != nil {
		return nil, err
	}
	return plan.Eval(seed, cx)
}

func (s *Session) record(ctx context.Context, src, wd string, v Value, err error) {
	if s.store == nil {
		return
	}
	ev := store.Evaluation{Expression: src, Wd: wd, Result: v}
	if err != nil {
		ev.Result = nil
		ev.Error = err.Error()
		if de, ok := diag.As(err); ok {
			ev.ErrorCode = de.Code
			ev.Error = de.Desc
		}
	}
	entry, serr := s.store.RecordEvaluation(ctx, ev)
	if serr != nil {
		s.logger.Warn("failed to record evaluation", "expr", src, "error", serr)
		return
	}
	s.logger.Debug("recorded evaluation", "id", entry.ID, "type", entry.ResultType, "failed", entry.Failed())
}

// Define validates a `def` or `def-ty` and registers it, replacing any
// earlier definition of the name. It returns the defined name. With a store
// the source is saved so it replays on the next start.
func (s *Session) Define(ctx context.Context, src string, loc Location, doc string) (string, error) {
	kind, name, err := define(s.eng, src, loc, doc)
	if err != nil {
		return "", err
	}
	if s.store != nil {
		if _, err := s.store.SaveDefinition(ctx, store.Definition{Kind: kind, Name: name, Source: src, Doc: doc}); err != nil {
			return name, fmt.Errorf("save definition %q: %w", name, err)
		}
	}
	return name, nil
}

// Undefine removes a user command or record type, and its saved source.
func (s *Session) Undefine(ctx context.Context, name string) error {
	_, isType := s.defs.LookupType(name)
	if err := s.defs.Remove(name); err != nil {
		return err
	}
	if s.store == nil {
		return nil
	}
	kind := store.KindCommand
	if isType {
		kind = store.KindType
	}
	if _, err := s.store.DeleteDefinition(ctx, kind, name); err != nil {
		return fmt.Errorf("delete definition %q: %w", name, err)
	}
	return nil
}

// Replay registers the store's saved definitions in the order they were
// saved. A definition that no longer validates is logged and skipped. It
// returns how many were registered.
func (s *Session) Replay(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, nil
	}
	saved, err := s.store.Definitions(ctx)
	if err != nil {
		return 0, fmt.Errorf("replay definitions: %w", err)
	}
	n := 0
	for _, d := range saved {
		if _, _, err := define(s.eng, d.Source, ast.Shell(), d.Doc); err != nil {
			s.logger.Warn("skipping saved definition", "kind", d.Kind, "name", d.Name, "error", err)
			continue
		}
		n++
	}
	s.logger.Debug("replayed definitions", "saved", len(saved), "registered", n)
	return n, nil
}

// LoadBundle registers every definition of a CUE bundle file, types before
// commands. Bundle definitions are not saved to the store. The first
// failure stops loading; definitions registered before it stay registered.
func (s *Session) LoadBundle(path string) (int, error) {
	b, err := loader.LoadFile(path)
	if err != nil {
		return 0, err
	}
	for i, d := range b.Defs {
		if _, _, err := define(s.eng, d.Source, d.Loc, d.Doc); err != nil {
			return i, fmt.Errorf("bundle %s: %s: %w", path, d.Name, err)
		}
	}
	s.logger.Debug("loaded bundle", "path", path, "definitions", len(b.Defs))
	return len(b.Defs), nil
}

func define(eng *engine.Engine, src string, loc Location, doc string) (store.Kind, string, error) {
	res, err := parser.Parse(src, loc, eng.Definitions())
	if err != nil {
		return "", "", err
	}
	switch res.Kind {
	case parser.KindImpl:
		u, err := eng.DefineCommand(res.Impl, doc)
		if err != nil {
			return "", "", err
		}
		return store.KindCommand, u.Name(), nil
	case parser.KindType:
		td, err := eng.DefineType(res.Type, doc)
		if err != nil {
			return "", "", err
		}
		return store.KindType, td.Name(), nil
	default:
		return "", "", diag.New(diag.CategoryParse, diag.ErrCodeSyntax, "expected a definition starting with `def` or `def-ty`").
			WithTrace(diag.Trace{Loc: loc, Source: src, Len: len(src)})
	}
}

// ProcessExpression compiles expr for the seed's type and evaluates it in
// wd, reading files under root through cache. The cache is started on the
// first call; later calls reuse it whatever root they pass. A nil cache
// reads files directly.
//
// A cache that cannot watch root disables itself and evaluation goes on
// without it; the failure is logged at Warn through slog.Default on every
// call, as Session.Eval does with its own logger.
func ProcessExpression(seed Value, expr string, loc Location, d *Definitions, cache *Cache, root, wd string) (Value, error) {
	if cache != nil {
		if err := cache.Start(root); err != nil {
			slog.Default().Warn("evaluating without content cache", "root", root, "error", err)
		}
	}
	parsed, err := parser.Expression(expr, loc, d)
	if err != nil {
		return nil, err
	}
	plan, err := engine.New(d).Compile(seed.Type(), parsed, nil)
	if err != nil {
		return nil, err
	}
	cx, err := engine.NewContext(root, wd, cache)
	if err != nil {
		return nil, err
	}
	return plan.Eval(seed, cx)
}

// Parse parses a line as an expression or definition without resolving it.
func Parse(src string, loc Location, d *Definitions) (ParseResult, error) {
	return parser.Parse(src, loc, d)
}

// ProcessDefinition validates a `def` or `def-ty` against d and registers it.
func ProcessDefinition(src string, loc Location, d *Definitions) error {
	_, _, err := define(engine.New(d), src, loc, "")
	return err
}

// RecogniseDefinition reports whether line looks like a definition.
func RecogniseDefinition(line string) bool {
	return parser.IsDefinition(line)
}
