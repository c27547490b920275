package engine

import (
	"io"
	"log/slog"

	"github.com/roach88/tabula/internal/ast"
	"github.com/roach88/tabula/internal/defs"
	"github.com/roach88/tabula/internal/value"
)

// DefaultMaxDepth bounds nested definition expansion. Cyclic definitions are
// rejected when they are registered, so the limit only stops pathologically
// deep (but finite) chains.
const DefaultMaxDepth = 64

// Engine compiles expressions against a definition registry.
//
// Thread-safety: an Engine holds no per-call state. Compile and the
// Define methods may be called concurrently; the registry serialises its
// own updates.
type Engine struct {
	defs     *defs.Definitions
	maxDepth int
	logger   *slog.Logger
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithMaxDepth sets the definition expansion limit.
//
// Default: 64 (DefaultMaxDepth)
func WithMaxDepth(depth int) EngineOption {
	return func(e *Engine) {
		e.maxDepth = depth
	}
}

// WithLogger sets the logger used for compile and definition events.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine over d. Use NewDefinitions for a registry holding
// the builtin commands.
func New(d *defs.Definitions, opts ...EngineOption) *Engine {
	e := &Engine{
		defs:     d,
		maxDepth: DefaultMaxDepth,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewDefinitions returns a registry holding the builtin commands.
func NewDefinitions() *defs.Definitions {
	d := defs.New()
	for _, b := range builtins() {
		d.Register(b)
	}
	return d
}

// Definitions returns the registry the engine resolves against.
func (e *Engine) Definitions() *defs.Definitions { return e.defs }

// Compile resolves expr into a plan whose first stage accepts seed.
// locals holds the variables visible to the expression; nil is the empty
// scope. The first failure stops compilation and no partial plan is returned.
func (e *Engine) Compile(seed value.Type, expr *ast.Expression, locals *Locals) (*Plan, error) {
	c := &compiler{eng: e}
	plan, err := c.expression(seed, expr, locals)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("compiled expression",
		"expr", expr.Text(),
		"in", plan.In.String(),
		"out", plan.Out.String(),
		"stages", len(plan.Stages))
	return plan, nil
}

// DefineCommand validates a parsed `def` against the registry as it stands
// and then registers it, replacing any earlier definition of the name.
//
// A body with a declared input type is fully compiled. Without one, only its
// command names are checked here; types are checked at each call site.
func (e *Engine) DefineCommand(impl *ast.DefinitionImpl, doc string) (*defs.UserDef, error) {
	u, err := e.defs.NewUserDef(impl, doc)
	if err != nil {
		return nil, err
	}
	if err := e.defs.CheckDef(u); err != nil {
		return nil, err
	}

	// Bodies see their parameters and nothing else from the caller.
	var scope *Locals
	for _, p := range u.Params {
		scope = scope.With(p.Name, p.Type)
	}
	c := &compiler{eng: e, checking: true}
	if u.In == value.TypeAny {
		err = c.checkNames(impl.Body, scope)
	} else {
		_, err = c.expression(u.In, impl.Body, scope)
	}
	if err != nil {
		return nil, err
	}

	if err := e.defs.InsertDef(u); err != nil {
		return nil, err
	}
	e.logger.Debug("defined command", "name", u.Name(), "in", u.In.String(), "params", len(u.Params))
	return u, nil
}

// DefineType registers a parsed `def-ty`, replacing any earlier type of the
// name. The type name becomes a constructor command.
func (e *Engine) DefineType(decl *ast.DefinitionType, doc string) (*defs.TypeDef, error) {
	td, err := e.defs.NewTypeDef(decl, doc)
	if err != nil {
		return nil, err
	}
	if err := e.defs.InsertType(td); err != nil {
		return nil, err
	}
	e.logger.Debug("defined type", "name", td.Name(), "fields", len(td.Schema.Fields))
	return td, nil
}
