package tabula

import (
	"io"

	"github.com/roach88/tabula/internal/ast"
	"github.com/roach88/tabula/internal/defs"
	"github.com/roach88/tabula/internal/diag"
	"github.com/roach88/tabula/internal/engine"
	"github.com/roach88/tabula/internal/fscache"
	"github.com/roach88/tabula/internal/parser"
	"github.com/roach88/tabula/internal/render"
	"github.com/roach88/tabula/internal/store"
	"github.com/roach88/tabula/internal/value"
)

// Values. Hosts build seeds from the scalar types directly: Num(1),
// Str("x"), Bool(true), Nil{}.
type (
	Value    = value.Value
	Type     = value.Type
	Nil      = value.Nil
	Num      = value.Num
	Bool     = value.Bool
	Str      = value.Str
	Table    = value.Table
	TableRow = value.TableRow
	Record   = value.Record
)

// Builtin types.
var (
	TypeNil      = value.TypeNil
	TypeNum      = value.TypeNum
	TypeBool     = value.TypeBool
	TypeStr      = value.TypeStr
	TypeTable    = value.TypeTable
	TypeTableRow = value.TypeTableRow
)

// TypeOf returns the type of v.
func TypeOf(v Value) Type { return value.TypeOf(v) }

// ToNative converts v to plain Go values suitable for encoding/json:
// float64, bool, string, nil, and maps for tables and records.
func ToNative(v Value) (any, error) { return value.ToNative(v) }

// Location names where a source string came from.
type Location = ast.Location

// Shell is the location of interactively typed input.
func Shell() Location { return ast.Shell() }

// FileLoc is the location of a line in a file.
func FileLoc(path string, line int) Location { return ast.FileLoc(path, line) }

// Diagnostics. Every failure the language reports is an *Error; use AsError
// to recover it from a wrapped error.
type (
	Error    = diag.Error
	Trace    = diag.Trace
	Category = diag.Category
)

const (
	CategoryHelp       = diag.CategoryHelp
	CategoryParse      = diag.CategoryParse
	CategoryResolve    = diag.CategoryResolve
	CategoryEvaluate   = diag.CategoryEvaluate
	CategoryPermission = diag.CategoryPermission
)

// AsError finds the diagnostic in err's chain.
func AsError(err error) (*Error, bool) { return diag.As(err) }

// Definitions is a registry of builtin and user commands and record types.
type Definitions = defs.Definitions

// NewDefinitions returns a registry holding only the builtins.
func NewDefinitions() *Definitions { return engine.NewDefinitions() }

// Cache is the shared content cache files are read through.
type (
	Cache       = fscache.Cache
	CacheOption = fscache.Option
	CacheStats  = fscache.Stats
)

// NewCache creates a content cache. It starts watching on first use.
func NewCache(opts ...CacheOption) *Cache { return fscache.New(opts...) }

// Cache options.
var (
	CacheLifespan = fscache.WithLifespan
	CacheDebounce = fscache.WithDebounce
	CacheLogger   = fscache.WithLogger
)

// ParseResult is what Parse returns; Kind says which field is set.
type (
	ParseResult = parser.Result
	ParseKind   = parser.ResultKind
)

const (
	ParsedExpression = parser.KindExpr
	ParsedCommand    = parser.KindImpl
	ParsedType       = parser.KindType
)

// Incomplete reports whether a parse failed only because the input ended
// inside a brace or string, so more input could complete it.
func Incomplete(err error) bool { return parser.Incomplete(err) }

// DefaultMaxDepth bounds nested definition expansion unless WithMaxDepth
// says otherwise.
const DefaultMaxDepth = engine.DefaultMaxDepth

// Plan is a compiled expression: typed stages ready to evaluate.
type Plan = engine.Plan

// Store keeps saved definitions and evaluation history.
type Store = store.Store

// OpenStore opens or creates the SQLite store at path.
func OpenStore(path string) (*Store, error) { return store.Open(path) }

// Render writes v the way the command line prints it, eliding large tables.
func Render(w io.Writer, v Value) error {
	return render.Value(w, v, render.DefaultLimits(), render.DefaultFormatter())
}

// RenderError writes e with its underlined traces and help line.
func RenderError(w io.Writer, e *Error) error { return render.Error(w, e) }
