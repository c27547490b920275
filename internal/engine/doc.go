// Package engine compiles parsed expressions into typed plans and evaluates
// them.
//
// ARCHITECTURE:
//
// Compilation (compile.go):
// Blocks are resolved left to right against the definition registry while a
// "current type" is threaded from the seed type. Builtins check their input
// type and arguments; user definitions are expanded inline, with their
// arguments bound to parameters in a fresh scope; record type names act as
// constructors. The first failure stops compilation.
//
// Evaluation (plan.go):
// A Plan is a chain of Stages whose input and output types line up. Stages
// run strictly in order against a Context carrying the root directory, the
// working directory, the variable environment and the content cache. The
// first failing stage aborts the chain.
//
// CRITICAL PATTERNS:
//
// Scopes are immutable parent-linked chains (scope.go). Entering a nested
// scope extends the chain; nothing is ever rebound in place.
//
// Definitions are expanded at compile time. A plan keeps the bodies it
// inlined even if the definitions are replaced afterwards.
//
// Definition bodies are lexically closed: they see their parameters and
// their own `let` bindings, never the caller's variables. A caller passes a
// variable in as an argument. The rule is the same with or without a
// declared input type.
//
// Traces run from call site to leaf. An error inside an inlined body carries
// the caller's block first, then the block inside the body.
//
// Filesystem access goes through Context.ResolvePath, which rejects paths
// that resolve outside the root.
package engine
