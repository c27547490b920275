// Package value provides the closed runtime value model for tabula.
//
// This package contains the value, type, table and record definitions only.
// Every other internal package imports value; value imports nothing internal.
//
// Key design constraints:
//   - Value is sealed: Nil, Num, Bool, Str, *Table, TableRow and *Record are the only variants
//   - No implicit coercion between variants; conversions are explicit and fallible
//   - Tables are immutable once built; operations produce new tables
//   - Records carry their Schema; equality and serialisation walk the schema, never reflection
package value
