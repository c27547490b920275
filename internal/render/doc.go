// Package render turns values and diagnostics into text.
//
// Tables larger than the configured limits are reduced to an elided View
// first: the first and last five data rows around a marker row counting the
// rows left out, and the first and last three columns around a marker column.
// Rendering never changes the table; the View is a separate grid of strings.
package render
