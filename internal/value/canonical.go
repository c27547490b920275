package value

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces canonical JSON for a value. It is the only
// serialisation used for content hashing.
//
// Differences from encoding/json:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping
//  3. Strings are NFC normalised
//  4. NaN and infinities are rejected
//
// Shapes:
//
//	Nil      null
//	Table    {"header":bool,"rows":[[cell,...],...]}
//	Record   {"fields":{name:value,...},"type":"Name"}
//
// TableRow is a transient view and cannot be serialised.
func MarshalCanonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case nil, Nil:
		buf.WriteString("null")
	case Num:
		s, err := canonicalNumber(float64(val))
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case Str:
		writeCanonicalString(buf, string(val))
	case *Table:
		buf.WriteString(`{"header":`)
		buf.WriteString(strconv.FormatBool(val.header))
		buf.WriteString(`,"rows":[`)
		for r := 0; r < val.rows; r++ {
			if r > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte('[')
			for c := 0; c < val.cols; c++ {
				if c > 0 {
					buf.WriteByte(',')
				}
				if err := writeCanonical(buf, val.Cell(r, c).Value()); err != nil {
					return fmt.Errorf("cell[%d][%d]: %w", r, c, err)
				}
			}
			buf.WriteByte(']')
		}
		buf.WriteString("]}")
	case *Record:
		keys := val.schema.FieldNames()
		slices.SortFunc(keys, compareKeysRFC8785)
		buf.WriteString(`{"fields":{`)
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, k)
			buf.WriteByte(':')
			fv, _ := val.Get(k)
			if err := writeCanonical(buf, fv); err != nil {
				return fmt.Errorf("field %q: %w", k, err)
			}
		}
		buf.WriteString(`},"type":`)
		writeCanonicalString(buf, val.schema.Name)
		buf.WriteByte('}')
	case TableRow:
		return fmt.Errorf("table rows cannot be serialised")
	default:
		return fmt.Errorf("unsupported value type: %T", v)
	}
	return nil
}

func canonicalNumber(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("non-finite number %v cannot be serialised", f)
	}
	if f == 0 {
		return "0", nil
	}
	if math.Abs(f) < 1e21 && math.Abs(f) >= 1e-6 {
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	return strconv.FormatFloat(f, 'e', -1, 64), nil
}

// writeCanonicalString escapes only quote, backslash and control characters.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	s = norm.NFC.String(s)
	buf.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r < 0x20:
			fmt.Fprintf(buf, `\u%04x`, r)
		default:
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}

// compareKeysRFC8785 compares strings by UTF-16 code units as RFC 8785 requires.
// Go's native string order is UTF-8 bytes, which differs for supplementary planes.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	for i := 0; i < len(a16) && i < len(b16); i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// ToNative converts a value into plain Go data (nil, float64, bool, string,
// []any, map[string]any) for encoders that know nothing about tabula values.
func ToNative(v Value) (any, error) {
	switch val := v.(type) {
	case nil, Nil:
		return nil, nil
	case Num:
		return float64(val), nil
	case Bool:
		return bool(val), nil
	case Str:
		return string(val), nil
	case *Table:
		rows := make([]any, val.rows)
		for r := 0; r < val.rows; r++ {
			cells := make([]any, val.cols)
			for c := 0; c < val.cols; c++ {
				cell, err := ToNative(val.Cell(r, c).Value())
				if err != nil {
					return nil, err
				}
				cells[c] = cell
			}
			rows[r] = cells
		}
		return map[string]any{"header": val.header, "rows": rows}, nil
	case *Record:
		fields := make(map[string]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			f, fv := val.At(i)
			n, err := ToNative(fv)
			if err != nil {
				return nil, err
			}
			fields[f.Name] = n
		}
		return map[string]any{"type": val.schema.Name, "fields": fields}, nil
	case TableRow:
		return nil, fmt.Errorf("table rows cannot be serialised")
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}
