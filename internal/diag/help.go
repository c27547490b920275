package diag

import (
	"fmt"
	"strings"
)

// ParamKind marks how a parameter shows in a usage line.
type ParamKind uint8

const (
	ParamRequired ParamKind = iota
	ParamOptional
	// ParamCustom is printed verbatim, for shapes like `{expr} $var`.
	ParamCustom
	// ParamBreak starts a new usage line.
	ParamBreak
)

// HelpParam is one element of a usage line.
type HelpParam struct {
	Kind ParamKind
	Text string
}

// Required, Optional, Custom and Break build HelpParams.
func Required(text string) HelpParam { return HelpParam{Kind: ParamRequired, Text: text} }
func Optional(text string) HelpParam { return HelpParam{Kind: ParamOptional, Text: text} }
func Custom(text string) HelpParam   { return HelpParam{Kind: ParamCustom, Text: text} }
func Break() HelpParam               { return HelpParam{Kind: ParamBreak} }

// HelpFlag describes a `--flag`.
type HelpFlag struct {
	Name string
	Desc string
}

// HelpExample is a described usage sample.
type HelpExample struct {
	Desc string
	Code string
}

// HelpMessage is the structured help for one command.
//
// It is rendered as:
//
//	Help: `cmd`
//	 | description
//	 |
//	 | Usage:
//	 |  => cmd params
//	 |
//	 | Examples:
//	 |  example description
//	 |  => cmd example
type HelpMessage struct {
	Cmd      string
	Desc     string
	Params   []HelpParam
	NoSpace  bool
	Flags    []HelpFlag
	Examples []HelpExample
}

// Usage renders the usage and description text.
func (m *HelpMessage) Usage() string {
	var b strings.Builder
	b.WriteString(m.Desc)
	b.WriteString("\n\nUsage:\n => ")
	b.WriteString(m.Cmd)

	for _, p := range m.Params {
		if p.Kind == ParamBreak {
			b.WriteString("\n => ")
			b.WriteString(m.Cmd)
			continue
		}
		if !m.NoSpace {
			b.WriteByte(' ')
		}
		switch p.Kind {
		case ParamOptional:
			fmt.Fprintf(&b, "[%s]", p.Text)
		default:
			b.WriteString(p.Text)
		}
	}

	if len(m.Flags) > 0 {
		b.WriteString("\n\nFlags:")
		for _, f := range m.Flags {
			fmt.Fprintf(&b, "\n --%s: %s", f.Name, f.Desc)
		}
	}

	if len(m.Examples) > 0 {
		b.WriteString("\n\nExamples:")
		for _, ex := range m.Examples {
			fmt.Fprintf(&b, "\n %s\n => %s\n", ex.Desc, ex.Code)
		}
	}
	return b.String()
}

// AsError converts the help message into an Error of CategoryHelp with a
// single location-less trace holding the usage text.
func (m *HelpMessage) AsError() *Error {
	return &Error{
		Cat:    CategoryHelp,
		Code:   CodeHelp,
		Desc:   fmt.Sprintf("`%s`", m.Cmd),
		Traces: []Trace{{Source: m.Usage()}},
	}
}

func (m *HelpMessage) String() string {
	return m.AsError().Error()
}
