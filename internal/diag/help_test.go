package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHelpMessage_Usage(t *testing.T) {
	msg := &HelpMessage{
		Cmd:    "let",
		Desc:   "bind variables",
		Params: []HelpParam{Custom("$var"), Break(), Required("{expr}"), Optional("$var")},
		Flags:  []HelpFlag{{Name: "help", Desc: "show help"}},
		Examples: []HelpExample{
			{Desc: "bind the input", Code: "let $x"},
		},
	}

	want := "bind variables\n\nUsage:\n => let $var\n => let {expr} [$var]" +
		"\n\nFlags:\n --help: show help" +
		"\n\nExamples:\n bind the input\n => let $x\n"
	assert.Equal(t, want, msg.Usage())
}

func TestHelpMessage_AsError(t *testing.T) {
	msg := &HelpMessage{Cmd: "len", Desc: "count rows"}
	err := msg.AsError()

	assert.Equal(t, CategoryHelp, err.Cat)
	assert.Equal(t, "`len`", err.Desc)
	assert.Len(t, err.Traces, 1)
	assert.Contains(t, err.Traces[0].Source, "Usage:\n => len")
	assert.True(t, IsCategory(err, CategoryHelp))
}
