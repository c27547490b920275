package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabula/internal/ast"
	"github.com/roach88/tabula/internal/diag"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Success(EvalResult{Type: "Num", Value: 3.0})
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]any{"type": "Num", "value": 3.0}, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("E_SHELL", "unknown shell command", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_SHELL", resp.Error.Code)
	assert.Equal(t, "unknown shell command", resp.Error.Message)
	assert.Nil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success("defined big")
	require.NoError(t, err)
	assert.Equal(t, "defined big\n", buf.String())
}

func TestOutputFormatter_TextErrorGoesToErrWriter(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:    "text",
		Writer:    out,
		ErrWriter: errOut,
		Verbose:   true,
	}

	err := formatter.Error("E_SHELL", "unknown shell command", map[string]string{"line": ":x"})
	require.NoError(t, err)
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "Error [E_SHELL]: unknown shell command")
	assert.Contains(t, errOut.String(), "Details:")
}

func TestOutputFormatter_Diagnostic(t *testing.T) {
	src := "open fruit.csv | opn"
	de := diag.New(diag.CategoryResolve, diag.ErrCodeUnknownCommand, "unknown command `opn`").
		WithTrace(diag.TraceAt(ast.Shell(), src, ast.Tag{Start: 17, Len: 3}, "")).
		WithHelp("did you mean `open`?")

	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "json", Writer: buf}
		require.NoError(t, formatter.Diagnostic(de))

		var resp struct {
			Status string `json:"status"`
			Error  struct {
				Code    string            `json:"code"`
				Message string            `json:"message"`
				Details DiagnosticDetails `json:"details"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
		assert.Equal(t, "error", resp.Status)
		assert.Equal(t, diag.ErrCodeUnknownCommand, resp.Error.Code)
		assert.Equal(t, "Resolve", resp.Error.Details.Category)
		assert.Equal(t, []string{"opn"}, resp.Error.Details.Underlines)
		assert.Equal(t, "did you mean `open`?", resp.Error.Details.Help)
	})

	t.Run("text", func(t *testing.T) {
		out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "text", Writer: out, ErrWriter: errOut}
		require.NoError(t, formatter.Diagnostic(de))
		assert.Empty(t, out.String())
		assert.Contains(t, errOut.String(), "unknown command `opn`")
		assert.Contains(t, errOut.String(), "did you mean `open`?")
	})
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			formatter.VerboseLog("loading %s", "defs.cue")

			if tt.wantLog {
				assert.Contains(t, buf.String(), "loading defs.cue")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))

	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitCommandError, "open db", errors.New("locked")))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
	assert.Equal(t, "outer: open db: locked", wrapped.Error())
}

func TestIsReported(t *testing.T) {
	assert.False(t, IsReported(errors.New("plain")))
	assert.False(t, IsReported(NewExitError(ExitFailure, "x")))
	assert.True(t, IsReported(&ExitError{Code: ExitFailure, Message: "x", Reported: true}))
}
