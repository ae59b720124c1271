package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/audiojournal/internal/apperr"
)

func TestOutputFormatter_JSONRender(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Render(data, func(io.Writer) error {
		t.Fatal("text renderer must not run in json mode")
		return nil
	})
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_TextRender(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Render(42, func(w io.Writer) error {
		_, err := io.WriteString(w, "forty-two\n")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "forty-two\n", buf.String())
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error(apperr.Validation("create entry", "audio path is required"))
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Error  struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "validation", resp.Error.Code)
	assert.Equal(t, "create entry: audio path is required", resp.Error.Message)
	assert.Equal(t, "create entry", resp.Error.Details["op"])
}

func TestOutputFormatter_UnclassifiedError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error(errors.New("boom")))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "error", resp.Error.Code)
	assert.Nil(t, resp.Error.Details)
}

func TestOutputFormatter_TextErrorGoesToErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:    "text",
		Writer:    out,
		ErrWriter: errOut,
		Verbose:   true,
	}

	cause := errors.New("permission denied")
	require.NoError(t, formatter.Error(apperr.Wrapf(apperr.KindIO, "write blob", cause, "save /x")))

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "Error [io]: write blob: save /x: permission denied")
	assert.Contains(t, errOut.String(), "Cause: permission denied")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:    "json",
		Writer:    out,
		ErrWriter: errOut,
		Verbose:   true,
	}

	formatter.VerboseLog("opening %s", "journal.db")

	assert.Empty(t, out.String(), "verbose output must not corrupt stdout")
	assert.Equal(t, "opening journal.db\n", errOut.String())

	quiet := &OutputFormatter{Format: "text", Writer: out}
	quiet.VerboseLog("hidden")
	assert.Empty(t, out.String())
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"exit error", NewExitError(ExitCommandError, "bad"), ExitCommandError},
		{"wrapped exit error", WrapExitError(ExitFailure, "failed", errors.New("x")), ExitFailure},
		{"validation", apperr.Validation("op", "bad"), ExitCommandError},
		{"not found", apperr.New(apperr.KindNotFound, "op", "gone"), ExitCommandError},
		{"state", apperr.New(apperr.KindState, "op", "busy"), ExitCommandError},
		{"conflict", apperr.New(apperr.KindConflict, "op", "dup"), ExitFailure},
		{"io", apperr.New(apperr.KindIO, "op", "disk"), ExitFailure},
		{"plain", errors.New("plain"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestExitError(t *testing.T) {
	cause := errors.New("cause")
	err := WrapExitError(ExitCommandError, "context", cause)

	assert.Equal(t, "context: cause", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "just message", NewExitError(ExitFailure, "just message").Error())
}
