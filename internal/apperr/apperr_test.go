package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"op and message", New(KindState, "start recording", "already recording"), "start recording: already recording"},
		{"message only", &Error{Kind: KindValidation, Message: "id required"}, "id required"},
		{"cause only", &Error{Kind: KindIO, Op: "write blob", Err: fs.ErrPermission}, "write blob: permission denied"},
		{"message and cause", Wrapf(KindIO, "read blob", fs.ErrClosed, "blob %q", "42"), `read blob: blob "42": file already closed`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, Wrap(KindIO, "close", nil))
}

func TestKindOf_ThroughWrapping(t *testing.T) {
	base := New(KindNotFound, "read blob", "no blob")
	wrapped := fmt.Errorf("get audio file: %w", base)

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsIO(wrapped))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.False(t, IsState(nil))
}

func TestUnwrap_ExposesCause(t *testing.T) {
	err := Wrap(KindIO, "write blob", fs.ErrPermission)
	assert.ErrorIs(t, err, fs.ErrPermission)
}

func TestMarshalJSON(t *testing.T) {
	err := Wrapf(KindIO, "write blob", fs.ErrPermission, "cannot write %s", "a.wav")

	data, mErr := json.Marshal(err)
	require.NoError(t, mErr)

	var got map[string]string
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "io", got["kind"])
	assert.Equal(t, "write blob", got["op"])
	assert.Equal(t, "cannot write a.wav", got["message"])
	assert.Equal(t, "permission denied", got["cause"])
}

func TestMarshalJSON_MessageFallsBackToCause(t *testing.T) {
	data, err := json.Marshal(Wrap(KindIO, "close", fs.ErrClosed).(*Error))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"io","op":"close","message":"file already closed","cause":"file already closed"}`, string(data))
}
