package picker

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/apod/internal/app/orch"
)

func skipOnWindows(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
}

func TestExecPickerChosen(t *testing.T) {
	skipOnWindows(t)
	p := &ExecPicker{Command: []string{"sh", "-c", "echo '/media/recordings  '"}}

	dir, ok, err := p.PickDir(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/media/recordings", dir)
}

func TestExecPickerCancelled(t *testing.T) {
	skipOnWindows(t)
	p := &ExecPicker{Command: []string{"sh", "-c", "exit 1"}}

	_, ok, err := p.PickDir(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExecPickerEmptyOutputIsCancel(t *testing.T) {
	skipOnWindows(t)
	p := &ExecPicker{Command: []string{"sh", "-c", "true"}}

	_, ok, err := p.PickDir(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExecPickerMissingBinary(t *testing.T) {
	p := &ExecPicker{Command: []string{"definitely-not-a-real-picker-binary"}}

	_, ok, err := p.PickDir(context.Background())
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestExecPickerUnavailable(t *testing.T) {
	p := &ExecPicker{}
	_, _, err := p.PickDir(context.Background())
	assert.ErrorIs(t, err, ErrPickerUnavailable)
}

func TestDefaultCommand(t *testing.T) {
	assert.Equal(t, "zenity", DefaultCommand("linux")[0])
	assert.Equal(t, "osascript", DefaultCommand("darwin")[0])
	assert.Equal(t, "powershell", DefaultCommand("windows")[0])
	assert.Nil(t, DefaultCommand("plan9"))
	assert.NotEmpty(t, New([]string{"x"}).Command)
}

var _ orch.DirPicker = (*ExecPicker)(nil)
