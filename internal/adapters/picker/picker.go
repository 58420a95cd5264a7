// Package picker runs the native directory dialog as a child process.
package picker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"
)

var ErrPickerUnavailable = errors.New("no directory picker configured")

// ExecPicker asks the local user for a directory by running Command and
// reading the chosen path from its stdout. A non-zero exit or empty output
// counts as cancellation.
type ExecPicker struct {
	Command []string
}

func New(command []string) *ExecPicker {
	if len(command) == 0 {
		command = DefaultCommand(runtime.GOOS)
	}
	return &ExecPicker{Command: command}
}

// DefaultCommand returns the dialog command for goos, or nil.
func DefaultCommand(goos string) []string {
	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		return []string{"zenity", "--file-selection", "--directory", "--title=Select save directory"}
	case "darwin":
		return []string{"osascript", "-e", `POSIX path of (choose folder with prompt "Select save directory")`}
	case "windows":
		return []string{"powershell", "-NoProfile", "-Command",
			`Add-Type -AssemblyName System.Windows.Forms; $d = New-Object System.Windows.Forms.FolderBrowserDialog; if ($d.ShowDialog() -eq 'OK') { $d.SelectedPath }`}
	}
	return nil
}

func (p *ExecPicker) PickDir(ctx context.Context) (string, bool, error) {
	if len(p.Command) == 0 {
		return "", false, ErrPickerUnavailable
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.Command[0], p.Command[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		log.Debug().Str("module", "adapters.picker").Int("exit", exitErr.ExitCode()).Str("stderr", strings.TrimSpace(stderr.String())).Msg("picker cancelled")
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("run %s: %w", p.Command[0], err)
	}

	dir := strings.TrimSpace(stdout.String())
	if dir == "" {
		return "", false, nil
	}
	return dir, true, nil
}
