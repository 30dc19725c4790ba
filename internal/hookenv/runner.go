package hookenv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes one hook tool and returns its stdout.
type Runner interface {
	Run(ctx context.Context, stdin []byte, tool string, args ...string) ([]byte, error)
}

// ToolError is returned when a hook tool ran and exited non-zero.
type ToolError struct {
	Tool     string
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = fmt.Sprintf("exit status %d", e.ExitCode)
	}
	return fmt.Sprintf("%s: %s", e.Tool, msg)
}

// IsToolError reports whether err came from a hook tool exiting non-zero, as opposed
// to the tool not being runnable at all.
func IsToolError(err error) bool {
	var toolErr *ToolError
	return errors.As(err, &toolErr)
}

// ExecRunner runs hook tools as child processes found on PATH.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, stdin []byte, tool string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, tool, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &ToolError{Tool: tool, Args: args, ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		return nil, fmt.Errorf("failed to run %s: %w", tool, err)
	}
	return stdout.Bytes(), nil
}
