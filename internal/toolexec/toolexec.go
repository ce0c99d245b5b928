// Package toolexec runs the external command-line tools scimodom wraps
// (bedtools, CrossMap) and turns their failures into descriptive errors.
package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// Runner invokes an external tool, streaming its standard output to
// stdout. Implementations block until the tool exits.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stdout io.Writer) error
}

// ToolError describes a failed tool invocation. Stderr holds the tool's
// diagnostic output, trimmed.
type ToolError struct {
	Tool   string
	Args   []string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed", e.Tool)
	if errors.Is(e.Err, exec.ErrNotFound) {
		b.WriteString(": executable could not be found")
	} else if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Stderr != "" {
		fmt.Fprintf(&b, ": %s", e.Stderr)
	}
	return b.String()
}

func (e *ToolError) Unwrap() error { return e.Err }

// ExecRunner runs tools as child processes.
type ExecRunner struct {
	Logger zerolog.Logger
}

// Compile-time check: *ExecRunner satisfies Runner.
var _ Runner = (*ExecRunner)(nil)

// NewExecRunner returns an ExecRunner logging command lines at debug level.
func NewExecRunner(logger zerolog.Logger) *ExecRunner {
	return &ExecRunner{Logger: logger}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args []string, stdout io.Writer) error {
	r.Logger.Debug().Str("tool", name).Strs("args", args).Msg("calling")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &ToolError{
			Tool:   name,
			Args:   args,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return nil
}

// CommandLine renders name and args as a single shell-like string for
// logs and error messages.
func CommandLine(name string, args []string) string {
	return strings.Join(append([]string{name}, args...), " ")
}
