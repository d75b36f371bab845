// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package runner invokes the external image conversion tool as a
// synchronous child process.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// maxStderrTail caps how much of the child's stderr is quoted in an error.
const maxStderrTail = 512

// Tool runs one external binary with per-call arguments.
type Tool interface {
	// Name returns the binary name or path (e.g. "convert").
	Name() string

	// Run executes the binary with args and waits for it to exit. A
	// non-zero exit status or a launch failure is returned as an error.
	// Child stdout is copied to stdout when it is non-nil.
	Run(ctx context.Context, args []string, stdout io.Writer) error
}

// executor abstracts process execution for testing.
type executor interface {
	Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// tool implements Tool for a single binary.
type tool struct {
	bin  string
	exec executor
}

func (t *tool) Name() string { return t.bin }

func (t *tool) Run(ctx context.Context, args []string, stdout io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	var stderr bytes.Buffer
	if err := t.exec.Run(ctx, t.bin, args, stdout, &stderr); err != nil {
		if tail := stderrTail(stderr.String()); tail != "" {
			return fmt.Errorf("running %s: %w: %s", t.bin, err, tail)
		}
		return fmt.Errorf("running %s: %w", t.bin, err)
	}
	return nil
}

// stderrTail returns the last maxStderrTail bytes of s, trimmed and folded
// onto one line.
func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderrTail {
		s = "..." + s[len(s)-maxStderrTail:]
	}
	return strings.Join(strings.Fields(s), " ")
}

var defaultExec = &osExecutor{}

// NewTool returns a Tool that runs bin through os/exec. The binary is not
// looked up until the first Run.
func NewTool(bin string) Tool {
	return newTool(bin, defaultExec)
}

func newTool(bin string, exec executor) *tool {
	return &tool{bin: bin, exec: exec}
}
