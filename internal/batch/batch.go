// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch runs the external conversion tool once per dithering
// method and aggregates the outcomes into a Report.
//
// Every method in the table is attempted exactly once. A failing method is
// recorded and the batch moves on; only a failure to create the output
// directory aborts the run.
package batch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/dithercmp/internal/runner"
	"github.com/pdiddy/dithercmp/pkg/types"
)

// DirectoryCreationError reports that the output directory could not be
// created. It is fatal for the batch.
type DirectoryCreationError struct {
	Path string
	Err  error
}

func (e *DirectoryCreationError) Error() string {
	return fmt.Sprintf("creating output directory %s: %v", e.Path, e.Err)
}

func (e *DirectoryCreationError) Unwrap() error { return e.Err }

// ExternalToolError reports that the tool exited non-zero or could not be
// launched for one method.
type ExternalToolError struct {
	Method string
	Tool   string
	Err    error
}

func (e *ExternalToolError) Error() string {
	return fmt.Sprintf("method %s: %v", e.Method, e.Err)
}

func (e *ExternalToolError) Unwrap() error { return e.Err }

// Job is one tool invocation derived from a method.
type Job struct {
	Method     string
	InputPath  string
	OutputPath string
	// Args is the full argument list after the tool name.
	Args []string
}

// EnsureDir creates path and any missing parents. Calling it on an existing
// directory is a no-op.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return &DirectoryCreationError{Path: path, Err: err}
	}
	return nil
}

// OutputPath returns <OutputDir>/<method>.<Extension>.
func OutputPath(cfg types.BatchConfig, method string) string {
	cfg = cfg.WithDefaults()
	return filepath.Join(cfg.OutputDir, method+"."+cfg.Extension)
}

// BuildArgs returns the arguments for one job: the input, the baseline
// resize and colorspace flags, the method flags, the diffusion dither and
// finally the output path.
func BuildArgs(cfg types.BatchConfig, m types.Method, outputPath string) []string {
	cfg = cfg.WithDefaults()
	args := make([]string, 0, len(m.Args)+8)
	args = append(args, cfg.InputPath)
	if cfg.Resize != "" {
		args = append(args, "-resize", cfg.Resize)
	}
	if cfg.Colorspace != "" {
		args = append(args, "-colorspace", cfg.Colorspace)
	}
	args = append(args, m.Args...)
	args = append(args, "-dither", cfg.Diffusion)
	args = append(args, outputPath)
	return args
}

// BuildCommand returns the full command line, tool first, for method m.
func BuildCommand(cfg types.BatchConfig, m types.Method) []string {
	cfg = cfg.WithDefaults()
	return append([]string{cfg.Tool}, BuildArgs(cfg, m, OutputPath(cfg, m.Name))...)
}

// Jobs derives one Job per method, in table order.
func Jobs(cfg types.BatchConfig, table []types.Method) []Job {
	jobs := make([]Job, len(table))
	for i, m := range table {
		out := OutputPath(cfg, m.Name)
		jobs[i] = Job{
			Method:     m.Name,
			InputPath:  cfg.InputPath,
			OutputPath: out,
			Args:       BuildArgs(cfg, m, out),
		}
	}
	return jobs
}

// Converter runs batches against one tool and configuration. Progress
// lines are written to w.
type Converter struct {
	tool runner.Tool
	cfg  types.BatchConfig
	w    io.Writer
	mu   sync.Mutex
	now  func() time.Time
}

// NewConverter creates a Converter. A nil w discards progress output.
func NewConverter(tool runner.Tool, cfg types.BatchConfig, w io.Writer) *Converter {
	if w == nil {
		w = io.Discard
	}
	cfg = cfg.WithDefaults()
	cfg.Tool = tool.Name()
	return &Converter{tool: tool, cfg: cfg, w: w, now: time.Now}
}

// Config returns the effective configuration.
func (c *Converter) Config() types.BatchConfig { return c.cfg }

func (c *Converter) printf(format string, a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, format, a...)
}

// RunJob prints the command and runs it, waiting for the tool to exit.
func (c *Converter) RunJob(ctx context.Context, job Job) error {
	c.printf("Running: %s %s\n", c.tool.Name(), strings.Join(job.Args, " "))
	if err := c.tool.Run(ctx, job.Args, nil); err != nil {
		return &ExternalToolError{Method: job.Method, Tool: c.tool.Name(), Err: err}
	}
	return nil
}

// Run ensures the output directory exists and then runs one job per method.
// The returned error is non-nil only when the directory cannot be created;
// tool failures are recorded in the Report.
func (c *Converter) Run(ctx context.Context, table []types.Method) (Report, error) {
	report := Report{
		StartedAt: c.now().UTC(),
		Tool:      c.cfg.Tool,
		InputPath: c.cfg.InputPath,
		OutputDir: c.cfg.OutputDir,
	}

	if err := EnsureDir(c.cfg.OutputDir); err != nil {
		return report, err
	}

	jobs := Jobs(c.cfg, table)
	report.Results = make([]Result, len(jobs))

	if c.cfg.Workers <= 1 {
		for i, job := range jobs {
			report.Results[i] = c.runOne(ctx, job)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(c.cfg.Workers)
		for i, job := range jobs {
			i, job := i, job // per-iteration copies (pre-Go 1.22 loop semantics)
			g.Go(func() error {
				report.Results[i] = c.runOne(ctx, job)
				return nil
			})
		}
		_ = g.Wait()
	}

	report.FinishedAt = c.now().UTC()
	c.printSummary(report)
	return report, nil
}

func (c *Converter) runOne(ctx context.Context, job Job) Result {
	start := c.now()
	err := c.RunJob(ctx, job)
	res := Result{
		Method:     job.Method,
		OutputPath: job.OutputPath,
		Outcome:    types.OutcomeSucceeded,
		Duration:   c.now().Sub(start),
	}
	if err != nil {
		res.Outcome = types.OutcomeFailed
		res.Err = err
		c.printf("[ERROR] Failed on %s: %v\n", job.Method, err)
	}
	return res
}

func (c *Converter) printSummary(r Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintln(c.w, "\nDone! Generated:")
	for _, res := range r.Results {
		if res.Outcome == types.OutcomeSucceeded {
			fmt.Fprintf(c.w, "  - %s\n", res.Method)
		}
	}
	if failed := r.FailedMethods(); len(failed) > 0 {
		fmt.Fprintln(c.w, "Failed:")
		for _, name := range failed {
			fmt.Fprintf(c.w, "  - %s\n", name)
		}
	}
	fmt.Fprintf(c.w, "\nBatch summary: %d succeeded, %d failed (total: %d)\n",
		r.Succeeded(), r.Failed(), r.Total())
}
