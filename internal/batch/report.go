// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/dithercmp/pkg/types"
)

// Result is the outcome of one job.
type Result struct {
	Method     string
	OutputPath string
	Outcome    types.Outcome
	// Err is an *ExternalToolError when Outcome is failed.
	Err      error
	Duration time.Duration
}

// Report aggregates the results of a batch, in table order.
type Report struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Tool       string
	InputPath  string
	OutputDir  string
	Results    []Result
}

// Succeeded returns the number of methods whose job exited zero.
func (r Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == types.OutcomeSucceeded {
			n++
		}
	}
	return n
}

// Failed returns the number of methods whose job failed.
func (r Report) Failed() int {
	return len(r.Results) - r.Succeeded()
}

// Total returns the number of methods attempted.
func (r Report) Total() int {
	return len(r.Results)
}

// HasFailures reports whether any method failed.
func (r Report) HasFailures() bool {
	return r.Failed() > 0
}

// FailedMethods returns the names of failed methods in table order.
func (r Report) FailedMethods() []string {
	var names []string
	for _, res := range r.Results {
		if res.Outcome != types.OutcomeSucceeded {
			names = append(names, res.Method)
		}
	}
	return names
}

// reportDoc is the serialised form of a Report.
type reportDoc struct {
	StartedAt  string      `json:"started_at" yaml:"started_at"`
	FinishedAt string      `json:"finished_at" yaml:"finished_at"`
	Tool       string      `json:"tool" yaml:"tool"`
	InputPath  string      `json:"input" yaml:"input"`
	OutputDir  string      `json:"out_dir" yaml:"out_dir"`
	Succeeded  int         `json:"succeeded" yaml:"succeeded"`
	Failed     int         `json:"failed" yaml:"failed"`
	Results    []resultDoc `json:"results" yaml:"results"`
}

type resultDoc struct {
	Method   string        `json:"method" yaml:"method"`
	Output   string        `json:"output" yaml:"output"`
	Outcome  types.Outcome `json:"outcome" yaml:"outcome"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration string        `json:"duration" yaml:"duration"`
}

func (r Report) doc() reportDoc {
	d := reportDoc{
		StartedAt:  r.StartedAt.Format(time.RFC3339),
		FinishedAt: r.FinishedAt.Format(time.RFC3339),
		Tool:       r.Tool,
		InputPath:  r.InputPath,
		OutputDir:  r.OutputDir,
		Succeeded:  r.Succeeded(),
		Failed:     r.Failed(),
		Results:    make([]resultDoc, len(r.Results)),
	}
	for i, res := range r.Results {
		rd := resultDoc{
			Method:   res.Method,
			Output:   res.OutputPath,
			Outcome:  res.Outcome,
			Duration: res.Duration.Round(time.Millisecond).String(),
		}
		if res.Err != nil {
			rd.Error = res.Err.Error()
		}
		d.Results[i] = rd
	}
	return d
}

// WriteYAML writes the report as YAML.
func (r Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r.doc()); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return enc.Close()
}

// WriteJSON writes the report as indented JSON.
func (r Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r.doc()); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}
