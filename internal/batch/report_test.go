// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/dithercmp/pkg/types"
)

func sampleReport() Report {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return Report{
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
		Tool:       "convert",
		InputPath:  "in.png",
		OutputDir:  "out",
		Results: []Result{
			{Method: "a", OutputPath: "out/a.png", Outcome: types.OutcomeSucceeded, Duration: 1500 * time.Millisecond},
			{Method: "b", OutputPath: "out/b.png", Outcome: types.OutcomeFailed,
				Err: &ExternalToolError{Method: "b", Tool: "convert", Err: errors.New("exit status 1")}},
		},
	}
}

func TestReportCounts(t *testing.T) {
	r := sampleReport()
	assert.Equal(t, 1, r.Succeeded())
	assert.Equal(t, 1, r.Failed())
	assert.Equal(t, 2, r.Total())
	assert.True(t, r.HasFailures())
	assert.Equal(t, []string{"b"}, r.FailedMethods())

	assert.False(t, Report{}.HasFailures())
	assert.Nil(t, Report{}.FailedMethods())
}

func TestReportWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleReport().WriteYAML(&buf))

	var got reportDoc
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "2026-03-01T12:00:00Z", got.StartedAt)
	assert.Equal(t, 1, got.Failed)
	require.Len(t, got.Results, 2)
	assert.Equal(t, "1.5s", got.Results[0].Duration)
	assert.Empty(t, got.Results[0].Error)
	assert.Equal(t, "method b: exit status 1", got.Results[1].Error)
}

func TestReportWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleReport().WriteJSON(&buf))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "convert", got["tool"])
	results := got["results"].([]any)
	require.Len(t, results, 2)
	assert.Equal(t, "failed", results[1].(map[string]any)["outcome"])
	assert.NotContains(t, results[0].(map[string]any), "error")
}
