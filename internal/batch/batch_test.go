// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/dithercmp/pkg/types"
)

// fakeTool implements runner.Tool. It writes the output file named by the
// last argument unless the method is listed in fail.
type fakeTool struct {
	t    *testing.T
	dir  string
	fail map[string]bool

	mu    sync.Mutex
	calls [][]string
}

func (f *fakeTool) Name() string { return "convert" }

func (f *fakeTool) Run(_ context.Context, args []string, _ io.Writer) error {
	f.mu.Lock()
	f.calls = append(f.calls, args)
	f.mu.Unlock()

	info, err := os.Stat(f.dir)
	if err != nil || !info.IsDir() {
		f.t.Errorf("job ran before output directory %s existed", f.dir)
	}

	out := args[len(args)-1]
	method := strings.TrimSuffix(filepath.Base(out), filepath.Ext(out))
	if f.fail[method] {
		return errors.New("exit status 1")
	}
	return os.WriteFile(out, []byte("png"), 0o644)
}

func (f *fakeTool) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testTable() []types.Method {
	return []types.Method{
		{Name: "ordered_o3x3", Args: []string{"-ordered-dither", "o3x3"}},
		{Name: "ordered_h4x4a", Args: []string{"-ordered-dither", "h4x4a"}},
		{Name: "ordered_o8x8", Args: []string{"-ordered-dither", "o8x8"}},
	}
}

func testConfig(outDir string) types.BatchConfig {
	cfg := types.DefaultBatchConfig()
	cfg.InputPath = "in.png"
	cfg.OutputDir = outDir
	return cfg
}

func TestBuildCommand(t *testing.T) {
	cfg := testConfig("out")
	m := types.Method{Name: "ordered_o3x3", Args: []string{"-ordered-dither", "o3x3"}}

	want := []string{
		"convert", "in.png",
		"-resize", "384x",
		"-colorspace", "Gray",
		"-ordered-dither", "o3x3",
		"-dither", "FloydSteinberg",
		"out/ordered_o3x3.png",
	}
	assert.Equal(t, want, BuildCommand(cfg, m))
	assert.Equal(t, want, BuildCommand(cfg, m), "command construction is deterministic")
}

func TestBuildArgs(t *testing.T) {
	m := types.Method{Name: "riemersma", Args: []string{"-dither", "Riemersma"}}

	t.Run("empty baseline flags are omitted", func(t *testing.T) {
		cfg := types.BatchConfig{InputPath: "a.png", OutputDir: "o"}
		got := BuildArgs(cfg, m, "o/riemersma.png")
		assert.Equal(t, []string{"a.png", "-dither", "Riemersma", "-dither", "FloydSteinberg", "o/riemersma.png"}, got)
	})

	t.Run("custom diffusion and extension", func(t *testing.T) {
		cfg := testConfig("o")
		cfg.Diffusion = "None"
		cfg.Extension = "bmp"
		out := OutputPath(cfg, m.Name)
		assert.Equal(t, filepath.Join("o", "riemersma.bmp"), out)
		got := BuildArgs(cfg, m, out)
		assert.Equal(t, []string{"-dither", "None", out}, got[len(got)-3:])
	})
}

func TestJobs(t *testing.T) {
	jobs := Jobs(testConfig("out"), testTable())
	require.Len(t, jobs, 3)
	for i, m := range testTable() {
		assert.Equal(t, m.Name, jobs[i].Method)
		assert.Equal(t, "in.png", jobs[i].InputPath)
		assert.Equal(t, filepath.Join("out", m.Name+".png"), jobs[i].OutputPath)
		assert.Equal(t, jobs[i].OutputPath, jobs[i].Args[len(jobs[i].Args)-1])
	}
}

func TestEnsureDir(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "a", "b", "c")

	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureDir(dir), "second call is a no-op")
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	file := filepath.Join(base, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	err = EnsureDir(filepath.Join(file, "sub"))
	require.Error(t, err)
	var dce *DirectoryCreationError
	require.ErrorAs(t, err, &dce)
	assert.Equal(t, filepath.Join(file, "sub"), dce.Path)
}

func TestRunAllSucceed(t *testing.T) {
	for _, workers := range []int{1, 3} {
		t.Run(map[int]string{1: "sequential", 3: "pool"}[workers], func(t *testing.T) {
			outDir := filepath.Join(t.TempDir(), "dithers")
			tool := &fakeTool{t: t, dir: outDir}
			cfg := testConfig(outDir)
			cfg.Workers = workers
			var log bytes.Buffer

			report, err := NewConverter(tool, cfg, &log).Run(context.Background(), testTable())
			require.NoError(t, err)

			assert.Equal(t, len(testTable()), tool.callCount(), "one job per method")
			assert.Equal(t, 3, report.Succeeded())
			assert.False(t, report.HasFailures())
			for i, m := range testTable() {
				assert.Equal(t, m.Name, report.Results[i].Method, "results keep table order")
				assert.FileExists(t, filepath.Join(outDir, m.Name+".png"))
			}
			assert.Contains(t, log.String(), "Running: convert in.png -resize 384x")
			assert.Contains(t, log.String(), "Batch summary: 3 succeeded, 0 failed (total: 3)")
		})
	}
}

func TestRunIsolatesFailure(t *testing.T) {
	for _, workers := range []int{1, 2} {
		t.Run(map[int]string{1: "sequential", 2: "pool"}[workers], func(t *testing.T) {
			outDir := t.TempDir()
			tool := &fakeTool{t: t, dir: outDir, fail: map[string]bool{"ordered_h4x4a": true}}
			cfg := testConfig(outDir)
			cfg.Workers = workers
			var log bytes.Buffer

			report, err := NewConverter(tool, cfg, &log).Run(context.Background(), testTable())
			require.NoError(t, err, "tool failures never fail the batch")

			assert.Equal(t, 3, tool.callCount())
			assert.Equal(t, 2, report.Succeeded())
			assert.Equal(t, 1, report.Failed())
			assert.Equal(t, []string{"ordered_h4x4a"}, report.FailedMethods())

			failed := report.Results[1]
			assert.Equal(t, types.OutcomeFailed, failed.Outcome)
			var toolErr *ExternalToolError
			require.ErrorAs(t, failed.Err, &toolErr)
			assert.Equal(t, "ordered_h4x4a", toolErr.Method)
			assert.Equal(t, "convert", toolErr.Tool)

			assert.FileExists(t, filepath.Join(outDir, "ordered_o3x3.png"))
			assert.FileExists(t, filepath.Join(outDir, "ordered_o8x8.png"))
			assert.NoFileExists(t, filepath.Join(outDir, "ordered_h4x4a.png"))

			out := log.String()
			assert.Contains(t, out, "[ERROR] Failed on ordered_h4x4a")
			assert.Contains(t, out, "Failed:\n  - ordered_h4x4a\n")
		})
	}
}

func TestRunTwiceIsIdempotent(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")
	tool := &fakeTool{t: t, dir: outDir}
	conv := NewConverter(tool, testConfig(outDir), nil)

	_, err := conv.Run(context.Background(), testTable())
	require.NoError(t, err)
	first, err := os.ReadDir(outDir)
	require.NoError(t, err)

	_, err = conv.Run(context.Background(), testTable())
	require.NoError(t, err)
	second, err := os.ReadDir(outDir)
	require.NoError(t, err)

	names := func(entries []os.DirEntry) []string {
		var out []string
		for _, e := range entries {
			out = append(out, e.Name())
		}
		return out
	}
	assert.Equal(t, names(first), names(second))
	assert.Equal(t, 6, tool.callCount())
}

func TestRunDirectoryCreationFails(t *testing.T) {
	base := t.TempDir()
	file := filepath.Join(base, "blocker")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	outDir := filepath.Join(file, "out")

	tool := &fakeTool{t: t, dir: outDir}
	_, err := NewConverter(tool, testConfig(outDir), nil).Run(context.Background(), testTable())

	var dce *DirectoryCreationError
	require.ErrorAs(t, err, &dce)
	assert.Zero(t, tool.callCount(), "no job runs without the output directory")
}

func TestExternalToolErrorUnwrap(t *testing.T) {
	inner := errors.New("exit status 1")
	err := &ExternalToolError{Method: "m", Tool: "convert", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "method m: exit status 1", err.Error())
}
