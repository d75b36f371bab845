// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pdiddy/dithercmp/internal/batch"
	"github.com/pdiddy/dithercmp/internal/history"
	"github.com/pdiddy/dithercmp/internal/runner"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Render the input image once per dithering method",
	Long: `Run creates the output directory, then invokes the conversion tool once per
method in table order, writing <out-dir>/<method>.png. A failing method is
reported and skipped; the remaining methods still run. The run is recorded in
the history database unless --no-history is set.`,
	RunE: runBatch,
}

func init() {
	f := runCmd.Flags()
	f.String("input", "", "input image (default assets/fop.png)")
	f.String("tool", "", "conversion binary (default convert)")
	f.String("resize", "", "geometry for -resize (default 384x)")
	f.String("colorspace", "", "value for -colorspace (default Gray)")
	f.String("diffusion", "", "error-diffusion algorithm for the final -dither (default FloydSteinberg)")
	f.Int("workers", 0, "jobs to run at once (default 1, sequential)")
	f.StringSlice("only", nil, "run only the named methods (comma separated)")
	f.String("report", "", "write the batch report to this file (.json or .yaml)")
	f.Bool("no-history", false, "do not record this run in the history database")
	f.Bool("strict", false, "exit non-zero when any method fails")

	for _, key := range []string{"input", "tool", "resize", "colorspace", "diffusion", "workers"} {
		mustBind(key, f.Lookup(key))
	}

	rootCmd.AddCommand(runCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg := batchConfig()

	table, source, err := loadTable()
	if err != nil {
		return err
	}
	if only, _ := cmd.Flags().GetStringSlice("only"); len(only) > 0 {
		if table, err = table.Select(only); err != nil {
			return err
		}
	}
	log.WithFields(log.Fields{
		"source":  source,
		"methods": len(table),
		"workers": cfg.Workers,
	}).Debug("loaded method table")

	conv := batch.NewConverter(runner.NewTool(cfg.Tool), cfg, cmd.OutOrStdout())
	report, err := conv.Run(cmd.Context(), table)
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("report"); path != "" {
		if err := writeReport(report, path); err != nil {
			return err
		}
		log.WithField("path", path).Info("wrote batch report")
	}

	if noHistory, _ := cmd.Flags().GetBool("no-history"); !noHistory {
		recordHistory(cmd.Context(), report)
	}

	if strict, _ := cmd.Flags().GetBool("strict"); strict && report.HasFailures() {
		return fmt.Errorf("%d method(s) failed: %s", report.Failed(), strings.Join(report.FailedMethods(), ", "))
	}
	return nil
}

// writeReport writes the report as JSON for a .json path and YAML otherwise.
func writeReport(r batch.Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = r.WriteJSON(f)
	} else {
		err = r.WriteYAML(f)
	}
	if err != nil {
		return err
	}
	return f.Close()
}

// recordHistory stores the report. Failures are logged, not returned: the
// images are already on disk.
func recordHistory(ctx context.Context, r batch.Report) {
	path := historyPath()
	store, err := history.Open(path)
	if err != nil {
		log.WithError(err).WithField("path", path).Warn("could not open history database")
		return
	}
	defer store.Close()

	id, err := store.Record(ctx, r)
	if err != nil {
		log.WithError(err).Warn("could not record run")
		return
	}
	log.WithField("run", id).Debug("recorded run")
}
