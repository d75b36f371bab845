// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/dithercmp/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded comparison runs",
	Long: `History lists earlier runs from the history database, newest first.
Use --run with a run ID to see the outcome of each method in that run.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 10, "maximum runs to list (0 = all)")
	historyCmd.Flags().Int64("run", 0, "show per-method results for this run ID")
	historyCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := history.Open(historyPath())
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	w := cmd.OutOrStdout()
	asJSON, _ := cmd.Flags().GetBool("json")

	if runID, _ := cmd.Flags().GetInt64("run"); runID > 0 {
		rows, err := store.Results(ctx, runID)
		if err != nil {
			return err
		}
		if asJSON {
			return encodeJSON(w, rows)
		}
		formatResults(w, rows)
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.List(ctx, limit)
	if err != nil {
		return err
	}
	if asJSON {
		return encodeJSON(w, runs)
	}
	formatRuns(w, runs)
	return nil
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatRuns(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	fmt.Fprintf(w, "%-5s  %-20s  %-10s  %-9s  %-6s  %s\n", "ID", "Started", "Tool", "Succeeded", "Failed", "Output")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, r := range runs {
		fmt.Fprintf(w, "%-5d  %-20s  %-10s  %-9d  %-6d  %s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Tool, r.Succeeded, r.Failed, r.OutputDir)
	}
}

func formatResults(w io.Writer, rows []history.ResultRow) {
	fmt.Fprintf(w, "%-24s  %-9s  %-8s  %s\n", "Method", "Outcome", "Time", "Output / Error")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, r := range rows {
		detail := r.OutputPath
		if r.Error != "" {
			detail = r.Error
		}
		fmt.Fprintf(w, "%-24s  %-9s  %-8s  %s\n", r.Method, r.Outcome, r.Duration, detail)
	}
}
