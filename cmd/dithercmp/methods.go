// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/dithercmp/internal/batch"
	"github.com/pdiddy/dithercmp/internal/methods"
	"github.com/pdiddy/dithercmp/pkg/types"
)

var methodsCmd = &cobra.Command{
	Use:   "methods",
	Short: "List the dithering methods in processing order",
	Long: `Methods prints the resolved method table. With --commands it prints the
exact command line each method would run, without running anything.`,
	RunE: runMethods,
}

func init() {
	methodsCmd.Flags().Bool("commands", false, "print the full command line for each method")
	methodsCmd.Flags().Bool("json", false, "output the table as JSON")

	rootCmd.AddCommand(methodsCmd)
}

func runMethods(cmd *cobra.Command, args []string) error {
	table, source, err := loadTable()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(table)
	}

	showCommands, _ := cmd.Flags().GetBool("commands")
	formatMethods(w, table, source, batchConfig(), showCommands)
	return nil
}

func formatMethods(w io.Writer, table methods.Table, source string, cfg types.BatchConfig, showCommands bool) {
	fmt.Fprintf(w, "Methods (%s):\n", source)
	for i, m := range table {
		if showCommands {
			fmt.Fprintf(w, "%3d  %s\n", i+1, strings.Join(batch.BuildCommand(cfg, m), " "))
			continue
		}
		fmt.Fprintf(w, "%3d  %-24s  %s\n", i+1, m.Name, strings.Join(m.Args, " "))
	}
}
