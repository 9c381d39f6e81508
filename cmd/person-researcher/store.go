// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/person-researcher/internal/store"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage archived research runs (list, show, export)",
	Long: `Store manages the local SQLite archive of completed research runs.
Runs land in the archive when research is invoked with --save.`,
}

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived runs, newest first",
	RunE:  runStoreList,
}

func runStoreList(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.ListRuns(context.Background())
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No archived runs.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-36s  %-20s  %-30s  %-8s  %-6s  %s\n",
		"Run ID", "Created", "Seed", "Complete", "Cycles", "Fields")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 112))

	for _, r := range runs {
		seed := r.Seed.Describe()
		if len(seed) > 30 {
			seed = seed[:27] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-36s  %-20s  %-30s  %-8v  %-6d  %d\n",
			r.ID, r.CreatedAt.Local().Format(time.DateTime), seed,
			r.Complete, r.Cycles+1, r.Fields)
	}

	fmt.Fprintf(os.Stdout, "\n%d run(s)\n", len(runs))
	return nil
}

var storeShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one archived run",
	Args:  cobra.ExactArgs(1),
	RunE:  runStoreShow,
}

func runStoreShow(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	result, err := s.GetRun(context.Background(), args[0])
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatRunResult(result, jsonOutput)
}

var storeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all archived runs to YAML or JSON",
	RunE:  runStoreExport,
}

func runStoreExport(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	out := os.Stdout
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "yaml", "":
		return s.ExportYAML(context.Background(), out)
	case "json":
		return s.ExportJSON(context.Background(), out)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
}

func openStore() (*store.Store, error) {
	return store.NewStore(loadConfig().Store)
}

func init() {
	storeShowCmd.Flags().Bool("json", false, "output the run as JSON")
	storeExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	storeExportCmd.Flags().String("output", "", "write to a file instead of stdout")

	storeCmd.AddCommand(storeListCmd)
	storeCmd.AddCommand(storeShowCmd)
	storeCmd.AddCommand(storeExportCmd)

	rootCmd.AddCommand(storeCmd)
}
