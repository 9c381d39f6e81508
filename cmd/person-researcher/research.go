// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/person-researcher/internal/extract"
	"github.com/pdiddy/person-researcher/internal/llm"
	"github.com/pdiddy/person-researcher/internal/query"
	"github.com/pdiddy/person-researcher/internal/reflection"
	"github.com/pdiddy/person-researcher/internal/researchexec"
	"github.com/pdiddy/person-researcher/internal/runner"
	"github.com/pdiddy/person-researcher/internal/store"
	"github.com/pdiddy/person-researcher/internal/trace"
	"github.com/pdiddy/person-researcher/internal/websearch"
	"github.com/pdiddy/person-researcher/pkg/types"
)

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Research a person from whatever fields are known",
	Long: `Research runs the full loop for one person. Provide at least one seed
field; the tool generates targeted search queries, fetches results from the
configured search backends, extracts structured fields with the inference
model, and repeats until the profile is judged complete or the cycle budget
runs out. Interrupting the run (Ctrl-C) prints the partial profile gathered
so far.`,
	Example: `  person-researcher research --name "Jane Doe" --company Acme
  person-researcher research --email jane@acme.example --save
  person-researcher research --linkedin https://linkedin.com/in/janedoe --json`,
	RunE: runResearch,
}

func init() {
	researchCmd.Flags().String("name", "", "person's full name")
	researchCmd.Flags().String("email", "", "person's email address")
	researchCmd.Flags().String("company", "", "company the person works at")
	researchCmd.Flags().String("linkedin", "", "person's LinkedIn URL")
	researchCmd.Flags().String("role", "", "person's job title or role")
	researchCmd.Flags().String("notes", "", "free-form notes about the person")
	researchCmd.Flags().Int("max-cycles", 0, "additional research cycles beyond the first (0 = config default)")
	researchCmd.Flags().Bool("json", false, "output the full run result as JSON")
	researchCmd.Flags().Bool("save", false, "archive the run in the local store")
	researchCmd.Flags().Bool("quiet", false, "suppress progress events")
	researchCmd.Flags().Bool("debug", false, "verbose progress events")

	rootCmd.AddCommand(researchCmd)
}

func runResearch(cmd *cobra.Command, args []string) error {
	seed := seedFromFlags(cmd)
	if seed.IsEmpty() {
		return fmt.Errorf("at least one seed field required: --name, --email, --company, --linkedin, --role, or --notes")
	}

	cfg := loadConfig()
	if maxCycles, _ := cmd.Flags().GetInt("max-cycles"); maxCycles > 0 {
		cfg.Runner.MaxCycles = maxCycles
	}

	cfg.LLM.APIKey = secretDefault("anthropic-api-key", cfg.LLM.APIKey)
	if cfg.LLM.APIKey == "" {
		return fmt.Errorf("inference credential missing: put the key in .secrets/anthropic-api-key or set ANTHROPIC_API_KEY")
	}

	httpClient := &http.Client{Timeout: httpTimeout(cfg)}
	backends := searchBackends(cfg, httpClient)
	if len(backends) == 0 {
		return fmt.Errorf("no search backend available: put a key in .secrets/tavily-api-key or .secrets/brave-api-key (or set TAVILY_API_KEY / BRAVE_API_KEY)")
	}

	claude := llm.NewClaude(cfg.LLM, httpClient)

	var sink trace.Sink = trace.Nop{}
	quiet, _ := cmd.Flags().GetBool("quiet")
	debug, _ := cmd.Flags().GetBool("debug")
	if !quiet {
		sink = trace.NewConsole(os.Stderr, debug)
	}

	r := runner.New(
		query.New(claude, cfg.Query, cfg.LLM.MaxRetries),
		researchexec.New(backends, cfg.Search),
		extract.New(claude, cfg.LLM.MaxRetries),
		reflection.New(claude, cfg.Reflection, cfg.LLM.MaxRetries),
		cfg.Runner,
		sink,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, runErr := r.Run(ctx, seed)
	if result == nil {
		return runErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if result.Canceled {
		fmt.Fprintln(os.Stderr, "run interrupted; showing the partial profile gathered so far")
	}

	if save, _ := cmd.Flags().GetBool("save"); save {
		s, err := store.NewStore(cfg.Store)
		if err != nil {
			return fmt.Errorf("opening run store: %w", err)
		}
		defer s.Close()
		if err := s.SaveRun(context.Background(), result); err != nil {
			return fmt.Errorf("archiving run: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Saved run %s\n", result.RunID)
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatRunResult(result, jsonOutput)
}

// seedFromFlags assembles the seed descriptor from the research flags.
func seedFromFlags(cmd *cobra.Command) types.Seed {
	get := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return strings.TrimSpace(v)
	}
	return types.Seed{
		Name:     get("name"),
		Email:    get("email"),
		Company:  get("company"),
		LinkedIn: get("linkedin"),
		Role:     get("role"),
		Notes:    get("notes"),
	}
}

// searchBackends builds the enabled backends that have credentials.
func searchBackends(cfg types.Config, client *http.Client) []websearch.Backend {
	var backends []websearch.Backend
	if key := secretDefault("tavily-api-key", ""); key != "" && cfg.Search.EnableTavily {
		backends = append(backends, &websearch.TavilyBackend{Client: client, APIKey: key})
	}
	if key := secretDefault("brave-api-key", ""); key != "" && cfg.Search.EnableBrave {
		backends = append(backends, &websearch.BraveBackend{Client: client, APIKey: key})
	}
	return backends
}

// formatRunResult prints the final profile as a table or as JSON.
func formatRunResult(result *types.RunResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	populated := result.Profile.Populated()
	if len(populated) == 0 {
		fmt.Println("No fields discovered.")
	} else {
		fmt.Fprintf(os.Stdout, "%-18s  %-40s  %-5s  %-12s  %s\n",
			"Field", "Value", "Conf", "Status", "Sources")
		fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))

		for _, name := range populated {
			fv := result.Profile[name]
			value := fv.Value
			if len(value) > 40 {
				value = value[:37] + "..."
			}
			fmt.Fprintf(os.Stdout, "%-18s  %-40s  %-5.2f  %-12s  %s\n",
				name, value, fv.Confidence, fv.Provenance.Status,
				strings.Join(fv.Provenance.Sources, ", "))
		}
	}

	fmt.Fprintf(os.Stdout, "\ncomplete=%v cycles=%d", result.Verdict.Complete, result.Cycles+1)
	if len(result.Verdict.MissingFields) > 0 {
		parts := make([]string, len(result.Verdict.MissingFields))
		for i, f := range result.Verdict.MissingFields {
			parts[i] = string(f)
		}
		fmt.Fprintf(os.Stdout, " missing=%s", strings.Join(parts, ","))
	}
	fmt.Fprintln(os.Stdout)
	return nil
}
