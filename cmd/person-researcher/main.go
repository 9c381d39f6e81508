// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the person-researcher CLI: iterative
// web research that turns a sparse person descriptor into a structured
// profile with per-field provenance.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/person-researcher/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback
// otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the person-researcher CLI.
var rootCmd = &cobra.Command{
	Use:   "person-researcher",
	Short: "Iterative web research on a person from a sparse descriptor",
	Long: `person-researcher takes whatever is known about a person (any subset of
name, email, company, role, LinkedIn URL, free-form notes) and runs a bounded
research loop: generate search queries, fetch web results, extract structured
fields, judge completeness, repeat. The result is a profile where every field
carries its confidence and the sources that support it.

Credentials load from .secrets/ files or environment variables:
anthropic-api-key (ANTHROPIC_API_KEY) for inference, and tavily-api-key
(TAVILY_API_KEY) or brave-api-key (BRAVE_API_KEY) for web search.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./person-researcher.yaml or ~/.config/person-researcher/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("person-researcher")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "person-researcher"))
		}
	}

	viper.SetEnvPrefix("PERSON_RESEARCHER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
