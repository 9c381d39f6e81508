// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/person-researcher/pkg/types"
)

// loadConfig assembles the component configuration from viper: config file
// values where present, defaults otherwise.
func loadConfig() types.Config {
	viper.SetDefault("http.timeout", "60s")
	viper.SetDefault("http.user_agent", "person-researcher/"+version)
	viper.SetDefault("search.max_results", 3)
	viper.SetDefault("search.per_query_timeout", "30s")
	viper.SetDefault("search.enable_tavily", true)
	viper.SetDefault("search.enable_brave", true)
	viper.SetDefault("llm.model", "claude-sonnet-4-5-20250929")
	viper.SetDefault("llm.max_tokens", 4096)
	viper.SetDefault("llm.max_retries", 3)
	viper.SetDefault("query.max_queries", 4)
	viper.SetDefault("runner.max_cycles", 2)
	viper.SetDefault("store.db_path", "runs/research.db")

	var required []types.FieldName
	for _, name := range viper.GetStringSlice("reflection.required_fields") {
		required = append(required, types.FieldName(name))
	}

	return types.Config{
		Search: types.SearchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("http.timeout"),
				UserAgent: viper.GetString("http.user_agent"),
			},
			MaxResults:      viper.GetInt("search.max_results"),
			PerQueryTimeout: viper.GetDuration("search.per_query_timeout"),
			EnableTavily:    viper.GetBool("search.enable_tavily"),
			EnableBrave:     viper.GetBool("search.enable_brave"),
		},
		LLM: types.LLMConfig{
			Model:      viper.GetString("llm.model"),
			APIKey:     viper.GetString("llm.api_key"),
			MaxTokens:  viper.GetInt("llm.max_tokens"),
			MaxRetries: viper.GetInt("llm.max_retries"),
		},
		Query: types.QueryConfig{
			MaxQueries: viper.GetInt("query.max_queries"),
		},
		Reflection: types.ReflectionConfig{
			RequiredFields: required,
		},
		Runner: types.RunnerConfig{
			MaxCycles: viper.GetInt("runner.max_cycles"),
		},
		Store: types.StoreConfig{
			DBPath: viper.GetString("store.db_path"),
		},
	}
}

// httpTimeout returns the configured HTTP timeout with a floor so a
// malformed config cannot produce instant timeouts.
func httpTimeout(cfg types.Config) time.Duration {
	if cfg.Search.Timeout <= 0 {
		return 60 * time.Second
	}
	return cfg.Search.Timeout
}
