package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "person-researcher/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SearchConfig holds settings for the web search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxResults is the maximum number of results requested per query (default 3).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// PerQueryTimeout bounds each individual search call so one slow query
	// cannot stall the cycle (default 30s).
	PerQueryTimeout time.Duration `json:"per_query_timeout" yaml:"per_query_timeout"`

	// EnableTavily controls whether the Tavily backend is used.
	EnableTavily bool `json:"enable_tavily" yaml:"enable_tavily"`

	// EnableBrave controls whether the Brave backend is used.
	EnableBrave bool `json:"enable_brave" yaml:"enable_brave"`
}

// LLMConfig holds settings for components that call the inference API.
type LLMConfig struct {
	// Model is the model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the inference API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxTokens caps the response length (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// MaxRetries is the number of retry attempts for failed calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// QueryConfig holds settings for query generation.
type QueryConfig struct {
	// MaxQueries bounds the number of search queries per cycle (default 4,
	// accepted range 3-5).
	MaxQueries int `json:"max_queries" yaml:"max_queries"`
}

// ReflectionConfig holds settings for the completeness evaluation.
type ReflectionConfig struct {
	// RequiredFields overrides the derived required-field set. When empty,
	// the evaluator requires email and role, plus name and company when the
	// seed does not supply them.
	RequiredFields []FieldName `json:"required_fields" yaml:"required_fields"`
}

// RunnerConfig holds settings for the research loop driver.
type RunnerConfig struct {
	// MaxCycles is the number of additional cycles allowed beyond the first
	// (default 2). The run therefore executes at most MaxCycles+1 cycles.
	MaxCycles int `json:"max_cycles" yaml:"max_cycles"`
}

// StoreConfig holds settings for the run archive.
type StoreConfig struct {
	// DBPath is the SQLite database file (default "runs/research.db").
	DBPath string `json:"db_path" yaml:"db_path"`
}

// Config groups all component configurations.
type Config struct {
	Search     SearchConfig     `json:"search" yaml:"search"`
	LLM        LLMConfig        `json:"llm" yaml:"llm"`
	Query      QueryConfig      `json:"query" yaml:"query"`
	Reflection ReflectionConfig `json:"reflection" yaml:"reflection"`
	Runner     RunnerConfig     `json:"runner" yaml:"runner"`
	Store      StoreConfig      `json:"store" yaml:"store"`
}
