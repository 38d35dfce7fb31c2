// Package config provides configuration loading and validation for GentAI.
// It supports TOML configuration files with environment variable expansion,
// default values, and validation.
//
// Configuration structure:
//   - [workspace]: data directory for the sqlite stores
//   - [agent]: dispatch loop behavior (step bound, context window, sampling)
//   - [llm]: LLM provider configuration (Gemini, OpenAI-compatible)
//   - [router]: model name per execution tier
//   - [google]: Google Workspace account session for capability adapters
//   - [scheduler]: background task scheduler settings
//   - [logging]: logging level, format, and output
//   - [metrics]: Prometheus metrics endpoint
//   - [tools]: enabled capability adapters
//
// Environment variables can be referenced using ${VAR} or ${VAR:default}
// syntax, e.g. api_key = "${GEMINI_API_KEY}".
package config

// Config represents the main application configuration.
type Config struct {
	Workspace WorkspaceConfig `toml:"workspace"`
	Agent     AgentConfig     `toml:"agent"`
	LLM       LLMConfig       `toml:"llm"`
	Router    RouterConfig    `toml:"router"`
	Google    GoogleConfig    `toml:"google"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Logging   LoggingConfig   `toml:"logging"`
	Metrics   MetricsConfig   `toml:"metrics"`
	Tools     ToolsConfig     `toml:"tools"`
}

// WorkspaceConfig locates the data directory holding the sqlite stores.
type WorkspaceConfig struct {
	Path string `toml:"path"`
}

// AgentConfig controls the dispatch loop.
type AgentConfig struct {
	MaxToolIterations int     `toml:"max_tool_iterations"`
	ContextTurns      int     `toml:"context_turns"`
	MaxTokens         int     `toml:"max_tokens"`
	Temperature       float64 `toml:"temperature"`
	RetryMaxAttempts  int     `toml:"retry_max_attempts"`
}

// LLMConfig selects and configures the model provider.
type LLMConfig struct {
	Provider string       `toml:"provider"` // gemini, openai
	Gemini   GeminiConfig `toml:"gemini"`
	OpenAI   OpenAIConfig `toml:"openai"`
}

// GeminiConfig configures the Gemini provider.
type GeminiConfig struct {
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// OpenAIConfig configures an OpenAI-compatible provider.
type OpenAIConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// RouterConfig maps execution tiers to model names.
type RouterConfig struct {
	FastModel          string `toml:"fast_model"`
	CapableModel       string `toml:"capable_model"`
	CapableSearchModel string `toml:"capable_search_model"`
}

// GoogleConfig holds the authenticated account session for capability adapters.
type GoogleConfig struct {
	AccessToken string `toml:"access_token"`
}

// SchedulerConfig controls the background task scheduler.
type SchedulerConfig struct {
	Enabled      bool `toml:"enabled"`
	TickSeconds  int  `toml:"tick_seconds"`
	FireTimeout  int  `toml:"fire_timeout_seconds"`
	MaxTaskCount int  `toml:"max_task_count"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

// ToolsConfig lists the capability adapters bound into the tool registry.
// The set of callable capabilities is configuration, not code.
type ToolsConfig struct {
	Enabled []string `toml:"enabled"`
}
