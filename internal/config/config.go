package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML configuration file, applies defaults and
// expands environment variable references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	expandEnvVars(&cfg)

	return &cfg, nil
}

// Validate checks the configuration for problems. A missing model credential
// is a startup-fatal configuration error, never a runtime one.
func (c *Config) Validate() []error {
	var errs []error

	if c.Workspace.Path == "" {
		errs = append(errs, fmt.Errorf("workspace.path is required"))
	}

	switch c.LLM.Provider {
	case "gemini":
		if c.LLM.Gemini.APIKey == "" {
			errs = append(errs, fmt.Errorf("llm.gemini.api_key is required when provider is 'gemini'"))
		}
	case "openai":
		if c.LLM.OpenAI.APIKey == "" {
			errs = append(errs, fmt.Errorf("llm.openai.api_key is required when provider is 'openai'"))
		}
	case "":
		errs = append(errs, fmt.Errorf("llm.provider is required"))
	default:
		errs = append(errs, fmt.Errorf("invalid llm.provider: %s (expected: gemini, openai)", c.LLM.Provider))
	}

	if c.Logging.Level != "" {
		validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !validLevels[strings.ToLower(c.Logging.Level)] {
			errs = append(errs, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level))
		}
	}
	if c.Logging.Format != "" {
		validFormats := map[string]bool{"json": true, "text": true}
		if !validFormats[strings.ToLower(c.Logging.Format)] {
			errs = append(errs, fmt.Errorf("invalid logging.format: %s (expected: json, text)", c.Logging.Format))
		}
	}

	if c.Scheduler.TickSeconds < 1 {
		errs = append(errs, fmt.Errorf("scheduler.tick_seconds must be at least 1"))
	}
	if c.Agent.MaxToolIterations < 1 {
		errs = append(errs, fmt.Errorf("agent.max_tool_iterations must be at least 1"))
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		errs = append(errs, fmt.Errorf("metrics.listen is required when metrics are enabled"))
	}

	return errs
}

func applyDefaults(cfg *Config) {
	if cfg.Agent.MaxToolIterations == 0 {
		cfg.Agent.MaxToolIterations = 10
	}
	if cfg.Agent.ContextTurns == 0 {
		cfg.Agent.ContextTurns = 10
	}
	if cfg.Agent.MaxTokens == 0 {
		cfg.Agent.MaxTokens = 4096
	}
	if cfg.Agent.RetryMaxAttempts == 0 {
		cfg.Agent.RetryMaxAttempts = 3
	}
	if cfg.LLM.Gemini.TimeoutSeconds == 0 {
		cfg.LLM.Gemini.TimeoutSeconds = 60
	}
	if cfg.Router.FastModel == "" {
		cfg.Router.FastModel = "gemini-2.0-flash-lite"
	}
	if cfg.Router.CapableModel == "" {
		cfg.Router.CapableModel = "gemini-2.0-flash"
	}
	if cfg.Router.CapableSearchModel == "" {
		cfg.Router.CapableSearchModel = "gemini-2.5-pro"
	}
	if cfg.Scheduler.TickSeconds == 0 {
		cfg.Scheduler.TickSeconds = 15
	}
	if cfg.Scheduler.FireTimeout == 0 {
		cfg.Scheduler.FireTimeout = 300
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}
	if len(cfg.Tools.Enabled) == 0 {
		cfg.Tools.Enabled = []string{
			"schedule_task", "list_scheduled_tasks", "cancel_scheduled_task",
			"send_gmail_message", "create_gmail_draft", "read_recent_emails", "read_email_content",
			"list_upcoming_events", "create_calendar_event",
			"search_drive_files", "read_google_doc", "append_to_google_doc",
			"search_youtube_videos", "google_search", "fetch_webpage", "current_datetime",
		}
	}
}

// expandEnvVars expands ${VAR} and ${VAR:default} references in credential
// and path fields.
func expandEnvVars(cfg *Config) {
	cfg.Workspace.Path = expand(cfg.Workspace.Path)
	cfg.LLM.Gemini.APIKey = expand(cfg.LLM.Gemini.APIKey)
	cfg.LLM.OpenAI.APIKey = expand(cfg.LLM.OpenAI.APIKey)
	cfg.LLM.OpenAI.BaseURL = expand(cfg.LLM.OpenAI.BaseURL)
	cfg.Google.AccessToken = expand(cfg.Google.AccessToken)
	cfg.Logging.Output = expand(cfg.Logging.Output)
}

func expand(value string) string {
	return os.Expand(value, func(ref string) string {
		name, fallback, hasFallback := strings.Cut(ref, ":")
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		if hasFallback {
			return fallback
		}
		return ""
	})
}
