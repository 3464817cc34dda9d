// Package cfg holds application-specific configuration alongside the
// common cfg.Registerable and cfg.Validatable interfaces.
package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config holds the service's own settings. Infrastructure packages
// (http server, logging, tracing, ops) register their own flags.
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	DatabaseURL           string
	RulesFile             string
	APIToken              string
	ClaudeAPIKey          string
	ClaudeModel           string
	AdvisoryOffline       bool
	AdvisoryCallsPerMin   int
	AdvisoryMaxPromptKB   int
	SlackWebhookURL       string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.RulesFile, "rules-file", "", "path to YAML ruleset overlay (empty = built-in defaults)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on API requests (empty = no auth)")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for the Claude advisory provider (empty = offline advisory)")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use for advisory runs")
	fs.BoolVar(&c.AdvisoryOffline, "advisory-offline", false, "force the deterministic offline advisory fallback")
	fs.IntVar(&c.AdvisoryCallsPerMin, "advisory-calls-per-min", 10, "advisory provider call budget per minute (1..120)")
	fs.IntVar(&c.AdvisoryMaxPromptKB, "advisory-max-prompt-kb", 12, "advisory prompt size cap in KiB (1..256)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for decision notifications")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	if c.AdvisoryCallsPerMin <= 0 || c.AdvisoryCallsPerMin > 120 {
		errs = append(errs, fmt.Errorf("invalid ADVISORY_CALLS_PER_MIN %d (must be 1..120)", c.AdvisoryCallsPerMin))
	}
	if c.AdvisoryMaxPromptKB <= 0 || c.AdvisoryMaxPromptKB > 256 {
		errs = append(errs, fmt.Errorf("invalid ADVISORY_MAX_PROMPT_KB %d (must be 1..256)", c.AdvisoryMaxPromptKB))
	}

	// A live advisory path needs a model name to go with the key
	if c.ClaudeAPIKey != "" && c.ClaudeModel == "" {
		errs = append(errs, errors.New("CLAUDE_MODEL is required when CLAUDE_API_KEY is set"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
