package config

import (
	"fmt"
	"strings"
)

// ValidationError lists every configuration problem found.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation errors:\n  - %s", strings.Join(e.Problems, "\n  - "))
}

// Validate checks the config for:
//   - A known store type, with a rules file for the file store
//   - Known log level and format
//   - Positive limits and pool sizes
func (c *Config) Validate() error {
	var errs []string

	if c.HTTP.Addr == "" {
		errs = append(errs, "HTTP_ADDR must not be empty")
	}
	if c.HTTP.RateLimitPerMinute < 0 {
		errs = append(errs, fmt.Sprintf("RATE_LIMIT_PER_MINUTE must be >= 0, got %d", c.HTTP.RateLimitPerMinute))
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Sprintf("MAX_BODY_BYTES must be > 0, got %d", c.HTTP.MaxBodyBytes))
	}

	switch c.Store.Type {
	case "memory":
	case "file":
		if c.Store.Path == "" {
			errs = append(errs, "RULES_FILE is required when STORE_TYPE=file")
		}
	default:
		errs = append(errs, fmt.Sprintf("STORE_TYPE must be 'memory' or 'file', got '%s'", c.Store.Type))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("LOG_LEVEL must be one of debug, info, warn, error; got '%s'", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("LOG_FORMAT must be 'text' or 'json', got '%s'", c.Log.Format))
	}

	positive := []struct {
		name string
		val  int
	}{
		{"BATCH_WORKERS", c.Engine.Workers},
		{"BATCH_QUEUE_DEPTH", c.Engine.QueueDepth},
		{"BATCH_MAX_SIZE", c.Engine.BatchMaxSize},
		{"EVAL_TIMEOUT_MS", c.Engine.EvalTimeoutMs},
	}
	for _, p := range positive {
		if p.val <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be > 0, got %d", p.name, p.val))
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Problems: errs}
	}
	return nil
}
