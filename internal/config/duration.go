package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Durations are kept as strings so the YAML file, MCPHOST_ env vars and flags
// share one format. A bare integer is read as seconds.
func parseDuration(raw string) (time.Duration, error) {
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("duration %q is negative", raw)
		}
		return time.Duration(secs) * time.Second, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q is negative", raw)
	}
	return d, nil
}

// DurationOrDefault parses value, or fallback when value is blank.
func DurationOrDefault(value string, fallback string) (time.Duration, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		raw = strings.TrimSpace(fallback)
	}
	if raw == "" {
		return 0, errors.New("duration value is empty")
	}
	return parseDuration(raw)
}

// MustDuration is for values Load has already checked. A bad value yields the
// parsed fallback, or zero.
func MustDuration(value string, fallback string) time.Duration {
	if d, err := DurationOrDefault(value, fallback); err == nil {
		return d
	}
	d, _ := DurationOrDefault("", fallback)
	return d
}

// validateDurations rejects unparsable timeouts at load time, naming the key.
func validateDurations(cfg *Config) error {
	fields := []struct {
		key, value, fallback string
	}{
		{"mcp.connect_timeout", cfg.MCP.ConnectTimeout, DefaultMCPConnectTimeout},
		{"orchestrator.model_timeout", cfg.Orchestrator.ModelTimeout, DefaultOrchestratorModelTimeout},
		{"orchestrator.tool_timeout", cfg.Orchestrator.ToolTimeout, DefaultOrchestratorToolTimeout},
		{"session.redis.ttl", cfg.Session.Redis.TTL, DefaultSessionRedisTTL},
		{"weather.timeout", cfg.Weather.Timeout, DefaultWeatherTimeout},
	}
	for i, m := range cfg.Models.Registry {
		fields = append(fields, struct {
			key, value, fallback string
		}{fmt.Sprintf("models.registry[%d].request_timeout", i), m.RequestTimeout, DefaultModelRequestTimeout})
	}

	for _, f := range fields {
		if _, err := DurationOrDefault(f.value, f.fallback); err != nil {
			return fmt.Errorf("%s: %w", f.key, err)
		}
	}
	return nil
}
