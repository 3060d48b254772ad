package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/zhiyu220/MCP-demo/internal/pathutil"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Models       ModelsConfig       `koanf:"models"`
	MCP          MCPConfig          `koanf:"mcp"`
	Orchestrator OrchestratorConfig `koanf:"orchestrator"`
	Session      SessionConfig      `koanf:"session"`
	Weather      WeatherConfig      `koanf:"weather"`
}

type ServerConfig struct {
	LogLevel    string `koanf:"log_level"`
	MetricsAddr string `koanf:"metrics_addr"`
}

type ModelsConfig struct {
	Default             string          `koanf:"default"`
	Fallback            string          `koanf:"fallback"`
	MaxFallbackAttempts int             `koanf:"max_fallback_attempts"`
	Registry            []ModelRegistry `koanf:"registry"`
}

type ModelRegistry struct {
	Name           string `koanf:"name"`
	Provider       string `koanf:"provider"`
	BaseURL        string `koanf:"base_url"`
	APIKey         string `koanf:"api_key"`
	RequestTimeout string `koanf:"request_timeout"`
}

type MCPConfig struct {
	Transport      string `koanf:"transport"`
	URL            string `koanf:"url"`
	ClientName     string `koanf:"client_name"`
	ConnectTimeout string `koanf:"connect_timeout"`
}

type OrchestratorConfig struct {
	MaxRounds    int      `koanf:"max_rounds"`
	ModelTimeout string   `koanf:"model_timeout"`
	ToolTimeout  string   `koanf:"tool_timeout"`
	ExitKeywords []string `koanf:"exit_keywords"`
	Verbose      bool     `koanf:"verbose"`
}

type SessionConfig struct {
	Store string             `koanf:"store"`
	Path  string             `koanf:"path"`
	Redis RedisSessionConfig `koanf:"redis"`
}

type RedisSessionConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
	TTL      string `koanf:"ttl"`
}

type WeatherConfig struct {
	BaseURL    string `koanf:"base_url"`
	APIKey     string `koanf:"api_key"`
	Units      string `koanf:"units"`
	Lang       string `koanf:"lang"`
	Timeout    string `koanf:"timeout"`
	ListenAddr string `koanf:"listen_addr"`
	PublicURL  string `koanf:"public_url"`
	Transport  string `koanf:"transport"`
}

const (
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable-http"

	SessionStoreMemory = "memory"
	SessionStoreFile   = "file"
	SessionStoreRedis  = "redis"
)

const (
	DefaultServerLogLevel           = "info"
	DefaultServerMetricsAddr        = ""
	DefaultModelDefault             = "llama3.1"
	DefaultModelFallback            = ""
	DefaultModelMaxFallbackAttempts = 2
	DefaultModelRequestTimeout      = "120s"
	DefaultOpenAIBaseURL            = "https://api.openai.com/v1"
	DefaultOllamaBaseURL            = "http://localhost:11434/v1"
	DefaultOllamaAPIKey             = "ollama"
	DefaultMCPTransport             = TransportSSE
	DefaultMCPURL                   = "http://127.0.0.1:1234/sse"
	DefaultMCPClientName            = "mcphost"
	DefaultMCPConnectTimeout        = "10s"
	DefaultOrchestratorMaxRounds    = 8
	DefaultOrchestratorModelTimeout = "120s"
	DefaultOrchestratorToolTimeout  = "30s"
	DefaultOrchestratorVerbose      = false
	DefaultSessionStore             = SessionStoreFile
	DefaultSessionRedisAddr         = "localhost:6379"
	DefaultSessionRedisPrefix       = "mcphost:session:"
	DefaultSessionRedisTTL          = "168h"
	DefaultWeatherBaseURL           = "https://api.openweathermap.org/data/2.5"
	DefaultWeatherUnits             = "metric"
	DefaultWeatherLang              = "zh_tw"
	DefaultWeatherTimeout           = "10s"
	DefaultWeatherListenAddr        = "0.0.0.0:1234"
	DefaultWeatherPublicURL         = "http://127.0.0.1:1234"
	DefaultWeatherTransport         = TransportSSE
)

// DefaultExitKeywords end the interactive loop. Matching is case-insensitive.
var DefaultExitKeywords = []string{"exit", "退出"}

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.log_level":             DefaultServerLogLevel,
		"server.metrics_addr":          DefaultServerMetricsAddr,
		"models.default":               DefaultModelDefault,
		"models.fallback":              DefaultModelFallback,
		"models.max_fallback_attempts": DefaultModelMaxFallbackAttempts,
		"models.registry": []ModelRegistry{
			{Name: DefaultModelDefault, Provider: "ollama", BaseURL: DefaultOllamaBaseURL},
			{Name: "gpt-4o-mini", Provider: "openai"},
		},
		"mcp.transport":              DefaultMCPTransport,
		"mcp.url":                    DefaultMCPURL,
		"mcp.client_name":            DefaultMCPClientName,
		"mcp.connect_timeout":        DefaultMCPConnectTimeout,
		"orchestrator.max_rounds":    DefaultOrchestratorMaxRounds,
		"orchestrator.model_timeout": DefaultOrchestratorModelTimeout,
		"orchestrator.tool_timeout":  DefaultOrchestratorToolTimeout,
		"orchestrator.exit_keywords": DefaultExitKeywords,
		"orchestrator.verbose":       DefaultOrchestratorVerbose,
		"session.store":              DefaultSessionStore,
		"session.path":               filepath.Join(os.Getenv("HOME"), ".mcphost", "sessions"),
		"session.redis.addr":         DefaultSessionRedisAddr,
		"session.redis.prefix":       DefaultSessionRedisPrefix,
		"session.redis.ttl":          DefaultSessionRedisTTL,
		"weather.base_url":           DefaultWeatherBaseURL,
		"weather.units":              DefaultWeatherUnits,
		"weather.lang":               DefaultWeatherLang,
		"weather.timeout":            DefaultWeatherTimeout,
		"weather.listen_addr":        DefaultWeatherListenAddr,
		"weather.public_url":         DefaultWeatherPublicURL,
		"weather.transport":          DefaultWeatherTransport,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			globalPath := filepath.Join(home, ".mcphost", "config.yaml")
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	// MCPHOST_MCP_URL -> mcp.url
	k.Load(env.Provider("MCPHOST_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "MCPHOST_")), "_", ".", 1)
	}), nil)

	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	for i, m := range cfg.Models.Registry {
		if m.Provider == "" {
			cfg.Models.Registry[i].Provider = "openai"
		}
	}

	if err := normalizePathFields(&cfg); err != nil {
		return nil, err
	}
	if err := validateDurations(&cfg); err != nil {
		return nil, err
	}

	injectProviderKey(&cfg, "openai", os.Getenv("OPENAI_API_KEY"))
	injectProviderKey(&cfg, "anthropic", os.Getenv("ANTHROPIC_API_KEY"))
	injectProviderKey(&cfg, "gemini", os.Getenv("GEMINI_API_KEY"))

	if cfg.Weather.APIKey == "" {
		cfg.Weather.APIKey = os.Getenv("OPENWEATHER_API_KEY")
	}

	return &cfg, nil
}

func injectProviderKey(cfg *Config, provider, key string) {
	if key == "" {
		return
	}
	for i, m := range cfg.Models.Registry {
		if m.Provider == provider && m.APIKey == "" {
			cfg.Models.Registry[i].APIKey = key
		}
	}
}

func normalizePathFields(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	sessionPath, err := expandConfiguredPath(cfg.Session.Path)
	if err != nil {
		return err
	}
	if sessionPath != "" {
		cfg.Session.Path = sessionPath
	}

	return nil
}

func expandConfiguredPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	return pathutil.Expand(trimmed)
}
