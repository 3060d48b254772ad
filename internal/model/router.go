package model

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/zhiyu220/MCP-demo/internal/config"
	apperrors "github.com/zhiyu220/MCP-demo/internal/errors"
	"github.com/zhiyu220/MCP-demo/internal/logger"
	"github.com/zhiyu220/MCP-demo/internal/model/contract"
	anthropicProvider "github.com/zhiyu220/MCP-demo/internal/model/providers/anthropic"
	geminiProvider "github.com/zhiyu220/MCP-demo/internal/model/providers/gemini"
	openaiProvider "github.com/zhiyu220/MCP-demo/internal/model/providers/openai"
)

// DefaultModelRouter implements ModelRouter interface
type DefaultModelRouter struct {
	cfg       config.ModelsConfig
	providers map[string]Provider
	mu        sync.RWMutex
}

// NewModelRouter creates a router and a provider for every registry entry.
// Entries that cannot be built are skipped with a warning.
func NewModelRouter(cfg config.ModelsConfig) (*DefaultModelRouter, error) {
	router := newRouter(cfg)
	if err := router.initProviders(); err != nil {
		return nil, err
	}
	return router, nil
}

func newRouter(cfg config.ModelsConfig) *DefaultModelRouter {
	return &DefaultModelRouter{
		cfg:       cfg,
		providers: make(map[string]Provider),
	}
}

// Register adds or replaces the provider serving name.
func (r *DefaultModelRouter) Register(name string, provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = provider
}

// Route routes a completion request to the appropriate provider
func (r *DefaultModelRouter) Route(ctx context.Context, model string, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	log := logger.From(ctx)
	log.Debug("Routing completion request", "model", model, "messages", len(req.Messages))

	provider, resolved, err := r.resolveProvider(ctx, model)
	if err != nil {
		return nil, err
	}

	return r.executeWithFallback(ctx, resolved, provider, req)
}

// ListModels returns all registered model names
func (r *DefaultModelRouter) ListModels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := make([]string, 0, len(r.providers))
	for name := range r.providers {
		models = append(models, name)
	}
	sort.Strings(models)
	return models
}

func (r *DefaultModelRouter) initProviders() error {
	for _, entry := range r.cfg.Registry {
		provider, err := createProvider(entry)
		if err != nil {
			slog.Warn("Failed to create provider", "provider", entry.Provider, "model", entry.Name, "error", err)
			continue
		}

		r.providers[entry.Name] = provider
		slog.Debug("Provider initialized", "name", entry.Name, "type", entry.Provider)
	}

	if len(r.providers) == 0 && len(r.cfg.Registry) > 0 {
		return apperrors.Internal("no providers initialized")
	}

	return nil
}

func (r *DefaultModelRouter) resolveProvider(ctx context.Context, model string) (Provider, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", apperrors.Wrap(ctx.Err(), "provider resolution cancelled")
	default:
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if provider, exists := r.providers[model]; exists {
		return provider, model, nil
	}

	slog.Warn("Model not found", "model", model)
	if r.cfg.Fallback != "" && model != r.cfg.Fallback {
		if fallbackProvider, ok := r.providers[r.cfg.Fallback]; ok {
			slog.Info("Using fallback model", "model", model, "fallback", r.cfg.Fallback)
			return fallbackProvider, r.cfg.Fallback, nil
		}
	}

	return nil, "", apperrors.NotFound(fmt.Sprintf("model %s not found", model))
}

// executeWithFallback tries the resolved model once, then the configured
// fallback, up to max_fallback_attempts calls in total.
func (r *DefaultModelRouter) executeWithFallback(ctx context.Context, model string, provider Provider, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	log := logger.From(ctx)

	maxAttempts := r.cfg.MaxFallbackAttempts
	if maxAttempts <= 0 {
		maxAttempts = config.DefaultModelMaxFallbackAttempts
	}

	currentModel := model
	currentProvider := provider
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, apperrors.Wrap(ctx.Err(), "request execution cancelled")
		default:
		}

		attemptReq := req
		attemptReq.Model = currentModel

		resp, err := currentProvider.Generate(ctx, attemptReq)
		if err == nil {
			log.Debug("Request completed", "model", currentModel, "attempt", attempt+1)
			return resp, nil
		}

		lastErr = err
		log.Error("Provider request failed", "model", currentModel, "attempt", attempt+1, "error", err)

		if r.cfg.Fallback == "" || currentModel == r.cfg.Fallback {
			break
		}

		r.mu.RLock()
		fallbackProvider, exists := r.providers[r.cfg.Fallback]
		r.mu.RUnlock()
		if !exists {
			break
		}

		log.Info("Attempting fallback", "from", currentModel, "to", r.cfg.Fallback)
		currentModel = r.cfg.Fallback
		currentProvider = fallbackProvider
	}

	return nil, apperrors.WrapWithCategory(lastErr, "provider request failed", apperrors.CategoryOf(lastErr))
}

func createProvider(entry config.ModelRegistry) (Provider, error) {
	timeout, err := config.DurationOrDefault(entry.RequestTimeout, config.DefaultModelRequestTimeout)
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid request_timeout for model %s: %v", entry.Name, err))
	}

	switch entry.Provider {
	case "openai":
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = config.DefaultOpenAIBaseURL
		}
		if entry.APIKey == "" {
			return nil, apperrors.InvalidInput("API key required for OpenAI provider")
		}
		p := openaiProvider.New(entry.APIKey, baseURL, entry.Name, openaiProvider.Options{Timeout: timeout})
		return NewProviderAdapter(entry.Name, "openai", p), nil

	case "ollama":
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = config.DefaultOllamaBaseURL
		}
		apiKey := entry.APIKey
		if apiKey == "" {
			apiKey = config.DefaultOllamaAPIKey
		}
		p := openaiProvider.New(apiKey, baseURL, entry.Name, openaiProvider.Options{NativeToolRole: true, Timeout: timeout})
		return NewProviderAdapter(entry.Name, "ollama", p), nil

	case "anthropic":
		if entry.APIKey == "" {
			return nil, apperrors.InvalidInput("API key required for Anthropic provider")
		}
		p := anthropicProvider.New(entry.APIKey, entry.BaseURL, timeout)
		return NewProviderAdapter(entry.Name, "anthropic", p), nil

	case "gemini":
		if entry.APIKey == "" {
			return nil, apperrors.InvalidInput("API key required for Gemini provider")
		}
		p, err := geminiProvider.New(context.Background(), entry.APIKey, entry.BaseURL, entry.Name)
		if err != nil {
			return nil, apperrors.WrapWithCategory(err, "failed to create Gemini provider", apperrors.ErrInternal)
		}
		return NewProviderAdapter(entry.Name, "gemini", p), nil

	default:
		return nil, apperrors.InvalidInput(fmt.Sprintf("unsupported provider: %s", entry.Provider))
	}
}
