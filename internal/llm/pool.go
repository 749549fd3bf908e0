package llm

import (
	"context"
	"log/slog"
	"sync"
)

// Pool hands out providers keyed by model name so per-request model selection
// reuses vendor clients instead of redialing them. Safe for concurrent use.
type Pool struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	byModel map[string]Provider
}

// NewPool creates a pool over the given base configuration. Providers are
// constructed lazily on first request for each model.
func NewPool(cfg Config, logger *slog.Logger) *Pool {
	return &Pool{
		cfg:     cfg,
		logger:  logger,
		byModel: make(map[string]Provider),
	}
}

// ForModel returns a provider that generates with the named model. An empty
// name selects the configured default. Catalog names route to their owning
// vendor; unknown names pass through to the default vendor as direct model
// IDs. When the pool is configured for the mock provider every name resolves
// to the same mock instance.
func (p *Pool) ForModel(ctx context.Context, model string) (Provider, error) {
	if p.cfg.Provider == "mock" {
		model = ""
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if provider, ok := p.byModel[model]; ok {
		return provider, nil
	}

	provider, err := NewProvider(ctx, p.cfg.forModel(model), p.logger)
	if err != nil {
		return nil, err
	}

	p.byModel[model] = provider
	return provider, nil
}

// forModel derives the configuration that generates with the named model.
func (c Config) forModel(model string) Config {
	if model == "" {
		return c
	}

	vendor, ok := vendorFor(model)
	if !ok {
		vendor = c.Provider
	}

	out := c
	out.Provider = vendor
	switch vendor {
	case "anthropic":
		out.Anthropic.Model = model
	case "openai":
		out.OpenAI.Model = model
	case "gemini":
		out.Gemini.Model = model
	}
	return out
}
