package llm

import (
	"context"
	"log/slog"
	"time"
)

// LoggingProvider decorates a Provider with structured request logging.
type LoggingProvider struct {
	inner  Provider
	logger *slog.Logger
}

// WithLogging wraps a Provider so every generation logs its latency, token
// usage, and outcome.
func WithLogging(p Provider, logger *slog.Logger) Provider {
	return &LoggingProvider{
		inner:  p,
		logger: logger.With("system", "llm"),
	}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	resp, err := l.inner.Generate(ctx, req)
	if err != nil {
		l.logger.WarnContext(ctx, "generation failed",
			"model", l.inner.ModelID(),
			"duration", time.Since(start),
			"error", err,
		)
		return nil, err
	}

	l.logger.InfoContext(ctx, "generation complete",
		"model", resp.Model,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"stop_reason", resp.StopReason,
		"duration", time.Since(start),
	)

	return resp, nil
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}
