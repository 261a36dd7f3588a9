package generate

import (
	"context"
	"errors"
	"log/slog"

	"github.com/codecraft/aidoc/pkg/core"
)

// Chain tries each generator in order and returns the first success. The
// static renderer usually sits last so generation always produces
// something when a provider is down.
type Chain struct {
	generators []core.Generator
	logger     *slog.Logger
}

// Compile-time interface check.
var _ core.Generator = (*Chain)(nil)

// NewChain composes generators in fallback order.
func NewChain(generators ...core.Generator) *Chain {
	return &Chain{generators: generators, logger: slog.Default()}
}

// Generate runs the chain. A dead context stops the walk: falling through
// to a local renderer on timeout would mask the timeout the dispatcher is
// enforcing.
func (c *Chain) Generate(ctx context.Context, req *core.Request) (*core.Result, error) {
	if len(c.generators) == 0 {
		return nil, errors.New("generator chain is empty")
	}
	var lastErr error
	for _, g := range c.generators {
		result, err := g.Generate(ctx, req)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		c.logger.Warn("generator failed, trying next", "error", err)
		lastErr = err
	}
	return nil, lastErr
}
