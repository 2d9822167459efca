package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ahmednasr/sprint-ai/internal/models"
	"golang.org/x/time/rate"
)

// LLM defines the interface for language model interactions
type LLM interface {
	GenerateResponse(ctx context.Context, prompt string) (string, error)
}

// Gateway is the single round trip to the generative model. It applies an
// optional rate limit and a per-call timeout, and reports every failure as
// models.ErrGenerationUnavailable. Calls are not retried.
type Gateway struct {
	llm     LLM
	timeout time.Duration
	limiter *rate.Limiter
}

// NewGateway wraps llm. ratePerSec <= 0 disables limiting and a zero
// timeout leaves the deadline to ctx.
func NewGateway(llm LLM, timeout time.Duration, ratePerSec float64) *Gateway {
	g := &Gateway{llm: llm, timeout: timeout}
	if ratePerSec > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(ratePerSec), 1)
	}
	return g
}

// Ask sends prompt and returns the model's raw text.
func (g *Gateway) Ask(ctx context.Context, prompt string) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: rate limit: %w", models.ErrGenerationUnavailable, err)
		}
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := g.llm.GenerateResponse(ctx, prompt)
	if err != nil {
		log.Printf("[Gateway] generation failed after %s: %v", time.Since(start).Round(time.Millisecond), err)
		return "", fmt.Errorf("%w: %w", models.ErrGenerationUnavailable, err)
	}
	if strings.TrimSpace(reply) == "" {
		return "", fmt.Errorf("%w: empty reply", models.ErrGenerationUnavailable)
	}
	log.Printf("[Gateway] %d prompt chars -> %d reply chars in %s",
		len(prompt), len(reply), time.Since(start).Round(time.Millisecond))
	return reply, nil
}
