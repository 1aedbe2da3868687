// Package guarded wraps a model client with a rate limiter, a circuit breaker and tracing.
package guarded

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
	"github.com/custodia-labs/mnemo/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.ModelClient = (*Client)(nil)

const tracerName = "github.com/custodia-labs/mnemo/llm/guarded"

// Options shape the decorator.
type Options struct {
	// Name labels the breaker and spans, usually the provider.
	Name string

	// RequestsPerMinute limits outbound calls. Zero disables the limiter.
	RequestsPerMinute int

	// BreakerTimeout is how long the breaker stays open before probing.
	BreakerTimeout time.Duration

	// MinRequests and FailureRatio decide when the breaker trips.
	MinRequests  uint32
	FailureRatio float64
}

// DefaultOptions returns breaker settings suited to interactive use.
func DefaultOptions(name string) Options {
	return Options{
		Name:           name,
		BreakerTimeout: 30 * time.Second,
		MinRequests:    5,
		FailureRatio:   0.6,
	}
}

// Client decorates another ModelClient.
type Client struct {
	next    driven.ModelClient
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	tracer  trace.Tracer
	name    string
}

// New wraps next.
func New(next driven.ModelClient, opts Options) *Client {
	if opts.Name == "" {
		opts.Name = "model"
	}
	if opts.MinRequests == 0 {
		opts.MinRequests = 5
	}
	if opts.FailureRatio <= 0 {
		opts.FailureRatio = 0.6
	}

	c := &Client{
		next:   next,
		tracer: otel.Tracer(tracerName),
		name:   opts.Name,
	}
	if opts.RequestsPerMinute > 0 {
		burst := max(1, opts.RequestsPerMinute/10)
		c.limiter = rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMinute)/60.0), burst)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < opts.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= opts.FailureRatio
		},
		// Only transient failures count against the provider's health.
		IsSuccessful: func(err error) bool {
			return err == nil || !domain.IsTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("llm: circuit breaker %s: %s -> %s", name, from, to)
		},
	})
	return c
}

// Call waits for the limiter, then runs the call through the breaker inside a span.
func (c *Client) Call(ctx context.Context, req driven.ModelRequest) (*driven.ModelResponse, error) {
	ctx, span := c.tracer.Start(ctx, "model.provider_call", trace.WithAttributes(
		attribute.String("llm.provider", c.name),
		attribute.String("llm.model", req.Model),
	))
	defer span.End()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			span.SetAttributes(attribute.Bool("llm.rate_limited", true))
			merr := domain.NewTransientError(domain.ReasonRateLimit, fmt.Errorf("%s: rate limiter: %w", c.name, err))
			span.RecordError(merr)
			span.SetStatus(codes.Error, merr.Error())
			return nil, merr
		}
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return c.next.Call(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			span.SetAttributes(attribute.Bool("llm.circuit_open", true))
			err = domain.NewTransientError(domain.ReasonCircuitOpen, fmt.Errorf("%s: %w", c.name, err))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	resp := result.(*driven.ModelResponse)
	span.SetAttributes(
		attribute.Int("llm.tokens_in", resp.TokensIn),
		attribute.Int("llm.tokens_out", resp.TokensOut),
	)
	return resp, nil
}

// State reports the breaker state, e.g. "closed" or "open".
func (c *Client) State() string {
	return c.breaker.State().String()
}

// ModelName returns the wrapped client's default model.
func (c *Client) ModelName() string {
	return c.next.ModelName()
}

// Ping bypasses the breaker.
func (c *Client) Ping(ctx context.Context) error {
	return c.next.Ping(ctx)
}

// Close closes the wrapped client.
func (c *Client) Close() error {
	return c.next.Close()
}
