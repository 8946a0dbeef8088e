package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"quizgen-backend/internal/shared/metrics"
	"quizgen-backend/internal/shared/telemetry"
)

// RetryConfig configures retries of transient completion failures.
type RetryConfig struct {
	// MaxRetries is the number of extra attempts after the first one.
	MaxRetries int
	// AttemptTimeout bounds each attempt, separately from the caller's deadline.
	AttemptTimeout time.Duration
	InitialWait    time.Duration
	MaxWait        time.Duration
	Multiplier     float64
}

// DefaultRetryConfig returns two retries with a 45s attempt timeout.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     2,
		AttemptTimeout: 45 * time.Second,
		InitialWait:    500 * time.Millisecond,
		MaxWait:        8 * time.Second,
		Multiplier:     2.0,
	}
}

type retryClient struct {
	inner    Client
	provider string
	config   RetryConfig
}

// WithRetry wraps a Client with per-attempt timeouts and exponential backoff.
// Only errors marked Retryable are retried; the caller's context ending stops
// the loop immediately.
func WithRetry(c Client, provider string, cfg RetryConfig) Client {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	return &retryClient{inner: c, provider: provider, config: cfg}
}

func (r *retryClient) Complete(ctx context.Context, req Request) (string, error) {
	attempts := r.config.MaxRetries + 1
	var lastErr *Error

	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		text, err := r.attempt(ctx, req)
		elapsed := time.Since(start)
		if err == nil {
			r.record(req, attempt, "ok", elapsed)
			return text, nil
		}

		lastErr = r.normalize(ctx, err)
		r.record(req, attempt, lastErr.Reason, elapsed)

		if !lastErr.Retryable || attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return "", r.normalize(ctx, ctx.Err())
		case <-time.After(r.backoff(attempt - 1)):
		}
	}
	return "", lastErr
}

func (r *retryClient) attempt(ctx context.Context, req Request) (string, error) {
	if r.config.AttemptTimeout <= 0 {
		return r.inner.Complete(ctx, req)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, r.config.AttemptTimeout)
	defer cancel()
	return r.inner.Complete(attemptCtx, req)
}

// normalize maps err to *Error. When the caller's own context has ended the
// result is final regardless of what the provider reported.
func (r *retryClient) normalize(ctx context.Context, err error) *Error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		reason := ReasonCanceled
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			reason = ReasonTimeout
		}
		return &Error{Provider: r.provider, Reason: reason, Err: ctxErr}
	}
	return Classify(r.provider, err)
}

func (r *retryClient) backoff(retry int) time.Duration {
	wait := float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(retry))
	if r.config.MaxWait > 0 && wait > float64(r.config.MaxWait) {
		wait = float64(r.config.MaxWait)
	}
	// ±20% jitter
	wait += wait * 0.2 * (2*rand.Float64() - 1)
	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}

func (r *retryClient) record(req Request, attempt int, result string, elapsed time.Duration) {
	metrics.ObserveLLMAttempt(r.provider, result, elapsed)
	fields := map[string]any{
		"provider":   r.provider,
		"model":      req.Model,
		"attempt":    attempt,
		"latency_ms": elapsed.Milliseconds(),
		"result":     result,
	}
	if result == "ok" {
		telemetry.Info("llm.attempt", fields)
		return
	}
	telemetry.Warn("llm.attempt", fields)
}
