// LLMRetryWrapper is kept close to the upstream llm_retry.go: same
// config shape, same exponential-backoff-with-context-aware-delay loop,
// same isRetryableError heuristics. The only material change is logging
// — zerolog structured fields instead of emoji fmt.Printf lines, per the
// ambient stack's logging convention — and trimming TimeoutPerRetry to a
// knob the orchestration loop sets explicitly instead of a hardcoded
// 5-minute default, since this domain's LLM_TIMEOUT_SECONDS is
// configurable (§6).
package tools

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
)

// LLMRetryConfig configures retry behavior for LLM calls.
type LLMRetryConfig struct {
	MaxRetries      int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	TimeoutPerRetry time.Duration
}

// DefaultLLMRetryConfig returns a sensible default configuration.
func DefaultLLMRetryConfig() LLMRetryConfig {
	return LLMRetryConfig{
		MaxRetries:      3,
		InitialDelay:    1 * time.Second,
		MaxDelay:        30 * time.Second,
		BackoffFactor:   2.0,
		TimeoutPerRetry: 60 * time.Second,
	}
}

// LLMRetryWrapper wraps an LLM with retry logic.
type LLMRetryWrapper struct {
	llm    llms.Model
	config LLMRetryConfig
}

func NewLLMRetryWrapper(llm llms.Model, config LLMRetryConfig) *LLMRetryWrapper {
	return &LLMRetryWrapper{llm: llm, config: config}
}

// GenerateContent calls the LLM with retry logic for transient failures.
func (w *LLMRetryWrapper) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var lastErr error
	delay := w.config.InitialDelay

	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled before LLM attempt %d: %w", attempt+1, ctx.Err())
		default:
		}

		retryTimeout := w.config.TimeoutPerRetry
		if deadline, ok := ctx.Deadline(); ok {
			remaining := time.Until(deadline)
			if remaining < retryTimeout {
				retryTimeout = remaining - (2 * time.Second)
				if retryTimeout <= 0 {
					return nil, fmt.Errorf("insufficient time remaining for LLM call (need %v, have %v)", w.config.TimeoutPerRetry, remaining)
				}
			}
		}

		retryCtx, cancel := context.WithTimeout(ctx, retryTimeout)
		callStart := time.Now()
		response, err := w.llm.GenerateContent(retryCtx, messages, options...)
		callDuration := time.Since(callStart)
		cancel()

		if err == nil {
			if attempt > 0 {
				log.Info().Int("attempt", attempt+1).Dur("duration", callDuration).Msg("llm call succeeded after retry")
			}
			return response, nil
		}

		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt+1).Dur("duration", callDuration).Msg("llm call attempt failed")

		if attempt >= w.config.MaxRetries {
			break
		}
		if !w.isRetryableError(err) {
			break
		}

		delayTimeout := time.After(delay)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during retry delay: %w", ctx.Err())
		case <-delayTimeout:
		}

		delay = time.Duration(float64(delay) * w.config.BackoffFactor)
		if delay > w.config.MaxDelay {
			delay = w.config.MaxDelay
		}
	}

	return nil, fmt.Errorf("llm call failed after %d attempts: %w", w.config.MaxRetries+1, lastErr)
}

func (w *LLMRetryWrapper) isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "context canceled") ||
		strings.Contains(errStr, "context cancelled") ||
		strings.Contains(errStr, "context deadline exceeded") {
		return true
	}
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection timeout") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "network is unreachable") ||
		strings.Contains(errStr, "temporary failure") {
		return true
	}
	if strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504") ||
		strings.Contains(errStr, "429") {
		return true
	}
	if strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "overloaded") ||
		strings.Contains(errStr, "server error") ||
		strings.Contains(errStr, "service unavailable") {
		return true
	}
	if strings.Contains(errStr, "dns") {
		return true
	}
	if netErr, ok := err.(net.Error); ok {
		return netErr.Timeout()
	}
	if urlErr, ok := err.(*url.Error); ok {
		return w.isRetryableError(urlErr.Err)
	}
	return false
}

// CallLLMWithRetry is a convenience function to call an LLM with default retry configuration.
func CallLLMWithRetry(ctx context.Context, llm llms.Model, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	wrapper := NewLLMRetryWrapper(llm, DefaultLLMRetryConfig())
	return wrapper.GenerateContent(ctx, messages, options...)
}

// CallLLMWithCustomRetry is a convenience function with custom retry configuration.
func CallLLMWithCustomRetry(ctx context.Context, llm llms.Model, messages []llms.MessageContent, config LLMRetryConfig, options ...llms.CallOption) (*llms.ContentResponse, error) {
	wrapper := NewLLMRetryWrapper(llm, config)
	return wrapper.GenerateContent(ctx, messages, options...)
}
