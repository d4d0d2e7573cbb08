// Package invoker performs one agent call against a text-generation backend.
// Invoke never returns an error and never panics: every outcome is a SpecialistResult.
package invoker

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"reasoncare-orchestrator/internal/common/errors"
	"reasoncare-orchestrator/internal/common/logger"
	"reasoncare-orchestrator/internal/common/metrics"
	"reasoncare-orchestrator/internal/common/observability"
	"reasoncare-orchestrator/internal/models"
	"reasoncare-orchestrator/pkg/registry"
)

// TextGenerator turns a prompt into text using the named model.
type TextGenerator interface {
	Generate(ctx context.Context, modelID, prompt string, maxTokens int) (string, error)
}

// GeneratorFunc adapts a function to TextGenerator.
type GeneratorFunc func(ctx context.Context, modelID, prompt string, maxTokens int) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, modelID, prompt string, maxTokens int) (string, error) {
	return f(ctx, modelID, prompt, maxTokens)
}

type Config struct {
	Timeout    time.Duration
	MaxRetries int
	MaxTokens  int
	BaseDelay  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Timeout:    60 * time.Second,
		MaxRetries: 1,
		MaxTokens:  4000,
		BaseDelay:  100 * time.Millisecond,
	}
}

type Invoker struct {
	generator TextGenerator
	config    Config
	logger    logger.Logger
	obs       *observability.Observability
}

func New(generator TextGenerator, config Config, log logger.Logger, obs *observability.Observability) *Invoker {
	defaults := DefaultConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = defaults.MaxTokens
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = defaults.BaseDelay
	}
	return &Invoker{
		generator: generator,
		config:    config,
		logger:    logger.ForComponent(log, "invoker"),
		obs:       obs,
	}
}

func (i *Invoker) Config() Config {
	return i.config
}

// Invoke calls the role's model with prompt under the configured deadline.
func (i *Invoker) Invoke(ctx context.Context, role registry.Role, prompt string) (result models.SpecialistResult) {
	start := time.Now()
	metrics.AgentInvocationsActive.WithLabelValues(role.ID).Inc()

	ctx, endSpan := i.obs.StartSpan(ctx, "agent.invoke",
		attribute.String("agent", role.ID),
		attribute.String("model_id", role.ModelID),
	)

	defer func() {
		if r := recover(); r != nil {
			result = failure(role, errors.NewInternalError(fmt.Errorf("panic during invocation: %v", r)))
		}
		metrics.AgentInvocationsActive.WithLabelValues(role.ID).Dec()
		metrics.AgentInvocationDuration.WithLabelValues(role.ID).Observe(time.Since(start).Seconds())
		metrics.AgentInvocations.WithLabelValues(role.ID, string(result.Status), result.ErrorCode).Inc()

		var spanErr error
		if result.Failed() {
			spanErr = stderrors.New(result.Response)
		}
		endSpan(spanErr)
	}()

	callCtx, cancel := context.WithTimeout(ctx, i.config.Timeout)
	defer cancel()

	text, err := i.generateWithRetry(callCtx, role, prompt)
	if err != nil {
		stdErr := i.classify(callCtx, role, err)
		i.logger.Warn("agent invocation failed", map[string]interface{}{
			"agent":      role.ID,
			"modelId":    role.ModelID,
			"errorCode":  string(stdErr.Code),
			"details":    stdErr.Details,
			"durationMs": time.Since(start).Milliseconds(),
		})
		return failure(role, stdErr)
	}

	i.logger.Debug("agent invocation completed", map[string]interface{}{
		"agent":      role.ID,
		"modelId":    role.ModelID,
		"chars":      len(text),
		"durationMs": time.Since(start).Milliseconds(),
	})

	return models.SpecialistResult{
		Agent:          role.Description,
		Specialization: string(role.Specialization),
		Response:       text,
		ModelID:        role.ModelID,
		Status:         models.StatusCompleted,
	}
}

func (i *Invoker) generateWithRetry(ctx context.Context, role registry.Role, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= i.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := i.config.BaseDelay * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", lastErr
			}
			i.logger.Info("retrying agent invocation", map[string]interface{}{
				"agent":   role.ID,
				"attempt": attempt,
				"error":   lastErr.Error(),
			})
		}

		text, err := i.attempt(ctx, role.ModelID, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil || !retryable(err) {
			break
		}
	}
	return "", lastErr
}

type outcome struct {
	text string
	err  error
}

// attempt returns as soon as ctx is done, even if the generator ignores ctx.
func (i *Invoker) attempt(ctx context.Context, modelID, prompt string) (string, error) {
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: errors.NewInternalError(fmt.Errorf("panic in text generator: %v", r))}
			}
		}()
		text, err := i.generator.Generate(ctx, modelID, prompt, i.config.MaxTokens)
		done <- outcome{text: text, err: err}
	}()

	select {
	case out := <-done:
		return out.text, out.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func retryable(err error) bool {
	var stdErr *errors.StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code == errors.ErrCodeExternalCallFailure && stdErr.Retryable
	}
	return errors.NewExternalCallError("text-generation", err).Retryable
}

func (i *Invoker) classify(ctx context.Context, role registry.Role, err error) *errors.StandardError {
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewInvocationTimeoutError(role.ModelID, i.config.Timeout)
	}
	var stdErr *errors.StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return errors.NewExternalCallError("text-generation", err)
}

func failure(role registry.Role, err *errors.StandardError) models.SpecialistResult {
	return models.SpecialistResult{
		Agent:          role.Description,
		Specialization: string(role.Specialization),
		Response:       "Error: " + err.Error(),
		ModelID:        role.ModelID,
		Status:         models.StatusError,
		ErrorCode:      string(err.Code),
	}
}
