package orchestratecase

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"reasoncare-orchestrator/internal/common/errors"
	"reasoncare-orchestrator/internal/common/logger"
	"reasoncare-orchestrator/internal/models"
)

const TaskType = "reasoncare-orchestrate-case"

type Router interface {
	Route(ctx context.Context, req models.Request) models.Envelope
}

// Retrier re-sends broker commands that fail transiently. *camunda.Client implements it.
type Retrier interface {
	ExecuteWithRetry(ctx context.Context, commandFunc func(context.Context) (interface{}, error), operationName string) (interface{}, error)
}

type Handler struct {
	config  *Config
	router  Router
	retrier Retrier
	logger  logger.Logger
}

type Option func(*Handler)

// WithRetrier retries the complete-job command on transient broker errors.
func WithRetrier(r Retrier) Option {
	return func(h *Handler) { h.retrier = r }
}

func NewHandler(config *Config, router Router, log logger.Logger, opts ...Option) *Handler {
	h := &Handler{
		config: config,
		router: router,
		logger: log.With(map[string]interface{}{"taskType": TaskType}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle completes the job on a 2xx envelope. Any other outcome is returned
// as a StandardError for the worker to report.
func (h *Handler) Handle(ctx context.Context, client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return errors.NewInvalidInputError("variables", fmt.Sprintf("parse input: %v", err))
	}
	if input.RequestID == "" {
		input.RequestID = "job-" + strconv.FormatInt(job.Key, 10)
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		return err
	}
	return h.completeJob(ctx, client, job, output)
}

// Execute routes one case without a broker.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	env := h.router.Route(ctx, input.toRequest())
	if env.StatusCode >= 400 {
		return nil, envelopeError(env)
	}
	return &Output{
		RequestID:  input.RequestID,
		StatusCode: env.StatusCode,
		Result:     env.Body,
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		return errors.NewInternalError(fmt.Errorf("encode job variables: %w", err))
	}
	send := func(ctx context.Context) (interface{}, error) {
		return cmd.Send(ctx)
	}
	if h.retrier != nil {
		if _, err := h.retrier.ExecuteWithRetry(ctx, send, "complete-job"); err != nil {
			var stdErr *errors.StandardError
			if stderrors.As(err, &stdErr) {
				return stdErr
			}
			return errors.NewExternalCallError("zeebe", fmt.Errorf("complete job %d: %w", job.Key, err))
		}
	} else if _, err := send(ctx); err != nil {
		return errors.NewExternalCallError("zeebe", fmt.Errorf("complete job %d: %w", job.Key, err))
	}

	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":     job.Key,
		"requestId":  output.RequestID,
		"statusCode": output.StatusCode,
	})
	return nil
}

func envelopeError(env models.Envelope) *errors.StandardError {
	body, _ := env.Body.(models.ErrorBody)
	code := errors.ErrorCode(body.Code)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	message := body.Error
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", env.StatusCode)
	}
	return &errors.StandardError{
		Code:      code,
		Message:   message,
		Details:   fmt.Sprintf("status %d", env.StatusCode),
		Retryable: errors.IsRetryableErrorCode(code),
		Timestamp: time.Now().UTC(),
	}
}
