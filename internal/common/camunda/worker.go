package camunda

import (
	"context"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"reasoncare-orchestrator/internal/common/errors"
	"reasoncare-orchestrator/internal/common/logger"
	"reasoncare-orchestrator/internal/common/metrics"
)

// JobHandler processes one activated job. A returned error is reported back
// to the broker by the worker.
type JobHandler interface {
	Handle(ctx context.Context, client worker.JobClient, job entities.Job) error
}

const reportTimeout = 10 * time.Second

type WorkerOptions struct {
	TaskType      string
	MaxJobsActive int
	Timeout       time.Duration
}

type CamundaWorker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

func NewWorker(client zbc.Client, opts WorkerOptions, handler JobHandler, log logger.Logger) *CamundaWorker {
	log = logger.ForComponent(log, "camunda-worker").With(map[string]interface{}{"taskType": opts.TaskType})
	errHandler := errors.NewErrorHandler(log)

	jobWorker := client.NewJobWorker().
		JobType(opts.TaskType).
		Handler(dispatch(opts, handler, errHandler, log)).
		MaxJobsActive(opts.MaxJobsActive).
		Timeout(opts.Timeout).
		Open()

	return &CamundaWorker{worker: jobWorker, logger: log, taskType: opts.TaskType}
}

// dispatch adapts a JobHandler to the zeebe handler signature and records job metrics.
func dispatch(opts WorkerOptions, handler JobHandler, errHandler *errors.ErrorHandler, log logger.Logger) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
		defer cancel()

		err := safeHandle(ctx, handler, client, job)
		metrics.WorkerJobDuration.WithLabelValues(opts.TaskType).Observe(time.Since(start).Seconds())
		if err != nil {
			stdErr := errors.AsStandardError(err)
			metrics.WorkerJobsFailed.WithLabelValues(opts.TaskType, string(stdErr.Code)).Inc()
			reportCtx, cancelReport := context.WithTimeout(context.Background(), reportTimeout)
			defer cancelReport()
			errHandler.HandleJobError(reportCtx, client, job, stdErr)
			return
		}
		metrics.WorkerJobsCompleted.WithLabelValues(opts.TaskType).Inc()
		log.Debug("job completed", map[string]interface{}{"jobKey": job.Key})
	}
}

func safeHandle(ctx context.Context, handler JobHandler, client worker.JobClient, job entities.Job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.NewInternalError(fmt.Errorf("panic in job handler: %v", rec))
		}
	}()
	return handler.Handle(ctx, client, job)
}

func (w *CamundaWorker) Start() {
	w.logger.Info("worker started", nil)
}

// Stop closes the job stream and waits for in-flight handlers.
func (w *CamundaWorker) Stop() {
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}
