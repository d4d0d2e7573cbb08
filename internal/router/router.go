// Package router dispatches inbound requests by type and always answers with an Envelope.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"reasoncare-orchestrator/internal/common/errors"
	"reasoncare-orchestrator/internal/common/logger"
	"reasoncare-orchestrator/internal/common/metrics"
	"reasoncare-orchestrator/internal/common/observability"
	"reasoncare-orchestrator/internal/common/validation"
	"reasoncare-orchestrator/internal/models"
)

const (
	msgInternal        = "Internal server error"
	msgDiagnosisFailed = "Diagnosis generation failed"
	msgReportFailed    = "Report generation failed"
	msgVoiceFailed     = "Voice processing failed"
	msgNoAudio         = "No audio data provided"
	msgLookupFailed    = "Transcription lookup failed"
)

// Diagnoser runs the specialist pipeline and the single-shot report agent.
type Diagnoser interface {
	Diagnose(ctx context.Context, payload models.CasePayload, agents []string) models.OrchestrationResponse
	Report(ctx context.Context, reportType string, diagnosisData models.CasePayload) (models.SpecialistResult, error)
}

// Transcriber starts an asynchronous transcription job.
type Transcriber interface {
	Submit(ctx context.Context, jobName, audioLocator string, settings models.LanguageSettings) (models.JobHandle, error)
}

// TranscriptionStatusReader is optionally implemented by a Transcriber.
type TranscriptionStatusReader interface {
	Status(ctx context.Context, jobName string) (models.TranscriptionStatus, error)
}

// Recorder stores run metadata. Failures are logged and otherwise ignored.
type Recorder interface {
	Record(ctx context.Context, run models.RunRecord) error
}

// Notifier announces finished requests. Failures are logged and otherwise ignored.
type Notifier interface {
	Publish(ctx context.Context, event models.Event) error
}

type Config struct {
	JobNamePrefix    string
	LanguageSettings models.LanguageSettings
	HookTimeout      time.Duration
}

func DefaultConfig() Config {
	return Config{
		JobNamePrefix:    "reasoncare-transcription-",
		LanguageSettings: models.DefaultLanguageSettings(),
		HookTimeout:      5 * time.Second,
	}
}

type Router struct {
	config      Config
	diagnoser   Diagnoser
	transcriber Transcriber
	recorder    Recorder
	notifier    Notifier
	validator   *validation.Validator
	logger      logger.Logger
	obs         *observability.Observability
}

type Option func(*Router)

func WithRecorder(r Recorder) Option {
	return func(rt *Router) { rt.recorder = r }
}

func WithNotifier(n Notifier) Option {
	return func(rt *Router) { rt.notifier = n }
}

func WithObservability(o *observability.Observability) Option {
	return func(rt *Router) { rt.obs = o }
}

func New(config Config, diagnoser Diagnoser, transcriber Transcriber, log logger.Logger, opts ...Option) *Router {
	if config.JobNamePrefix == "" {
		config.JobNamePrefix = DefaultConfig().JobNamePrefix
	}
	if config.LanguageSettings.LanguageCode == "" {
		config.LanguageSettings = models.DefaultLanguageSettings()
	}
	if config.HookTimeout <= 0 {
		config.HookTimeout = DefaultConfig().HookTimeout
	}
	r := &Router{
		config:      config,
		diagnoser:   diagnoser,
		transcriber: transcriber,
		validator:   validation.NewRequestValidator(),
		logger:      logger.ForComponent(log, "router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RouteJSON validates and decodes a raw event before routing it.
func (r *Router) RouteJSON(ctx context.Context, raw []byte) models.Envelope {
	if result := r.validator.ValidateJSON(raw); !result.Valid {
		err := errors.NewInvalidInputError("request", result.Summary())
		env := errorEnvelope(err, err.Details)
		r.countRequest("invalid", env.StatusCode)
		return env
	}
	var req models.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		env := errorEnvelope(errors.NewInvalidInputError("request", err.Error()), err.Error())
		r.countRequest("invalid", env.StatusCode)
		return env
	}
	return r.Route(ctx, req)
}

// Route handles one request. It never panics.
func (r *Router) Route(ctx context.Context, req models.Request) (env models.Envelope) {
	start := time.Now()
	if req.RequestType == "" && !req.RequestTypeGiven {
		req.RequestType = models.RequestTypeDiagnosis
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	run := models.RunRecord{
		ID:          uuid.NewString(),
		RequestID:   req.RequestID,
		RequestType: req.RequestType,
		StartedAt:   start.UTC(),
	}

	ctx, endSpan := r.obs.StartSpan(ctx, "router.route")

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic while routing request", map[string]interface{}{
				"requestId":   req.RequestID,
				"requestType": string(req.RequestType),
				"panic":       fmt.Sprint(rec),
			})
			env = errorEnvelope(errors.NewInternalError(fmt.Errorf("panic: %v", rec)), msgInternal)
		}
		endSpan(nil)

		run.StatusCode = env.StatusCode
		run.Duration = time.Since(start)
		if body, ok := env.Body.(models.ErrorBody); ok {
			run.ErrorCode = body.Code
		}
		label := requestTypeLabel(req.RequestType)
		r.countRequest(label, env.StatusCode)
		r.obs.RecordRequest(ctx, label, env.StatusCode, run.Duration)
		r.record(ctx, run)
	}()

	switch req.RequestType {
	case models.RequestTypeDiagnosis:
		return r.handleDiagnosis(ctx, req, &run)
	case models.RequestTypeReportGeneration:
		return r.handleReport(ctx, req)
	case models.RequestTypeVoiceProcessing:
		return r.handleVoice(ctx, req)
	default:
		err := errors.NewUnrecognizedRequestTypeError(string(req.RequestType))
		r.logger.Warn("rejecting request", map[string]interface{}{
			"requestId":   req.RequestID,
			"requestType": string(req.RequestType),
			"errorCode":   string(err.Code),
		})
		return errorEnvelope(err, err.Message)
	}
}

func (r *Router) handleDiagnosis(ctx context.Context, req models.Request, run *models.RunRecord) models.Envelope {
	if r.diagnoser == nil {
		return r.branchFailure(req, msgDiagnosisFailed, fmt.Errorf("no diagnoser configured"))
	}

	resp := r.diagnoser.Diagnose(ctx, req.PatientData, req.Agents)
	resp.RequestID = req.RequestID

	run.Agents = resp.AgentResponses.Keys()
	run.FailedAgents = resp.FailedAgents
	run.Confidence = resp.Confidence
	run.Degraded = resp.Degraded

	r.notify(ctx, models.Event{
		Type:       models.EventDiagnosisCompleted,
		RequestID:  req.RequestID,
		StatusCode: http.StatusOK,
		Degraded:   resp.Degraded,
		Confidence: resp.Confidence,
	})
	return models.NewEnvelope(http.StatusOK, resp)
}

func (r *Router) handleReport(ctx context.Context, req models.Request) models.Envelope {
	if r.diagnoser == nil {
		return r.branchFailure(req, msgReportFailed, fmt.Errorf("no diagnoser configured"))
	}

	report, err := r.diagnoser.Report(ctx, req.ReportType, req.DiagnosisData)
	if err != nil {
		return r.branchFailure(req, msgReportFailed, err)
	}

	r.notify(ctx, models.Event{
		Type:       models.EventReportGenerated,
		RequestID:  req.RequestID,
		StatusCode: http.StatusOK,
	})
	return models.NewEnvelope(http.StatusOK, models.ReportResponse{Success: true, Report: report})
}

func (r *Router) handleVoice(ctx context.Context, req models.Request) models.Envelope {
	if strings.TrimSpace(req.AudioData) == "" {
		return errorEnvelope(errors.NewInvalidInputError("audio_data", msgNoAudio), msgNoAudio)
	}
	if r.transcriber == nil {
		return r.branchFailure(req, msgVoiceFailed, fmt.Errorf("no transcriber configured"))
	}

	jobName := r.config.JobNamePrefix + req.RequestID
	handle, err := r.transcriber.Submit(ctx, jobName, req.AudioData, r.config.LanguageSettings)
	if err != nil {
		return r.branchFailure(req, msgVoiceFailed, errors.NewTranscriptionSubmitError(jobName, err))
	}
	if handle.JobName != "" {
		jobName = handle.JobName
	}

	r.logger.Info("transcription submitted", map[string]interface{}{
		"requestId": req.RequestID,
		"jobName":   jobName,
		"jobStatus": handle.Status,
	})
	r.notify(ctx, models.Event{
		Type:       models.EventTranscriptionSubmitted,
		RequestID:  req.RequestID,
		StatusCode: http.StatusOK,
		JobName:    jobName,
	})
	return models.NewEnvelope(http.StatusOK, models.TranscriptionAck{
		Success:              true,
		TranscriptionJobName: jobName,
		Status:               "processing",
	})
}

// TranscriptionStatus looks up a job submitted by a voice_processing request.
func (r *Router) TranscriptionStatus(ctx context.Context, jobName string) (env models.Envelope) {
	defer func() {
		if rec := recover(); rec != nil {
			env = errorEnvelope(errors.NewInternalError(fmt.Errorf("panic: %v", rec)), msgInternal)
		}
	}()

	if strings.TrimSpace(jobName) == "" {
		return errorEnvelope(errors.NewInvalidInputError("job", "No transcription job name provided"), "No transcription job name provided")
	}
	reader, ok := r.transcriber.(TranscriptionStatusReader)
	if !ok {
		return errorEnvelope(errors.NewInternalError(fmt.Errorf("transcriber cannot report status")), msgLookupFailed)
	}

	status, err := reader.Status(ctx, jobName)
	if err != nil {
		stdErr := errors.AsStandardError(err)
		if stdErr.Code == errors.ErrCodeTranscriptionNotFound {
			return errorEnvelope(stdErr, stdErr.Message)
		}
		r.logger.Error("transcription lookup failed", map[string]interface{}{
			"jobName": jobName,
			"error":   err.Error(),
		})
		return failureEnvelope(stdErr, msgLookupFailed)
	}
	return models.NewEnvelope(http.StatusOK, status)
}

func (r *Router) branchFailure(req models.Request, message string, err error) models.Envelope {
	stdErr := errors.AsStandardError(err)
	r.logger.Error(strings.ToLower(message), map[string]interface{}{
		"requestId":   req.RequestID,
		"requestType": string(req.RequestType),
		"errorCode":   string(stdErr.Code),
		"details":     stdErr.Details,
	})
	return failureEnvelope(stdErr, message)
}

// errorEnvelope answers with the status mapped from the error code.
func errorEnvelope(err *errors.StandardError, message string) models.Envelope {
	return models.NewErrorEnvelope(errors.HTTPStatus(err.Code), string(err.Code), message)
}

// failureEnvelope is errorEnvelope for a branch that could not produce its
// result: codes that map below 500 still answer 500.
func failureEnvelope(err *errors.StandardError, message string) models.Envelope {
	env := errorEnvelope(err, message)
	if env.StatusCode < http.StatusInternalServerError {
		env.StatusCode = http.StatusInternalServerError
	}
	return env
}

func (r *Router) notify(ctx context.Context, event models.Event) {
	if r.notifier == nil {
		return
	}
	event.OccurredAt = time.Now().UTC()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.config.HookTimeout)
	defer cancel()
	if err := r.notifier.Publish(ctx, event); err != nil {
		r.logger.Warn("failed to publish event", map[string]interface{}{
			"eventType": string(event.Type),
			"requestId": event.RequestID,
			"error":     err.Error(),
		})
	}
}

func (r *Router) record(ctx context.Context, run models.RunRecord) {
	if r.recorder == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic while recording run", map[string]interface{}{
				"requestId": run.RequestID,
				"panic":     fmt.Sprint(rec),
			})
		}
	}()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.config.HookTimeout)
	defer cancel()
	if err := r.recorder.Record(ctx, run); err != nil {
		r.logger.Warn("failed to record run", map[string]interface{}{
			"requestId": run.RequestID,
			"error":     err.Error(),
		})
	}
}

func (r *Router) countRequest(requestType string, status int) {
	metrics.RequestsTotal.WithLabelValues(requestType, strconv.Itoa(status)).Inc()
}

// requestTypeLabel keeps metric cardinality bounded.
func requestTypeLabel(t models.RequestType) string {
	switch t {
	case models.RequestTypeDiagnosis, models.RequestTypeReportGeneration, models.RequestTypeVoiceProcessing:
		return string(t)
	default:
		return "unknown"
	}
}
