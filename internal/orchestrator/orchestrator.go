// Package orchestrator fans a clinical case out to specialist agents and
// fans their answers back in through a synthesis agent.
package orchestrator

import (
	"context"
	"time"

	"reasoncare-orchestrator/internal/common/errors"
	"reasoncare-orchestrator/internal/common/logger"
	"reasoncare-orchestrator/internal/common/metrics"
	"reasoncare-orchestrator/internal/common/observability"
	"reasoncare-orchestrator/internal/models"
	"reasoncare-orchestrator/internal/prompt"
	"reasoncare-orchestrator/pkg/registry"
)

type Config struct {
	DefaultAgents      []string
	MaxConcurrency     int
	ConfidenceStrategy string
	ConfidenceFallback float64
}

func DefaultConfig() Config {
	return Config{
		DefaultAgents:      []string{registry.CardiologistAgent, registry.ReasoningAgent},
		MaxConcurrency:     8,
		ConfidenceStrategy: "fixed",
		ConfidenceFallback: DefaultConfidence,
	}
}

type Orchestrator struct {
	config      Config
	pool        *Pool
	synthesizer *Synthesizer
	confidence  TextConfidenceParser
	logger      logger.Logger
}

func New(reg *registry.Registry, inv AgentInvoker, config Config, log logger.Logger, obs *observability.Observability) *Orchestrator {
	if config.DefaultAgents == nil {
		config.DefaultAgents = DefaultConfig().DefaultAgents
	}
	if config.ConfidenceFallback <= 0 {
		config.ConfidenceFallback = DefaultConfidence
	}
	prompts := prompt.NewBuilder()
	return &Orchestrator{
		config:      config,
		pool:        NewPool(reg, inv, prompts, config.MaxConcurrency, log, obs),
		synthesizer: NewSynthesizer(reg, inv, prompts),
		confidence:  ParserFor(config.ConfidenceStrategy),
		logger:      logger.ForComponent(log, "orchestrator"),
	}
}

// Diagnose runs the specialists named by agents (nil selects the defaults), then synthesis.
// It never fails; specialist failures surface as Degraded with their ids in FailedAgents.
func (o *Orchestrator) Diagnose(ctx context.Context, payload models.CasePayload, agents []string) models.OrchestrationResponse {
	start := time.Now()
	if agents == nil {
		agents = o.config.DefaultAgents
	}
	payload = payload.Normalize()

	results := o.pool.Run(ctx, payload, agents)
	synthesis := o.synthesizer.Synthesize(ctx, results, payload)
	confidence := Aggregate(results, o.confidence, o.config.ConfidenceFallback)

	failed := results.Failed()
	resp := models.OrchestrationResponse{
		Success:        true,
		Diagnosis:      synthesis,
		AgentResponses: results,
		Confidence:     confidence,
		Degraded:       len(failed) > 0,
		FailedAgents:   failed,
	}

	metrics.DiagnosisConfidence.Observe(confidence)
	if resp.Degraded {
		metrics.DegradedDiagnoses.Inc()
		degraded := errors.NewAggregationDegradedError(failed)
		o.logger.Warn("diagnosis degraded", map[string]interface{}{
			"errorCode":    string(degraded.Code),
			"failedAgents": failed,
			"succeeded":    results.Len() - len(failed),
		})
	}

	o.logger.Info("diagnosis completed", map[string]interface{}{
		"requested":       len(agents),
		"invoked":         results.Len(),
		"confidence":      confidence,
		"synthesisStatus": string(synthesis.Status),
		"durationMs":      time.Since(start).Milliseconds(),
	})

	return resp
}

// Report runs the reporting agent once over the diagnosis data.
func (o *Orchestrator) Report(ctx context.Context, reportType string, diagnosisData models.CasePayload) (models.SpecialistResult, error) {
	role, ok := o.pool.registry.Lookup(registry.ReportSummaryAgent)
	if !ok {
		err := errors.NewInternalError(nil)
		err.Details = "report role " + registry.ReportSummaryAgent + " is not registered"
		return models.SpecialistResult{}, err
	}
	text := o.pool.prompts.Specialist(role, prompt.ReportPayload(reportType, diagnosisData))
	return o.pool.invoker.Invoke(ctx, role, text), nil
}
