package orchestrator

import (
	"context"

	"reasoncare-orchestrator/internal/common/errors"
	"reasoncare-orchestrator/internal/models"
	"reasoncare-orchestrator/internal/prompt"
	"reasoncare-orchestrator/pkg/registry"
)

// Synthesizer runs the point-of-view summary over the specialist results.
type Synthesizer struct {
	registry *registry.Registry
	invoker  AgentInvoker
	prompts  *prompt.Builder
	roleID   string
}

func NewSynthesizer(reg *registry.Registry, inv AgentInvoker, prompts *prompt.Builder) *Synthesizer {
	if prompts == nil {
		prompts = prompt.NewBuilder()
	}
	return &Synthesizer{registry: reg, invoker: inv, prompts: prompts, roleID: registry.POVSummaryAgent}
}

// Synthesize always returns a result; a missing synthesis role is reported as an error result.
func (s *Synthesizer) Synthesize(ctx context.Context, results models.ResultSet, payload models.CasePayload) models.SpecialistResult {
	role, ok := s.registry.Lookup(s.roleID)
	if !ok {
		err := errors.NewInternalError(nil)
		err.Details = "synthesis role " + s.roleID + " is not registered"
		return models.SpecialistResult{
			Agent:          s.roleID,
			Specialization: string(registry.SpecializationSynthesis),
			Response:       "Error: " + err.Error(),
			Status:         models.StatusError,
			ErrorCode:      string(err.Code),
		}
	}

	instructions := s.prompts.Synthesis(results, payload)
	text := s.prompts.Specialist(role, prompt.SynthesisPayload(instructions))
	return s.invoker.Invoke(ctx, role, text)
}
