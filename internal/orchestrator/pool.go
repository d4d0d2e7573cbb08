package orchestrator

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"reasoncare-orchestrator/internal/common/logger"
	"reasoncare-orchestrator/internal/common/observability"
	"reasoncare-orchestrator/internal/models"
	"reasoncare-orchestrator/internal/prompt"
	"reasoncare-orchestrator/pkg/registry"
)

// AgentInvoker performs one agent call and always yields a result.
type AgentInvoker interface {
	Invoke(ctx context.Context, role registry.Role, prompt string) models.SpecialistResult
}

// Pool fans a case out to the requested specialists.
type Pool struct {
	registry       *registry.Registry
	invoker        AgentInvoker
	prompts        *prompt.Builder
	maxConcurrency int
	logger         logger.Logger
	obs            *observability.Observability
}

func NewPool(reg *registry.Registry, inv AgentInvoker, prompts *prompt.Builder, maxConcurrency int, log logger.Logger, obs *observability.Observability) *Pool {
	if prompts == nil {
		prompts = prompt.NewBuilder()
	}
	return &Pool{
		registry:       reg,
		invoker:        inv,
		prompts:        prompts,
		maxConcurrency: maxConcurrency,
		logger:         logger.ForComponent(log, "specialist-pool"),
		obs:            obs,
	}
}

type slot struct {
	id     string
	role   registry.Role
	result models.SpecialistResult
}

// Run invokes every recognized id once per occurrence and returns their results keyed by id.
// Unknown ids are skipped. On duplicates the later occurrence wins.
func (p *Pool) Run(ctx context.Context, payload models.CasePayload, ids []string) models.ResultSet {
	slots := make([]slot, 0, len(ids))
	var skipped []string
	for _, id := range ids {
		role, ok := p.registry.Lookup(id)
		if !ok {
			skipped = append(skipped, id)
			continue
		}
		slots = append(slots, slot{id: id, role: role})
	}
	if len(skipped) > 0 {
		p.logger.Debug("skipping unregistered agents", map[string]interface{}{"agents": skipped})
	}

	ctx, end := p.obs.StartSpan(ctx, "specialist_pool.run", attribute.Int("agents", len(slots)))
	defer end(nil)

	payload = payload.Normalize()

	// Invoke never fails, so the group only bounds concurrency and joins.
	var g errgroup.Group
	if p.maxConcurrency > 0 {
		g.SetLimit(p.maxConcurrency)
	}
	for i := range slots {
		s := &slots[i]
		g.Go(func() error {
			text := p.prompts.Specialist(s.role, payload)
			s.result = p.invoker.Invoke(ctx, s.role, text)
			return nil
		})
	}
	_ = g.Wait()

	results := models.NewResultSet()
	for _, s := range slots {
		results.Set(s.id, s.result)
	}
	return results
}
