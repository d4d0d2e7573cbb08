// Package registry holds the process-wide table of agent roles.
// A Registry is immutable once built; share it by pointer.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

type Registry struct {
	roles map[string]Role
	order []string
}

// New builds a Registry, rejecting empty or duplicate identifiers and unknown specializations.
func New(roles []Role) (*Registry, error) {
	r := &Registry{roles: make(map[string]Role, len(roles))}
	for i, role := range roles {
		if err := validateRole(role); err != nil {
			return nil, fmt.Errorf("role %d: %w", i, err)
		}
		if _, dup := r.roles[role.ID]; dup {
			return nil, fmt.Errorf("role %d: duplicate id %q", i, role.ID)
		}
		r.roles[role.ID] = role
		r.order = append(r.order, role.ID)
	}
	return r, nil
}

func validateRole(role Role) error {
	if strings.TrimSpace(role.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(role.ModelID) == "" {
		return fmt.Errorf("%s: modelId is required", role.ID)
	}
	if !role.Specialization.Valid() {
		return fmt.Errorf("%s: unknown specialization %q", role.ID, role.Specialization)
	}
	return nil
}

// Default returns the built-in roster of ReasonCare agents.
func Default() *Registry {
	r, err := New(DefaultRoles())
	if err != nil {
		panic(fmt.Sprintf("registry: invalid default roles: %v", err))
	}
	return r
}

// DefaultRoles returns a fresh copy of the built-in role table.
func DefaultRoles() []Role {
	return []Role{
		{ID: VoiceAgent, ModelID: DefaultTranscribeModel, Description: "Convert voice input to structured text", Specialization: SpecializationVoiceProcessing},
		{ID: CardiologistAgent, ModelID: DefaultTextModel, Description: "Primary cardiology diagnostic assessment", Specialization: SpecializationCardiology},
		{ID: ReasoningAgent, ModelID: DefaultTextModel, Description: "Clinical reasoning and explanation generation", Specialization: SpecializationClinicalReasoning},
		{ID: POVSummaryAgent, ModelID: DefaultTextModel, Description: "Multi-agent synthesis and point-of-view summary", Specialization: SpecializationSynthesis},
		{ID: ElectrophysiologyAgent, ModelID: DefaultTextModel, Description: "ECG analysis and rhythm interpretation", Specialization: SpecializationElectrophysiology},
		{ID: ReportSummaryAgent, ModelID: DefaultTextModel, Description: "Clinical report generation and formatting", Specialization: SpecializationReporting},
		{ID: InterventionalCardiologistAgent, ModelID: DefaultTextModel, Description: "Interventional procedure recommendations", Specialization: SpecializationInterventionalCardiology},
		{ID: HeartFailureSpecialistAgent, ModelID: DefaultTextModel, Description: "Heart failure specific diagnostic algorithms", Specialization: SpecializationHeartFailure},
	}
}

// LoadRegistry reads a JSON catalog from path.
func LoadRegistry(path string) (*Registry, error) {
	catalog, err := LoadCatalog(path)
	if err != nil {
		return nil, err
	}
	return New(catalog.Roles)
}

func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	var catalog Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return &catalog, nil
}

// Lookup returns the role registered under id.
func (r *Registry) Lookup(id string) (Role, bool) {
	role, ok := r.roles[id]
	return role, ok
}

// IDs returns identifiers in registration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// BySpecialization returns the sorted ids of roles carrying spec.
func (r *Registry) BySpecialization(spec Specialization) []string {
	var ids []string
	for id, role := range r.roles {
		if role.Specialization == spec {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) Len() int {
	return len(r.order)
}

// Catalog snapshots the registry in registration order.
func (r *Registry) Catalog(version string) Catalog {
	c := Catalog{Version: version, Roles: make([]Role, 0, len(r.order))}
	for _, id := range r.order {
		c.Roles = append(c.Roles, r.roles[id])
	}
	return c
}
