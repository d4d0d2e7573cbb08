// Package prompt renders the text sent to each agent. Everything here is pure.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"reasoncare-orchestrator/internal/models"
	"reasoncare-orchestrator/pkg/registry"
)

// SynthesisKey is the payload field carrying the synthesis instructions.
const SynthesisKey = "synthesis_prompt"

// addenda must have an entry for every registry.Specialization.
var addenda = map[registry.Specialization][]string{
	registry.SpecializationCardiology: {
		"Focus on cardiovascular assessment, risk factors, and cardiac-specific diagnostics.",
		"Consider chest pain characteristics, cardiac risk factors, and need for cardiac workup.",
	},
	registry.SpecializationElectrophysiology: {
		"Focus on cardiac rhythm analysis, ECG interpretation, and electrophysiological considerations.",
		"Analyze any rhythm abnormalities and their clinical significance.",
	},
	registry.SpecializationHeartFailure: {
		"Focus on heart failure assessment, fluid status, and HF-specific diagnostics.",
		"Consider BNP/NT-proBNP levels, echocardiographic findings, and HF staging.",
	},
	registry.SpecializationInterventionalCardiology: {
		"Focus on need for invasive procedures, coronary angiography indications, and intervention planning.",
		"Consider high-risk features requiring urgent intervention.",
	},
	registry.SpecializationClinicalReasoning: {
		"Focus on logical clinical reasoning, differential diagnosis development, and evidence-based analysis.",
		"Provide clear reasoning chains and clinical decision-making rationale.",
	},
	registry.SpecializationSynthesis:       nil,
	registry.SpecializationReporting:       nil,
	registry.SpecializationVoiceProcessing: nil,
}

// Addendum returns the specialization-specific clause, or nil for the default.
func Addendum(spec registry.Specialization) []string {
	return addenda[spec]
}

type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

// Specialist builds the prompt for one role over payload.
func (b *Builder) Specialist(role registry.Role, payload models.CasePayload) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("You are a specialized medical AI agent focusing on %s.", role.Specialization))
	parts = append(parts, fmt.Sprintf("Patient Data: %s", renderJSON(payload.Normalize())))

	parts = append(parts, "\nPlease analyze this case from your specialty perspective and provide:")
	parts = append(parts, "1. Your assessment")
	parts = append(parts, "2. Confidence level (0-100%)")
	parts = append(parts, "3. Key findings")
	parts = append(parts, "4. Recommendations specific to your specialty")
	parts = append(parts, "5. Any concerns or red flags")

	parts = append(parts, "\nRespond in a structured format suitable for integration with other specialist opinions.")

	if clause := Addendum(role.Specialization); len(clause) > 0 {
		parts = append(parts, "")
		parts = append(parts, clause...)
	}

	return strings.Join(parts, "\n")
}

// Synthesis builds the instructions for the point-of-view summary over every specialist result.
func (b *Builder) Synthesis(results models.ResultSet, payload models.CasePayload) string {
	var parts []string

	parts = append(parts, "You are the Point-of-View Summary Agent responsible for synthesizing multiple specialist opinions into a coherent diagnostic assessment.")
	parts = append(parts, fmt.Sprintf("\nPatient Data: %s", renderJSON(payload.Normalize())))

	parts = append(parts, "\nSpecialist Opinions:")
	parts = append(parts, renderJSON(results))

	parts = append(parts, "\nPlease provide a synthesized assessment that includes:")
	parts = append(parts, "1. Primary diagnosis with confidence level")
	parts = append(parts, "2. Differential diagnoses")
	parts = append(parts, "3. Synthesis of specialist recommendations")
	parts = append(parts, "4. Overall risk assessment")
	parts = append(parts, "5. Immediate action items")
	parts = append(parts, "6. Follow-up recommendations")

	parts = append(parts, "\nPresent this as a structured clinical report suitable for physician review.")

	return strings.Join(parts, "\n")
}

// SynthesisPayload wraps synthesis instructions so they can go through Specialist.
func SynthesisPayload(instructions string) models.CasePayload {
	return models.CasePayload{SynthesisKey: instructions}
}

// ReportPayload is the case handed to the reporting role.
func ReportPayload(reportType string, diagnosisData models.CasePayload) models.CasePayload {
	if strings.TrimSpace(reportType) == "" {
		reportType = models.DefaultReportType
	}
	return models.CasePayload{
		"report_type":    reportType,
		"diagnosis_data": diagnosisData.Normalize(),
	}
}

// renderJSON never fails; unencodable values are rendered with %v.
func renderJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
