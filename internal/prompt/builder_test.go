package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reasoncare-orchestrator/internal/models"
	"reasoncare-orchestrator/pkg/registry"
)

func role(spec registry.Specialization) registry.Role {
	return registry.Role{ID: "test_agent", ModelID: "model", Description: "Test role", Specialization: spec}
}

func TestAddenda_CoverEverySpecialization(t *testing.T) {
	for _, spec := range registry.Specializations {
		_, ok := addenda[spec]
		assert.True(t, ok, "missing addendum entry for %s", spec)
	}
}

func TestSpecialist_IsDeterministic(t *testing.T) {
	b := NewBuilder()
	payload := models.CasePayload{
		"age":      62,
		"symptoms": []string{"chest pain", "dyspnea"},
		"vitals":   map[string]interface{}{"hr": 110, "bp": "150/95"},
	}
	first := b.Specialist(role(registry.SpecializationCardiology), payload)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, b.Specialist(role(registry.SpecializationCardiology), payload))
	}
}

func TestSpecialist_StructuralRequest(t *testing.T) {
	text := NewBuilder().Specialist(role(registry.SpecializationHeartFailure), models.CasePayload{"bnp": 900})

	assert.Contains(t, text, "You are a specialized medical AI agent focusing on heart_failure.")
	assert.Contains(t, text, `"bnp": 900`)
	for _, item := range []string{"1. Your assessment", "2. Confidence level (0-100%)", "3. Key findings", "4. Recommendations specific to your specialty", "5. Any concerns or red flags"} {
		assert.Contains(t, text, item)
	}
	assert.Contains(t, text, "BNP/NT-proBNP")
}

func TestSpecialist_AddendumPerSpecialization(t *testing.T) {
	b := NewBuilder()
	tests := []struct {
		spec registry.Specialization
		want string
	}{
		{registry.SpecializationCardiology, "cardiac workup"},
		{registry.SpecializationElectrophysiology, "ECG interpretation"},
		{registry.SpecializationHeartFailure, "HF staging"},
		{registry.SpecializationInterventionalCardiology, "coronary angiography"},
		{registry.SpecializationClinicalReasoning, "reasoning chains"},
	}
	for _, tt := range tests {
		t.Run(string(tt.spec), func(t *testing.T) {
			assert.Contains(t, b.Specialist(role(tt.spec), nil), tt.want)
		})
	}
}

func TestSpecialist_DefaultGetsStructuralRequestOnly(t *testing.T) {
	b := NewBuilder()
	base := b.Specialist(role("dermatology"), models.CasePayload{})
	assert.True(t, strings.HasSuffix(base, "integration with other specialist opinions."))

	for _, spec := range []registry.Specialization{
		registry.SpecializationSynthesis,
		registry.SpecializationReporting,
		registry.SpecializationVoiceProcessing,
	} {
		text := b.Specialist(role(spec), models.CasePayload{})
		assert.True(t, strings.HasSuffix(text, "integration with other specialist opinions."), "unexpected addendum for %s", spec)
		assert.NotContains(t, text, "Focus on")
	}
}

func TestSpecialist_NilPayloadRendersEmptyObject(t *testing.T) {
	text := NewBuilder().Specialist(role(registry.SpecializationCardiology), nil)
	assert.Contains(t, text, "Patient Data: {}")
}

func TestSynthesis_EmbedsEveryOpinion(t *testing.T) {
	results := models.NewResultSet()
	results.Set("cardiologist_agent", models.SpecialistResult{
		Agent: "Primary cardiology diagnostic assessment", Specialization: "cardiology",
		Response: "Likely NSTEMI", Status: models.StatusCompleted,
	})
	results.Set("reasoning_agent", models.SpecialistResult{
		Agent: "Clinical reasoning", Specialization: "clinical_reasoning",
		Response: "Error: throttled", Status: models.StatusError,
	})

	text := NewBuilder().Synthesis(results, models.CasePayload{"age": 70})
	assert.Contains(t, text, "Point-of-View Summary Agent")
	assert.Contains(t, text, "Likely NSTEMI")
	assert.Contains(t, text, "Error: throttled")
	assert.Contains(t, text, `"age": 70`)
	assert.Contains(t, text, "6. Follow-up recommendations")
	assert.Less(t, strings.Index(text, "cardiologist_agent"), strings.Index(text, "reasoning_agent"))
}

func TestReportPayload(t *testing.T) {
	p := ReportPayload("", nil)
	assert.Equal(t, "standard", p["report_type"])
	require.NotNil(t, p["diagnosis_data"])

	p = ReportPayload("discharge", models.CasePayload{"dx": "AF"})
	assert.Equal(t, "discharge", p["report_type"])
	assert.Equal(t, models.CasePayload{"dx": "AF"}, p["diagnosis_data"])
}

func TestSynthesisPayload(t *testing.T) {
	assert.Equal(t, models.CasePayload{"synthesis_prompt": "x"}, SynthesisPayload("x"))
}
