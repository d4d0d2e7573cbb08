package registry

// Specialization tags the clinical focus of a role.
type Specialization string

const (
	SpecializationCardiology               Specialization = "cardiology"
	SpecializationElectrophysiology        Specialization = "electrophysiology"
	SpecializationHeartFailure             Specialization = "heart_failure"
	SpecializationInterventionalCardiology Specialization = "interventional_cardiology"
	SpecializationClinicalReasoning        Specialization = "clinical_reasoning"
	SpecializationSynthesis                Specialization = "synthesis"
	SpecializationReporting                Specialization = "reporting"
	SpecializationVoiceProcessing          Specialization = "voice_processing"
)

// Specializations lists every known tag.
var Specializations = []Specialization{
	SpecializationCardiology,
	SpecializationElectrophysiology,
	SpecializationHeartFailure,
	SpecializationInterventionalCardiology,
	SpecializationClinicalReasoning,
	SpecializationSynthesis,
	SpecializationReporting,
	SpecializationVoiceProcessing,
}

func (s Specialization) Valid() bool {
	for _, known := range Specializations {
		if s == known {
			return true
		}
	}
	return false
}

// Role describes one agent: which model it runs on and what it focuses on.
type Role struct {
	ID             string         `json:"id"`
	ModelID        string         `json:"modelId"`
	Description    string         `json:"role"`
	Specialization Specialization `json:"specialization"`
}

// Catalog is the on-disk form of a registry.
type Catalog struct {
	Version     string `json:"version"`
	LastUpdated string `json:"lastUpdated"`
	Roles       []Role `json:"roles"`
}

// Well-known role identifiers.
const (
	VoiceAgent                      = "voice_agent"
	CardiologistAgent               = "cardiologist_agent"
	ReasoningAgent                  = "reasoning_agent"
	POVSummaryAgent                 = "pov_summary_agent"
	ElectrophysiologyAgent          = "electrophysiology_agent"
	ReportSummaryAgent              = "report_summary_agent"
	InterventionalCardiologistAgent = "interventional_cardiologist_agent"
	HeartFailureSpecialistAgent     = "heart_failure_specialist_agent"
)

const (
	DefaultTextModel       = "anthropic.claude-3-sonnet-20240229-v1:0"
	DefaultTranscribeModel = "amazon.transcribe"
)
