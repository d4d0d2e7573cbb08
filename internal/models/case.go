// internal/models/case.go
package models

// CasePayload is caller-supplied clinical data. It is passed through untouched.
type CasePayload map[string]interface{}

// Normalize returns p, or an empty payload when p is nil.
func (p CasePayload) Normalize() CasePayload {
	if p == nil {
		return CasePayload{}
	}
	return p
}

type Status string

const (
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// SpecialistResult is the outcome of exactly one agent invocation.
type SpecialistResult struct {
	Agent          string `json:"agent"`
	Specialization string `json:"specialization"`
	Response       string `json:"response"`
	ModelID        string `json:"model_id"`
	Status         Status `json:"status"`
	ErrorCode      string `json:"error_code,omitempty"`
}

func (r SpecialistResult) Failed() bool {
	return r.Status != StatusCompleted
}

// OrchestrationResponse is the body of a successful diagnosis request.
type OrchestrationResponse struct {
	Success        bool             `json:"success"`
	RequestID      string           `json:"request_id,omitempty"`
	Diagnosis      SpecialistResult `json:"diagnosis"`
	AgentResponses ResultSet        `json:"agent_responses"`
	Confidence     float64          `json:"confidence"`
	Degraded       bool             `json:"degraded"`
	FailedAgents   []string         `json:"failed_agents,omitempty"`
}

type ReportResponse struct {
	Success bool             `json:"success"`
	Report  SpecialistResult `json:"report"`
}

type TranscriptionAck struct {
	Success              bool   `json:"success"`
	TranscriptionJobName string `json:"transcription_job_name"`
	Status               string `json:"status"`
}

// TranscriptionStatus reports the state of a previously submitted job.
type TranscriptionStatus struct {
	JobName       string `json:"transcription_job_name"`
	Status        string `json:"status"`
	TranscriptURI string `json:"transcript_uri,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}
