package models

import "time"

// RunRecord is the audit trail of one routed request. It carries no case data.
type RunRecord struct {
	ID           string
	RequestID    string
	RequestType  RequestType
	StatusCode   int
	Agents       []string
	FailedAgents []string
	Confidence   float64
	Degraded     bool
	ErrorCode    string
	StartedAt    time.Time
	Duration     time.Duration
}

type EventType string

const (
	EventDiagnosisCompleted     EventType = "diagnosis.completed"
	EventReportGenerated        EventType = "report.generated"
	EventTranscriptionSubmitted EventType = "transcription.submitted"
)

// Event announces a finished request to downstream subscribers.
type Event struct {
	Type       EventType `json:"type"`
	RequestID  string    `json:"request_id"`
	StatusCode int       `json:"status_code"`
	Degraded   bool      `json:"degraded,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	JobName    string    `json:"job_name,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
