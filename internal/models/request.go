// internal/models/request.go
package models

import "encoding/json"

type RequestType string

const (
	RequestTypeDiagnosis        RequestType = "diagnosis"
	RequestTypeReportGeneration RequestType = "report_generation"
	RequestTypeVoiceProcessing  RequestType = "voice_processing"
)

const DefaultReportType = "standard"

// Request is the inbound event. A nil Agents list selects the default
// specialists; an explicit empty list selects none.
type Request struct {
	RequestType   RequestType `json:"request_type,omitempty"`
	RequestID     string      `json:"request_id,omitempty"`
	PatientData   CasePayload `json:"patient_data,omitempty"`
	DiagnosisData CasePayload `json:"diagnosis_data,omitempty"`
	Agents        []string    `json:"agents"`
	AudioData     string      `json:"audio_data,omitempty"`
	ReportType    string      `json:"report_type,omitempty"`

	// RequestTypeGiven is set when a decoded event carried request_type,
	// even as "". Only an absent type defaults to diagnosis.
	RequestTypeGiven bool `json:"-"`
}

func (r *Request) UnmarshalJSON(data []byte) error {
	type plain Request
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	_, p.RequestTypeGiven = keys["request_type"]
	*r = Request(p)
	return nil
}

// Envelope is what every request produces.
type Envelope struct {
	StatusCode int         `json:"statusCode"`
	Body       interface{} `json:"body"`
}

type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func NewEnvelope(status int, body interface{}) Envelope {
	return Envelope{StatusCode: status, Body: body}
}

func NewErrorEnvelope(status int, code, message string) Envelope {
	return Envelope{StatusCode: status, Body: ErrorBody{Error: message, Code: code}}
}
