package orchestratecase

import "reasoncare-orchestrator/internal/models"

// Input mirrors the process variables of a case task. Agents stays nil when the variable is absent.
type Input struct {
	RequestType   string             `json:"requestType"`
	RequestID     string             `json:"requestId"`
	PatientData   models.CasePayload `json:"patientData"`
	DiagnosisData models.CasePayload `json:"diagnosisData"`
	Agents        []string           `json:"agents"`
	AudioData     string             `json:"audioData"`
	ReportType    string             `json:"reportType"`
}

func (i *Input) toRequest() models.Request {
	return models.Request{
		RequestType:   models.RequestType(i.RequestType),
		RequestID:     i.RequestID,
		PatientData:   i.PatientData,
		DiagnosisData: i.DiagnosisData,
		Agents:        i.Agents,
		AudioData:     i.AudioData,
		ReportType:    i.ReportType,
	}
}

type Output struct {
	RequestID  string      `json:"requestId"`
	StatusCode int         `json:"statusCode"`
	Result     interface{} `json:"result"`
}
