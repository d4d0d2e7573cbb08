// Package errors provides the structured error taxonomy of the orchestrator.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidInput            ErrorCode = "INVALID_INPUT"
	ErrCodeUnrecognizedRequestType ErrorCode = "UNRECOGNIZED_REQUEST_TYPE"

	ErrCodeExternalCallFailure       ErrorCode = "EXTERNAL_CALL_FAILURE"
	ErrCodeMalformedExternalResponse ErrorCode = "MALFORMED_EXTERNAL_RESPONSE"
	ErrCodeInvocationTimeout         ErrorCode = "INVOCATION_TIMEOUT"

	ErrCodeAggregationDegraded ErrorCode = "AGGREGATION_DEGRADED"

	ErrCodeTranscriptionSubmitFailed ErrorCode = "TRANSCRIPTION_SUBMIT_FAILED"
	ErrCodeTranscriptionNotFound     ErrorCode = "TRANSCRIPTION_NOT_FOUND"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.Cause
}

// WithMetadata returns e after attaching key=value.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. Error Constructors
// ==========================

// NewInvalidInputError reports a missing or malformed request field.
func NewInvalidInputError(field, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Invalid request input",
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"field": field},
		Timestamp: time.Now().UTC(),
	}
}

func NewUnrecognizedRequestTypeError(requestType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnrecognizedRequestType,
		Message:   fmt.Sprintf("Unknown request type: %s", requestType),
		Retryable: false,
		Metadata:  map[string]interface{}{"requestType": requestType},
		Timestamp: time.Now().UTC(),
	}
}

// NewExternalCallError wraps a rejected collaborator call (throttling, bad model id, network fault).
func NewExternalCallError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExternalCallFailure,
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: isTransient(err),
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

// NewMalformedResponseError reports a collaborator response missing the expected structure.
func NewMalformedResponseError(service, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMalformedExternalResponse,
		Message:   fmt.Sprintf("Malformed response from '%s'", service),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvocationTimeoutError(modelID string, timeout time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvocationTimeout,
		Message:   "Model invocation timed out",
		Details:   fmt.Sprintf("modelId: %s, timeout: %s", modelID, timeout),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAggregationDegradedError is informational: some specialists failed, synthesis ran on the survivors.
func NewAggregationDegradedError(failed []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAggregationDegraded,
		Message:   "Synthesis proceeded with partial specialist results",
		Details:   fmt.Sprintf("failed agents: %s", strings.Join(failed, ",")),
		Retryable: false,
		Metadata:  map[string]interface{}{"failedAgents": failed},
		Timestamp: time.Now().UTC(),
	}
}

func NewTranscriptionSubmitError(jobName string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTranscriptionSubmitFailed,
		Message:   "Transcription job submission failed",
		Details:   fmt.Sprintf("job: %s, error: %s", jobName, err.Error()),
		Retryable: isTransient(err),
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

func NewTranscriptionNotFoundError(jobName string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTranscriptionNotFound,
		Message:   "Transcription job not found",
		Details:   fmt.Sprintf("job: %s", jobName),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	details := "unexpected failure"
	if err != nil {
		details = err.Error()
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Internal server error",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

// ==========================
// 3. Classification
// ==========================

// AsStandardError normalizes any error into a StandardError; unknown errors become INTERNAL_ERROR.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// HasCode reports whether err is a StandardError carrying code.
func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	return stderrors.As(err, &stdErr) && stdErr.Code == code
}

// HTTPStatus maps an error code to the status code of the response envelope.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidInput, ErrCodeUnrecognizedRequestType:
		return http.StatusBadRequest
	case ErrCodeTranscriptionNotFound:
		return http.StatusNotFound
	case ErrCodeAggregationDegraded:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeExternalCallFailure, ErrCodeTranscriptionSubmitFailed:
		return 3
	case ErrCodeInvocationTimeout:
		return 1
	default:
		return 0
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeInvalidInput, ErrCodeUnrecognizedRequestType:
		return "VALIDATION"
	case ErrCodeExternalCallFailure, ErrCodeMalformedExternalResponse, ErrCodeInvocationTimeout:
		return "MODEL"
	case ErrCodeTranscriptionSubmitFailed, ErrCodeTranscriptionNotFound:
		return "TRANSCRIPTION"
	case ErrCodeAggregationDegraded:
		return "AGGREGATION"
	default:
		return "OTHER"
	}
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, phrase := range []string{
		"throttl",
		"too many requests",
		"timeout",
		"deadline exceeded",
		"connection reset",
		"connection refused",
		"service unavailable",
		"serviceunavailable",
		"internal server",
		"internalserver",
		"modelnotready",
	} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// ==========================
// 4. BPMN Integration
// ==========================

// BPMNError represents an error thrown back to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ConvertToBPMNError converts a StandardError to a BPMNError.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"errorCategory": GetErrorCategory(stdErr.Code),
			"timestamp":     stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}
