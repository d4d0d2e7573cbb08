package validation

import (
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

// RequestSchema checks field types of an inbound request. request_type is not
// enumerated so unknown values reach the router and get their own rejection.
const RequestSchema = `{
  "type": "object",
  "properties": {
    "request_type":   {"type": "string"},
    "request_id":     {"type": "string", "maxLength": 128},
    "patient_data":   {"type": ["object", "null"]},
    "diagnosis_data": {"type": ["object", "null"]},
    "agents":         {"type": ["array", "null"], "items": {"type": "string"}},
    "audio_data":     {"type": "string"},
    "report_type":    {"type": "string"}
  },
  "additionalProperties": true
}`

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Summary renders the errors as one line.
func (r *ValidationResult) Summary() string {
	if r == nil || len(r.Errors) == 0 {
		return ""
	}
	msg := ""
	for i, e := range r.Errors {
		if i > 0 {
			msg += "; "
		}
		msg += fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return msg
}

type Validator struct {
	schema *gojsonschema.Schema
}

func NewValidator(schemaJSON string) (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// NewRequestValidator compiles RequestSchema.
func NewRequestValidator() *Validator {
	v, err := NewValidator(RequestSchema)
	if err != nil {
		panic(err)
	}
	return v
}

// ValidateJSON validates a raw document. Unparseable input is reported as a validation error.
func (v *Validator) ValidateJSON(raw []byte) *ValidationResult {
	return v.validate(gojsonschema.NewBytesLoader(raw))
}

// ValidateInput validates an already decoded document.
func (v *Validator) ValidateInput(input interface{}) *ValidationResult {
	return v.validate(gojsonschema.NewGoLoader(input))
}

func (v *Validator) validate(doc gojsonschema.JSONLoader) *ValidationResult {
	result, err := v.schema.Validate(doc)
	if err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "(root)",
				Message: err.Error(),
				Code:    "INVALID_DOCUMENT",
			}},
		}
	}
	if result.Valid() {
		return &ValidationResult{Valid: true}
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		errs = append(errs, ValidationError{
			Field:   re.Field(),
			Message: re.Description(),
			Code:    codeFor(re.Type()),
		})
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
	return &ValidationResult{Valid: false, Errors: errs}
}

func codeFor(errType string) string {
	switch errType {
	case "required":
		return "REQUIRED_FIELD_MISSING"
	case "invalid_type":
		return "INVALID_TYPE"
	case "string_gte", "string_lte":
		return "LENGTH_VIOLATION"
	case "enum":
		return "INVALID_ENUM_VALUE"
	default:
		return "SCHEMA_VIOLATION"
	}
}
