package report

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON []byte

// ErrInvalidJSON is returned when the input to Validate is not JSON.
var ErrInvalidJSON = errors.New("invalid json")

// Schema returns the JSON schema of the report.
func Schema() []byte {
	return bytes.Clone(schemaJSON)
}

// ValidationError is one schema violation.
type ValidationError struct {
	Field       string
	Description string
}

// ValidationResult is the outcome of validating a report.
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// Validate checks a JSON document against the report schema.
func Validate(data []byte) (*ValidationResult, error) {
	var doc any

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	err := dec.Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validate report: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}

	for _, verr := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{Field: verr.Field(), Description: verr.Description()})
	}

	return out, nil
}

// ValidateReport encodes rep and validates it.
func ValidateReport(rep *Report) (*ValidationResult, error) {
	var buf bytes.Buffer

	err := WriteJSON(&buf, rep)
	if err != nil {
		return nil, err
	}

	return Validate(buf.Bytes())
}
