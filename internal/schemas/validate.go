// Package schemas provides JSON Schema validation for persisted dataset documents.
package schemas

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// CompanyDatasetSchema is the schema every dataset document must satisfy.
//
//go:embed company_dataset.schema.json
var CompanyDatasetSchema string

var (
	datasetSchemaOnce sync.Once
	datasetSchema     *gojsonschema.Schema
	datasetSchemaErr  error
)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

func compiledDatasetSchema() (*gojsonschema.Schema, error) {
	datasetSchemaOnce.Do(func() {
		datasetSchema, datasetSchemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(CompanyDatasetSchema))
		if datasetSchemaErr != nil {
			datasetSchemaErr = &SchemaLoadError{
				Path:    "company_dataset.schema.json",
				Message: "embedded schema did not compile",
				Cause:   datasetSchemaErr,
			}
		}
	})
	return datasetSchema, datasetSchemaErr
}

// ValidateDataset validates raw document bytes against the dataset schema.
// Malformed JSON is reported as a *ValidationError on the root.
func ValidateDataset(data []byte) error {
	schema, err := compiledDatasetSchema()
	if err != nil {
		return err
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return &ValidationError{Errors: []FieldError{{Field: "(root)", Message: err.Error()}}}
	}
	return toValidationError(result)
}

// ValidateDatasetFile validates a dataset file on disk.
func ValidateDatasetFile(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve dataset path: %w", err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("dataset file not found: %s", absPath)
		}
		return fmt.Errorf("failed to read dataset file: %w", err)
	}
	return ValidateDataset(data)
}

// ValidateJSONString validates JSON string content against schema string content
func ValidateJSONString(schemaContent, jsonContent string) error {
	schemaLoader := gojsonschema.NewStringLoader(schemaContent)
	documentLoader := gojsonschema.NewStringLoader(jsonContent)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &SchemaLoadError{
			Path:    "(string schema)",
			Message: "schema validation failed during load",
			Cause:   err,
		}
	}
	return toValidationError(result)
}

func toValidationError(result *gojsonschema.Result) error {
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}
