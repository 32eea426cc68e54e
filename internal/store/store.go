// Package store persists the raw and deduplicated company datasets.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonathan/company-directory/internal/schemas"
	"github.com/jonathan/company-directory/internal/types"
)

// Document names one persisted dataset.
type Document string

const (
	// DocRaw is the ingestion document: directory records plus confirmed network discoveries.
	DocRaw Document = "raw"
	// DocDeduplicated is the merged document served by the dashboard.
	DocDeduplicated Document = "deduplicated"
)

// ParseDocument maps a document name onto a Document.
func ParseDocument(s string) (Document, error) {
	switch Document(s) {
	case DocRaw:
		return DocRaw, nil
	case DocDeduplicated, "dedup":
		return DocDeduplicated, nil
	default:
		return "", fmt.Errorf("unknown document %q (expected %q or %q)", s, DocRaw, DocDeduplicated)
	}
}

var (
	// ErrCorrupt matches every CorruptionError.
	ErrCorrupt = errors.New("dataset corrupt")
	// ErrNoBackup is returned by Restore when no backup exists.
	ErrNoBackup = errors.New("no backup available")
)

// CorruptionError reports a persisted document that could not be read.
// A corrupt document is never treated as an empty dataset.
type CorruptionError struct {
	Document Document
	Path     string
	Cause    error
}

func (e *CorruptionError) Error() string {
	where := string(e.Document)
	if e.Path != "" {
		where = fmt.Sprintf("%s (%s)", e.Document, e.Path)
	}
	if e.Cause != nil {
		return fmt.Sprintf("corrupt %s document: %v", where, e.Cause)
	}
	return fmt.Sprintf("corrupt %s document", where)
}

func (e *CorruptionError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is support
func (e *CorruptionError) Is(target error) bool {
	return target == ErrCorrupt
}

// Store loads and saves dataset documents.
type Store interface {
	// Load returns the records of doc in stored order. A missing document is empty.
	Load(ctx context.Context, doc Document) ([]types.CompanyRecord, error)
	// Save replaces doc with records.
	Save(ctx context.Context, doc Document, records []types.CompanyRecord) error
	// Backup copies the deduplicated document to the backup slot.
	// Without a deduplicated document it does nothing.
	Backup(ctx context.Context) error
	// Restore copies the backup over the deduplicated document.
	Restore(ctx context.Context) error
}

// Encode serializes records as a 2-space indented JSON list with non-ASCII
// characters and HTML kept literal.
func Encode(records []types.CompanyRecord) ([]byte, error) {
	if records == nil {
		records = []types.CompanyRecord{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("failed to encode dataset: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode validates data against the dataset schema and parses it.
// Any failure is a *CorruptionError.
func Decode(doc Document, path string, data []byte) ([]types.CompanyRecord, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &CorruptionError{Document: doc, Path: path, Cause: errors.New("document is empty")}
	}
	if err := schemas.ValidateDataset(data); err != nil {
		return nil, &CorruptionError{Document: doc, Path: path, Cause: err}
	}
	var records []types.CompanyRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &CorruptionError{Document: doc, Path: path, Cause: err}
	}
	if records == nil {
		records = []types.CompanyRecord{}
	}
	return records, nil
}

// ValidateRecords checks every record before it is persisted.
func ValidateRecords(records []types.CompanyRecord) error {
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}

func cloneRecords(records []types.CompanyRecord) []types.CompanyRecord {
	out := make([]types.CompanyRecord, len(records))
	copy(out, records)
	return out
}
