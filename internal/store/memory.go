package store

import (
	"context"
	"sync"

	"github.com/jonathan/company-directory/internal/types"
)

// MemoryStore keeps documents in memory. Used by tests and dry runs.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[Document][]types.CompanyRecord
	backup []types.CompanyRecord
	hasBak bool
	// LoadErr, when set, is returned by every Load.
	LoadErr error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{docs: make(map[Document][]types.CompanyRecord)}
}

// Load returns a copy of the stored records.
func (m *MemoryStore) Load(_ context.Context, doc Document) ([]types.CompanyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return cloneRecords(m.docs[doc]), nil
}

// Save stores a copy of records.
func (m *MemoryStore) Save(_ context.Context, doc Document, records []types.CompanyRecord) error {
	if err := ValidateRecords(records); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc] = cloneRecords(records)
	return nil
}

// Backup copies the deduplicated document, if any.
func (m *MemoryStore) Backup(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs, ok := m.docs[DocDeduplicated]
	if !ok {
		return nil
	}
	m.backup = cloneRecords(recs)
	m.hasBak = true
	return nil
}

// Restore replaces the deduplicated document with the backup.
func (m *MemoryStore) Restore(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasBak {
		return ErrNoBackup
	}
	m.docs[DocDeduplicated] = cloneRecords(m.backup)
	return nil
}
