package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	got, err := m.Load(ctx, DocRaw)
	require.NoError(t, err)
	assert.Empty(t, got)

	records := sampleRecords()
	require.NoError(t, m.Save(ctx, DocRaw, records))

	got, err = m.Load(ctx, DocRaw)
	require.NoError(t, err)
	assert.Equal(t, records, got)

	got[0].Name = "mutated"
	again, err := m.Load(ctx, DocRaw)
	require.NoError(t, err)
	assert.Equal(t, "Zeta Café", again[0].Name, "loaded slices are copies")
}

func TestMemoryStore_BackupRestore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	assert.ErrorIs(t, m.Restore(ctx), ErrNoBackup)

	require.NoError(t, m.Save(ctx, DocDeduplicated, sampleRecords()))
	require.NoError(t, m.Backup(ctx))
	require.NoError(t, m.Save(ctx, DocDeduplicated, nil))
	require.NoError(t, m.Restore(ctx))

	got, err := m.Load(ctx, DocDeduplicated)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestMemoryStore_LoadErr(t *testing.T) {
	m := NewMemory()
	m.LoadErr = &CorruptionError{Document: DocRaw}

	_, err := m.Load(context.Background(), DocRaw)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestEncode_NilIsEmptyList(t *testing.T) {
	data, err := Encode(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestCorruptionError(t *testing.T) {
	err := &CorruptionError{Document: DocDeduplicated, Path: "/data/x.json", Cause: assert.AnError}
	assert.Contains(t, err.Error(), "deduplicated (/data/x.json)")
	assert.ErrorIs(t, err, assert.AnError)
	assert.ErrorIs(t, err, ErrCorrupt)
}

var _ Store = (*FileStore)(nil)
var _ Store = (*MemoryStore)(nil)
