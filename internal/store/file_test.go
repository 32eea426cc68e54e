package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/company-directory/internal/types"
)

func newTestFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	return NewFileStore(DefaultFileOptions(dir), zerolog.Nop()), dir
}

func sampleRecords() []types.CompanyRecord {
	return []types.CompanyRecord{
		{
			Name:             "Zeta Café",
			Description:      "Espresso <robots> & more",
			Website:          types.StringPtr("https://zeta.example?a=1&b=2"),
			YCProfileURL:     types.StringPtr("https://www.ycombinator.com/companies/zeta"),
			LinkedInURL:      types.StringPtr("https://www.linkedin.com/company/zeta/"),
			LinkedInMentions: types.MentionTrue,
			LinkedInMatch:    &types.MatchEvidence{Location: "name", Snippet: "zeta café (yc s25)"},
			Source:           types.SourceYC,
		},
		{Name: "Alpha", Source: types.SourceLinkedIn, LinkedInMentions: types.MentionFalse},
		{Name: "Unknown", Source: types.SourceYC},
	}
}

func TestFileStore_LoadMissingIsEmpty(t *testing.T) {
	s, _ := newTestFileStore(t)

	records, err := s.Load(context.Background(), DocRaw)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestFileStore_RoundTripPreservesOrderAndValues(t *testing.T) {
	s, _ := newTestFileStore(t)
	ctx := context.Background()
	want := sampleRecords()

	require.NoError(t, s.Save(ctx, DocDeduplicated, want))
	got, err := s.Load(ctx, DocDeduplicated)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// A second save of the loaded data produces identical bytes.
	first, err := os.ReadFile(s.Path(DocDeduplicated))
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, DocDeduplicated, got))
	second, err := os.ReadFile(s.Path(DocDeduplicated))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestFileStore_FileFormat(t *testing.T) {
	s, _ := newTestFileStore(t)
	require.NoError(t, s.Save(context.Background(), DocRaw, sampleRecords()))

	data, err := os.ReadFile(s.Path(DocRaw))
	require.NoError(t, err)
	text := string(data)

	assert.True(t, strings.HasPrefix(text, "[\n  {\n    \"name\": \"Zeta Café\""), "two-space indent and literal UTF-8")
	assert.Contains(t, text, "<robots> & more", "HTML is not escaped")
	assert.Contains(t, text, `"linkedin_mentions_s25": null`)
	assert.Contains(t, text, `"linkedin_url": "https://www.linkedin.com/company/zeta/"`, "display form is stored, not the normalized one")
}

func TestFileStore_CorruptDocumentIsAnError(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"truncated", `[{"name": "Acme"`},
		{"empty file", ``},
		{"not a list", `{"name": "Acme"}`},
		{"schema violation", `[{"description": "no name"}]`},
		{"bad source", `[{"name": "Acme", "source": "crunchbase"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestFileStore(t)
			require.NoError(t, os.WriteFile(s.Path(DocRaw), []byte(tt.content), 0o644))

			records, err := s.Load(context.Background(), DocRaw)
			require.Error(t, err)
			assert.Nil(t, records)
			assert.True(t, errors.Is(err, ErrCorrupt))

			var ce *CorruptionError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, DocRaw, ce.Document)
			assert.Equal(t, s.Path(DocRaw), ce.Path)
		})
	}
}

func TestFileStore_LegacyValues(t *testing.T) {
	s, _ := newTestFileStore(t)
	legacy := `[
  {"name": "Acme", "description": "", "website": null, "yc_profile_url": "https://www.ycombinator.com/companies/acme", "linkedin_url": null, "linkedin_mentions_s25": null, "source": "Y Combinator"},
  {"name": "Beta", "description": "b", "website": null, "yc_profile_url": null, "linkedin_url": "https://www.linkedin.com/company/beta", "linkedin_mentions_s25": true, "linkedin_match": {"location": "full_desc", "snippet": "yc s25"}}
]`
	require.NoError(t, os.WriteFile(s.Path(DocRaw), []byte(legacy), 0o644))

	records, err := s.Load(context.Background(), DocRaw)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, types.SourceYC, records[0].Source)
	assert.Equal(t, types.MentionUnknown, records[0].LinkedInMentions)
	assert.Equal(t, types.SourceYC, records[1].Source)
	assert.Equal(t, types.MentionTrue, records[1].LinkedInMentions)
}

func TestFileStore_SaveRejectsInvalidRecord(t *testing.T) {
	s, _ := newTestFileStore(t)
	bad := []types.CompanyRecord{{Name: "Acme", Source: types.SourceYC, LinkedInMentions: types.MentionFalse, LinkedInMatch: &types.MatchEvidence{Location: "name"}}}

	err := s.Save(context.Background(), DocRaw, bad)
	require.Error(t, err)
	_, statErr := os.Stat(s.Path(DocRaw))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFileStore_BackupAndRestore(t *testing.T) {
	s, _ := newTestFileStore(t)
	ctx := context.Background()

	require.ErrorIs(t, s.Restore(ctx), ErrNoBackup)
	require.NoError(t, s.Backup(ctx), "backup without a dataset is a no-op")

	original := sampleRecords()
	require.NoError(t, s.Save(ctx, DocDeduplicated, original))
	require.NoError(t, s.Backup(ctx))

	require.NoError(t, s.Save(ctx, DocDeduplicated, original[:1]))
	require.NoError(t, s.Restore(ctx))

	got, err := s.Load(ctx, DocDeduplicated)
	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestFileStore_RestoreRejectsCorruptBackup(t *testing.T) {
	s, _ := newTestFileStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, DocDeduplicated, sampleRecords()))
	require.NoError(t, os.WriteFile(s.BackupPath(), []byte("not json"), 0o644))

	err := s.Restore(ctx)
	assert.ErrorIs(t, err, ErrCorrupt)

	got, err := s.Load(ctx, DocDeduplicated)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestFileStore_NoTempFilesLeft(t *testing.T) {
	s, dir := newTestFileStore(t)
	require.NoError(t, s.Save(context.Background(), DocRaw, sampleRecords()))

	matches, err := filepath.Glob(filepath.Join(dir, ".dataset-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument("raw")
	require.NoError(t, err)
	assert.Equal(t, DocRaw, doc)

	doc, err = ParseDocument("dedup")
	require.NoError(t, err)
	assert.Equal(t, DocDeduplicated, doc)

	_, err = ParseDocument("other")
	assert.Error(t, err)
}
