package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/jonathan/company-directory/internal/types"
)

// Default file names inside the data directory.
const (
	DefaultRawFile    = "yc_s25_companies.json"
	DefaultDedupFile  = "yc_s25_companies_deduplicated.json"
	DefaultBackupFile = "yc_s25_companies_deduplicated.backup.json"
)

// FileOptions locates the dataset files.
type FileOptions struct {
	Dir        string `mapstructure:"dir" validate:"required"`
	RawFile    string `mapstructure:"raw_file" validate:"required"`
	DedupFile  string `mapstructure:"dedup_file" validate:"required"`
	BackupFile string `mapstructure:"backup_file" validate:"required"`
}

// DefaultFileOptions returns the conventional layout under dir.
func DefaultFileOptions(dir string) FileOptions {
	return FileOptions{
		Dir:        dir,
		RawFile:    DefaultRawFile,
		DedupFile:  DefaultDedupFile,
		BackupFile: DefaultBackupFile,
	}
}

// FileStore keeps each document in a JSON file.
type FileStore struct {
	opts FileOptions
	log  zerolog.Logger
}

// NewFileStore creates a file store. The directory is created on first save.
func NewFileStore(opts FileOptions, logger zerolog.Logger) *FileStore {
	return &FileStore{opts: opts, log: logger}
}

// Path returns the file path of a document.
func (s *FileStore) Path(doc Document) string {
	switch doc {
	case DocRaw:
		return filepath.Join(s.opts.Dir, s.opts.RawFile)
	default:
		return filepath.Join(s.opts.Dir, s.opts.DedupFile)
	}
}

// BackupPath returns the file path of the backup copy.
func (s *FileStore) BackupPath() string {
	return filepath.Join(s.opts.Dir, s.opts.BackupFile)
}

// Load reads a document. A missing file is an empty dataset; anything
// unreadable is a *CorruptionError.
func (s *FileStore) Load(_ context.Context, doc Document) ([]types.CompanyRecord, error) {
	path := s.Path(doc)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.log.Debug().Str("path", path).Msg("dataset file not found, starting empty")
			return []types.CompanyRecord{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	records, err := Decode(doc, path, data)
	if err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("dataset file is corrupt")
		return nil, err
	}
	s.log.Debug().Str("path", path).Int("records", len(records)).Msg("loaded dataset")
	return records, nil
}

// Save validates and atomically writes a document.
func (s *FileStore) Save(_ context.Context, doc Document, records []types.CompanyRecord) error {
	if err := ValidateRecords(records); err != nil {
		return fmt.Errorf("refusing to save %s document: %w", doc, err)
	}
	data, err := Encode(records)
	if err != nil {
		return err
	}
	path := s.Path(doc)
	if err := writeAtomic(path, data); err != nil {
		return err
	}
	s.log.Debug().Str("path", path).Int("records", len(records)).Msg("saved dataset")
	return nil
}

// Backup copies the deduplicated file to the backup file.
func (s *FileStore) Backup(_ context.Context) error {
	data, err := os.ReadFile(s.Path(DocDeduplicated))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read dataset for backup: %w", err)
	}
	if err := writeAtomic(s.BackupPath(), data); err != nil {
		return err
	}
	s.log.Info().Str("path", s.BackupPath()).Msg("backed up deduplicated dataset")
	return nil
}

// Restore copies the backup file over the deduplicated file. The backup is
// validated first so a corrupt backup never replaces a good dataset.
func (s *FileStore) Restore(_ context.Context) error {
	backupPath := s.BackupPath()
	data, err := os.ReadFile(backupPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNoBackup
		}
		return fmt.Errorf("failed to read backup: %w", err)
	}
	if _, err := Decode(DocDeduplicated, backupPath, data); err != nil {
		return err
	}
	if err := writeAtomic(s.Path(DocDeduplicated), data); err != nil {
		return err
	}
	s.log.Info().Str("path", s.Path(DocDeduplicated)).Msg("restored deduplicated dataset from backup")
	return nil
}

// writeAtomic writes data to a temp file in the target directory and renames it into place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".dataset-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move dataset into place: %w", err)
	}
	return nil
}
