package db

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/company-directory/internal/store"
	"github.com/jonathan/company-directory/internal/types"
)

// backupDocument is the document name of the backup slot.
const backupDocument = "backup"

// tablePath identifies the table in corruption errors.
const tablePath = "postgres:dataset_records"

// -----------------------------------------------------------------------------
// Dataset Methods (store.Store)
// -----------------------------------------------------------------------------

// Load returns the records of a document in stored order.
// Stored rows that fail schema validation make the whole document corrupt.
func (db *DB) Load(ctx context.Context, doc store.Document) ([]types.CompanyRecord, error) {
	return db.loadDocument(ctx, string(doc), doc)
}

func (db *DB) loadDocument(ctx context.Context, name string, doc store.Document) ([]types.CompanyRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT record FROM dataset_records WHERE document = $1 ORDER BY position`,
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s document: %w", name, err)
	}
	defer rows.Close()

	raw := make([][]byte, 0)
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		raw = append(raw, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load %s document: %w", name, err)
	}

	// Reassemble the list so rows go through the same validation as files.
	data := append([]byte("["), bytes.Join(raw, []byte(","))...)
	data = append(data, ']')
	return store.Decode(doc, tablePath, data)
}

// Save replaces a document in one transaction.
func (db *DB) Save(ctx context.Context, doc store.Document, records []types.CompanyRecord) error {
	if err := store.ValidateRecords(records); err != nil {
		return fmt.Errorf("refusing to save %s document: %w", doc, err)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := replaceDocument(ctx, tx, string(doc), records); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit %s document: %w", doc, err)
	}

	db.log.Debug().Str("document", string(doc)).Int("records", len(records)).Msg("saved dataset")
	return nil
}

func replaceDocument(ctx context.Context, tx pgx.Tx, name string, records []types.CompanyRecord) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO dataset_documents (document, record_count, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (document) DO UPDATE SET record_count = $2, updated_at = NOW()`,
		name, len(records),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", name, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM dataset_records WHERE document = $1`, name); err != nil {
		return fmt.Errorf("failed to clear document %s: %w", name, err)
	}

	batch := &pgx.Batch{}
	for i := range records {
		data, err := json.Marshal(&records[i])
		if err != nil {
			return fmt.Errorf("failed to marshal record %d: %w", i, err)
		}
		batch.Queue(
			`INSERT INTO dataset_records (document, position, record) VALUES ($1, $2, $3::jsonb)`,
			name, i, string(data),
		)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert records for %s: %w", name, err)
	}
	return nil
}

// Backup copies the deduplicated document to the backup slot.
func (db *DB) Backup(ctx context.Context) error {
	exists, err := db.documentExists(ctx, string(store.DocDeduplicated))
	if err != nil || !exists {
		return err
	}
	if err := db.copyDocument(ctx, string(store.DocDeduplicated), backupDocument); err != nil {
		return err
	}
	db.log.Info().Msg("backed up deduplicated dataset")
	return nil
}

// Restore copies the backup slot over the deduplicated document.
func (db *DB) Restore(ctx context.Context) error {
	exists, err := db.documentExists(ctx, backupDocument)
	if err != nil {
		return err
	}
	if !exists {
		return store.ErrNoBackup
	}
	if _, err := db.loadDocument(ctx, backupDocument, store.DocDeduplicated); err != nil {
		return err
	}
	if err := db.copyDocument(ctx, backupDocument, string(store.DocDeduplicated)); err != nil {
		return err
	}
	db.log.Info().Msg("restored deduplicated dataset from backup")
	return nil
}

func (db *DB) documentExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM dataset_documents WHERE document = $1)`,
		name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check document %s: %w", name, err)
	}
	return exists, nil
}

func (db *DB) copyDocument(ctx context.Context, from, to string) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO dataset_documents (document, record_count, updated_at)
		 SELECT $2, record_count, NOW() FROM dataset_documents WHERE document = $1
		 ON CONFLICT (document) DO UPDATE SET record_count = EXCLUDED.record_count, updated_at = NOW()`,
		from, to,
	)
	if err != nil {
		return fmt.Errorf("failed to copy document %s to %s: %w", from, to, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM dataset_records WHERE document = $1`, to); err != nil {
		return fmt.Errorf("failed to clear document %s: %w", to, err)
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO dataset_records (document, position, record)
		 SELECT $2, position, record FROM dataset_records WHERE document = $1`,
		from, to,
	)
	if err != nil {
		return fmt.Errorf("failed to copy records %s to %s: %w", from, to, err)
	}
	return tx.Commit(ctx)
}
