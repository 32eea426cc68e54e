package db

const schema = `
-- One row per persisted document: raw, deduplicated, backup
CREATE TABLE IF NOT EXISTS dataset_documents (
    document TEXT PRIMARY KEY,
    record_count INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- Records of each document in stored order
CREATE TABLE IF NOT EXISTS dataset_records (
    document TEXT NOT NULL REFERENCES dataset_documents(document) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    record JSONB NOT NULL,
    PRIMARY KEY (document, position)
);

-- Fetched profile pages and failure bookkeeping
CREATE TABLE IF NOT EXISTS crawled_pages (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    url TEXT NOT NULL UNIQUE,
    raw_html TEXT,
    content_hash TEXT,
    http_status INTEGER,
    fetch_status TEXT NOT NULL DEFAULT 'success',
    error_message TEXT,
    is_permanent_failure BOOLEAN NOT NULL DEFAULT FALSE,
    retry_count INTEGER NOT NULL DEFAULT 0,
    retry_after TIMESTAMPTZ,
    fetched_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMPTZ,
    last_accessed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_crawled_pages_expires_at ON crawled_pages(expires_at);
`
