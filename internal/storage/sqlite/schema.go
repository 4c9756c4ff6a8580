// ABOUTME: Database schema for collected messages and generated reports
// ABOUTME: The message uniqueness constraint makes re-collection idempotent
package sqlite

// Schema creates all tables and indexes. A message is identified by
// (platform, chat_id, external_id) so the same platform message collected
// through two accounts, or in two overlapping runs, stores once.
const Schema = `
CREATE TABLE IF NOT EXISTS messages (
	id            TEXT PRIMARY KEY,
	platform      TEXT NOT NULL,
	external_id   TEXT NOT NULL,
	chat_id       TEXT NOT NULL,
	chat_name     TEXT NOT NULL DEFAULT '',
	author_id     TEXT NOT NULL DEFAULT '',
	author_name   TEXT NOT NULL DEFAULT '',
	content       TEXT NOT NULL DEFAULT '',
	timestamp     TIMESTAMP NOT NULL,
	urls          TEXT NOT NULL DEFAULT '[]',
	account       TEXT NOT NULL DEFAULT '',
	views         INTEGER NOT NULL DEFAULT 0,
	forwards      INTEGER NOT NULL DEFAULT 0,
	replies       INTEGER NOT NULL DEFAULT 0,
	summary       TEXT NOT NULL DEFAULT '',
	tags          TEXT NOT NULL DEFAULT '[]',
	processed     INTEGER NOT NULL DEFAULT 0,
	collected_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(platform, chat_id, external_id)
);

CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp);
CREATE INDEX IF NOT EXISTS idx_messages_processed ON messages(processed);
CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id);

CREATE TABLE IF NOT EXISTS reports (
	id            TEXT PRIMARY KEY,
	kind          TEXT NOT NULL,
	period_start  TIMESTAMP NOT NULL,
	period_end    TIMESTAMP NOT NULL,
	content       TEXT NOT NULL,
	message_count INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_at);
`
