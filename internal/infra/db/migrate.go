package db

import (
	"database/sql"
)

// MigrateUp creates the schema if it does not exist yet.
// Statements are idempotent so the bot can run it on every startup.
func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS channels (
    id            SERIAL PRIMARY KEY,
    name          TEXT NOT NULL,
    url           TEXT NOT NULL UNIQUE,
    canonical_url TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS subscribers (
    id          SERIAL PRIMARY KEY,
    telegram_id BIGINT NOT NULL UNIQUE,
    first_name  TEXT NOT NULL DEFAULT '',
    username    TEXT NOT NULL DEFAULT '',
    status      VARCHAR(16) NOT NULL DEFAULT 'active',
    subs_limit  INTEGER NOT NULL DEFAULT 6,
    created_at  TIMESTAMPTZ DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS subscriptions (
    subscriber_id INTEGER NOT NULL REFERENCES subscribers(id) ON DELETE CASCADE,
    channel_id    INTEGER NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
    created_at    TIMESTAMPTZ DEFAULT now(),
    PRIMARY KEY (subscriber_id, channel_id)
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS content_items (
    id         SERIAL PRIMARY KEY,
    channel_id INTEGER NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
    kind       VARCHAR(16) NOT NULL,
    url        TEXT NOT NULL,
    created_at TIMESTAMPTZ DEFAULT now(),
    UNIQUE (channel_id, url)
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS pending_messages (
    id         SERIAL PRIMARY KEY,
    chat_id    BIGINT NOT NULL,
    text       TEXT NOT NULL,
    created_at TIMESTAMPTZ DEFAULT now()
)`); err != nil {
		return err
	}

	indexes := []string{
		// two subscribers pasting different spellings of one channel must
		// end up on a single row; the empty default stays non-unique
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_channels_canonical_url ON channels(canonical_url) WHERE canonical_url <> ''`,
		// set difference per channel and kind runs every poll cycle
		`CREATE INDEX IF NOT EXISTS idx_content_items_channel_kind ON content_items(channel_id, kind)`,
		// subscriber fan-out join
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_channel_id ON subscriptions(channel_id)`,
		`CREATE INDEX IF NOT EXISTS idx_subscribers_status ON subscribers(status)`,
	}
	for _, stmt := range indexes {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
