package db

import "database/sql"

// Migrate creates the engine's tables if they do not exist yet. The users
// table is owned by the wider platform; it is included here so the engine can
// run standalone in dev.
func Migrate(conn *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			username TEXT UNIQUE NOT NULL,
			full_name TEXT NOT NULL DEFAULT '',
			primary_role TEXT NOT NULL DEFAULT 'talent',
			is_verified BOOLEAN NOT NULL DEFAULT FALSE,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS admin_messages (
			id SERIAL PRIMARY KEY,
			admin_id INTEGER NOT NULL REFERENCES users(id),
			receiver_id INTEGER NOT NULL REFERENCES users(id),
			content TEXT NOT NULL,
			is_bulk BOOLEAN NOT NULL DEFAULT FALSE,
			bulk_campaign_id TEXT,
			bulk_campaign_name TEXT,
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			is_deleted_by_user BOOLEAN NOT NULL DEFAULT FALSE,
			is_deleted_by_admin BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_admin_messages_campaign
			ON admin_messages (bulk_campaign_id)`,
		`CREATE INDEX IF NOT EXISTS idx_admin_messages_receiver
			ON admin_messages (receiver_id)`,
		`CREATE TABLE IF NOT EXISTS email_queue (
			id SERIAL PRIMARY KEY,
			recipient TEXT NOT NULL,
			subject TEXT NOT NULL,
			text_content TEXT NOT NULL,
			html_content TEXT,
			email_type TEXT NOT NULL,
			user_id INTEGER REFERENCES users(id),
			status TEXT NOT NULL DEFAULT 'pending',
			retry_count INTEGER NOT NULL DEFAULT 0,
			last_error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			sent_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_email_queue_status
			ON email_queue (status, created_at)`,
		`CREATE TABLE IF NOT EXISTS email_ads (
			id SERIAL PRIMARY KEY,
			created_by_id INTEGER NOT NULL REFERENCES users(id),
			title TEXT NOT NULL,
			ad_text TEXT NOT NULL,
			ad_link TEXT,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			impressions INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS ad_impressions (
			id SERIAL PRIMARY KEY,
			ad_id INTEGER NOT NULL REFERENCES email_ads(id) ON DELETE CASCADE,
			recipient_ordinal INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS email_metrics (
			id SERIAL PRIMARY KEY,
			date DATE UNIQUE NOT NULL,
			total_sent INTEGER NOT NULL DEFAULT 0,
			total_welcome INTEGER NOT NULL DEFAULT 0,
			total_job_recommendations INTEGER NOT NULL DEFAULT 0,
			total_ads_shown INTEGER NOT NULL DEFAULT 0,
			total_failed INTEGER NOT NULL DEFAULT 0
		)`,
	}

	for _, stmt := range stmts {
		if _, err := conn.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
