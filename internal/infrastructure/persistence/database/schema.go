package database

import (
	"context"
	"fmt"
	"time"

	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
)

// Schema for the auth adapter: users, provider accounts, email sign-in
// tokens, subscriptions and checkout sessions.
var tables = []string{
	`CREATE TABLE IF NOT EXISTS users (id TEXT PRIMARY KEY, name TEXT NOT NULL DEFAULT '', email TEXT NOT NULL UNIQUE, image TEXT NOT NULL DEFAULT '', role TEXT NOT NULL DEFAULT 'member', email_verified TEXT, created_at TEXT NOT NULL, updated_at TEXT NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS accounts (id TEXT PRIMARY KEY, user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE, provider TEXT NOT NULL, provider_account_id TEXT NOT NULL, created_at TEXT NOT NULL, UNIQUE(provider, provider_account_id))`,
	`CREATE TABLE IF NOT EXISTS verification_tokens (identifier TEXT NOT NULL, token_hash TEXT NOT NULL, expires TEXT NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS subscriptions (id TEXT PRIMARY KEY, user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE, customer_id TEXT NOT NULL DEFAULT '', price_id TEXT NOT NULL DEFAULT '', status TEXT NOT NULL, current_period_end TEXT NOT NULL DEFAULT '', updated_at TEXT NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS checkouts (session_id TEXT PRIMARY KEY, user_id TEXT NOT NULL DEFAULT '', price_id TEXT NOT NULL DEFAULT '', status TEXT NOT NULL, created_at TEXT NOT NULL, updated_at TEXT NOT NULL)`,
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
	`CREATE INDEX IF NOT EXISTS idx_accounts_user_id ON accounts(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_verification_tokens_identifier ON verification_tokens(identifier)`,
	`CREATE INDEX IF NOT EXISTS idx_verification_tokens_expires ON verification_tokens(expires)`,
	`CREATE INDEX IF NOT EXISTS idx_subscriptions_user_id ON subscriptions(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_checkouts_user_id ON checkouts(user_id)`,
}

// Migrate creates any missing tables and indexes. It is idempotent.
func Migrate(ctx context.Context, db *DB, logger *logging.ChanneledLogger) error {
	start := time.Now()
	logger.Database().Info("Applying auth database schema", "tables", len(tables), "indexes", len(indexes))

	for _, tableSQL := range tables {
		if _, err := db.ExecContext(ctx, tableSQL); err != nil {
			return fmt.Errorf("failed to create table for query [%s]: %w", tableSQL, err)
		}
	}
	for _, indexSQL := range indexes {
		if _, err := db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("failed to create index for query [%s]: %w", indexSQL, err)
		}
	}

	duration := time.Since(start)
	logger.Database().Info("Auth database schema ready", "duration", duration)
	CheckAndLogSlowQuery(logger, "MIGRATE_SCHEMA", duration)
	return nil
}
