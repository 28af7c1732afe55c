package user

import (
	"context"
	"time"

	"github.com/TwistedArtistsGuild/tag-web/internal/domain/user"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/persistence/database"
)

// SQLVerificationTokenRepository stores pending email sign-ins.
type SQLVerificationTokenRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLVerificationTokenRepository creates a new instance of the repository.
func NewSQLVerificationTokenRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLVerificationTokenRepository {
	return &SQLVerificationTokenRepository{db: db, logger: logger}
}

// Create stores a token hash.
func (r *SQLVerificationTokenRepository) Create(ctx context.Context, t *user.VerificationToken) error {
	const query = `INSERT INTO verification_tokens (identifier, token_hash, expires) VALUES (?, ?, ?)`
	start := time.Now()

	_, err := r.db.ExecContext(ctx, query, NormalizeEmail(t.Identifier), t.TokenHash, database.FormatTime(t.Expires))
	if err != nil {
		r.logger.Database().Error("Verification token insert failed", "error", err.Error())
		return err
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return nil
}

// Consume deletes and returns the first token for identifier that match
// accepts, inside one transaction so a link works at most once. Tokens match
// rejects are left in place. user.ErrNotFound means nothing matched.
func (r *SQLVerificationTokenRepository) Consume(ctx context.Context, identifier string, match func(*user.VerificationToken) bool) (*user.VerificationToken, error) {
	const selectQuery = `SELECT identifier, token_hash, expires FROM verification_tokens WHERE identifier = ?`
	const deleteQuery = `DELETE FROM verification_tokens WHERE identifier = ? AND token_hash = ?`

	identifier = NormalizeEmail(identifier)
	start := time.Now()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, selectQuery, identifier)
	if err != nil {
		r.logger.Database().Error("Verification token lookup failed", "error", err.Error())
		return nil, err
	}
	var found *user.VerificationToken
	pending := 0
	for rows.Next() {
		var (
			t       user.VerificationToken
			expires string
		)
		if err := rows.Scan(&t.Identifier, &t.TokenHash, &expires); err != nil {
			rows.Close()
			return nil, err
		}
		t.Expires = database.ParseTime(expires)
		pending++
		if found == nil && match(&t) {
			found = &t
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if found == nil {
		r.logger.Database().Debug("No verification token matched", "pending", pending, "duration", time.Since(start))
		return nil, user.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, deleteQuery, identifier, found.TokenHash); err != nil {
		r.logger.Database().Error("Verification token delete failed", "error", err.Error())
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	r.logger.Database().Debug("Verification token consumed", "pending", pending, "duration", time.Since(start))
	return found, nil
}

// DeleteExpired removes tokens past their expiry and reports how many.
func (r *SQLVerificationTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM verification_tokens WHERE expires <= ?`
	res, err := r.db.ExecContext(ctx, query, database.FormatTime(now))
	if err != nil {
		r.logger.Database().Error("Expired token cleanup failed", "error", err.Error())
		return 0, err
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		r.logger.Database().Info("Expired verification tokens removed", "count", n)
	}
	return n, nil
}
