// Package user provides the SQL implementations of the user domain
// repositories.
package user

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/TwistedArtistsGuild/tag-web/internal/domain/user"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/persistence/database"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/security"
)

const userColumns = `id, name, email, image, role, email_verified, created_at, updated_at`

// SQLUserRepository is the SQL-based implementation of user.UserRepository.
type SQLUserRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLUserRepository creates a new instance of the repository.
func NewSQLUserRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLUserRepository {
	return &SQLUserRepository{
		db:     db,
		logger: logger,
	}
}

// FindByID retrieves a user by id.
func (r *SQLUserRepository) FindByID(ctx context.Context, id string) (*user.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return r.findOne(ctx, query, "id", id)
}

// FindByEmail retrieves a user by email, case-insensitively.
func (r *SQLUserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return r.findOne(ctx, query, "email", NormalizeEmail(email))
}

// FindByAccount retrieves the user linked to a provider account.
func (r *SQLUserRepository) FindByAccount(ctx context.Context, provider, providerAccountID string) (*user.User, error) {
	const query = `
		SELECT u.id, u.name, u.email, u.image, u.role, u.email_verified, u.created_at, u.updated_at
		FROM users u
		JOIN accounts a ON a.user_id = u.id
		WHERE a.provider = ? AND a.provider_account_id = ?`
	return r.findOne(ctx, query, "provider", provider, providerAccountID)
}

func (r *SQLUserRepository) findOne(ctx context.Context, query, by string, args ...any) (*user.User, error) {
	start := time.Now()
	r.logger.Database().Debug("Loading user", "by", by)

	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Database().Debug("User not found", "by", by)
			return nil, user.ErrNotFound
		}
		r.logger.Database().Error("Failed to load user", "error", err.Error(), "by", by)
		return nil, err
	}

	duration := time.Since(start)
	r.logger.Database().Info("User loaded", "by", by, "userId", logging.MaskID(u.ID), "duration", duration)
	database.CheckAndLogSlowQuery(r.logger, query, duration)
	return u, nil
}

// Create inserts a new user. Missing id, role and timestamps are filled in.
func (r *SQLUserRepository) Create(ctx context.Context, u *user.User) error {
	const query = `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	now := time.Now().UTC()
	if u.ID == "" {
		u.ID = security.GenerateULID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if u.Role == "" {
		u.Role = user.RoleMember
	}
	u.Email = NormalizeEmail(u.Email)

	start := time.Now()
	r.logger.Database().Debug("Executing user insert", "userId", logging.MaskID(u.ID))

	_, err := r.db.ExecContext(ctx, query,
		u.ID, u.Name, u.Email, u.Image, u.Role,
		database.FormatNullTime(u.EmailVerified),
		database.FormatTime(u.CreatedAt),
		database.FormatTime(u.UpdatedAt),
	)
	if err != nil {
		r.logger.Database().Error("User insert failed", "error", err.Error(), "userId", logging.MaskID(u.ID))
		return err
	}

	duration := time.Since(start)
	r.logger.Database().Info("User insert completed", "userId", logging.MaskID(u.ID), "duration", duration)
	database.CheckAndLogSlowQuery(r.logger, query, duration)
	return nil
}

// Update writes profile fields of an existing user.
func (r *SQLUserRepository) Update(ctx context.Context, u *user.User) error {
	const query = `
		UPDATE users SET name = ?, image = ?, role = ?, email_verified = ?, updated_at = ?
		WHERE id = ?`

	u.UpdatedAt = time.Now().UTC()
	start := time.Now()

	res, err := r.db.ExecContext(ctx, query,
		u.Name, u.Image, u.Role,
		database.FormatNullTime(u.EmailVerified),
		database.FormatTime(u.UpdatedAt),
		u.ID,
	)
	if err != nil {
		r.logger.Database().Error("User update failed", "error", err.Error(), "userId", logging.MaskID(u.ID))
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
	}

	duration := time.Since(start)
	r.logger.Database().Info("User update completed", "userId", logging.MaskID(u.ID), "duration", duration)
	database.CheckAndLogSlowQuery(r.logger, query, duration)
	return nil
}

// LinkAccount records a provider account for a user. Linking the same
// provider account twice is a no-op.
func (r *SQLUserRepository) LinkAccount(ctx context.Context, a *user.Account) error {
	const query = `
		INSERT INTO accounts (id, user_id, provider, provider_account_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(provider, provider_account_id) DO NOTHING`

	if a.ID == "" {
		a.ID = security.GenerateULID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, query, a.ID, a.UserID, a.Provider, a.ProviderAccountID, database.FormatTime(a.CreatedAt))
	if err != nil {
		r.logger.Database().Error("Account link failed", "error", err.Error(), "provider", a.Provider, "userId", logging.MaskID(a.UserID))
		return err
	}
	r.logger.Database().Info("Account linked", "provider", a.Provider, "userId", logging.MaskID(a.UserID))
	return nil
}

func scanUser(row *sql.Row) (*user.User, error) {
	var (
		u                user.User
		verified         sql.NullString
		created, updated string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Image, &u.Role, &verified, &created, &updated); err != nil {
		return nil, err
	}
	u.EmailVerified = database.ParseNullTime(verified)
	u.CreatedAt = database.ParseTime(created)
	u.UpdatedAt = database.ParseTime(updated)
	return &u, nil
}

// NormalizeEmail lowercases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
