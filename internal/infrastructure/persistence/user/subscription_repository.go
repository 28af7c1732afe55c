package user

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/TwistedArtistsGuild/tag-web/internal/domain/user"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/persistence/database"
)

// SQLSubscriptionRepository stores subscriptions and checkout sessions
// reported by the payment provider.
type SQLSubscriptionRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLSubscriptionRepository creates a new instance of the repository.
func NewSQLSubscriptionRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLSubscriptionRepository {
	return &SQLSubscriptionRepository{db: db, logger: logger}
}

// FindByUserID returns the most recently updated subscription of a user.
func (r *SQLSubscriptionRepository) FindByUserID(ctx context.Context, userID string) (*user.Subscription, error) {
	const query = `
		SELECT id, user_id, customer_id, price_id, status, current_period_end, updated_at
		FROM subscriptions
		WHERE user_id = ?
		ORDER BY updated_at DESC
		LIMIT 1`

	start := time.Now()
	var (
		s                  user.Subscription
		periodEnd, updated string
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&s.ID, &s.UserID, &s.CustomerID, &s.PriceID, &s.Status, &periodEnd, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		r.logger.Database().Error("Failed to load subscription", "error", err.Error(), "userId", logging.MaskID(userID))
		return nil, err
	}
	s.CurrentPeriodEnd = database.ParseTime(periodEnd)
	s.UpdatedAt = database.ParseTime(updated)

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return &s, nil
}

// Upsert inserts or replaces a subscription keyed by its provider id.
func (r *SQLSubscriptionRepository) Upsert(ctx context.Context, s *user.Subscription) error {
	const query = `
		INSERT INTO subscriptions (id, user_id, customer_id, price_id, status, current_period_end, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			customer_id = excluded.customer_id,
			price_id = CASE WHEN excluded.price_id = '' THEN subscriptions.price_id ELSE excluded.price_id END,
			status = excluded.status,
			current_period_end = excluded.current_period_end,
			updated_at = excluded.updated_at`

	s.UpdatedAt = time.Now().UTC()
	start := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.UserID, s.CustomerID, s.PriceID, s.Status,
		formatOptional(s.CurrentPeriodEnd),
		database.FormatTime(s.UpdatedAt),
	)
	if err != nil {
		r.logger.Database().Error("Subscription upsert failed", "error", err.Error(), "subscriptionId", s.ID)
		return err
	}

	duration := time.Since(start)
	r.logger.Database().Info("Subscription stored", "subscriptionId", s.ID, "status", s.Status, "duration", duration)
	database.CheckAndLogSlowQuery(r.logger, query, duration)
	return nil
}

// UpdateStatus changes the status of a known subscription.
func (r *SQLSubscriptionRepository) UpdateStatus(ctx context.Context, id, status string, periodEnd time.Time) error {
	const query = `
		UPDATE subscriptions
		SET status = ?, current_period_end = CASE WHEN ? = '' THEN current_period_end ELSE ? END, updated_at = ?
		WHERE id = ?`

	end := formatOptional(periodEnd)
	res, err := r.db.ExecContext(ctx, query, status, end, end, database.FormatTime(time.Now()), id)
	if err != nil {
		r.logger.Database().Error("Subscription status update failed", "error", err.Error(), "subscriptionId", id)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
	}
	r.logger.Database().Info("Subscription status updated", "subscriptionId", id, "status", status)
	return nil
}

// RecordCheckout stores a new checkout session.
func (r *SQLSubscriptionRepository) RecordCheckout(ctx context.Context, c *user.Checkout) error {
	const query = `
		INSERT INTO checkouts (session_id, user_id, price_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`

	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = user.CheckoutOpen
	}
	_, err := r.db.ExecContext(ctx, query, c.SessionID, c.UserID, c.PriceID, c.Status,
		database.FormatTime(c.CreatedAt), database.FormatTime(c.UpdatedAt))
	if err != nil {
		r.logger.Database().Error("Checkout insert failed", "error", err.Error(), "sessionId", c.SessionID)
		return err
	}
	r.logger.Database().Info("Checkout recorded", "sessionId", c.SessionID, "status", c.Status)
	return nil
}

// SetCheckoutStatus changes the status of a checkout. Sessions created
// elsewhere are inserted so webhook history is complete.
func (r *SQLSubscriptionRepository) SetCheckoutStatus(ctx context.Context, sessionID, status string) error {
	return r.RecordCheckout(ctx, &user.Checkout{SessionID: sessionID, Status: status})
}

// FindCheckout loads a checkout by session id.
func (r *SQLSubscriptionRepository) FindCheckout(ctx context.Context, sessionID string) (*user.Checkout, error) {
	const query = `SELECT session_id, user_id, price_id, status, created_at, updated_at FROM checkouts WHERE session_id = ?`

	var (
		c                user.Checkout
		created, updated string
	)
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(&c.SessionID, &c.UserID, &c.PriceID, &c.Status, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	c.CreatedAt = database.ParseTime(created)
	c.UpdatedAt = database.ParseTime(updated)
	return &c, nil
}

func formatOptional(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return database.FormatTime(t)
}
