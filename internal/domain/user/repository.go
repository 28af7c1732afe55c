// Package user defines the signed-in member records kept by the auth
// database and the repositories that persist them. Artists, listings and
// the rest of the catalog live in the guild API, not here.
package user

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by repositories when no row matches.
var ErrNotFound = errors.New("user record not found")

// Role values carried in the session.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// User is an authenticated guild member.
type User struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Image         string     `json:"image"`
	Role          string     `json:"role"`
	EmailVerified *time.Time `json:"emailVerified,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// SessionUser is the subset of User carried in the session token and
// mirrored into page state.
type SessionUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image"`
	Role  string `json:"role"`
}

// Session returns the session view of u.
func (u *User) Session() SessionUser {
	return SessionUser{ID: u.ID, Name: u.Name, Email: u.Email, Image: u.Image, Role: u.Role}
}

// DisplayName falls back to the email local part.
func (s SessionUser) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	for i := 0; i < len(s.Email); i++ {
		if s.Email[i] == '@' {
			return s.Email[:i]
		}
	}
	return s.Email
}

// Account links a user to an identity provider.
type Account struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	Provider          string    `json:"provider"`
	ProviderAccountID string    `json:"providerAccountId"`
	CreatedAt         time.Time `json:"createdAt"`
}

// VerificationToken is a pending email sign-in. Only the hash of the token
// sent by mail is stored.
type VerificationToken struct {
	Identifier string    `json:"identifier"`
	TokenHash  string    `json:"-"`
	Expires    time.Time `json:"expires"`
}

// Expired reports whether the token can no longer be used at now.
func (v *VerificationToken) Expired(now time.Time) bool {
	return !now.Before(v.Expires)
}

// Subscription statuses.
const (
	SubscriptionActive   = "active"
	SubscriptionPastDue  = "past_due"
	SubscriptionCanceled = "canceled"
)

// Subscription is a member's paid plan as last reported by the payment
// provider.
type Subscription struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	CustomerID       string    `json:"customerId"`
	PriceID          string    `json:"priceId"`
	Status           string    `json:"status"`
	CurrentPeriodEnd time.Time `json:"currentPeriodEnd"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Checkout statuses.
const (
	CheckoutOpen      = "open"
	CheckoutCompleted = "completed"
	CheckoutExpired   = "expired"
)

// Checkout records one hosted checkout session.
type Checkout struct {
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	PriceID   string    `json:"priceId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserRepository persists users and their provider accounts.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByAccount(ctx context.Context, provider, providerAccountID string) (*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	LinkAccount(ctx context.Context, a *Account) error
}

// VerificationTokenRepository persists pending email sign-ins.
type VerificationTokenRepository interface {
	Create(ctx context.Context, t *VerificationToken) error
	// Consume deletes and returns the first token for identifier accepted by
	// match. ErrNotFound when none is.
	Consume(ctx context.Context, identifier string, match func(*VerificationToken) bool) (*VerificationToken, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SubscriptionRepository persists subscriptions and checkout sessions.
type SubscriptionRepository interface {
	FindByUserID(ctx context.Context, userID string) (*Subscription, error)
	Upsert(ctx context.Context, s *Subscription) error
	UpdateStatus(ctx context.Context, id, status string, periodEnd time.Time) error
	RecordCheckout(ctx context.Context, c *Checkout) error
	SetCheckoutStatus(ctx context.Context, sessionID, status string) error
	FindCheckout(ctx context.Context, sessionID string) (*Checkout, error)
}
