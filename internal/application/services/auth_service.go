package services

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/TwistedArtistsGuild/tag-web/internal/domain/user"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/email"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/email/templates"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/performance"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/security"
)

var (
	ErrUnknownProvider   = errors.New("unknown sign-in provider")
	ErrInvalidState      = errors.New("sign-in state is missing or does not match")
	ErrInvalidSignInLink = errors.New("sign-in link is invalid or has expired")
	ErrInvalidEmail      = errors.New("a valid email address is required")
)

const stateTTL = 10 * time.Minute

// AuthConfig carries the auth settings read from the environment.
type AuthConfig struct {
	BaseURL    string
	Secret     string
	SessionTTL time.Duration
	EmailTTL   time.Duration
	SiteName   string
	From       string
}

// ProviderInfo describes a sign-in option for the providers endpoint.
type ProviderInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	SignInURL   string `json:"signinUrl"`
	CallbackURL string `json:"callbackUrl"`
}

// SignInResult is a completed sign-in.
type SignInResult struct {
	Token       string
	User        user.SessionUser
	CallbackURL string
}

type oauthState struct {
	State       string    `json:"s"`
	Provider    string    `json:"p"`
	CallbackURL string    `json:"c"`
	Expires     time.Time `json:"e"`
}

// AuthService signs members in with OAuth providers or an emailed link and
// issues session tokens.
type AuthService struct {
	cfg         AuthConfig
	providers   map[string]*OAuthProvider
	users       user.UserRepository
	tokens      user.VerificationTokenRepository
	mailer      email.Mailer
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
	now         func() time.Time
}

// NewAuthService creates the auth service. mailer may be nil, which disables
// email sign-in.
func NewAuthService(cfg AuthConfig, providers []*OAuthProvider, users user.UserRepository, tokens user.VerificationTokenRepository, mailer email.Mailer, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AuthService {
	byID := make(map[string]*OAuthProvider, len(providers))
	for _, p := range providers {
		byID[p.ID] = p
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &AuthService{
		cfg:         cfg,
		providers:   byID,
		users:       users,
		tokens:      tokens,
		mailer:      mailer,
		logger:      logger,
		perfTracker: perfTracker,
		now:         time.Now,
	}
}

// Providers lists the enabled sign-in options in a stable order.
func (a *AuthService) Providers() []ProviderInfo {
	var out []ProviderInfo
	for _, p := range a.providers {
		out = append(out, ProviderInfo{
			ID:          p.ID,
			Name:        p.Name,
			Type:        "oauth",
			SignInURL:   a.cfg.BaseURL + "/api/auth/signin/" + p.ID,
			CallbackURL: a.cfg.BaseURL + "/api/auth/callback/" + p.ID,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if a.mailer != nil {
		out = append(out, ProviderInfo{
			ID:          ProviderEmail,
			Name:        "Email",
			Type:        "email",
			SignInURL:   a.cfg.BaseURL + "/api/auth/signin/email",
			CallbackURL: a.cfg.BaseURL + "/api/auth/callback/email",
		})
	}
	return out
}

// SafeCallbackURL keeps post-sign-in redirects on this site.
func (a *AuthService) SafeCallbackURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "/"
	}
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") && !strings.HasPrefix(raw, "/\\") {
		return raw
	}
	if a.cfg.BaseURL != "" && (raw == a.cfg.BaseURL || strings.HasPrefix(raw, a.cfg.BaseURL+"/")) {
		if rest := strings.TrimPrefix(raw, a.cfg.BaseURL); rest != "" {
			return rest
		}
	}
	return "/"
}

// BeginOAuth returns the provider redirect and the sealed state cookie value
// that CompleteOAuth checks.
func (a *AuthService) BeginOAuth(providerID, callbackURL string) (redirect, stateCookie string, err error) {
	p, ok := a.providers[providerID]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownProvider, providerID)
	}
	state, err := security.GenerateSecureToken(32)
	if err != nil {
		return "", "", err
	}
	payload, err := json.Marshal(oauthState{
		State:       state,
		Provider:    providerID,
		CallbackURL: a.SafeCallbackURL(callbackURL),
		Expires:     a.now().Add(stateTTL),
	})
	if err != nil {
		return "", "", err
	}
	sealed, err := security.Seal(string(payload), a.cfg.Secret)
	if err != nil {
		return "", "", err
	}
	return p.Config.AuthCodeURL(state, oauth2.AccessTypeOnline), sealed, nil
}

// CompleteOAuth validates state, exchanges the code and signs the user in,
// creating and linking the account on first use.
func (a *AuthService) CompleteOAuth(ctx context.Context, providerID, code, state, stateCookie string) (*SignInResult, error) {
	marker := a.perfTracker.StartOperation("oauth_callback", providerID)
	defer marker.Complete()

	p, ok := a.providers[providerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, providerID)
	}

	saved, err := a.openState(stateCookie)
	if err != nil || saved.Provider != providerID || state == "" ||
		subtle.ConstantTimeCompare([]byte(saved.State), []byte(state)) != 1 {
		a.logger.LogAuthOperation("oauth_callback", "", false, map[string]any{"provider": providerID, "reason": "state"})
		marker.SetError(ErrInvalidState)
		return nil, ErrInvalidState
	}
	if code == "" {
		return nil, fmt.Errorf("%s callback has no code", providerID)
	}

	id, err := p.FetchIdentity(ctx, code)
	if err != nil {
		a.logger.LogAuthOperation("oauth_callback", "", false, map[string]any{"provider": providerID, "error": err.Error()})
		marker.SetError(err)
		return nil, err
	}

	u, err := a.resolveOAuthUser(ctx, p, id)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}
	return a.issue(u, providerID, saved.CallbackURL)
}

func (a *AuthService) openState(sealed string) (*oauthState, error) {
	if sealed == "" {
		return nil, ErrInvalidState
	}
	raw, err := security.Open(sealed, a.cfg.Secret)
	if err != nil {
		return nil, err
	}
	var s oauthState
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, err
	}
	if !a.now().Before(s.Expires) {
		return nil, ErrInvalidState
	}
	return &s, nil
}

func (a *AuthService) resolveOAuthUser(ctx context.Context, p *OAuthProvider, id *Identity) (*user.User, error) {
	u, err := a.users.FindByAccount(ctx, p.ID, id.Subject)
	if err == nil {
		return a.refreshProfile(ctx, u, id)
	}
	if !errors.Is(err, user.ErrNotFound) {
		return nil, err
	}

	if id.Email != "" && (id.EmailVerified || p.TrustEmail) {
		u, err = a.users.FindByEmail(ctx, id.Email)
		if err != nil && !errors.Is(err, user.ErrNotFound) {
			return nil, err
		}
	}
	if u == nil {
		u = &user.User{Name: id.Name, Email: id.Email, Image: id.Picture}
		if id.EmailVerified {
			verified := a.now().UTC()
			u.EmailVerified = &verified
		}
		if err := a.users.Create(ctx, u); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		a.logger.Auth().Info("User created", "userId", logging.MaskID(u.ID), "provider", p.ID)
	}

	if err := a.users.LinkAccount(ctx, &user.Account{UserID: u.ID, Provider: p.ID, ProviderAccountID: id.Subject}); err != nil {
		return nil, fmt.Errorf("failed to link %s account: %w", p.ID, err)
	}
	return u, nil
}

// refreshProfile fills blank profile fields from the provider.
func (a *AuthService) refreshProfile(ctx context.Context, u *user.User, id *Identity) (*user.User, error) {
	changed := false
	if u.Name == "" && id.Name != "" {
		u.Name, changed = id.Name, true
	}
	if u.Image == "" && id.Picture != "" {
		u.Image, changed = id.Picture, true
	}
	if !changed {
		return u, nil
	}
	if err := a.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// RequestEmailSignIn mails a one-time sign-in link to address.
func (a *AuthService) RequestEmailSignIn(ctx context.Context, address, callbackURL string) error {
	if a.mailer == nil {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, ProviderEmail)
	}
	parsed, err := mail.ParseAddress(strings.TrimSpace(address))
	if err != nil {
		return ErrInvalidEmail
	}
	addr := strings.ToLower(parsed.Address)

	token, err := security.GenerateSecureToken(32)
	if err != nil {
		return err
	}
	hash, err := security.HashToken(token)
	if err != nil {
		return err
	}
	if err := a.tokens.Create(ctx, &user.VerificationToken{
		Identifier: addr,
		TokenHash:  hash,
		Expires:    a.now().Add(a.cfg.EmailTTL),
	}); err != nil {
		return fmt.Errorf("failed to store sign-in token: %w", err)
	}

	q := url.Values{}
	q.Set("token", token)
	q.Set("email", addr)
	q.Set("callbackUrl", a.SafeCallbackURL(callbackURL))
	link := a.cfg.BaseURL + "/api/auth/callback/email?" + q.Encode()

	content := templates.GetSignInEmailContent(templates.SignInEmailProps{
		SiteName:  a.cfg.SiteName,
		SignInURL: link,
		ExpiresIn: humanDuration(a.cfg.EmailTTL),
	})
	msg := email.Message{
		From:    a.cfg.From,
		To:      []string{addr},
		Subject: "Sign in to " + a.cfg.SiteName,
		Text:    fmt.Sprintf("Sign in to %s\n%s\n\nIf you did not request this email you can safely ignore it.", a.cfg.SiteName, link),
		HTML: templates.GetEmailLayout(templates.EmailLayoutProps{
			Title:     "Sign in to " + a.cfg.SiteName,
			Preheader: "Your sign-in link",
			Content:   content,
			SiteURL:   a.cfg.BaseURL,
		}),
	}
	id, err := a.mailer.Send(ctx, msg)
	if err != nil {
		a.logger.LogAuthOperation("email_signin_request", "", false, map[string]any{"error": err.Error()})
		return fmt.Errorf("failed to send sign-in email: %w", err)
	}
	a.logger.Auth().Info("Sign-in email sent", "provider", a.mailer.Name(), "messageId", id)
	return nil
}

// CompleteEmailSignIn redeems a link from RequestEmailSignIn. Only the
// matching token is spent, so a wrong guess leaves a real link usable.
func (a *AuthService) CompleteEmailSignIn(ctx context.Context, address, token, callbackURL string) (*SignInResult, error) {
	addr := strings.ToLower(strings.TrimSpace(address))
	if addr == "" || token == "" {
		return nil, ErrInvalidSignInLink
	}

	now := a.now()
	_, err := a.tokens.Consume(ctx, addr, func(t *user.VerificationToken) bool {
		return !t.Expired(now) && security.CompareToken(t.TokenHash, token)
	})
	if errors.Is(err, user.ErrNotFound) {
		a.logger.LogAuthOperation("email_signin", "", false, map[string]any{"reason": "no matching link"})
		return nil, ErrInvalidSignInLink
	}
	if err != nil {
		return nil, err
	}

	verified := now.UTC()
	u, err := a.users.FindByEmail(ctx, addr)
	switch {
	case errors.Is(err, user.ErrNotFound):
		u = &user.User{Email: addr, EmailVerified: &verified}
		if err := a.users.Create(ctx, u); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		a.logger.Auth().Info("User created", "userId", logging.MaskID(u.ID), "provider", ProviderEmail)
	case err != nil:
		return nil, err
	case u.EmailVerified == nil:
		u.EmailVerified = &verified
		if err := a.users.Update(ctx, u); err != nil {
			return nil, err
		}
	}
	return a.issue(u, ProviderEmail, a.SafeCallbackURL(callbackURL))
}

func (a *AuthService) issue(u *user.User, provider, callbackURL string) (*SignInResult, error) {
	session := u.Session()
	token, err := security.IssueSessionToken(session, a.cfg.Secret, a.cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	a.logger.LogAuthOperation("signin", u.ID, true, map[string]any{"provider": provider})
	return &SignInResult{Token: token, User: session, CallbackURL: callbackURL}, nil
}

// ParseSession decodes a session cookie.
func (a *AuthService) ParseSession(token string) (*user.SessionUser, error) {
	return security.ParseSessionToken(token, a.cfg.Secret)
}

// SessionTTL is the lifetime of issued session tokens.
func (a *AuthService) SessionTTL() time.Duration { return a.cfg.SessionTTL }

// CleanupExpiredTokens deletes sign-in links past expiry.
func (a *AuthService) CleanupExpiredTokens(ctx context.Context, now time.Time) (int, error) {
	n, err := a.tokens.DeleteExpired(ctx, now)
	return int(n), err
}

func humanDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return ""
	case d%(24*time.Hour) == 0 && d >= 48*time.Hour:
		return fmt.Sprintf("%d days", d/(24*time.Hour))
	case d%time.Hour == 0:
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", d/time.Hour)
	default:
		return d.String()
	}
}
