package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
)

// Provider ids used in routes and the accounts table.
const (
	ProviderGoogle  = "google"
	ProviderAzureAD = "azure-ad"
	ProviderEmail   = "email"
)

// Identity is what an OAuth provider tells us about the signed-in person.
type Identity struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// OAuthProvider is one configured OAuth2 code-flow sign-in.
type OAuthProvider struct {
	ID          string
	Name        string
	Config      *oauth2.Config
	UserInfoURL string
	// TrustEmail links a first sign-in to an existing user with the same
	// email even when the provider does not mark it verified.
	TrustEmail bool
}

// NewGoogleProvider configures Google sign-in.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *OAuthProvider {
	return &OAuthProvider{
		ID:   ProviderGoogle,
		Name: "Google",
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		UserInfoURL: "https://openidconnect.googleapis.com/v1/userinfo",
	}
}

// NewAzureADProvider configures Microsoft Entra ID sign-in for tenant.
func NewAzureADProvider(clientID, clientSecret, tenant, redirectURL string) *OAuthProvider {
	if tenant == "" {
		tenant = "common"
	}
	return &OAuthProvider{
		ID:   ProviderAzureAD,
		Name: "Azure Active Directory",
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     microsoft.AzureADEndpoint(tenant),
			Scopes:       []string{"openid", "email", "profile", "User.Read"},
		},
		UserInfoURL: "https://graph.microsoft.com/oidc/userinfo",
		TrustEmail:  true,
	}
}

// FetchIdentity exchanges code for a token and reads the user info endpoint.
func (p *OAuthProvider) FetchIdentity(ctx context.Context, code string) (*Identity, error) {
	token, err := p.Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s code exchange failed: %w", p.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.Config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s userinfo request failed: %w", p.ID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s userinfo returned %d", p.ID, resp.StatusCode)
	}

	var id Identity
	if err := json.Unmarshal(body, &id); err != nil {
		return nil, fmt.Errorf("%s userinfo is not JSON: %w", p.ID, err)
	}
	if id.Subject == "" {
		return nil, fmt.Errorf("%s userinfo has no subject", p.ID)
	}
	return &id, nil
}
