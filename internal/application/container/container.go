// Package container provides dependency injection for all singleton services
package container

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/TwistedArtistsGuild/tag-web/internal/application/services"
	"github.com/TwistedArtistsGuild/tag-web/internal/domain/entities/forms"
	"github.com/TwistedArtistsGuild/tag-web/internal/domain/optimistic"
	"github.com/TwistedArtistsGuild/tag-web/internal/domain/pagestate"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/api"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/blob"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/caching/cleanup"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/caching/stores"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/email"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/media"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/messaging"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/performance"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/payments"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/persistence/database"
	userrepo "github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/persistence/user"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/security"
	"github.com/TwistedArtistsGuild/tag-web/pkg/config"
)

// DefaultContainer is the container uploads go to when none is named.
const DefaultContainer = "uploads"

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Application Services
	CatalogService   *services.CatalogService
	ReactionService  *services.ReactionService
	AuthService      *services.AuthService
	CheckoutService  *services.CheckoutService
	EmailService     *services.EmailService
	BlobService      *services.BlobService
	FormService      *services.FormService
	PageStateManager *services.PageStateManager

	// Caches
	ContentCache *stores.TTLStore[any]
	Counters     *stores.TTLStore[*optimistic.Counter]
	FormSchemas  *stores.TTLStore[*forms.Schema]
	Visitors     *stores.TTLStore[*pagestate.Store]

	// Infrastructure Dependencies
	Site          *config.Site
	DB            *database.DB
	API           *api.Client
	Hub           *messaging.ReactionHub
	CleanupWorker *cleanup.Worker
	Logger        *logging.ChanneledLogger
	PerfTracker   *performance.Tracker
}

// NewLoggerConfig maps LOG_LEVEL, LOG_DIR and LOG_JSON onto the logger.
func NewLoggerConfig() *logging.LoggerConfig {
	cfg := logging.DefaultLoggerConfig()
	cfg.JSONFormat = config.LogJSON
	if config.LogDir != "" {
		cfg.OutputToFile = true
		cfg.LogDirectory = config.LogDir
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(config.LogLevel)); err == nil {
		cfg.DefaultLevel = level
	}
	return cfg
}

// NewContainer opens the auth database, connects the external providers and
// wires every service. The caller owns Close.
func NewContainer(ctx context.Context, site *config.Site, logger *logging.ChanneledLogger) (*Container, error) {
	perfTracker := performance.NewTracker(performance.DefaultTrackerConfig(), logger.Perf())

	db, err := database.NewConnectionWithLogger(ctx, config.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open auth database: %w", err)
	}
	if err := database.Migrate(ctx, db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate auth database: %w", err)
	}

	c, err := wire(site, db, logger, perfTracker)
	if err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func wire(site *config.Site, db *database.DB, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) (*Container, error) {
	client, err := api.NewClient(api.Config{BaseURL: config.APIBaseURL, Timeout: config.APITimeout}, logger)
	if err != nil {
		return nil, err
	}

	mailer, err := email.NewMailer(logger)
	if err != nil {
		return nil, err
	}

	storage, err := blob.FromConfig(logger)
	if err != nil {
		return nil, err
	}

	secret := config.AuthSecret
	if secret == "" {
		secret, err = security.GenerateSecureKey(32)
		if err != nil {
			return nil, err
		}
		logger.Startup().Warn("AUTH_SECRET is not set; sessions will not survive a restart")
	}

	users := userrepo.NewSQLUserRepository(db, logger)
	tokens := userrepo.NewSQLVerificationTokenRepository(db, logger)
	subscriptions := userrepo.NewSQLSubscriptionRepository(db, logger)

	c := &Container{
		ContentCache: stores.NewTTLStore[any]("content", config.ContentCacheTTL, logger),
		Counters:     stores.NewTTLStore[*optimistic.Counter]("counters", config.ContentCacheTTL, logger),
		FormSchemas:  stores.NewTTLStore[*forms.Schema]("form_schemas", config.ContentCacheTTL, logger),
		Visitors:     stores.NewTTLStore[*pagestate.Store]("visitors", config.PageStateTTL, logger),
		Site:         site,
		DB:           db,
		API:          client,
		Hub:          messaging.NewReactionHub(logger, config.AllowedOrigins),
		Logger:       logger,
		PerfTracker:  perfTracker,
	}

	c.CatalogService = services.NewCatalogService(client, c.ContentCache, logger)
	c.ReactionService = services.NewReactionService(client, c.CatalogService, c.Counters, c.Hub, logger)
	c.AuthService = services.NewAuthService(services.AuthConfig{
		BaseURL:    config.AuthURL,
		Secret:     secret,
		SessionTTL: config.SessionTTL,
		EmailTTL:   config.EmailSignInTTL,
		SiteName:   site.SEO.SiteName,
		From:       config.EmailFrom,
	}, oauthProviders(logger), users, tokens, mailer, logger, perfTracker)
	c.CheckoutService = services.NewCheckoutService(
		payments.NewStripe(config.StripeSecretKey, config.StripeWebhookSecret, nil), subscriptions, config.AuthURL, logger)
	c.EmailService = services.NewEmailService(mailer, inboundVerifier(logger), config.EmailFrom, config.AdminEmail, config.AuthURL, logger)
	c.BlobService = services.NewBlobService(storage, media.NewImageProcessor(), config.MaxUploadBytes, DefaultContainer, logger)
	c.FormService = services.NewFormService(client, c.FormSchemas, c.BlobService, logger)
	c.PageStateManager = services.NewPageStateManager(c.Visitors, site.DefaultTheme, logger)

	c.CleanupWorker = cleanup.NewWorker(cleanup.NewConfig(), logger, c.ContentCache, c.Counters, c.FormSchemas, c.Visitors)
	c.CleanupWorker.AddTask(cleanup.Task{
		Name: "expired_signin_tokens",
		Run:  c.AuthService.CleanupExpiredTokens,
	})

	logger.Startup().Info("Services wired",
		"apiBaseUrl", client.BaseURL(),
		"emailProvider", mailer.Name(),
		"storageDriver", storage.Driver(),
		"payments", config.StripeSecretKey != "")
	return c, nil
}

func oauthProviders(logger *logging.ChanneledLogger) []*services.OAuthProvider {
	var providers []*services.OAuthProvider
	callback := func(id string) string { return strings.TrimRight(config.AuthURL, "/") + "/api/auth/callback/" + id }

	if missing := config.Missing(map[string]string{
		"GOOGLE_CLIENT_ID":     config.GoogleClientID,
		"GOOGLE_CLIENT_SECRET": config.GoogleClientSecret,
	}); len(missing) == 0 {
		providers = append(providers, services.NewGoogleProvider(config.GoogleClientID, config.GoogleClientSecret, callback(services.ProviderGoogle)))
	} else {
		logger.Startup().Info("Google sign-in disabled", "missing", missing)
	}

	if missing := config.Missing(map[string]string{
		"AZURE_AD_CLIENT_ID":     config.AzureADClientID,
		"AZURE_AD_CLIENT_SECRET": config.AzureADClientSecret,
	}); len(missing) == 0 {
		providers = append(providers, services.NewAzureADProvider(config.AzureADClientID, config.AzureADClientSecret, config.AzureADTenantID, callback(services.ProviderAzureAD)))
	} else {
		logger.Startup().Info("Azure AD sign-in disabled", "missing", missing)
	}
	return providers
}

func inboundVerifier(logger *logging.ChanneledLogger) email.Verifier {
	if config.MailgunWebhookSigningKey == "" {
		logger.Startup().Warn("MAILGUN_WEBHOOK_SIGNING_KEY is not set; inbound mail is accepted unsigned")
		return nil
	}
	return email.NewMailgunVerifier(config.MailgunDomain, config.MailgunWebhookSigningKey)
}

// Close releases the hub and the database.
func (c *Container) Close() error {
	c.Hub.Close()
	return c.DB.Close()
}
