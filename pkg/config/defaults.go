// Package config provides centralized default values for the guild web server
package config

import (
	"bufio"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		file, err := os.Open(".env")
		if err != nil {
			return
		}
		defer file.Close()

		log.Println("Loading configuration overrides from .env file...")
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())

			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

// getEnvFirst returns the first non-empty value among keys.
func getEnvFirst(defaultValue string, keys ...string) string {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	ReleaseMode        bool
	AllowedOrigins     []string

	// Guild REST API
	APIBaseURL string
	APITimeout time.Duration

	// Authentication
	AuthURL             string
	AuthSecret          string
	GoogleClientID      string
	GoogleClientSecret  string
	AzureADClientID     string
	AzureADClientSecret string
	AzureADTenantID     string
	EmailSignInTTL      time.Duration
	SessionTTL          time.Duration
	DatabaseURL         string
	DBMaxOpenConns      int
	DBMaxIdleConns      int
	DBConnMaxLifetime   time.Duration
	SlowQueryThreshold  time.Duration

	// Blob Storage
	StorageDriver                string
	AzureStorageConnectionString string
	LocalUploadDir               string
	MaxUploadBytes               int64

	// Email
	EmailProvider            string
	EmailFrom                string
	AdminEmail               string
	MailgunAPIKey            string
	MailgunDomain            string
	MailgunWebhookSigningKey string
	MailgunEU                bool
	ResendAPIKey             string

	// Payments
	StripeSecretKey     string
	StripeWebhookSecret string

	// Caches
	ContentCacheTTL time.Duration
	PageStateTTL    time.Duration
	CleanupInterval time.Duration
	CleanupVerbose  bool

	// Logging
	LogLevel string
	LogDir   string
	LogJSON  bool

	// Site configuration file
	SiteConfigPath string
)

func init() {
	Load()
}

// Load reads the environment into the package variables. init calls it once;
// tests call it again after t.Setenv.
func Load() {
	loadEnvFile()

	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)
	ReleaseMode = getEnvString("GIN_MODE", "") == "release"
	AllowedOrigins = splitList(getEnvString("ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000"))

	APIBaseURL = getEnvFirst("http://localhost:8000/", "TAG_API_URL", "NEXT_PUBLIC_TAG_API_URL")
	APITimeout = getEnvDuration("API_TIMEOUT", 15*time.Second)

	AuthURL = strings.TrimRight(getEnvFirst("http://localhost:8080", "AUTH_URL", "NEXTAUTH_URL"), "/")
	AuthSecret = getEnvFirst("", "AUTH_SECRET", "NEXTAUTH_SECRET")
	GoogleClientID = getEnvString("GOOGLE_CLIENT_ID", "")
	GoogleClientSecret = getEnvString("GOOGLE_CLIENT_SECRET", "")
	AzureADClientID = getEnvString("AZURE_AD_CLIENT_ID", "")
	AzureADClientSecret = getEnvString("AZURE_AD_CLIENT_SECRET", "")
	AzureADTenantID = getEnvString("AZURE_AD_TENANT_ID", "common")
	EmailSignInTTL = time.Duration(getEnvInt("EMAIL_SIGNIN_TTL_HOURS", 24)) * time.Hour
	SessionTTL = time.Duration(getEnvInt("SESSION_TTL_DAYS", 30)) * 24 * time.Hour
	DatabaseURL = getEnvString("DATABASE_URL", "tag-web.db")
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	DBConnMaxLifetime = time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)) * time.Minute
	SlowQueryThreshold = getEnvDuration("SLOW_QUERY_THRESHOLD", 100*time.Millisecond)

	StorageDriver = getEnvString("STORAGE_DRIVER", "local")
	AzureStorageConnectionString = getEnvString("AZURE_STORAGE_CONNECTION_STRING", "")
	LocalUploadDir = getEnvString("LOCAL_UPLOAD_DIR", "media")
	MaxUploadBytes = int64(getEnvInt("MAX_UPLOAD_MB", 20)) << 20

	EmailProvider = getEnvString("EMAIL_PROVIDER", "log")
	EmailFrom = getEnvString("EMAIL_FROM", "Twisted Artists Guild <noreply@twistedartistsguild.com>")
	AdminEmail = getEnvString("ADMIN_EMAIL", "")
	MailgunAPIKey = getEnvString("MAILGUN_API_KEY", "")
	MailgunDomain = getEnvString("MAILGUN_DOMAIN", "")
	MailgunWebhookSigningKey = getEnvString("MAILGUN_WEBHOOK_SIGNING_KEY", "")
	MailgunEU = getEnvBool("MAILGUN_EU", false)
	ResendAPIKey = getEnvString("RESEND_API_KEY", "")

	StripeSecretKey = getEnvString("STRIPE_SECRET_KEY", "")
	StripeWebhookSecret = getEnvString("STRIPE_WEBHOOK_SECRET", "")

	ContentCacheTTL = time.Duration(getEnvInt("CONTENT_CACHE_TTL_MINUTES", 5)) * time.Minute
	PageStateTTL = time.Duration(getEnvInt("PAGE_STATE_TTL_MINUTES", 60)) * time.Minute
	CleanupInterval = time.Duration(getEnvInt("CLEANUP_INTERVAL_MINUTES", 5)) * time.Minute
	CleanupVerbose = getEnvBool("CLEANUP_VERBOSE", false)

	LogLevel = getEnvString("LOG_LEVEL", "info")
	LogDir = getEnvString("LOG_DIR", "")
	LogJSON = getEnvBool("LOG_JSON", true)

	SiteConfigPath = getEnvString("SITE_CONFIG", "site.yaml")
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Missing reports which of the named credentials are empty. Credentials are
// only presence-checked.
func Missing(values map[string]string) []string {
	var missing []string
	for name, value := range values {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}
