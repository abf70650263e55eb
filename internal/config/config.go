package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	Channel  ChannelConfig
	LLM      LLMConfig
	Catalog  CatalogConfig
	Timezone string

	// PlansFile pins the plan catalog to one file. Empty means the holder
	// searches its default paths.
	PlansFile string

	SeedInviteCode string
}

// ChannelConfig carries the messaging-channel surface settings plus the
// fallback credentials used when a phone number id has no tenant binding.
type ChannelConfig struct {
	VerifyToken   string
	AppSecret     string
	GraphBaseURL  string
	AccessToken   string
	PhoneNumberID string
	CatalogID     string
}

// ProviderConfig describes one chat-completion provider.
type ProviderConfig struct {
	Name    string
	BaseURL string
	APIKey  string
	Model   string
}

// LLMConfig lists extraction providers in fallback order. Providers without
// an API key are skipped when the chain is assembled.
type LLMConfig struct {
	Providers []ProviderConfig
}

// CatalogConfig points at the external commerce directory used for
// best-effort catalog imports.
type CatalogConfig struct {
	BaseURL string
	APIKey  string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "ordena"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":3000"),

		DBType:            getenv("DATABASE_TYPE", "sqlite"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "ordena"),
		DBUser:            getenv("DATABASE_USER", "ordena"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),

		Channel: ChannelConfig{
			VerifyToken:   strings.TrimSpace(getenv("META_VERIFY_TOKEN", "")),
			AppSecret:     strings.TrimSpace(getenv("META_APP_SECRET", "")),
			GraphBaseURL:  getenv("META_GRAPH_BASE_URL", "https://graph.facebook.com/v20.0"),
			AccessToken:   strings.TrimSpace(getenv("META_ACCESS_TOKEN", "")),
			PhoneNumberID: strings.TrimSpace(getenv("META_PHONE_NUMBER_ID", "")),
			CatalogID:     strings.TrimSpace(getenv("META_CATALOG_ID", "")),
		},

		LLM: LLMConfig{
			Providers: []ProviderConfig{
				{
					Name:    "groq",
					BaseURL: getenv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
					APIKey:  strings.TrimSpace(getenv("GROQ_API_KEY", "")),
					Model:   getenv("GROQ_MODEL", "llama-3.3-70b-versatile"),
				},
				{
					Name:    "cerebras",
					BaseURL: getenv("CEREBRAS_BASE_URL", "https://api.cerebras.ai/v1"),
					APIKey:  strings.TrimSpace(getenv("CEREBRAS_API_KEY", "")),
					Model:   getenv("CEREBRAS_MODEL", "llama-3.3-70b"),
				},
				{
					Name:    "mistral",
					BaseURL: getenv("MISTRAL_BASE_URL", "https://api.mistral.ai/v1"),
					APIKey:  strings.TrimSpace(getenv("MISTRAL_API_KEY", "")),
					Model:   getenv("MISTRAL_MODEL", "mistral-small-latest"),
				},
				{
					Name:    "openrouter",
					BaseURL: getenv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
					APIKey:  strings.TrimSpace(getenv("OPENROUTER_API_KEY", "")),
					Model:   getenv("OPENROUTER_MODEL", "meta-llama/llama-3.3-70b-instruct"),
				},
			},
		},

		Catalog: CatalogConfig{
			BaseURL: getenv("CATALOG_SYNC_BASE_URL", ""),
			APIKey:  strings.TrimSpace(getenv("CATALOG_SYNC_API_KEY", "")),
		},

		Timezone: getenv("BUSINESS_TIMEZONE", "America/Argentina/Buenos_Aires"),

		PlansFile: strings.TrimSpace(getenv("PLANS_FILE", "")),

		SeedInviteCode: strings.TrimSpace(getenv("SEED_INVITE_CODE", "")),
	}
}

// DevModeSignatureBypass reports whether webhook signature validation is
// disabled because no app secret is configured.
func (c Config) DevModeSignatureBypass() bool {
	return c.Channel.AppSecret == ""
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
