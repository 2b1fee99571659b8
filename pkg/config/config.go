package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/gatekeeper/pkg/observability"
	"github.com/platinummonkey/gatekeeper/pkg/sso"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	SSO           SSOConfig
	Store         StoreConfig
	Directory     DirectoryConfig
	Providers     ProvidersConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Ops server (health/metrics) on a separate port for probes
	OpsPort string
}

// SSOConfig holds the single sign-on orchestration settings
type SSOConfig struct {
	Mode               sso.Mode
	License            string
	CallbackURL        string
	DefaultOrgID       string
	SubscriptionActive bool
	GoogleMode         string
	DuoMode            sso.DuoFactor
	SlackTeam          string
	SAMLURL            string
	SAMLIssuerURL      string
	SAMLCert           string
}

// StoreConfig holds the exchange token store settings
type StoreConfig struct {
	// Type is "redis" or "memory"
	Type     string
	RedisURL string
	TTL      time.Duration
}

// DirectoryConfig holds the user directory settings
type DirectoryConfig struct {
	PostgresURL  string
	OrgCacheSize int
	OrgCacheTTL  time.Duration
}

// ProvidersConfig holds the external provider client settings
type ProvidersConfig struct {
	BrokerURL string
	Timeout   time.Duration

	DuoHost            string
	DuoIntegrationKey  string
	DuoSecretKey       string
	YubicoURL          string
	YubicoClientID     string
	YubicoAPIKey       string
	GoogleEndpoint     string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleTokenURL     string
}

// ObservabilityConfig holds logging and audit settings
type ObservabilityConfig struct {
	LogLevel observability.LogLevel
	AuditLog string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("GATEKEEPER_HOST", "0.0.0.0"),
			Port:            getEnv("GATEKEEPER_PORT", "8080"),
			ReadTimeout:     getEnvDuration("GATEKEEPER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("GATEKEEPER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("GATEKEEPER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("GATEKEEPER_SHUTDOWN_TIMEOUT", 30*time.Second),
			OpsPort:         getEnv("GATEKEEPER_OPS_PORT", "9090"),
		},
		SSO: SSOConfig{
			Mode:               sso.Mode(getEnv("GATEKEEPER_SSO_MODE", "")),
			License:            getEnv("GATEKEEPER_LICENSE", ""),
			CallbackURL:        getEnv("GATEKEEPER_CALLBACK_URL", ""),
			DefaultOrgID:       getEnv("GATEKEEPER_DEFAULT_ORG", ""),
			SubscriptionActive: getEnvBool("GATEKEEPER_SUBSCRIPTION_ACTIVE", false),
			GoogleMode:         getEnv("GATEKEEPER_GOOGLE_MODE", "orgs"),
			DuoMode:            sso.DuoFactor(getEnv("GATEKEEPER_DUO_MODE", "push")),
			SlackTeam:          getEnv("GATEKEEPER_SLACK_TEAM", ""),
			SAMLURL:            getEnv("GATEKEEPER_SAML_URL", ""),
			SAMLIssuerURL:      getEnv("GATEKEEPER_SAML_ISSUER_URL", ""),
			SAMLCert:           getEnv("GATEKEEPER_SAML_CERT", ""),
		},
		Store: StoreConfig{
			Type:     getEnv("GATEKEEPER_STORE_TYPE", "redis"),
			RedisURL: getEnv("GATEKEEPER_REDIS_URL", "redis://localhost:6379/0"),
			TTL:      getEnvDuration("GATEKEEPER_EXCHANGE_TTL", sso.DefaultExchangeTTL),
		},
		Directory: DirectoryConfig{
			PostgresURL:  getEnv("GATEKEEPER_POSTGRES_URL", ""),
			OrgCacheSize: getEnvInt("GATEKEEPER_ORG_CACHE_SIZE", 128),
			OrgCacheTTL:  getEnvDuration("GATEKEEPER_ORG_CACHE_TTL", time.Minute),
		},
		Providers: ProvidersConfig{
			BrokerURL:          getEnv("GATEKEEPER_BROKER_URL", "https://auth.gatekeeper.io"),
			Timeout:            getEnvDuration("GATEKEEPER_PROVIDER_TIMEOUT", 15*time.Second),
			DuoHost:            getEnv("GATEKEEPER_DUO_HOST", ""),
			DuoIntegrationKey:  getEnv("GATEKEEPER_DUO_IKEY", ""),
			DuoSecretKey:       getEnv("GATEKEEPER_DUO_SKEY", ""),
			YubicoURL:          getEnv("GATEKEEPER_YUBICO_URL", "https://api.yubico.com"),
			YubicoClientID:     getEnv("GATEKEEPER_YUBICO_CLIENT_ID", ""),
			YubicoAPIKey:       getEnv("GATEKEEPER_YUBICO_API_KEY", ""),
			GoogleEndpoint:     getEnv("GATEKEEPER_GOOGLE_ENDPOINT", ""),
			GoogleClientID:     getEnv("GATEKEEPER_GOOGLE_CLIENT_ID", ""),
			GoogleClientSecret: getEnv("GATEKEEPER_GOOGLE_CLIENT_SECRET", ""),
			GoogleTokenURL:     getEnv("GATEKEEPER_GOOGLE_TOKEN_URL", ""),
		},
		Observability: ObservabilityConfig{
			LogLevel: observability.ParseLogLevel(getEnv("GATEKEEPER_LOG_LEVEL", "info")),
			AuditLog: getEnv("GATEKEEPER_AUDIT_LOG", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.OpsPort == "" {
		return fmt.Errorf("ops port is required")
	}
	if c.Server.Port == c.Server.OpsPort {
		return fmt.Errorf("server port and ops port must be different")
	}

	if c.SSO.Mode == "" {
		return fmt.Errorf("sso mode is required")
	}
	if !c.SSO.Mode.Valid() {
		return fmt.Errorf("invalid sso mode: %s", c.SSO.Mode)
	}
	if c.SSO.CallbackURL == "" {
		return fmt.Errorf("callback URL is required")
	}
	if c.SSO.DefaultOrgID == "" {
		return fmt.Errorf("default organization is required")
	}

	switch c.Store.Type {
	case "redis":
		if c.Store.RedisURL == "" {
			return fmt.Errorf("redis URL is required for redis store")
		}
	case "memory":
	default:
		return fmt.Errorf("invalid store type: %s (must be redis or memory)", c.Store.Type)
	}

	if c.Directory.PostgresURL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.SSO.Mode.Family() != "" && c.Providers.BrokerURL == "" {
		return fmt.Errorf("broker URL is required for mode %s", c.SSO.Mode)
	}
	if c.SSO.Mode.RequiresDuo() && c.Providers.DuoHost == "" {
		return fmt.Errorf("duo host is required for mode %s", c.SSO.Mode)
	}

	return nil
}

// Settings builds the immutable sso.Settings injected into the core
// components.
func (c *Config) Settings() *sso.Settings {
	return &sso.Settings{
		Mode:               c.SSO.Mode,
		License:            c.SSO.License,
		CallbackURL:        c.SSO.CallbackURL,
		DefaultOrgID:       c.SSO.DefaultOrgID,
		SubscriptionActive: c.SSO.SubscriptionActive,
		GoogleMode:         c.SSO.GoogleMode,
		DuoMode:            c.SSO.DuoMode,
		SlackTeam:          c.SSO.SlackTeam,
		SAMLURL:            c.SSO.SAMLURL,
		SAMLIssuerURL:      c.SSO.SAMLIssuerURL,
		SAMLCert:           c.SSO.SAMLCert,
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
