package config

import (
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// minTokenSecretBytes is the shortest HMAC key accepted outside development.
const minTokenSecretBytes = 32

type Config struct {
	Port               string        `mapstructure:"PORT"`
	Env                string        `mapstructure:"ENV"`
	DatabaseURL        string        `mapstructure:"DATABASE_URL"`
	DBMaxConns         int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns         int32         `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins        []string      `mapstructure:"CORS_ORIGINS"`
	TokenSecret        string        `mapstructure:"TOKEN_SECRET"`
	TokenIssuer        string        `mapstructure:"TOKEN_ISSUER"`
	BcryptCost         int           `mapstructure:"BCRYPT_COST"`
	GoogleClientID     string        `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string        `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string        `mapstructure:"GOOGLE_REDIRECT_URL"`
	GoogleIssuer       string        `mapstructure:"GOOGLE_ISSUER"`
	RateLimitRPS       float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst     int           `mapstructure:"RATE_LIMIT_BURST"`
	AuthRateLimitRPS   float64       `mapstructure:"AUTH_RATE_LIMIT_RPS"`
	AuthRateLimitBurst int           `mapstructure:"AUTH_RATE_LIMIT_BURST"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	TLSEnabled         bool          `mapstructure:"TLS_ENABLED"`
	TLSCertFile        string        `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile         string        `mapstructure:"TLS_KEY_FILE"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("TOKEN_ISSUER", "medconnect")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("GOOGLE_ISSUER", "https://accounts.google.com")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("AUTH_RATE_LIMIT_RPS", 5)
	v.SetDefault("AUTH_RATE_LIMIT_BURST", 10)
	v.SetDefault("REQUEST_TIMEOUT", "30s")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "CORS_ORIGINS",
		"TOKEN_SECRET", "TOKEN_ISSUER", "BCRYPT_COST",
		"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_REDIRECT_URL", "GOOGLE_ISSUER",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "AUTH_RATE_LIMIT_RPS", "AUTH_RATE_LIMIT_BURST",
		"REQUEST_TIMEOUT", "TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
	} {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.TokenSecret == "" {
		log.Println("WARNING: TOKEN_SECRET is not set; a random signing key will be generated.")
		log.Println("WARNING: Issued tokens will not survive a restart.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// GoogleEnabled reports whether federated login through Google is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != ""
}

// TokenSecretBytes decodes TOKEN_SECRET. An empty secret decodes to nil.
func (c *Config) TokenSecretBytes() ([]byte, error) {
	if c.TokenSecret == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.TokenSecret)
	if err != nil {
		return nil, fmt.Errorf("TOKEN_SECRET is not valid hex: %w", err)
	}
	return key, nil
}

// Validate checks that the configuration is safe to run. Outside development
// a hex TOKEN_SECRET of at least 32 bytes is required so that every instance
// signs and verifies with the same key.
func (c *Config) Validate() error {
	key, err := c.TokenSecretBytes()
	if err != nil {
		return err
	}
	if !c.IsDev() {
		if len(key) == 0 {
			return fmt.Errorf("TOKEN_SECRET is required when ENV=%q", c.Env)
		}
		if len(key) < minTokenSecretBytes {
			return fmt.Errorf("TOKEN_SECRET must be at least %d bytes (%d hex chars), got %d bytes",
				minTokenSecretBytes, minTokenSecretBytes*2, len(key))
		}
	}

	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}

	if c.GoogleEnabled() {
		if c.GoogleClientSecret == "" {
			return fmt.Errorf("GOOGLE_CLIENT_SECRET is required when GOOGLE_CLIENT_ID is set")
		}
		if c.GoogleRedirectURL == "" {
			return fmt.Errorf("GOOGLE_REDIRECT_URL is required when GOOGLE_CLIENT_ID is set")
		}
	}

	// TLS validation: when TLS is enabled, cert and key files must be specified.
	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}
