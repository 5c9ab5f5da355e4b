package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Address directory backends. The selection is explicit configuration, not
// an ad hoc environment switch.
const (
	DirectoryViaCEP = "viacep"
	DirectoryLocal  = "local"
)

// Config holds the complete application configuration, loadable from
// environment variables (QUITANDA_ prefix), flags, or YAML config files.
type Config struct {
	Addr             string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL      string `usage:"PostgreSQL connection URL (QUITANDA_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ImageBaseURL     string `default:"" usage:"Base URL for item pictures (e.g. https://cdn.example.com/images)" flag:"image-base-url"`
	APIKeyPepper     string `usage:"HMAC pepper for API key hashing (QUITANDA_API_KEY_PEPPER)" flag:"api-key-pepper"`
	AddressDirectory string `default:"viacep" usage:"Postal code directory backend: viacep or local" flag:"address-directory"`
	ViaCEPBaseURL    string `default:"https://viacep.com.br" usage:"Base URL of the ViaCEP service" flag:"viacep-base-url"`
	RateLimit        RateLimitConfig
	CORS             CORSConfig
	Graceful         GracefulConfig
}

// RateLimitConfig controls the per-client rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "QUITANDA",
		Files:     []string{"config.yaml", "/etc/quitanda/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set QUITANDA_DATABASE_URL or DATABASE_URL")
	}
	if cfg.AddressDirectory != DirectoryViaCEP && cfg.AddressDirectory != DirectoryLocal {
		return nil, errors.Errorf("unknown address directory backend %q (want %q or %q)",
			cfg.AddressDirectory, DirectoryViaCEP, DirectoryLocal)
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like DATABASE_URL and
// PORT to the application's QUITANDA_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
