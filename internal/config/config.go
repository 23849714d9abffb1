// Package config loads runtime settings from the environment. Outside
// production a local .env file supplements the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvProduction = "production"

	DefaultPort         = "3000"
	DefaultDatabaseURL  = "sqlite://roamstay.db"
	DefaultMongoDB      = "roamstay"
	DefaultDevSecret    = "devsecret"
	DefaultNightlyPrice = 120

	SessionTTL = 24 * time.Hour
	TouchAfter = 24 * time.Hour
)

var (
	ErrMissingSecret      = errors.New("SECRET is required in production")
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required in production")
	ErrWeakSecret         = errors.New("SECRET must not use the development default in production")
)

type Config struct {
	Env      string
	Port     string
	LogLevel string

	DatabaseURL string
	MongoDB     string

	Secret     string
	SessionTTL time.Duration
	TouchAfter time.Duration

	// ViewsDir and PublicDir override the embedded web assets when set.
	ViewsDir  string
	PublicDir string

	DemoRoutes bool

	PricePredictorURL   string
	DefaultNightlyPrice int

	PostmarkToken string
	FromEmail     string
	BaseURL       string

	CORSOrigins []string

	// Defaulted lists settings that fell back to a development default.
	Defaulted []string
}

func (c Config) Production() bool {
	return c.Env == EnvProduction
}

// Load reads the configuration. When APP_ENV (or NODE_ENV) is not
// "production", variables from .env are loaded first without overriding the
// process environment.
func Load() Config {
	if env(lookupEnv("APP_ENV", "NODE_ENV"), "development") != EnvProduction {
		_ = godotenv.Load()
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() Config {
	cfg := Config{
		Env:                 env(lookupEnv("APP_ENV", "NODE_ENV"), "development"),
		Port:                env(os.Getenv("PORT"), DefaultPort),
		LogLevel:            env(os.Getenv("LOG_LEVEL"), "info"),
		DatabaseURL:         lookupEnv("DATABASE_URL", "ATLAS_URI"),
		MongoDB:             env(os.Getenv("MONGO_DATABASE"), DefaultMongoDB),
		Secret:              os.Getenv("SECRET"),
		SessionTTL:          SessionTTL,
		TouchAfter:          TouchAfter,
		ViewsDir:            os.Getenv("VIEWS_DIR"),
		PublicDir:           os.Getenv("PUBLIC_DIR"),
		PricePredictorURL:   os.Getenv("PRICE_PREDICTOR_URL"),
		DefaultNightlyPrice: envInt("DEFAULT_NIGHTLY_PRICE", DefaultNightlyPrice),
		PostmarkToken:       os.Getenv("POSTMARK_TOKEN"),
		FromEmail:           os.Getenv("FROM_EMAIL"),
		CORSOrigins:         splitList(os.Getenv("CORS_ORIGINS")),
	}

	cfg.DemoRoutes = envBool("DEMO_ROUTES", !cfg.Production())
	cfg.BaseURL = env(os.Getenv("BASE_URL"), "http://localhost:"+cfg.Port)

	if !cfg.Production() {
		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = DefaultDatabaseURL
			cfg.Defaulted = append(cfg.Defaulted, "DATABASE_URL")
		}
		if cfg.Secret == "" {
			cfg.Secret = DefaultDevSecret
			cfg.Defaulted = append(cfg.Defaulted, "SECRET")
		}
	}
	return cfg
}

// Validate refuses configurations that must not start. Production needs an
// explicit database URL and a non-default secret.
func (c Config) Validate() error {
	var errs []error
	if c.Production() {
		if c.Secret == "" {
			errs = append(errs, ErrMissingSecret)
		} else if c.Secret == DefaultDevSecret {
			errs = append(errs, ErrWeakSecret)
		}
		if c.DatabaseURL == "" {
			errs = append(errs, ErrMissingDatabaseURL)
		}
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Errorf("invalid PORT %q", c.Port))
	}
	return errors.Join(errs...)
}

func env(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// lookupEnv returns the first non-empty variable among names.
func lookupEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

func envInt(name string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(name))
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(name))
	if err != nil {
		return fallback
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
