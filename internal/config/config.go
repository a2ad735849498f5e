package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "jwt-secret", "password",
}

type Config struct {
	Port                 int    `env:"PORT" envDefault:"8080"`
	DatabaseURL          string `env:"DATABASE_URL,required"`
	RedisURL             string `env:"REDIS_URL,required"`
	JWTSecret            string `env:"JWT_SECRET,required"`
	LogLevel             string `env:"LOG_LEVEL" envDefault:"info"`
	RateLimitPerMin      int    `env:"RATE_LIMIT_PER_MIN" envDefault:"120"`
	IPRateLimitPerMin    int    `env:"IP_RATE_LIMIT_PER_MIN" envDefault:"600"`
	AppEnv               string `env:"APP_ENV" envDefault:"development"`
	StatsCacheTTLSeconds int    `env:"STATS_CACHE_TTL_SECONDS" envDefault:"60"`
	StatsTimezone        string `env:"STATS_TIMEZONE" envDefault:"UTC"`
	// StaleSessionHours is measured from the last transition, and a session
	// studied without pausing has none, so it must exceed MaxPlannedMinutes.
	StaleSessionHours    int    `env:"STALE_SESSION_HOURS" envDefault:"0"`
	MaxPlannedMinutes    int    `env:"MAX_PLANNED_MINUTES" envDefault:"720"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) StatsCacheTTL() time.Duration {
	return time.Duration(c.StatsCacheTTLSeconds) * time.Second
}

// StaleSessionAfter is zero when the stale-session job is disabled.
func (c *Config) StaleSessionAfter() time.Duration {
	return time.Duration(c.StaleSessionHours) * time.Hour
}

// StatsLocation resolves the timezone used to bucket statistics by day.
func (c *Config) StatsLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.StatsTimezone)
	if err != nil {
		return nil, fmt.Errorf("load STATS_TIMEZONE %q: %w", c.StatsTimezone, err)
	}
	return loc, nil
}

func (c *Config) Validate(isProduction bool) error {
	if c.RateLimitPerMin < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MIN must not be negative")
	}
	if c.IPRateLimitPerMin <= 0 {
		return fmt.Errorf("IP_RATE_LIMIT_PER_MIN must be positive")
	}
	if c.StaleSessionHours < 0 {
		return fmt.Errorf("STALE_SESSION_HOURS must not be negative")
	}
	if c.MaxPlannedMinutes <= 0 {
		return fmt.Errorf("MAX_PLANNED_MINUTES must be positive")
	}
	if c.StaleSessionHours > 0 && c.StaleSessionAfter() <= time.Duration(c.MaxPlannedMinutes)*time.Minute {
		return fmt.Errorf("STALE_SESSION_HOURS must exceed MAX_PLANNED_MINUTES (%d) or unpaused sessions are cancelled mid-study", c.MaxPlannedMinutes)
	}
	if _, err := c.StatsLocation(); err != nil {
		return err
	}

	if isProduction {
		if err := validateSecret("JWT_SECRET", c.JWTSecret); err != nil {
			return err
		}
		if c.StaleSessionHours == 0 {
			log.Warn().Msg("STALE_SESSION_HOURS is 0 in production: abandoned sessions stay live until the user stops them")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded .env file")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
