package config

import "time"

// Postgres pool
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
	DBPingTimeout     = 5 * time.Second
)

// HTTP server. WriteTimeout stays unset so /v1/events can stream; every
// other route is bounded by RequestTimeout instead.
const (
	RequestTimeout  = 30 * time.Second
	ReadTimeout     = 15 * time.Second
	IdleTimeout     = 120 * time.Second
	ShutdownTimeout = 30 * time.Second
)

// StaleSessionJobInterval is how often live sessions are checked against
// STALE_SESSION_HOURS.
const StaleSessionJobInterval = 15 * time.Minute

// DefaultRateLimitPerMin applies when RATE_LIMIT_PER_MIN is zero.
const DefaultRateLimitPerMin = 120
