// Package config builds runtime configuration from the environment so main
// stays lean. Every knob has a default suitable for local development; the
// promotion threshold in particular is configuration, not code (historical
// deployments ran it at 65, 68, and 70).
package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures everything the server and its workers need.
type Config struct {
	Addr     string
	LogLevel string

	PostgresDSN string
	RedisURL    string

	KafkaBrokers    string
	KafkaAuditTopic string

	Scoring   Scoring
	Promotion Promotion
	Judge     Judge
	Ledger    Ledger
	Signing   Signing
	Operator  Operator
	Reconcile Reconcile
}

// Scoring holds blend weights. Blending must stay reproducible for audit, so
// the weights live here rather than in code.
type Scoring struct {
	HeuristicWeight float64
	AdvisoryWeight  float64
}

// Promotion holds the gate threshold and the degraded-score policy.
type Promotion struct {
	Threshold int
	// AllowDegraded lets heuristic-only (judge unavailable) scores promote
	// organically. Off by default: degraded submissions need an operator
	// override.
	AllowDegraded bool
	// Retries bounds transparent compare-and-swap retries before a
	// promotion conflict is surfaced.
	Retries int
}

// Judge configures the advisory judge capability.
type Judge struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Ledger configures the external certificate ledger.
type Ledger struct {
	URL           string
	Timeout       time.Duration
	RetryBudget   int
	SweepInterval time.Duration
}

// Signing points at the certificate signing key (PEM-encoded EC private key).
type Signing struct {
	KeyPath string
}

// Operator configures the admin token surface: HS256 signing key for issued
// tokens and the bcrypt hash of the shared operator secret.
type Operator struct {
	JWTSigningKey string
	SecretHash    string
	TokenTTL      time.Duration
}

// Reconcile configures the consistency sweep.
type Reconcile struct {
	Interval    time.Duration
	GracePeriod time.Duration
}

// FromEnv reads configuration from EQBOARD_* environment variables.
func FromEnv() Config {
	return Config{
		Addr:     getEnv("EQBOARD_ADDR", ":8080"),
		LogLevel: getEnv("EQBOARD_LOG_LEVEL", "info"),

		PostgresDSN: os.Getenv("EQBOARD_POSTGRES_DSN"),
		RedisURL:    os.Getenv("EQBOARD_REDIS_URL"),

		KafkaBrokers:    os.Getenv("EQBOARD_KAFKA_BROKERS"),
		KafkaAuditTopic: getEnv("EQBOARD_KAFKA_AUDIT_TOPIC", "eqboard.audit"),

		Scoring: Scoring{
			HeuristicWeight: getFloat("EQBOARD_HEURISTIC_WEIGHT", 0.4),
			AdvisoryWeight:  getFloat("EQBOARD_ADVISORY_WEIGHT", 0.6),
		},
		Promotion: Promotion{
			Threshold:     getInt("EQBOARD_PROMOTION_THRESHOLD", 65),
			AllowDegraded: os.Getenv("EQBOARD_PROMOTE_DEGRADED") == "true",
			Retries:       getInt("EQBOARD_PROMOTION_RETRIES", 3),
		},
		Judge: Judge{
			APIKey:  os.Getenv("EQBOARD_JUDGE_API_KEY"),
			Model:   getEnv("EQBOARD_JUDGE_MODEL", "gemini-2.0-flash"),
			Timeout: getDuration("EQBOARD_JUDGE_TIMEOUT", 30*time.Second),
		},
		Ledger: Ledger{
			URL:           os.Getenv("EQBOARD_LEDGER_URL"),
			Timeout:       getDuration("EQBOARD_LEDGER_TIMEOUT", 8*time.Second),
			RetryBudget:   getInt("EQBOARD_LEDGER_RETRY_BUDGET", 6),
			SweepInterval: getDuration("EQBOARD_LEDGER_SWEEP_INTERVAL", 30*time.Second),
		},
		Signing: Signing{
			KeyPath: os.Getenv("EQBOARD_SIGNING_KEY_PATH"),
		},
		Operator: Operator{
			JWTSigningKey: getEnv("EQBOARD_OPERATOR_JWT_KEY", "dev-secret-change-in-production"),
			SecretHash:    os.Getenv("EQBOARD_OPERATOR_SECRET_HASH"),
			TokenTTL:      getDuration("EQBOARD_OPERATOR_TOKEN_TTL", time.Hour),
		},
		Reconcile: Reconcile{
			Interval:    getDuration("EQBOARD_RECONCILE_INTERVAL", 5*time.Minute),
			GracePeriod: getDuration("EQBOARD_RECONCILE_GRACE_PERIOD", time.Hour),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
