// Package config builds runtime configuration from environment variables so
// main stays lean. Empty backend URLs select in-memory implementations,
// which keeps local development dependency-free.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration

	// PostgresURL selects the postgres stores; empty runs in-memory.
	PostgresURL string
	// Redis configures the verification cache; empty URL disables it.
	Redis RedisConfig
	// KafkaBrokers enables the compliance audit sink; empty disables it.
	KafkaBrokers []string

	// JWTSigningKey signs certificate tokens; empty disables token minting.
	JWTSigningKey string
	// AdminKeyHash is the bcrypt hash guarding manifest publishing.
	AdminKeyHash string

	// AuditBuffer sizes the async audit publisher queue.
	AuditBuffer int
}

// RedisConfig captures redis connection tuning.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	return Server{
		Addr:            envOr("VERIPASS_ADDR", ":8080"),
		ShutdownTimeout: envDuration("VERIPASS_SHUTDOWN_TIMEOUT", 10*time.Second),
		PostgresURL:     os.Getenv("VERIPASS_POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("VERIPASS_REDIS_URL"),
			PoolSize:     envInt("VERIPASS_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("VERIPASS_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("VERIPASS_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("VERIPASS_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("VERIPASS_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		KafkaBrokers:  splitList(os.Getenv("VERIPASS_KAFKA_BROKERS")),
		JWTSigningKey: os.Getenv("VERIPASS_JWT_SIGNING_KEY"),
		AdminKeyHash:  os.Getenv("VERIPASS_ADMIN_KEY_HASH"),
		AuditBuffer:   envInt("VERIPASS_AUDIT_BUFFER", 256),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
