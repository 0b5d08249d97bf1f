// Package config reads process configuration from the environment. A .env
// file in the working directory is loaded first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Locking selects how concurrent submissions for one product and store are
// serialized.
type Locking string

const (
	LockingNone  Locking = "none"
	LockingLocal Locking = "local"
	LockingRedis Locking = "redis"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
}

// RedisConfig configures the shared Redis client. An empty URL keeps every
// Redis-backed component in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type KafkaConfig struct {
	Brokers     []string
	StatusTopic string
}

type Consensus struct {
	Location  *time.Location
	Retention time.Duration
	Locking   Locking
	LockTTL   time.Duration
}

type Config struct {
	Server        Server
	DatabaseURL   string
	Redis         RedisConfig
	Kafka         KafkaConfig
	Consensus     Consensus
	ReapInterval  time.Duration
	RateLimitFile string
	LogLevel      string
}

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "America/Sao_Paulo"))
	if err != nil {
		return Config{}, fmt.Errorf("load TIMEZONE: %w", err)
	}
	retention, err := getDuration("RETENTION", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	reap, err := getDuration("REAPER_INTERVAL", time.Hour)
	if err != nil {
		return Config{}, err
	}
	lockTTL, err := getDuration("CONSENSUS_LOCK_TTL", 5*time.Second)
	if err != nil {
		return Config{}, err
	}
	locking := Locking(strings.ToLower(getEnv("CONSENSUS_LOCKING", string(LockingNone))))
	switch locking {
	case LockingNone, LockingLocal, LockingRedis:
	default:
		return Config{}, fmt.Errorf("CONSENSUS_LOCKING must be none, local or redis, got %q", locking)
	}
	poolSize, err := getInt("REDIS_POOL_SIZE", 10)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Server: Server{
			Addr: getEnv("OFERTAS_ADDR", ":8080"),
			// Use a default for development - should be overridden in production
			JWTSigningKey: getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:     os.Getenv("JWT_ISSUER"),
			JWTAudience:   os.Getenv("JWT_AUDIENCE"),
		},
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     poolSize,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:     splitList(os.Getenv("KAFKA_BROKERS")),
			StatusTopic: getEnv("KAFKA_STATUS_TOPIC", "contribution-status"),
		},
		Consensus: Consensus{
			Location:  loc,
			Retention: retention,
			Locking:   locking,
			LockTTL:   lockTTL,
		},
		ReapInterval:  reap,
		RateLimitFile: os.Getenv("RATE_LIMIT_FILE"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
	if cfg.Consensus.Locking == LockingRedis && cfg.Redis.URL == "" {
		return Config{}, fmt.Errorf("CONSENSUS_LOCKING=redis requires REDIS_URL")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, raw)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
