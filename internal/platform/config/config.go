package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "securitypassport/pkg/platform/strings"
)

// Server is the process configuration. It is built once in main and each
// component receives the part it needs.
type Server struct {
	Addr     string
	Database DatabaseConfig
	Auth     AuthConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	S3       S3Config
	Export   ExportConfig
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	JWTSigningKey string
	JWTIssuer     string
}

// RedisConfig is optional; an empty URL disables the override cache.
type RedisConfig struct {
	URL              string
	PoolSize         int
	MinIdleConns     int
	DialTimeout      time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	OverrideCacheTTL time.Duration
}

// KafkaConfig is optional; no brokers disables the Kafka audit sink.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

type S3Config struct {
	Endpoint        string
	AccessKey       string
	SecretKey       string
	Bucket          string
	Region          string
	UseSSL          bool
	RetrievalURLTTL time.Duration
}

// ExportConfig tunes the export pipeline. RateLimit is the number of exports
// a tenant may start per RateWindow; zero disables the limit.
type ExportConfig struct {
	DownloadConcurrency int
	DownloadTimeout     time.Duration
	RateLimit           int
	RateWindow          time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var errs []string
	cfg := Server{
		Addr: getenv("ADDR", ":8080"),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    intEnv("DATABASE_MAX_OPEN_CONNS", 20, &errs),
			MaxIdleConns:    intEnv("DATABASE_MAX_IDLE_CONNS", 5, &errs),
			ConnMaxLifetime: durationEnv("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute, &errs),
		},
		Auth: AuthConfig{
			// Use a default for development - should be overridden in production
			JWTSigningKey: getenv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:     getenv("JWT_ISSUER", "securitypassport"),
		},
		Redis: RedisConfig{
			URL:              os.Getenv("REDIS_URL"),
			PoolSize:         intEnv("REDIS_POOL_SIZE", 10, &errs),
			MinIdleConns:     intEnv("REDIS_MIN_IDLE_CONNS", 2, &errs),
			DialTimeout:      durationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second, &errs),
			ReadTimeout:      durationEnv("REDIS_READ_TIMEOUT", 3*time.Second, &errs),
			WriteTimeout:     durationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second, &errs),
			OverrideCacheTTL: durationEnv("OVERRIDE_CACHE_TTL", time.Minute, &errs),
		},
		Kafka: KafkaConfig{
			Brokers:    platformstrings.SplitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic: getenv("AUDIT_TOPIC", "passport.audit"),
		},
		S3: S3Config{
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKey:       os.Getenv("S3_ACCESS_KEY"),
			SecretKey:       os.Getenv("S3_SECRET_KEY"),
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getenv("S3_REGION", "us-east-1"),
			UseSSL:          os.Getenv("S3_USE_SSL") == "true",
			RetrievalURLTTL: durationEnv("RETRIEVAL_URL_TTL", 300*time.Second, &errs),
		},
		Export: ExportConfig{
			DownloadConcurrency: intEnv("DOWNLOAD_CONCURRENCY", 1, &errs),
			DownloadTimeout:     durationEnv("DOWNLOAD_TIMEOUT", 30*time.Second, &errs),
			RateLimit:           intEnv("EXPORT_RATE_LIMIT", 0, &errs),
			RateWindow:          durationEnv("EXPORT_RATE_WINDOW", time.Minute, &errs),
		},
	}

	if cfg.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if cfg.Export.DownloadConcurrency < 1 {
		errs = append(errs, "DOWNLOAD_CONCURRENCY must be at least 1")
	}
	if cfg.Export.RateLimit > 0 && cfg.Export.RateWindow <= 0 {
		errs = append(errs, "EXPORT_RATE_WINDOW must be positive")
	}
	if len(errs) > 0 {
		return Server{}, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int, errs *[]string) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s must be an integer", key))
		return fallback
	}
	return v
}

// durationEnv accepts Go durations ("90s") or a bare number of seconds.
func durationEnv(key string, fallback time.Duration, errs *[]string) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s must be a duration", key))
		return fallback
	}
	return d
}
