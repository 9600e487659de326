package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures process-level configuration. Every field has a default
// that is usable for local development.
type Config struct {
	Server     Server
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Admin      AdminConfig
	AI         AIConfig
	S3         S3Config
	SMS        SMSConfig
	Kafka      KafkaConfig
	Audit      AuditConfig
	RateLimit  RateLimitConfig
	ConsentTTL time.Duration
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr        string
	Environment string
	LogLevel    string
}

// IsProduction reports whether the process runs with production defaults.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

// DatabaseConfig selects PostgreSQL when URL is set; stores fall back to memory otherwise.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig selects Redis-backed revocation and rate limiting when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type JWTConfig struct {
	SigningKey string
	Issuer     string
	TTL        time.Duration
}

// AdminConfig seeds one admin account at startup when both fields are set.
type AdminConfig struct {
	Email    string
	Password string
}

type AIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// S3Config points report attachments at an S3-compatible bucket.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	PublicURL string
}

// Enabled reports whether attachment uploads are configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

type SMSConfig struct {
	APIURL        string
	APIKey        string
	Sender        string
	WebhookSecret string
}

type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

type AuditConfig struct {
	FlushSize     int
	FlushInterval time.Duration
	BufferSize    int
}

type RateLimitConfig struct {
	MatchingPerMinute int
	AuthPerMinute     int
	Disabled          bool
}

// LoadDotEnv loads a .env file outside production. A missing file is not an error.
func LoadDotEnv() {
	env := os.Getenv("ENVIRONMENT")
	if env == "" || env == "development" || env == "test" {
		_ = godotenv.Load()
	}
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	var errs []string
	p := parser{errs: &errs}

	cfg := Config{
		Server: Server{
			Addr:        p.str("ADDR", ":8080"),
			Environment: p.str("ENVIRONMENT", "development"),
			LogLevel:    p.str("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:          p.str("DATABASE_URL", ""),
			MaxOpenConns: p.integer("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: p.integer("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			URL:          p.str("REDIS_URL", ""),
			PoolSize:     p.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: p.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  p.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  p.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: p.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		JWT: JWTConfig{
			SigningKey: p.str("JWT_SIGNING_KEY", ""),
			Issuer:     p.str("JWT_ISSUER", "yeirin"),
			TTL:        p.duration("JWT_TTL", 24*time.Hour),
		},
		Admin: AdminConfig{
			Email:    p.str("ADMIN_EMAIL", ""),
			Password: p.str("ADMIN_PASSWORD", ""),
		},
		AI: AIConfig{
			BaseURL: strings.TrimRight(p.str("AI_RECOMMENDATION_SERVICE_URL", "http://localhost:8000"), "/"),
			Timeout: time.Duration(p.integer("AI_RECOMMENDATION_API_TIMEOUT", 30000)) * time.Millisecond,
		},
		S3: S3Config{
			Endpoint:  p.str("S3_ENDPOINT", ""),
			Region:    p.str("S3_REGION", "ap-northeast-2"),
			Bucket:    p.str("S3_BUCKET", ""),
			AccessKey: p.str("S3_ACCESS_KEY", ""),
			SecretKey: p.str("S3_SECRET_KEY", ""),
			PublicURL: strings.TrimRight(p.str("S3_PUBLIC_URL", ""), "/"),
		},
		SMS: SMSConfig{
			APIURL:        p.str("SMS_API_URL", ""),
			APIKey:        p.str("SMS_API_KEY", ""),
			Sender:        p.str("SMS_SENDER", ""),
			WebhookSecret: p.str("SMS_WEBHOOK_SECRET", ""),
		},
		Kafka: KafkaConfig{
			Brokers:    p.list("KAFKA_BROKERS"),
			AuditTopic: p.str("KAFKA_AUDIT_TOPIC", "yeirin.audit"),
		},
		Audit: AuditConfig{
			FlushSize:     p.integer("AUDIT_FLUSH_SIZE", 100),
			FlushInterval: p.duration("AUDIT_FLUSH_INTERVAL", 5*time.Second),
			BufferSize:    p.integer("AUDIT_BUFFER_SIZE", 10000),
		},
		RateLimit: RateLimitConfig{
			MatchingPerMinute: p.integer("RATE_LIMIT_MATCHING_PER_MINUTE", 20),
			AuthPerMinute:     p.integer("RATE_LIMIT_AUTH_PER_MINUTE", 10),
			Disabled:          p.boolean("RATE_LIMIT_DISABLED", false),
		},
		ConsentTTL: p.duration("CONSENT_TTL", 365*24*time.Hour),
	}

	if cfg.JWT.SigningKey == "" {
		if cfg.Server.IsProduction() {
			errs = append(errs, "JWT_SIGNING_KEY is required in production")
		}
		// Use a default for development - should be overridden in production
		cfg.JWT.SigningKey = "dev-secret-key-change-in-production"
	}
	if cfg.Audit.FlushSize <= 0 {
		errs = append(errs, "AUDIT_FLUSH_SIZE must be positive")
	}
	if cfg.AI.Timeout <= 0 {
		errs = append(errs, "AI_RECOMMENDATION_API_TIMEOUT must be positive")
	}

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

type parser struct {
	errs *[]string
}

func (p parser) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (p parser) integer(key string, def int) int {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Sprintf("%s: not an integer", key))
		return def
	}
	return n
}

func (p parser) boolean(key string, def bool) bool {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Sprintf("%s: not a boolean", key))
		return def
	}
	return b
}

func (p parser) duration(key string, def time.Duration) time.Duration {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Sprintf("%s: not a duration", key))
		return def
	}
	return d
}

func (p parser) list(key string) []string {
	raw := p.str(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
