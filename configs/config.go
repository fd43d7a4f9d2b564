package configs

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	NATS      NATSConfig
	Log       LogConfig
	Cache     CacheConfig
	Quota     QuotaConfig
	Providers ProvidersConfig
	Identity  IdentityConfig
	Email     EmailConfig
	Telemetry TelemetryConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TLSCertFile    string
	TLSKeyFile     string
	AllowedOrigins []string // empty allows any origin
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	DSN      string
	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	// ClusterAddrs switches to a cluster client when non-empty.
	ClusterAddrs []string
	// Pool and timeout settings
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
}

type NATSConfig struct {
	URL    string
	Bucket string
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

// CacheConfig selects the cache backend and the soft TTL of each payload kind.
type CacheConfig struct {
	Backend   string // redis, memory, nats or tiered
	KeyPrefix string
	// HardTTLMultiplier scales the soft TTL into the hard deletion TTL that bounds stale-serve.
	HardTTLMultiplier float64
	MemoryMaxBytes    int64
	L1Expire          time.Duration

	GuardianTTL time.Duration
	NewsAPITTL  time.Duration
	RSSTTL      time.Duration
	BulletinTTL time.Duration
	CardsTTL    time.Duration
	SummaryTTL  time.Duration
}

// MaxHardTTL is the longest lifetime any entry can have; it sizes the NATS bucket TTL.
func (c CacheConfig) MaxHardTTL() time.Duration {
	var longest time.Duration
	for _, d := range []time.Duration{c.GuardianTTL, c.NewsAPITTL, c.RSSTTL, c.BulletinTTL, c.CardsTTL, c.SummaryTTL} {
		longest = max(longest, d)
	}
	mult := c.HardTTLMultiplier
	if mult < 1 {
		mult = 1
	}
	return time.Duration(float64(longest) * mult)
}

type QuotaConfig struct {
	Backend   string // redis, postgres or memory
	KeyPrefix string
	Window    time.Duration
	Timezone  string
	// Per-identity limits on upstream news fetches.
	NewsWindowMax int
	NewsDailyMax  int
	// Per-identity limits on generation calls (summaries, bulletins, chat).
	AIWindowMax int
	AIDailyMax  int
}

type ProvidersConfig struct {
	Timeout        time.Duration
	NewsAPIKey     string
	NewsAPIBaseURL string
	GuardianKey    string
	GuardianURL    string
	GeminiKey      string
	GeminiBaseURL  string
	GeminiModel    string
	RSSFeeds       []string
	// Breaker opens after BreakerThreshold consecutive upstream failures for BreakerTimeout.
	BreakerThreshold int
	BreakerTimeout   time.Duration
}

type IdentityConfig struct {
	JWTSecret string
	Issuer    string
}

type EmailConfig struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
	CompanyName    string
	BaseURL        string
}

type TelemetryConfig struct {
	ServiceName  string
	OTLPEndpoint string
	Insecure     bool
	SampleRatio  float64
}

type RateLimitConfig struct {
	Backend           string // redis or local
	RequestsPerMinute int
	BurstMultiplier   float64
	Window            time.Duration
	KeyPrefix         string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnv("SERVER_PORT", "8080"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:    getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			TLSCertFile:    getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:     getEnv("TLS_KEY_FILE", ""),
			AllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS", nil),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "news_nexus"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			MigrationsPath:  getEnv("DB_MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getIntEnv("REDIS_DB", 0),
			ClusterAddrs: getListEnv("REDIS_CLUSTER_ADDRS", nil),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:  getDurationEnv("REDIS_POOL_TIMEOUT", 4*time.Second),
			IdleTimeout:  getDurationEnv("REDIS_IDLE_TIMEOUT", 5*time.Minute),
		},
		NATS: NATSConfig{
			URL:    getEnv("NATS_URL", "nats://localhost:4222"),
			Bucket: getEnv("NATS_KV_BUCKET", "news_nexus_cache"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Cache: CacheConfig{
			Backend:           getEnv("CACHE_BACKEND", "redis"),
			KeyPrefix:         getEnv("CACHE_KEY_PREFIX", "nn"),
			HardTTLMultiplier: getFloatEnv("CACHE_HARD_TTL_MULTIPLIER", 24),
			MemoryMaxBytes:    int64(getIntEnv("CACHE_MEMORY_MAX_BYTES", 64<<20)),
			L1Expire:          getDurationEnv("CACHE_L1_EXPIRE", time.Minute),
			GuardianTTL:       getDurationEnv("CACHE_TTL_GUARDIAN", 5*time.Minute),
			NewsAPITTL:        getDurationEnv("CACHE_TTL_NEWSAPI", 15*time.Minute),
			RSSTTL:            getDurationEnv("CACHE_TTL_RSS", 10*time.Minute),
			BulletinTTL:       getDurationEnv("CACHE_TTL_BULLETIN", 6*time.Hour),
			CardsTTL:          getDurationEnv("CACHE_TTL_CARDS", 6*time.Hour),
			SummaryTTL:        getDurationEnv("CACHE_TTL_SUMMARY", 12*time.Hour),
		},
		Quota: QuotaConfig{
			Backend:       getEnv("QUOTA_BACKEND", "redis"),
			KeyPrefix:     getEnv("QUOTA_KEY_PREFIX", "quota"),
			Window:        getDurationEnv("QUOTA_WINDOW", time.Hour),
			Timezone:      getEnv("QUOTA_TIMEZONE", "Local"),
			NewsWindowMax: getIntEnv("QUOTA_NEWS_WINDOW_MAX", 30),
			NewsDailyMax:  getIntEnv("QUOTA_NEWS_DAILY_MAX", 100),
			AIWindowMax:   getIntEnv("QUOTA_AI_WINDOW_MAX", 10),
			AIDailyMax:    getIntEnv("QUOTA_AI_DAILY_MAX", 100),
		},
		Providers: ProvidersConfig{
			Timeout:          getDurationEnv("PROVIDER_TIMEOUT", 30*time.Second),
			NewsAPIKey:       getEnv("NEWS_API_KEY", ""),
			NewsAPIBaseURL:   getEnv("NEWS_API_BASE_URL", "https://newsapi.org/v2"),
			GuardianKey:      getEnv("GUARDIAN_API_KEY", ""),
			GuardianURL:      getEnv("GUARDIAN_BASE_URL", "https://content.guardianapis.com"),
			GeminiKey:        getEnv("GEMINI_API_KEY", ""),
			GeminiBaseURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			RSSFeeds:         getListEnv("RSS_FEEDS", nil),
			BreakerThreshold: getIntEnv("PROVIDER_BREAKER_THRESHOLD", 5),
			BreakerTimeout:   getDurationEnv("PROVIDER_BREAKER_TIMEOUT", 30*time.Second),
		},
		Identity: IdentityConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", ""),
		},
		Email: EmailConfig{
			SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
			FromEmail:      getEnv("FROM_EMAIL", "noreply@example.com"),
			FromName:       getEnv("FROM_NAME", "News Nexus"),
			CompanyName:    getEnv("COMPANY_NAME", "News Nexus"),
			BaseURL:        getEnv("BASE_URL", "http://localhost:3000"),
		},
		Telemetry: TelemetryConfig{
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "news-nexus"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure:     getBoolEnv("OTEL_EXPORTER_OTLP_INSECURE", true),
			SampleRatio:  getFloatEnv("OTEL_TRACES_SAMPLE_RATIO", 1.0),
		},
		RateLimit: RateLimitConfig{
			Backend:           getEnv("RATE_LIMIT_BACKEND", "local"),
			RequestsPerMinute: getIntEnv("RATE_LIMIT_RPM", 120),
			BurstMultiplier:   getFloatEnv("RATE_LIMIT_BURST", 2.0),
			Window:            getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
			KeyPrefix:         getEnv("RATE_LIMIT_KEY_PREFIX", "ratelimit:ip"),
		},
	}

	// Build database DSN
	cfg.Database.DSN = fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName,
		cfg.Database.SSLMode,
	)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid or missing setting at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Cache.Backend {
	case "redis", "memory", "nats", "tiered":
	default:
		errs = append(errs, fmt.Errorf("CACHE_BACKEND must be redis, memory, nats or tiered, got %q", c.Cache.Backend))
	}
	switch c.Quota.Backend {
	case "redis", "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("QUOTA_BACKEND must be redis, postgres or memory, got %q", c.Quota.Backend))
	}
	switch c.RateLimit.Backend {
	case "redis", "local":
	default:
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BACKEND must be redis or local, got %q", c.RateLimit.Backend))
	}
	if c.Identity.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Quota.Window <= 0 {
		errs = append(errs, errors.New("QUOTA_WINDOW must be positive"))
	}
	if _, err := c.Quota.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.Providers.Timeout <= 0 {
		errs = append(errs, errors.New("PROVIDER_TIMEOUT must be positive"))
	}
	if c.Cache.HardTTLMultiplier < 1 {
		errs = append(errs, errors.New("CACHE_HARD_TTL_MULTIPLIER must be at least 1"))
	}
	return errors.Join(errs...)
}

// Location resolves the time zone of the daily quota boundary.
func (q QuotaConfig) Location() (*time.Location, error) {
	if q.Timezone == "" || q.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(q.Timezone)
	if err != nil {
		return nil, fmt.Errorf("QUOTA_TIMEZONE: %w", err)
	}
	return loc, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getListEnv splits a comma-separated value, dropping blanks.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
