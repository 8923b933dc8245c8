package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Worker    WorkerConfig
	Storage   StorageConfig
	Dashboard DashboardConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	Env         string
	FrontendURL string
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type JWTConfig struct {
	Secret        string
	RefreshSecret string
	Expire        string
	RefreshExpire string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
}

type WorkerConfig struct {
	Concurrency  int
	ReminderCron string
}

type StorageConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
}

type DashboardConfig struct {
	CacheTTLSeconds int
}

// DSN prefers DATABASE_URL when it is set.
func (d *DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (j *JWTConfig) AccessExpiry() time.Duration {
	d, err := ParseDuration(j.Expire)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

func (j *JWTConfig) RefreshExpiry() time.Duration {
	d, err := ParseDuration(j.RefreshExpire)
	if err != nil || d <= 0 {
		return 7 * 24 * time.Hour
	}
	return d
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

func (s *ServerConfig) IsProduction() bool {
	return s.Env == "production"
}

// Enabled reports whether an object storage bucket is configured.
func (s *StorageConfig) Enabled() bool {
	return s.Bucket != ""
}

func (d *DashboardConfig) CacheTTL() time.Duration {
	return time.Duration(d.CacheTTLSeconds) * time.Second
}

// ParseDuration extends time.ParseDuration with a "d" suffix for whole days,
// so values like "7d" and "30d" can be used for token lifetimes.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

const (
	defaultJWTSecret     = "change-me-in-production"
	defaultRefreshSecret = "change-me-refresh-in-production"
)

func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 5000)
	v.SetDefault("SERVER_ENV", "")
	v.SetDefault("NODE_ENV", "development")
	v.SetDefault("CLIENT_URL", "http://localhost:3000")
	v.SetDefault("FRONTEND_URL", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "vinq")
	v.SetDefault("DATABASE_PASSWORD", "vinq_secret")
	v.SetDefault("DATABASE_NAME", "vinq_crm")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_REFRESH_SECRET", defaultRefreshSecret)
	v.SetDefault("JWT_EXPIRE", "15m")
	v.SetDefault("JWT_REFRESH_EXPIRE", "7d")
	v.SetDefault("RATE_LIMIT_MAX", 100)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 900)
	v.SetDefault("WORKER_CONCURRENCY", 10)
	v.SetDefault("REMINDER_CRON", "*/5 * * * *")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY_ID", "")
	v.SetDefault("S3_SECRET_ACCESS_KEY", "")
	v.SetDefault("S3_PUBLIC_BASE_URL", "")
	v.SetDefault("DASHBOARD_CACHE_TTL_SECONDS", 60)

	// Load from .env file if present
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	env := v.GetString("SERVER_ENV")
	if env == "" {
		env = v.GetString("NODE_ENV")
	}

	frontendURL := v.GetString("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = v.GetString("CLIENT_URL")
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:        v.GetString("SERVER_HOST"),
			Port:        portFrom(v),
			Env:         env,
			FrontendURL: frontendURL,
		},
		Database: DatabaseConfig{
			URL:      v.GetString("DATABASE_URL"),
			Host:     v.GetString("DATABASE_HOST"),
			Port:     v.GetInt("DATABASE_PORT"),
			User:     v.GetString("DATABASE_USER"),
			Password: v.GetString("DATABASE_PASSWORD"),
			Name:     v.GetString("DATABASE_NAME"),
			SSLMode:  v.GetString("DATABASE_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		JWT: JWTConfig{
			Secret:        v.GetString("JWT_SECRET"),
			RefreshSecret: v.GetString("JWT_REFRESH_SECRET"),
			Expire:        v.GetString("JWT_EXPIRE"),
			RefreshExpire: v.GetString("JWT_REFRESH_EXPIRE"),
		},
		CORS: CORSConfig{
			AllowedOrigins: allowedOrigins(v),
		},
		RateLimit: RateLimitConfig{
			Requests:      v.GetInt("RATE_LIMIT_MAX"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Worker: WorkerConfig{
			Concurrency:  v.GetInt("WORKER_CONCURRENCY"),
			ReminderCron: v.GetString("REMINDER_CRON"),
		},
		Storage: StorageConfig{
			Bucket:          v.GetString("S3_BUCKET"),
			Region:          v.GetString("S3_REGION"),
			Endpoint:        v.GetString("S3_ENDPOINT"),
			AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
			PublicBaseURL:   v.GetString("S3_PUBLIC_BASE_URL"),
		},
		Dashboard: DashboardConfig{
			CacheTTLSeconds: v.GetInt("DASHBOARD_CACHE_TTL_SECONDS"),
		},
	}

	if cfg.Server.IsProduction() {
		if cfg.JWT.Secret == defaultJWTSecret {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
		if cfg.JWT.RefreshSecret == defaultRefreshSecret {
			return nil, fmt.Errorf("JWT_REFRESH_SECRET must be set in production")
		}
	}

	return cfg, nil
}

// portFrom honours PORT, which most PaaS hosts inject, over SERVER_PORT.
func portFrom(v *viper.Viper) int {
	if p := v.GetInt("PORT"); p > 0 {
		return p
	}
	return v.GetInt("SERVER_PORT")
}

func allowedOrigins(v *viper.Viper) []string {
	seen := make(map[string]bool)
	var origins []string
	add := func(o string) {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || seen[o] {
			return
		}
		seen[o] = true
		origins = append(origins, o)
	}

	add(v.GetString("CLIENT_URL"))
	add(v.GetString("FRONTEND_URL"))
	for _, o := range strings.Split(v.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		add(o)
	}
	add("http://localhost:3000")
	add("http://localhost:5173")

	return origins
}
