package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Streaks   StreaksConfig
	HonorRoll HonorRollConfig
	Mail      MailConfig
	Assets    AssetsConfig
	Jobs      JobsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StreaksConfig governs the weekly streak maintenance sweep.
type StreaksConfig struct {
	SweepToken    string
	SweepSchedule string
	SweepEnabled  bool
}

// HonorRollConfig tunes leaderboard caching and windows.
type HonorRollConfig struct {
	CacheEnabled      bool
	CacheTTL          time.Duration
	LeaderboardWindow int
}

// MailConfig configures outbound notification email.
type MailConfig struct {
	Enabled     bool
	SendgridKey string
	FromName    string
	FromAddress string
}

// AssetsConfig controls public URL resolution for stored images.
type AssetsConfig struct {
	PublicBaseURL   string
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

// JobsConfig tunes the background notification dispatcher.
type JobsConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Streaks = StreaksConfig{
		SweepToken:    v.GetString("STREAK_SWEEP_TOKEN"),
		SweepSchedule: v.GetString("STREAK_SWEEP_SCHEDULE"),
		SweepEnabled:  v.GetBool("STREAK_SWEEP_ENABLED"),
	}

	cfg.HonorRoll = HonorRollConfig{
		CacheEnabled:      v.GetBool("HONOR_ROLL_CACHE_ENABLED"),
		CacheTTL:          parseDuration(v.GetString("HONOR_ROLL_CACHE_TTL"), 5*time.Minute),
		LeaderboardWindow: v.GetInt("HONOR_ROLL_LEADERBOARD_WINDOW"),
	}

	cfg.Mail = MailConfig{
		Enabled:     v.GetBool("MAIL_ENABLED"),
		SendgridKey: v.GetString("SENDGRID_API_KEY"),
		FromName:    v.GetString("MAIL_FROM_NAME"),
		FromAddress: v.GetString("MAIL_FROM_ADDRESS"),
	}

	cfg.Assets = AssetsConfig{
		PublicBaseURL:   v.GetString("ASSETS_PUBLIC_BASE_URL"),
		SignedURLSecret: v.GetString("ASSETS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("ASSETS_SIGNED_URL_TTL"), 30*time.Minute),
	}

	cfg.Jobs = JobsConfig{
		Workers:    v.GetInt("JOBS_WORKERS"),
		MaxRetries: v.GetInt("JOBS_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("JOBS_RETRY_DELAY"), 5*time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "cursus")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "cursus-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STREAK_SWEEP_TOKEN", "")
	v.SetDefault("STREAK_SWEEP_SCHEDULE", "0 3 * * MON")
	v.SetDefault("STREAK_SWEEP_ENABLED", true)

	v.SetDefault("HONOR_ROLL_CACHE_ENABLED", false)
	v.SetDefault("HONOR_ROLL_CACHE_TTL", "5m")
	v.SetDefault("HONOR_ROLL_LEADERBOARD_WINDOW", 200)

	v.SetDefault("MAIL_ENABLED", false)
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("MAIL_FROM_NAME", "Cursus")
	v.SetDefault("MAIL_FROM_ADDRESS", "no-reply@cursus.test")

	v.SetDefault("ASSETS_PUBLIC_BASE_URL", "http://localhost:8080/assets")
	v.SetDefault("ASSETS_SIGNED_URL_SECRET", "dev_assets_secret")
	v.SetDefault("ASSETS_SIGNED_URL_TTL", "30m")

	v.SetDefault("JOBS_WORKERS", 2)
	v.SetDefault("JOBS_MAX_RETRIES", 3)
	v.SetDefault("JOBS_RETRY_DELAY", "5s")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
