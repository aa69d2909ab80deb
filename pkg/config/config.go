package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
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
	Dashboard DashboardConfig
	Usage     UsageConfig
	Import    ImportConfig
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
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Issuer            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// DashboardConfig governs message analytics caching.
type DashboardConfig struct {
	CacheTTL    time.Duration
	DefaultDays int
	TopStudents int
}

// ModelPrice is the USD price per one million tokens.
type ModelPrice struct {
	Input  float64
	Output float64
}

// UsageConfig holds the pricing table used for cost estimation.
type UsageConfig struct {
	CacheTTL     time.Duration
	Pricing      map[string]ModelPrice
	DefaultPrice ModelPrice
}

// ImportConfig bounds roster uploads.
type ImportConfig struct {
	MaxFileSizeBytes int64
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
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
		Enabled:  v.GetBool("ENABLE_CACHE"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Issuer:            v.GetString("JWT_ISSUER"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Dashboard = DashboardConfig{
		CacheTTL:    parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
		DefaultDays: v.GetInt("DASHBOARD_DEFAULT_DAYS"),
		TopStudents: v.GetInt("DASHBOARD_TOP_STUDENTS"),
	}

	pricing, err := ParsePricing(v.GetString("USAGE_PRICING"))
	if err != nil {
		return nil, fmt.Errorf("parse USAGE_PRICING: %w", err)
	}
	defaultPrice, err := parsePrice(v.GetString("USAGE_DEFAULT_PRICING"))
	if err != nil {
		return nil, fmt.Errorf("parse USAGE_DEFAULT_PRICING: %w", err)
	}
	cfg.Usage = UsageConfig{
		CacheTTL:     parseDuration(v.GetString("USAGE_CACHE_TTL"), 10*time.Minute),
		Pricing:      pricing,
		DefaultPrice: defaultPrice,
	}

	maxImport := v.GetInt64("IMPORT_MAX_FILE_SIZE")
	if maxImport <= 0 {
		maxImport = 1 << 20
	}
	cfg.Import = ImportConfig{MaxFileSizeBytes: maxImport}

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
	v.SetDefault("DB_NAME", "teacher_dashboard")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "teacher-dashboard-api")
	v.SetDefault("JWT_EXPIRATION", "1h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")
	v.SetDefault("DASHBOARD_DEFAULT_DAYS", 30)
	v.SetDefault("DASHBOARD_TOP_STUDENTS", 5)

	v.SetDefault("USAGE_CACHE_TTL", "10m")
	v.SetDefault("USAGE_PRICING", "gpt-4o=2.5:10,gpt-4o-mini=0.15:0.6,gpt-3.5-turbo=0.5:1.5")
	v.SetDefault("USAGE_DEFAULT_PRICING", "0.5:1.5")

	v.SetDefault("IMPORT_MAX_FILE_SIZE", 1<<20)
}

// ParsePricing reads "model=input:output" pairs separated by commas.
func ParsePricing(raw string) (map[string]ModelPrice, error) {
	pricing := make(map[string]ModelPrice)
	for _, entry := range splitAndTrim(raw) {
		model, price, ok := strings.Cut(entry, "=")
		if !ok || strings.TrimSpace(model) == "" {
			return nil, fmt.Errorf("invalid pricing entry %q", entry)
		}
		parsed, err := parsePrice(price)
		if err != nil {
			return nil, fmt.Errorf("pricing for %s: %w", model, err)
		}
		pricing[strings.TrimSpace(model)] = parsed
	}
	return pricing, nil
}

func parsePrice(raw string) (ModelPrice, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ModelPrice{}, nil
	}
	in, out, ok := strings.Cut(raw, ":")
	if !ok {
		return ModelPrice{}, fmt.Errorf("expected input:output, got %q", raw)
	}
	input, err := strconv.ParseFloat(strings.TrimSpace(in), 64)
	if err != nil {
		return ModelPrice{}, err
	}
	output, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return ModelPrice{}, err
	}
	return ModelPrice{Input: input, Output: output}, nil
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
