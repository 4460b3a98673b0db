package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Attendance precedence policies accepted by PROGRESS_ATTENDANCE_PRECEDENCE.
const (
	AttendancePrecedencePrimary   = "primary"
	AttendancePrecedenceSecondary = "secondary"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Upstream UpstreamConfig
	Progress ProgressConfig
	Fanout   FanoutConfig
	Export   ExportConfig
}

type DatabaseConfig struct {
	Enabled      bool
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

// JWTConfig holds the shared secret used to verify tokens minted by the auth provider.
type JWTConfig struct {
	Enabled bool
	Secret  string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// UpstreamConfig points the service at the academic REST backend.
type UpstreamConfig struct {
	BaseURL        string
	Token          string
	Timeout        time.Duration
	MaxConcurrency int
}

// ProgressConfig tunes session windows and warning thresholds.
type ProgressConfig struct {
	WindowWeeks                int
	WindowSessions             int
	WarningScoreThreshold      float64
	WarningCompletionThreshold float64
	AttendancePrecedence       string
}

// FanoutConfig governs the upcoming-assignment cache.
type FanoutConfig struct {
	CacheTTL           time.Duration
	SharedCacheEnabled bool
	SharedCacheTTL     time.Duration
}

// ExportConfig toggles timeline exports.
type ExportConfig struct {
	Enabled bool
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
		Enabled:      v.GetBool("DB_ENABLED"),
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
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Enabled: v.GetBool("JWT_ENABLED"),
		Secret:  v.GetString("JWT_SECRET"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Upstream = UpstreamConfig{
		BaseURL:        strings.TrimRight(v.GetString("UPSTREAM_BASE_URL"), "/"),
		Token:          v.GetString("UPSTREAM_TOKEN"),
		Timeout:        parseDuration(v.GetString("UPSTREAM_TIMEOUT"), 10*time.Second),
		MaxConcurrency: v.GetInt("UPSTREAM_MAX_CONCURRENCY"),
	}
	if cfg.Upstream.MaxConcurrency <= 0 {
		cfg.Upstream.MaxConcurrency = 8
	}

	cfg.Progress = ProgressConfig{
		WindowWeeks:                v.GetInt("PROGRESS_WINDOW_WEEKS"),
		WindowSessions:             v.GetInt("PROGRESS_WINDOW_SESSIONS"),
		WarningScoreThreshold:      v.GetFloat64("PROGRESS_WARNING_SCORE_THRESHOLD"),
		WarningCompletionThreshold: v.GetFloat64("PROGRESS_WARNING_COMPLETION_THRESHOLD"),
		AttendancePrecedence:       strings.ToLower(strings.TrimSpace(v.GetString("PROGRESS_ATTENDANCE_PRECEDENCE"))),
	}
	if cfg.Progress.AttendancePrecedence != AttendancePrecedenceSecondary {
		cfg.Progress.AttendancePrecedence = AttendancePrecedencePrimary
	}

	cfg.Fanout = FanoutConfig{
		CacheTTL:           parseDuration(v.GetString("FANOUT_CACHE_TTL"), 2*time.Minute),
		SharedCacheEnabled: v.GetBool("FANOUT_SHARED_CACHE_ENABLED"),
		SharedCacheTTL:     parseDuration(v.GetString("FANOUT_SHARED_CACHE_TTL"), 2*time.Minute),
	}

	cfg.Export = ExportConfig{
		Enabled: v.GetBool("EXPORT_ENABLED"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_ENABLED", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "student_progress")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_ENABLED", false)
	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("UPSTREAM_BASE_URL", "http://localhost:3000/api")
	v.SetDefault("UPSTREAM_TOKEN", "")
	v.SetDefault("UPSTREAM_TIMEOUT", "10s")
	v.SetDefault("UPSTREAM_MAX_CONCURRENCY", 8)

	v.SetDefault("PROGRESS_WINDOW_WEEKS", 4)
	v.SetDefault("PROGRESS_WINDOW_SESSIONS", 8)
	v.SetDefault("PROGRESS_WARNING_SCORE_THRESHOLD", 60)
	v.SetDefault("PROGRESS_WARNING_COMPLETION_THRESHOLD", 70)
	v.SetDefault("PROGRESS_ATTENDANCE_PRECEDENCE", AttendancePrecedencePrimary)

	v.SetDefault("FANOUT_CACHE_TTL", "2m")
	v.SetDefault("FANOUT_SHARED_CACHE_ENABLED", false)
	v.SetDefault("FANOUT_SHARED_CACHE_TTL", "2m")

	v.SetDefault("EXPORT_ENABLED", true)
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
