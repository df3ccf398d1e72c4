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

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Booking  BookingConfig
	Events   EventsConfig
	Export   ExportConfig
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
	AutoMigrate  bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig covers verification of tokens minted by the identity service;
// this API never issues tokens itself.
type JWTConfig struct {
	Secret string
	Leeway time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// BookingConfig carries the scheduling policy knobs. Times of day inside
// availability windows are interpreted in Timezone; everything on the wire
// is epoch milliseconds.
type BookingConfig struct {
	MinNoticeHours  int
	SlotStepMinutes int
	TrialCap        int
	HorizonDays     int
	Timezone        string
	SlotsCacheTTL   time.Duration
}

// MinNotice returns the modification cutoff as a duration.
func (b BookingConfig) MinNotice() time.Duration {
	return time.Duration(b.MinNoticeHours) * time.Hour
}

// SlotStep returns the resolver step as a duration.
func (b BookingConfig) SlotStep() time.Duration {
	return time.Duration(b.SlotStepMinutes) * time.Minute
}

// EventsConfig tunes the asynchronous booking-event recorder.
type EventsConfig struct {
	WorkerConcurrency int
	WorkerRetries     int
	QueueSize         int
}

// ExportConfig bounds schedule exports and their on-disk archive.
type ExportConfig struct {
	MaxRangeDays int
	ArchiveDir   string
	ArchiveTTL   time.Duration
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
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Leeway: parseDuration(v.GetString("JWT_LEEWAY"), 30*time.Second),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Booking = BookingConfig{
		MinNoticeHours:  v.GetInt("BOOKING_MIN_NOTICE_HOURS"),
		SlotStepMinutes: v.GetInt("BOOKING_SLOT_STEP_MINUTES"),
		TrialCap:        v.GetInt("BOOKING_TRIAL_CAP"),
		HorizonDays:     v.GetInt("BOOKING_HORIZON_DAYS"),
		Timezone:        v.GetString("BOOKING_TIMEZONE"),
		SlotsCacheTTL:   parseDuration(v.GetString("BOOKING_SLOTS_CACHE_TTL"), 2*time.Minute),
	}

	cfg.Events = EventsConfig{
		WorkerConcurrency: v.GetInt("EVENTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("EVENTS_WORKER_RETRIES"),
		QueueSize:         v.GetInt("EVENTS_QUEUE_SIZE"),
	}

	cfg.Export = ExportConfig{
		MaxRangeDays: v.GetInt("EXPORT_MAX_RANGE_DAYS"),
		ArchiveDir:   v.GetString("EXPORT_ARCHIVE_DIR"),
		ArchiveTTL:   v.GetDuration("EXPORT_ARCHIVE_TTL"),
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
	v.SetDefault("DB_NAME", "tutorbase_booking")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_LEEWAY", "30s")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("BOOKING_MIN_NOTICE_HOURS", 12)
	v.SetDefault("BOOKING_SLOT_STEP_MINUTES", 30)
	v.SetDefault("BOOKING_TRIAL_CAP", 2)
	v.SetDefault("BOOKING_HORIZON_DAYS", 28)
	v.SetDefault("BOOKING_TIMEZONE", "UTC")
	v.SetDefault("BOOKING_SLOTS_CACHE_TTL", "2m")

	v.SetDefault("EVENTS_WORKER_CONCURRENCY", 1)
	v.SetDefault("EVENTS_WORKER_RETRIES", 3)
	v.SetDefault("EVENTS_QUEUE_SIZE", 256)

	v.SetDefault("EXPORT_MAX_RANGE_DAYS", 92)
	v.SetDefault("EXPORT_ARCHIVE_DIR", "./exports")
	v.SetDefault("EXPORT_ARCHIVE_TTL", "168h")
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
