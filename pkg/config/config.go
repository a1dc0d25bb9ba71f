package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Row store backends.
const (
	StoreBackendSheets = "sheets"
	StoreBackendMemory = "memory"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Sheets  SheetsConfig
	Redis   RedisConfig
	JWT     JWTConfig
	CORS    CORSConfig
	Log     LogConfig
	QR      QRConfig
	Scanner ScannerConfig
	Cache   CacheConfig
}

// SheetsConfig locates the spreadsheet acting as the row store.
type SheetsConfig struct {
	Backend             string
	SpreadsheetID       string
	ServiceAccountEmail string
	ServiceAccountKey   string
	AttendanceSheet     string
	TeachersSheet       string
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
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// QRConfig selects the QR payload wire format.
type QRConfig struct {
	Format string
}

// ScannerConfig tunes scan session behaviour.
type ScannerConfig struct {
	DebounceWindow time.Duration
	SwitchRetries  int
	SwitchBackoff  time.Duration
}

// CacheConfig controls the optional redis-backed list cache.
type CacheConfig struct {
	Enabled bool
	ListTTL time.Duration
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

	cfg.Sheets = SheetsConfig{
		Backend:             v.GetString("STORE_BACKEND"),
		SpreadsheetID:       v.GetString("GOOGLE_SPREADSHEET_ID"),
		ServiceAccountEmail: v.GetString("GOOGLE_SERVICE_ACCOUNT_EMAIL"),
		ServiceAccountKey:   v.GetString("GOOGLE_SERVICE_ACCOUNT_KEY"),
		AttendanceSheet:     v.GetString("GOOGLE_ATTENDANCE_SHEET"),
		TeachersSheet:       v.GetString("GOOGLE_TEACHERS_SHEET"),
	}

	if err := cfg.Sheets.validate(); err != nil {
		return nil, err
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.QR = QRConfig{Format: strings.ToLower(v.GetString("QR_FORMAT"))}

	cfg.Scanner = ScannerConfig{
		DebounceWindow: parseDuration(v.GetString("SCAN_DEBOUNCE_WINDOW"), time.Second),
		SwitchRetries:  v.GetInt("SCAN_SOURCE_RETRIES"),
		SwitchBackoff:  parseDuration(v.GetString("SCAN_SOURCE_BACKOFF"), 250*time.Millisecond),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_LIST_CACHE"),
		ListTTL: parseDuration(v.GetString("LIST_CACHE_TTL"), 30*time.Second),
	}

	return cfg, nil
}

// validate fails fast on missing store location, per the startup contract:
// a misconfigured row store is fatal at boot, not per-call.
func (s SheetsConfig) validate() error {
	if s.Backend == StoreBackendMemory {
		return nil
	}
	for key, value := range map[string]string{
		"GOOGLE_SPREADSHEET_ID":        s.SpreadsheetID,
		"GOOGLE_SERVICE_ACCOUNT_EMAIL": s.ServiceAccountEmail,
		"GOOGLE_SERVICE_ACCOUNT_KEY":   s.ServiceAccountKey,
		"GOOGLE_ATTENDANCE_SHEET":      s.AttendanceSheet,
		"GOOGLE_TEACHERS_SHEET":        s.TeachersSheet,
	} {
		if value == "" {
			return fmt.Errorf("missing required environment variable: %s", key)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("STORE_BACKEND", StoreBackendSheets)
	v.SetDefault("GOOGLE_SPREADSHEET_ID", "")
	v.SetDefault("GOOGLE_SERVICE_ACCOUNT_EMAIL", "")
	v.SetDefault("GOOGLE_SERVICE_ACCOUNT_KEY", "")
	v.SetDefault("GOOGLE_ATTENDANCE_SHEET", "")
	v.SetDefault("GOOGLE_TEACHERS_SHEET", "")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("QR_FORMAT", "json")

	v.SetDefault("SCAN_DEBOUNCE_WINDOW", "1s")
	v.SetDefault("SCAN_SOURCE_RETRIES", 3)
	v.SetDefault("SCAN_SOURCE_BACKOFF", "250ms")

	v.SetDefault("ENABLE_LIST_CACHE", false)
	v.SetDefault("LIST_CACHE_TTL", "30s")
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
