package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cleberrangel/pert-estimator-api/internal/estimation"
	"github.com/cleberrangel/pert-estimator-api/internal/model"
	"github.com/joho/godotenv"
)

// Config armazena as configurações da aplicação
type Config struct {
	Port    string
	GinMode string

	LogLevel string
	LogJSON  bool

	DefaultLanguage  string
	DefaultTheme     string
	TranslationsPath string

	SessionTTL         time.Duration
	RateLimitPerMinute int
	Percentiles        []model.PercentileTarget

	// Hash bcrypt do token de acesso a /metrics (vazio = público)
	MetricsTokenHash string

	Database DatabaseConfig
}

// DatabaseConfig contém a configuração opcional do PostgreSQL
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Enabled indica se o banco de preferências foi configurado
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// Load carrega as configurações do ambiente
func Load() (*Config, error) {
	// Tenta carregar .env de múltiplos locais
	_ = godotenv.Load()
	_ = godotenv.Load("../.env")

	cfg := &Config{
		Port:             os.Getenv("PORT"),
		GinMode:          os.Getenv("GIN_MODE"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		DefaultLanguage:  os.Getenv("DEFAULT_LANGUAGE"),
		DefaultTheme:     os.Getenv("DEFAULT_THEME"),
		TranslationsPath: os.Getenv("TRANSLATIONS_PATH"),
		MetricsTokenHash: os.Getenv("METRICS_TOKEN_HASH"),
		Database: DatabaseConfig{
			Host:     os.Getenv("DB_HOST"),
			Port:     os.Getenv("DB_PORT"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   os.Getenv("DB_NAME"),
			SSLMode:  os.Getenv("DB_SSLMODE"),
		},
	}

	cfg.LogJSON = parseBool(os.Getenv("LOG_JSON"))

	ttl, err := parseDuration(os.Getenv("SESSION_TTL"), 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("SESSION_TTL inválido: %w", err)
	}
	cfg.SessionTTL = ttl

	rateLimit, err := parseInt(os.Getenv("RATE_LIMIT_PER_MINUTE"), 600)
	if err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_PER_MINUTE inválido: %w", err)
	}
	cfg.RateLimitPerMinute = rateLimit

	percentiles, err := estimation.ParsePercentileTargets(os.Getenv("PERCENTILES"))
	if err != nil {
		return nil, fmt.Errorf("PERCENTILES inválido: %w", err)
	}
	cfg.Percentiles = percentiles

	// Defaults
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	if cfg.GinMode == "" {
		cfg.GinMode = "debug"
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "ru"
	}

	if cfg.DefaultTheme == "" {
		cfg.DefaultTheme = "light"
	}

	if cfg.Database.Enabled() {
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
	}

	return cfg, nil
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}

func parseInt(v string, def int) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("valor deve ser positivo: %d", n)
	}
	return n, nil
}

func parseDuration(v string, def time.Duration) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return def, nil
	}
	return time.ParseDuration(v)
}
