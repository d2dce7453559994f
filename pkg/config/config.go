package config

import (
	"errors"
	"fmt"
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

// Ledger sync modes.
const (
	LedgerModeSync     = "sync"
	LedgerModeAsync    = "async"
	LedgerModeDisabled = "disabled"
)

// DefaultUserAgent is sent on every portal request; the portal rejects non-browser agents.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Portal  PortalConfig
	Ledger  LedgerConfig
	Queue   QueueConfig
	CORS    CORSConfig
	Log     LogConfig
	Metrics MetricsConfig
}

// PortalConfig describes the upstream GraphQL portal.
type PortalConfig struct {
	GraphQLURL        string
	Timeout           time.Duration
	UserAgent         string
	DefaultPageSize   int
	MaxPageSize       int
	EnrichConcurrency int
}

// LedgerConfig describes the tabular store announcements are mirrored into.
type LedgerConfig struct {
	Mode           string
	APIURL         string
	BaseID         string
	Table          string
	APIKey         string
	WriteDelay     time.Duration
	Timeout        time.Duration
	MaxAttachments int
}

// QueueConfig tunes the in-memory queue used by async ledger mode.
type QueueConfig struct {
	BufferSize int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig toggles the Prometheus endpoints.
type MetricsConfig struct {
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Portal = PortalConfig{
		GraphQLURL:        v.GetString("PORTAL_GRAPHQL_URL"),
		Timeout:           parseDuration(v.GetString("PORTAL_TIMEOUT"), 30*time.Second),
		UserAgent:         v.GetString("PORTAL_USER_AGENT"),
		DefaultPageSize:   positiveOr(v.GetInt("PORTAL_DEFAULT_PAGE_SIZE"), 15),
		MaxPageSize:       positiveOr(v.GetInt("PORTAL_MAX_PAGE_SIZE"), 100),
		EnrichConcurrency: positiveOr(v.GetInt("ENRICH_CONCURRENCY"), 1),
	}

	cfg.Ledger = LedgerConfig{
		Mode:           strings.ToLower(strings.TrimSpace(v.GetString("LEDGER_MODE"))),
		APIURL:         strings.TrimRight(v.GetString("LEDGER_API_URL"), "/"),
		BaseID:         v.GetString("LEDGER_BASE_ID"),
		Table:          v.GetString("LEDGER_TABLE"),
		APIKey:         v.GetString("LEDGER_API_KEY"),
		WriteDelay:     parseDuration(v.GetString("LEDGER_WRITE_DELAY"), 500*time.Millisecond),
		Timeout:        parseDuration(v.GetString("LEDGER_TIMEOUT"), 30*time.Second),
		MaxAttachments: positiveOr(v.GetInt("LEDGER_MAX_ATTACHMENTS"), 5),
	}

	cfg.Queue = QueueConfig{
		BufferSize: positiveOr(v.GetInt("QUEUE_BUFFER_SIZE"), 16),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Metrics = MetricsConfig{
		Enabled: v.GetBool("ENABLE_METRICS"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints that defaults cannot express.
func (c *Config) Validate() error {
	if c.Portal.GraphQLURL == "" {
		return errors.New("PORTAL_GRAPHQL_URL is required")
	}
	if c.Portal.DefaultPageSize > c.Portal.MaxPageSize {
		return fmt.Errorf("PORTAL_DEFAULT_PAGE_SIZE (%d) exceeds PORTAL_MAX_PAGE_SIZE (%d)", c.Portal.DefaultPageSize, c.Portal.MaxPageSize)
	}
	switch c.Ledger.Mode {
	case LedgerModeSync, LedgerModeAsync:
		if c.Ledger.BaseID == "" || c.Ledger.Table == "" || c.Ledger.APIKey == "" {
			return fmt.Errorf("ledger mode %q requires LEDGER_BASE_ID, LEDGER_TABLE and LEDGER_API_KEY", c.Ledger.Mode)
		}
	case LedgerModeDisabled:
	default:
		return fmt.Errorf("unknown LEDGER_MODE %q", c.Ledger.Mode)
	}
	if c.Ledger.WriteDelay < 0 {
		return errors.New("LEDGER_WRITE_DELAY must not be negative")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 5001)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("PORTAL_GRAPHQL_URL", "https://connect.schoolstatus.com/graphql")
	v.SetDefault("PORTAL_TIMEOUT", "30s")
	v.SetDefault("PORTAL_USER_AGENT", DefaultUserAgent)
	v.SetDefault("PORTAL_DEFAULT_PAGE_SIZE", 15)
	v.SetDefault("PORTAL_MAX_PAGE_SIZE", 100)
	v.SetDefault("ENRICH_CONCURRENCY", 1)

	v.SetDefault("LEDGER_MODE", LedgerModeSync)
	v.SetDefault("LEDGER_API_URL", "https://api.airtable.com/v0")
	v.SetDefault("LEDGER_BASE_ID", "")
	v.SetDefault("LEDGER_TABLE", "Announcements")
	v.SetDefault("LEDGER_API_KEY", "")
	v.SetDefault("LEDGER_WRITE_DELAY", "500ms")
	v.SetDefault("LEDGER_TIMEOUT", "30s")
	v.SetDefault("LEDGER_MAX_ATTACHMENTS", 5)

	v.SetDefault("QUEUE_BUFFER_SIZE", 16)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("ENABLE_METRICS", true)
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

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
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
