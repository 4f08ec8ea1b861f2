// Package config loads the service configuration from an optional YAML file,
// a .env file and INTAKE_* environment variables.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/newcast-health/intakeflow/internal/logging"
	"github.com/newcast-health/intakeflow/pkg/scheduling"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. INTAKE_HTTP_ADDR.
const EnvPrefix = "INTAKE"

// Backend names.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendGoogle   = "google"
	BackendFile     = "file"
	BackendNone     = "none"
	BackendTemplate = "template"
	BackendOpenAI   = "openai"
)

type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Flow       FlowConfig       `mapstructure:"flow"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	MCP        MCPConfig        `mapstructure:"mcp"`
	Calendar   CalendarConfig   `mapstructure:"calendar"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Scheduling SchedulingConfig `mapstructure:"scheduling"`
	Summary    SummaryConfig    `mapstructure:"summary"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Session    SessionConfig    `mapstructure:"session"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type FlowConfig struct {
	// Path to a YAML or JSON flow. Empty uses the bundled patient intake flow.
	Path string `mapstructure:"path"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
	// RateLimit is requests per second per client IP. Zero disables limiting.
	RateLimit float64 `mapstructure:"rate_limit"`
	Burst     int     `mapstructure:"burst"`
}

type MCPConfig struct {
	// Addr serves the SSE transport. Empty serves stdio.
	Addr    string `mapstructure:"addr"`
	BaseURL string `mapstructure:"base_url"`
}

type CalendarConfig struct {
	Backend         string        `mapstructure:"backend"`
	ID              string        `mapstructure:"id"`
	TimeZone        string        `mapstructure:"timezone"`
	Timeout         time.Duration `mapstructure:"timeout"`
	CredentialsFile string        `mapstructure:"credentials_file"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type SchedulingConfig struct {
	SlotMinutes   int    `mapstructure:"slot_minutes"`
	StepMinutes   int    `mapstructure:"step_minutes"`
	BusinessStart string `mapstructure:"business_start"`
	BusinessEnd   string `mapstructure:"business_end"`
}

type SummaryConfig struct {
	Backend string `mapstructure:"backend"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type SessionConfig struct {
	IdleTTL time.Duration `mapstructure:"idle_ttl"`
}

type ArchiveConfig struct {
	Backend string        `mapstructure:"backend"`
	Path    string        `mapstructure:"path"`
	TTL     time.Duration `mapstructure:"ttl"`
	// EncryptionKey is a base64 AES-256 key. Empty stores snapshots in clear.
	EncryptionKey string   `mapstructure:"encryption_key"`
	FallbackKeys  []string `mapstructure:"fallback_keys"`
	// MaskFacts are regular expressions; matching fact keys are masked before archiving.
	MaskFacts []string `mapstructure:"mask_facts"`
}

// Keys decodes the encryption keys. active is nil when encryption is off.
func (a ArchiveConfig) Keys() (active []byte, fallback [][]byte, err error) {
	if a.EncryptionKey == "" {
		return nil, nil, nil
	}
	decode := func(name, s string) ([]byte, error) {
		k, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%s is not valid base64: %w", name, err)
		}
		if len(k) != 32 {
			return nil, fmt.Errorf("%s must decode to 32 bytes, got %d", name, len(k))
		}
		return k, nil
	}
	if active, err = decode("archive.encryption_key", a.EncryptionKey); err != nil {
		return nil, nil, err
	}
	for i, s := range a.FallbackKeys {
		k, err := decode(fmt.Sprintf("archive.fallback_keys[%d]", i), s)
		if err != nil {
			return nil, nil, err
		}
		fallback = append(fallback, k)
	}
	return active, fallback, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("flow.path", "")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.rate_limit", 20.0)
	v.SetDefault("http.burst", 40)
	v.SetDefault("mcp.addr", "")
	v.SetDefault("mcp.base_url", "")
	v.SetDefault("calendar.backend", BackendMemory)
	v.SetDefault("calendar.id", "primary")
	v.SetDefault("calendar.timezone", scheduling.DefaultTimeZone)
	v.SetDefault("calendar.timeout", scheduling.DefaultBackendTimeout)
	v.SetDefault("calendar.credentials_file", "")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "intakeflow:")
	v.SetDefault("scheduling.slot_minutes", int(scheduling.DefaultSlotDuration/time.Minute))
	v.SetDefault("scheduling.step_minutes", int(scheduling.DefaultStep/time.Minute))
	v.SetDefault("scheduling.business_start", "09:00")
	v.SetDefault("scheduling.business_end", "17:00")
	v.SetDefault("summary.backend", BackendTemplate)
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "")
	v.SetDefault("session.idle_ttl", 30*time.Minute)
	v.SetDefault("archive.backend", BackendMemory)
	v.SetDefault("archive.path", "")
	v.SetDefault("archive.ttl", time.Duration(0))
	v.SetDefault("archive.encryption_key", "")
	v.SetDefault("archive.fallback_keys", []string{})
	v.SetDefault("archive.mask_facts", []string{})
}

// Load reads the configuration. path may be empty; a missing .env file is not an error.
// Environment variables override the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects inconsistent values. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	switch c.Calendar.Backend {
	case BackendMemory, BackendRedis:
	case BackendGoogle:
		if c.Calendar.CredentialsFile == "" {
			errs = append(errs, errors.New("calendar.credentials_file is required for the google backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown calendar.backend %q", c.Calendar.Backend))
	}
	if _, err := time.LoadLocation(c.Calendar.TimeZone); err != nil {
		errs = append(errs, fmt.Errorf("invalid calendar.timezone: %w", err))
	}
	if c.Calendar.Timeout <= 0 {
		errs = append(errs, errors.New("calendar.timeout must be positive"))
	}

	switch c.Summary.Backend {
	case BackendTemplate:
	case BackendOpenAI:
		if c.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("openai.api_key is required for the openai summary backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown summary.backend %q", c.Summary.Backend))
	}

	switch c.Archive.Backend {
	case BackendMemory, BackendFile, BackendRedis, BackendNone:
	default:
		errs = append(errs, fmt.Errorf("unknown archive.backend %q", c.Archive.Backend))
	}
	if _, _, err := c.Archive.Keys(); err != nil {
		errs = append(errs, err)
	}

	if c.Scheduling.SlotMinutes <= 0 || c.Scheduling.StepMinutes <= 0 {
		errs = append(errs, errors.New("scheduling.slot_minutes and scheduling.step_minutes must be positive"))
	}
	start, err := scheduling.ParseClock(c.Scheduling.BusinessStart)
	if err != nil {
		errs = append(errs, fmt.Errorf("scheduling.business_start: %w", err))
	}
	end, err2 := scheduling.ParseClock(c.Scheduling.BusinessEnd)
	if err2 != nil {
		errs = append(errs, fmt.Errorf("scheduling.business_end: %w", err2))
	}
	if err == nil && err2 == nil && end <= start {
		errs = append(errs, errors.New("scheduling.business_end must be after scheduling.business_start"))
	}

	if c.HTTP.RateLimit < 0 {
		errs = append(errs, errors.New("http.rate_limit must not be negative"))
	}
	if c.Session.IdleTTL <= 0 {
		errs = append(errs, errors.New("session.idle_ttl must be positive"))
	}
	return errors.Join(errs...)
}

// Location returns the clinic time zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Calendar.TimeZone)
}

// SlotOptions converts the scheduling section. The config must be valid.
func (c *Config) SlotOptions() scheduling.SlotOptions {
	start, _ := scheduling.ParseClock(c.Scheduling.BusinessStart)
	end, _ := scheduling.ParseClock(c.Scheduling.BusinessEnd)
	return scheduling.SlotOptions{
		Duration:      time.Duration(c.Scheduling.SlotMinutes) * time.Minute,
		Step:          time.Duration(c.Scheduling.StepMinutes) * time.Minute,
		BusinessStart: start,
		BusinessEnd:   end,
	}
}
