// Package settings loads application configuration from YAML files and
// environment variables. Loading is explicit: Load returns a value and keeps
// no process-wide cache, so tests and callers can construct as many
// independent configurations as they need.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Credentials holds the Kiwoom REST credential values.
type Credentials struct {
	// AppKey is the Kiwoom REST application key.
	AppKey string

	// SecretKey is the secret paired with AppKey.
	SecretKey string

	// AccountNo is the raw trading account number. It may contain
	// separators (e.g. "12345678-01"); the client strips non-digits.
	AccountNo string
}

// Masked returns a representation safe for logging.
func (c Credentials) Masked() map[string]string {
	return map[string]string{
		"app_key":    maskTail(c.AppKey, 3),
		"secret_key": maskTail(c.SecretKey, 3),
		"account_no": maskTail(c.AccountNo, 3),
	}
}

func maskTail(s string, keep int) string {
	if s == "" {
		return ""
	}
	if len(s) <= keep {
		return strings.Repeat("*", len(s))
	}
	return s[:keep] + "***"
}

// BaseURL is the base_url node of the Kiwoom config section. The vendor
// config historically allowed either a flat string or a per-environment
// hosts table, so both shapes unmarshal.
type BaseURL struct {
	// Flat is set when base_url is a plain string.
	Flat string

	// Hosts maps environment keys ("paper", "live") to base URLs. Set when
	// base_url is a table, either {hosts: {paper: ..., live: ...}} or the
	// environment map directly.
	Hosts map[string]string
}

// UnmarshalYAML implements yaml.Unmarshaler for the two accepted shapes.
func (b *BaseURL) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		return value.Decode(&b.Flat)
	case yaml.MappingNode:
		var wrapper struct {
			Hosts map[string]string `yaml:"hosts"`
		}
		if err := value.Decode(&wrapper); err == nil && len(wrapper.Hosts) > 0 {
			b.Hosts = wrapper.Hosts
			return nil
		}
		return value.Decode(&b.Hosts)
	default:
		return fmt.Errorf("base_url must be a string or a mapping")
	}
}

// KiwoomConfig is the kiwoom section of data_sources.yaml.
type KiwoomConfig struct {
	BaseURL        BaseURL           `yaml:"base_url"`
	Endpoints      map[string]string `yaml:"endpoints"`
	DefaultHeaders map[string]string `yaml:"default_headers"`

	// TRIDOverrides replaces the built-in timeframe transaction IDs per
	// timeframe token when the vendor rotates them.
	TRIDOverrides map[string]string `yaml:"tr_id_overrides"`

	// WebhookURL, when set, routes failure notifications to a webhook in
	// addition to the log.
	WebhookURL string `yaml:"webhook_url"`

	// RequestsPerSecond bounds outbound request pacing. Zero means the
	// default of 10/s.
	RequestsPerSecond int `yaml:"requests_per_second"`
}

// RiskConfig is the risk.yaml document consumed by pkg/risk.
type RiskConfig struct {
	PositionLimits struct {
		MaxPositions int `yaml:"max_positions"`
	} `yaml:"position_limits"`
	Drawdown struct {
		IntradayPct float64 `yaml:"intraday_pct"`
	} `yaml:"drawdown"`
	Cooldown struct {
		OrderSeconds float64 `yaml:"order_seconds"`
	} `yaml:"cooldown"`
}

// Settings is the primary application configuration container.
type Settings struct {
	// Mode is the trading environment: "paper" or "live".
	Mode string

	// RESTTimeout bounds every REST round trip.
	RESTTimeout time.Duration

	Credentials Credentials
	Kiwoom      KiwoomConfig
	Risk        RiskConfig

	// LogLevel controls logger verbosity ("debug", "info", "warn", "error").
	LogLevel string
}

// IsLive reports whether the settings target a live account.
func (s *Settings) IsLive() bool {
	return strings.EqualFold(s.Mode, "live")
}

type dataSourcesFile struct {
	Kiwoom KiwoomConfig `yaml:"kiwoom"`
}

// Load reads .env (best effort), environment variables, and the YAML files
// under configDir (data_sources.yaml, risk.yaml). Missing files yield empty
// sections rather than errors; the client applies its own fallbacks.
func Load(configDir string) (*Settings, error) {
	// Absence of a .env file is expected in production where variables come
	// from the process environment.
	_ = godotenv.Load()

	timeout := 5 * time.Second
	if raw := os.Getenv("REST_TIMEOUT"); raw != "" {
		secs, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid REST_TIMEOUT %q: %w", raw, err)
		}
		timeout = time.Duration(secs * float64(time.Second))
	}

	mode := os.Getenv("MODE")
	if mode == "" {
		mode = "paper"
	}

	s := &Settings{
		Mode:        mode,
		RESTTimeout: timeout,
		Credentials: Credentials{
			AppKey:    firstEnv("KIWOOM_APP_KEY", "KIWOOM_APP_SKY"),
			SecretKey: firstEnv("KIWOOM_SEC_KEY", "KIWOOM_APP_SECRET"),
			AccountNo: os.Getenv("KIWOOM_ACCOUNT_NO"),
		},
		LogLevel: os.Getenv("LOG_LEVEL"),
	}

	var sources dataSourcesFile
	if err := loadYAML(filepath.Join(configDir, "data_sources.yaml"), &sources); err != nil {
		return nil, err
	}
	s.Kiwoom = sources.Kiwoom

	if err := loadYAML(filepath.Join(configDir, "risk.yaml"), &s.Risk); err != nil {
		return nil, err
	}

	return s, nil
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
