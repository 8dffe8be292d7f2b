package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/frameview/frameview/internal/frame"
)

type Config struct {
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Project      ProjectConfig      `yaml:"project"`
	Preview      PreviewConfig      `yaml:"preview"`
	Frame        FrameConfig        `yaml:"frame"`
	Prefs        PrefsConfig        `yaml:"prefs"`
	Bridge       BridgeConfig       `yaml:"bridge"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// OrchestratorConfig locates and authenticates against the sandbox
// orchestration service. Credential precedence: token, then token_file, then
// the token_env environment variable.
type OrchestratorConfig struct {
	BaseURL   string `yaml:"base_url"`
	Token     string `yaml:"token"`
	TokenFile string `yaml:"token_file"`
	TokenEnv  string `yaml:"token_env"`
}

type ProjectConfig struct {
	ID     string `yaml:"id"`
	UserID string `yaml:"user_id"`
}

// PreviewConfig bounds the session lifecycle. Durations are strings parsed
// with time.ParseDuration at the point of use.
type PreviewConfig struct {
	InitialPollDelay string `yaml:"initial_poll_delay"`
	PollInterval     string `yaml:"poll_interval"`
	MaxPollAttempts  int    `yaml:"max_poll_attempts"`
	WatchdogTimeout  string `yaml:"watchdog_timeout"`

	// Probe fetches the surface URL once per arm to stand in for the
	// browser's load signal. Useful for headless consumers.
	Probe        bool   `yaml:"probe"`
	ProbeTimeout string `yaml:"probe_timeout"`
}

type FrameConfig struct {
	Device     string        `yaml:"device"`
	Padding    PaddingConfig `yaml:"padding"`
	ZoomLadder []float64     `yaml:"zoom_ladder"`

	// Devices replaces the builtin catalog entirely when set.
	Devices []frame.Profile `yaml:"devices"`
}

type PaddingConfig struct {
	Horizontal int `yaml:"horizontal"`
	Vertical   int `yaml:"vertical"`
}

type PrefsConfig struct {
	// Enabled defaults to true; viewport choices persist per project.
	Enabled *bool  `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type BridgeConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  string        `yaml:"read_timeout"`
	WriteTimeout string        `yaml:"write_timeout"`
	Metrics      MetricsConfig `yaml:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromBytes loads configuration from bytes without applying environment
// overrides. This is intended for testing where env vars should not interfere.
func LoadFromBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default builds the configuration used when no config file is given. Env
// overrides still apply and can still fail validation.
func Default() (*Config, error) {
	var cfg Config
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Orchestrator.TokenEnv == "" {
		cfg.Orchestrator.TokenEnv = "FRAMEVIEW_ORCHESTRATOR_TOKEN"
	}
	if cfg.Preview.InitialPollDelay == "" {
		cfg.Preview.InitialPollDelay = "2s"
	}
	if cfg.Preview.PollInterval == "" {
		cfg.Preview.PollInterval = "10s"
	}
	if cfg.Preview.MaxPollAttempts <= 0 {
		cfg.Preview.MaxPollAttempts = 30
	}
	if cfg.Preview.WatchdogTimeout == "" {
		cfg.Preview.WatchdogTimeout = "30s"
	}
	if cfg.Preview.ProbeTimeout == "" {
		cfg.Preview.ProbeTimeout = "10s"
	}
	if cfg.Frame.Padding.Horizontal == 0 {
		cfg.Frame.Padding.Horizontal = frame.DefaultPadding.Horizontal
	}
	if cfg.Frame.Padding.Vertical == 0 {
		cfg.Frame.Padding.Vertical = frame.DefaultPadding.Vertical
	}
	// prefs default enabled unless explicitly disabled
	if cfg.Prefs.Enabled == nil {
		t := true
		cfg.Prefs.Enabled = &t
	}
	if cfg.Bridge.Addr == "" {
		cfg.Bridge.Addr = "127.0.0.1:7465"
	}
	if cfg.Bridge.ReadTimeout == "" {
		cfg.Bridge.ReadTimeout = "30s"
	}
	if cfg.Bridge.WriteTimeout == "" {
		cfg.Bridge.WriteTimeout = "30s"
	}
	if cfg.Bridge.Metrics.Path == "" {
		cfg.Bridge.Metrics.Path = "/metrics"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FRAMEVIEW_ORCHESTRATOR_URL"); v != "" {
		cfg.Orchestrator.BaseURL = v
	}
	if v := os.Getenv("FRAMEVIEW_PROJECT_ID"); v != "" {
		cfg.Project.ID = v
	}
	if v := os.Getenv("FRAMEVIEW_USER_ID"); v != "" {
		cfg.Project.UserID = v
	}
	if v := os.Getenv("FRAMEVIEW_DEVICE"); v != "" {
		cfg.Frame.Device = v
	}
	if v := os.Getenv("FRAMEVIEW_BRIDGE_ADDR"); v != "" {
		cfg.Bridge.Addr = v
	}
	if v := os.Getenv("FRAMEVIEW_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func validateConfig(cfg *Config) error {
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logging.format %q", cfg.Logging.Format)
	}
	for _, d := range []struct {
		name  string
		value string
	}{
		{"preview.initial_poll_delay", cfg.Preview.InitialPollDelay},
		{"preview.poll_interval", cfg.Preview.PollInterval},
		{"preview.watchdog_timeout", cfg.Preview.WatchdogTimeout},
		{"preview.probe_timeout", cfg.Preview.ProbeTimeout},
		{"bridge.read_timeout", cfg.Bridge.ReadTimeout},
		{"bridge.write_timeout", cfg.Bridge.WriteTimeout},
	} {
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("invalid %s %q", d.name, d.value)
		}
	}
	for _, z := range cfg.Frame.ZoomLadder {
		if z <= 0 {
			return fmt.Errorf("invalid frame.zoom_ladder entry %v: must be positive", z)
		}
	}
	if cfg.Frame.Padding.Horizontal < 0 || cfg.Frame.Padding.Vertical < 0 {
		return fmt.Errorf("frame.padding must not be negative")
	}
	return nil
}

// Duration parses one of the config's duration strings. Validation already
// proved the defaults and any loaded values parse, so bad input here is a
// programming error surfaced as the zero duration.
func Duration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
