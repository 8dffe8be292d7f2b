package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/frameview/frameview/internal/auth"
	"github.com/frameview/frameview/internal/config"
	"github.com/frameview/frameview/internal/frame"
	"github.com/frameview/frameview/internal/metrics"
	"github.com/frameview/frameview/internal/orchestrator"
	"github.com/frameview/frameview/internal/prefs"
	"github.com/frameview/frameview/internal/preview"
	"github.com/frameview/frameview/internal/surface"
)

// loadConfig resolves the effective configuration: file or built-in
// defaults, then environment, then any root flags the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Root().PersistentFlags()
	path, _ := flags.GetString("config")

	cfg, err := loadLocalConfig(path)
	if err != nil {
		return nil, err
	}

	if v, _ := flags.GetString("orchestrator"); v != "" {
		cfg.Orchestrator.BaseURL = v
	}
	if v, _ := flags.GetString("project"); v != "" {
		cfg.Project.ID = v
	}
	if v, _ := flags.GetString("device"); v != "" {
		cfg.Frame.Device = v
	}
	return cfg, nil
}

func loadLocalConfig(path string) (*config.Config, error) {
	if path == "" {
		path = defaultConfigPath()
	}
	if path == "" {
		return config.Default()
	}
	return config.Load(path)
}

func defaultConfigPath() string {
	if v := os.Getenv("FRAMEVIEW_CONFIG"); v != "" {
		return v
	}
	if _, err := os.Stat("frameview.yml"); err == nil {
		return "frameview.yml"
	}
	if _, err := os.Stat("frameview.yaml"); err == nil {
		return "frameview.yaml"
	}
	if dir, err := os.UserConfigDir(); err == nil {
		p := filepath.Join(dir, "frameview", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func defaultPrefsPath() string {
	p, err := prefs.DefaultPath()
	if err != nil {
		return ""
	}
	return p
}

func buildLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out io.Writer
	switch cfg.Output {
	case "", "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log output: %w", err)
		}
		out = f
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

func newOrchestratorClient(cfg *config.Config) (*orchestrator.Client, error) {
	if cfg.Orchestrator.BaseURL == "" {
		return nil, errors.New("orchestrator.base_url is not set (use --orchestrator or FRAMEVIEW_ORCHESTRATOR_URL)")
	}
	tokens, err := auth.Resolve(cfg.Orchestrator.Token, cfg.Orchestrator.TokenFile, cfg.Orchestrator.TokenEnv)
	if err != nil {
		return nil, err
	}
	return orchestrator.New(cfg.Orchestrator.BaseURL, tokens), nil
}

func buildOrchestrator(cfg *config.Config, collector *metrics.Collector) (preview.Orchestrator, error) {
	c, err := newOrchestratorClient(cfg)
	if err != nil {
		return nil, err
	}
	if collector != nil {
		return metrics.WrapOrchestrator(c, collector), nil
	}
	return c, nil
}

func buildCatalog(cfg *config.Config) (*frame.Catalog, error) {
	if len(cfg.Frame.Devices) == 0 {
		return frame.DefaultCatalog(), nil
	}
	catalog, err := frame.NewCatalog(cfg.Frame.Devices)
	if err != nil {
		return nil, fmt.Errorf("frame.devices: %w", err)
	}
	return catalog, nil
}

func buildController(cfg *config.Config, orch preview.Orchestrator, collector *metrics.Collector, logger *slog.Logger) (*surface.Controller, error) {
	catalog, err := buildCatalog(cfg)
	if err != nil {
		return nil, err
	}

	var store *prefs.Store
	if cfg.Prefs.Enabled == nil || *cfg.Prefs.Enabled {
		path := cfg.Prefs.Path
		if path == "" {
			path = defaultPrefsPath()
		}
		if path != "" {
			store, err = prefs.NewStore(path)
			if err != nil {
				return nil, err
			}
		}
	}

	var probe *surface.Prober
	if cfg.Preview.Probe {
		probe = surface.NewProber(config.Duration(cfg.Preview.ProbeTimeout))
	}

	var onPoll func(preview.PollResult)
	var onWatchdogFire func()
	if collector != nil {
		onPoll = collector.IncPoll
		onWatchdogFire = collector.IncWatchdogFire
	}

	return surface.New(orch, surface.Config{
		ProjectID:        cfg.Project.ID,
		UserID:           cfg.Project.UserID,
		Device:           cfg.Frame.Device,
		Catalog:          catalog,
		Padding:          frame.Padding{Horizontal: cfg.Frame.Padding.Horizontal, Vertical: cfg.Frame.Padding.Vertical},
		ZoomLadder:       cfg.Frame.ZoomLadder,
		InitialPollDelay: config.Duration(cfg.Preview.InitialPollDelay),
		PollInterval:     config.Duration(cfg.Preview.PollInterval),
		MaxPollAttempts:  cfg.Preview.MaxPollAttempts,
		WatchdogTimeout:  config.Duration(cfg.Preview.WatchdogTimeout),
		OnPoll:           onPoll,
		OnWatchdogFire:   onWatchdogFire,
		Prefs:            store,
		Probe:            probe,
	}, logger)
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}
