package cli

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/frameview/frameview/internal/config"
)

func scrubEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"FRAMEVIEW_CONFIG",
		"FRAMEVIEW_ORCHESTRATOR_URL",
		"FRAMEVIEW_ORCHESTRATOR_TOKEN",
		"FRAMEVIEW_PROJECT_ID",
		"FRAMEVIEW_USER_ID",
		"FRAMEVIEW_DEVICE",
		"FRAMEVIEW_BRIDGE_ADDR",
		"FRAMEVIEW_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	scrubEnv(t)

	path := filepath.Join(t.TempDir(), "frameview.yaml")
	cfgYAML := `orchestrator:
  base_url: http://file.example
project:
  id: proj-file
frame:
  device: iphone-se
`
	if err := os.WriteFile(path, []byte(cfgYAML), 0644); err != nil {
		t.Fatal(err)
	}

	root := NewRoot("test")
	flags := root.PersistentFlags()
	for k, v := range map[string]string{
		"config":       path,
		"orchestrator": "http://flag.example",
		"device":       "pixel-7",
	} {
		if err := flags.Set(k, v); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}

	cfg, err := loadConfig(root)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Orchestrator.BaseURL != "http://flag.example" {
		t.Fatalf("flag should beat file, got %q", cfg.Orchestrator.BaseURL)
	}
	if cfg.Frame.Device != "pixel-7" {
		t.Fatalf("flag should beat file, got %q", cfg.Frame.Device)
	}
	if cfg.Project.ID != "proj-file" {
		t.Fatalf("file value should survive, got %q", cfg.Project.ID)
	}
}

func TestBuildLoggerWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frameview.log")
	logger, err := buildLogger(config.LoggingConfig{Level: "debug", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("buildLogger: %v", err)
	}
	logger.Debug("probe message", "key", "value")

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"msg":"probe message"`) {
		t.Fatalf("log file missing record: %s", b)
	}
}

func TestBuildLoggerSuppressesBelowLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frameview.log")
	logger, err := buildLogger(config.LoggingConfig{Level: "warn", Output: path})
	if err != nil {
		t.Fatalf("buildLogger: %v", err)
	}
	logger.Info("hidden record")
	logger.Warn("visible record")

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "hidden record") {
		t.Fatalf("info record should be below the warn level: %s", b)
	}
	if !strings.Contains(string(b), "visible record") {
		t.Fatalf("warn record missing: %s", b)
	}
}

func TestBuildControllerHonorsFrameConfig(t *testing.T) {
	scrubEnv(t)

	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	cfg.Orchestrator.BaseURL = "http://127.0.0.1:1"
	cfg.Project.ID = "proj-1"
	cfg.Frame.Device = "ipad-mini"
	cfg.Prefs.Path = filepath.Join(t.TempDir(), "viewport.json")

	orch, err := buildOrchestrator(cfg, nil)
	if err != nil {
		t.Fatalf("buildOrchestrator: %v", err)
	}
	ctrl, err := buildController(cfg, orch, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("buildController: %v", err)
	}
	defer ctrl.Close()

	snap := ctrl.Snapshot()
	if snap.Device.ID != "ipad-mini" {
		t.Fatalf("expected configured device, got %q", snap.Device.ID)
	}
}

func TestBuildControllerRejectsUnknownDevice(t *testing.T) {
	scrubEnv(t)

	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	cfg.Orchestrator.BaseURL = "http://127.0.0.1:1"
	cfg.Frame.Device = "vision-pro"
	cfg.Prefs.Path = filepath.Join(t.TempDir(), "viewport.json")

	orch, err := buildOrchestrator(cfg, nil)
	if err != nil {
		t.Fatalf("buildOrchestrator: %v", err)
	}
	if _, err := buildController(cfg, orch, nil, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Fatal("expected unknown device error")
	}
}
