package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/multierr"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Remesh.Threshold != 0.99 {
		t.Errorf("expected threshold 0.99, got %g", cfg.Remesh.Threshold)
	}
	if cfg.Remesh.MaxPasses != 1 {
		t.Errorf("expected a single pass by default, got %d", cfg.Remesh.MaxPasses)
	}
	if !cfg.Weld.Enabled {
		t.Error("expected welding to be enabled by default")
	}
	if cfg.Weld.Epsilon != 1e-5 {
		t.Errorf("expected weld epsilon 1e-5, got %g", cfg.Weld.Epsilon)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("expected output format json, got %s", cfg.Output.Format)
	}
	if cfg.Output.Dir != "." {
		t.Errorf("expected output dir '.', got %s", cfg.Output.Dir)
	}
	if cfg.Catalog.Path != "" {
		t.Errorf("expected catalog disabled, got %s", cfg.Catalog.Path)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "polyweld.yaml")

	yamlContent := `
remesh:
  threshold: 0.95
  max_passes: 8

weld:
  enabled: false
  epsilon: 0.001

output:
  dir: "out"
  format: "pb"
  indent: 0

catalog:
  path: "meshes.db"

logging:
  level: "debug"
  log_file: "polyweld.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Remesh.Threshold != 0.95 {
		t.Errorf("expected threshold 0.95, got %g", cfg.Remesh.Threshold)
	}
	if cfg.Remesh.MaxPasses != 8 {
		t.Errorf("expected 8 passes, got %d", cfg.Remesh.MaxPasses)
	}
	if cfg.Weld.Enabled {
		t.Error("expected welding to be disabled")
	}
	if cfg.Weld.Epsilon != 0.001 {
		t.Errorf("expected epsilon 0.001, got %g", cfg.Weld.Epsilon)
	}
	if cfg.Output.Dir != "out" || cfg.Output.Format != "pb" || cfg.Output.Indent != 0 {
		t.Errorf("unexpected output config: %+v", cfg.Output)
	}
	if cfg.Catalog.Path != "meshes.db" {
		t.Errorf("expected catalog meshes.db, got %s", cfg.Catalog.Path)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.LogFile != "polyweld.log" {
		t.Errorf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoadFromFilePartial(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "polyweld.yaml")
	if err := os.WriteFile(configPath, []byte("output:\n  format: pb\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Keys missing from the file keep their defaults.
	if cfg.Output.Format != "pb" {
		t.Errorf("expected format pb, got %s", cfg.Output.Format)
	}
	if cfg.Output.Indent != 2 || cfg.Remesh.Threshold != 0.99 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "polyweld.yaml")

	if err := os.WriteFile(configPath, []byte("remesh: [not a map"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/polyweld.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errors int
	}{
		{"default", func(*Config) {}, 0},
		{"threshold one", func(c *Config) { c.Remesh.Threshold = 1 }, 0},
		{"threshold too high", func(c *Config) { c.Remesh.Threshold = 1.5 }, 1},
		{"threshold minus one", func(c *Config) { c.Remesh.Threshold = -1 }, 1},
		{"zero passes", func(c *Config) { c.Remesh.MaxPasses = 0 }, 1},
		{"negative epsilon", func(c *Config) { c.Weld.Epsilon = -0.1 }, 1},
		{"exact weld", func(c *Config) { c.Weld.Epsilon = 0 }, 0},
		{"bad format", func(c *Config) { c.Output.Format = "xml" }, 1},
		{"bad indent", func(c *Config) { c.Output.Indent = 20 }, 1},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }, 1},
		{"everything wrong", func(c *Config) {
			c.Remesh.Threshold = 2
			c.Remesh.MaxPasses = -1
			c.Weld.Epsilon = -1
			c.Output.Format = ""
			c.Output.Indent = -1
			c.Logging.Level = ""
		}, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if got := len(multierr.Errors(err)); got != tt.errors {
				t.Errorf("got %d errors (%v), want %d", got, err, tt.errors)
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !strings.Contains(strings.ToLower(dir), "polyweld") {
		t.Errorf("ConfigDir %s does not name the application", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, "polyweld.yaml")
	if err := os.WriteFile(configPath, []byte("remesh:\n  threshold: 0.9\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path == "" {
		t.Error("expected to find polyweld.yaml in current directory")
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "polyweld.yaml")

	cfg := Default()
	cfg.Remesh.MaxPasses = 4
	cfg.Output.Format = "pb"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if loaded.Remesh.MaxPasses != 4 || loaded.Output.Format != "pb" {
		t.Errorf("reloaded config = %+v", loaded)
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name: "remesh flags",
			setup: func() {
				*flagThreshold = 0.9
				*flagPasses = 5
			},
			verify: func(cfg *Config) {
				if cfg.Remesh.Threshold != 0.9 {
					t.Errorf("expected threshold 0.9, got %g", cfg.Remesh.Threshold)
				}
				if cfg.Remesh.MaxPasses != 5 {
					t.Errorf("expected 5 passes, got %d", cfg.Remesh.MaxPasses)
				}
			},
			teardown: func() {
				*flagThreshold = 0
				*flagPasses = 0
			},
		},
		{
			name:  "zero epsilon means exact weld",
			setup: func() { *flagEpsilon = 0 },
			verify: func(cfg *Config) {
				if cfg.Weld.Epsilon != 0 {
					t.Errorf("expected epsilon 0, got %g", cfg.Weld.Epsilon)
				}
			},
			teardown: func() { *flagEpsilon = -1 },
		},
		{
			name:  "noweld flag",
			setup: func() { *flagNoWeld = true },
			verify: func(cfg *Config) {
				if cfg.Weld.Enabled {
					t.Error("expected welding to be disabled")
				}
			},
			teardown: func() { *flagNoWeld = false },
		},
		{
			name: "output flags",
			setup: func() {
				*flagOut = "build"
				*flagFormat = "pb"
				*flagCatalog = "catalog.db"
			},
			verify: func(cfg *Config) {
				if cfg.Output.Dir != "build" || cfg.Output.Format != "pb" {
					t.Errorf("unexpected output config: %+v", cfg.Output)
				}
				if cfg.Catalog.Path != "catalog.db" {
					t.Errorf("expected catalog.db, got %s", cfg.Catalog.Path)
				}
			},
			teardown: func() {
				*flagOut = ""
				*flagFormat = ""
				*flagCatalog = ""
			},
		},
		{
			name:  "unset flags keep defaults",
			setup: func() {},
			verify: func(cfg *Config) {
				if cfg.Remesh.Threshold != 0.99 || cfg.Weld.Epsilon != 1e-5 {
					t.Errorf("defaults overridden: %+v", cfg)
				}
			},
			teardown: func() {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)

			tt.verify(cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "polyweld.yaml")

	yamlContent := `
remesh:
  threshold: 0.95
  max_passes: 3
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagPasses = 10
	defer func() {
		*flagConfig = ""
		*flagPasses = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Passes come from the flag, the threshold from the file.
	if cfg.Remesh.MaxPasses != 10 {
		t.Errorf("expected 10 passes from flag, got %d", cfg.Remesh.MaxPasses)
	}
	if cfg.Remesh.Threshold != 0.95 {
		t.Errorf("expected threshold 0.95 from file, got %g", cfg.Remesh.Threshold)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	*flagFormat = "xml"
	defer func() { *flagFormat = "" }()

	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)
	os.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if _, err := Load(); err == nil {
		t.Error("expected Load to reject an invalid format")
	}
}
