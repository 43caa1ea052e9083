package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfig verifies the defaults are valid
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config is invalid: %v", err)
	}
	if cfg.Render.GridWidth != 1 || cfg.Render.GridHeight != 1 {
		t.Errorf("Expected 1x1 grid, got %dx%d", cfg.Render.GridWidth, cfg.Render.GridHeight)
	}
	if cfg.Render.NumCores < 1 {
		t.Errorf("Expected at least one core, got %d", cfg.Render.NumCores)
	}
	if cfg.Output.JPEGQuality != 90 {
		t.Errorf("Expected JPEG quality 90, got %d", cfg.Output.JPEGQuality)
	}
}

// TestLoadConfigMissingFile verifies a missing file yields the defaults
func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Render.Selector != "even" {
		t.Errorf("Expected default selector, got %q", cfg.Render.Selector)
	}
}

// TestLoadConfigPartialFile verifies values from the file override defaults
// and empty values are defaulted
func TestLoadConfigPartialFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
render:
  orientation: sagittal
  gridWidth: 3
  gridHeight: 0
  selector: ""
roi:
  threshold: 0.2
  seed: [1, 2, 3]
`)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Render.Orientation != "sagittal" {
		t.Errorf("Expected sagittal, got %q", cfg.Render.Orientation)
	}
	if cfg.Render.GridWidth != 3 || cfg.Render.GridHeight != 1 {
		t.Errorf("Expected 3x1 grid, got %dx%d", cfg.Render.GridWidth, cfg.Render.GridHeight)
	}
	if cfg.Render.Selector != "even" {
		t.Errorf("Expected defaulted selector, got %q", cfg.Render.Selector)
	}
	if cfg.ROI.Threshold != 0.2 {
		t.Errorf("Expected threshold 0.2, got %f", cfg.ROI.Threshold)
	}
	if len(cfg.ROI.Seed) != 3 {
		t.Errorf("Expected 3 seed coordinates, got %v", cfg.ROI.Seed)
	}
	if cfg.Output.Dir != "output" {
		t.Errorf("Expected default output dir, got %q", cfg.Output.Dir)
	}
}

// TestLoadConfigInvalid verifies invalid files are rejected
func TestLoadConfigInvalid(t *testing.T) {
	tempDir := t.TempDir()

	cases := map[string]string{
		"syntax":      "render: [",
		"orientation": "render:\n  orientation: oblique\n",
		"selector":    "render:\n  selector: random\n",
		"alpha":       "render:\n  alpha: 2\n",
		"mode":        "roi:\n  mode: xor\n",
		"seed":        "roi:\n  seed: [1, 2]\n",
		"quality":     "output:\n  jpegQuality: 101\n",
	}

	for name, content := range cases {
		configPath := filepath.Join(tempDir, name+".yaml")
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}
		if _, err := LoadConfig(configPath); err == nil {
			t.Errorf("%s: expected error, got nil", name)
		}
	}
}

// TestSaveConfig verifies a saved config loads back unchanged
func TestSaveConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Render.Orientation = "coronal"
	cfg.ROI.Seed = []int{4, 5, 6, 0}
	cfg.Output.Labels = true

	if err := SaveConfig(cfg, configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if loaded.Render.Orientation != "coronal" || !loaded.Output.Labels || len(loaded.ROI.Seed) != 4 {
		t.Errorf("Loaded config differs from saved one: %+v", loaded)
	}
}

// TestCreateDefaultConfigFile verifies the default file is written
func TestCreateDefaultConfigFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	if err := CreateDefaultConfigFile(configPath); err != nil {
		t.Fatalf("Failed to create default config: %v", err)
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Errorf("Config file does not exist: %s", configPath)
	}
}
