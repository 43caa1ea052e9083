// Package config provides configuration loading and management for imagedataview.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"imagedataview/pkg/orientation"
	"imagedataview/pkg/roi"
	"imagedataview/pkg/slicesel"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Input parameters
	Input struct {
		// Dir is a directory of numbered 2D slices. When empty a phantom is generated.
		Dir string `yaml:"dir"`

		// Orientation is the main orientation the slices were acquired in
		Orientation string `yaml:"orientation"`

		// PhantomSize is the edge length of the generated phantom volume
		PhantomSize int `yaml:"phantomSize"`

		// PhantomTimesteps is the number of timesteps of the generated phantom volume
		PhantomTimesteps int `yaml:"phantomTimesteps"`
	} `yaml:"input"`

	// Render parameters
	Render struct {
		// Orientation is the target orientation of the rendered view
		Orientation string `yaml:"orientation"`

		// Slice and Timestep select what is shown in single slice mode
		Slice    int `yaml:"slice"`
		Timestep int `yaml:"timestep"`

		// GridWidth and GridHeight define the slice grid, 1x1 shows a single slice
		GridWidth  int `yaml:"gridWidth"`
		GridHeight int `yaml:"gridHeight"`

		// Alpha is the opacity of the background layer
		Alpha float64 `yaml:"alpha"`

		// Selector picks grid slices: "even" or "content"
		Selector string `yaml:"selector"`

		// PlaneCacheSize is the number of sampled planes each renderer keeps
		PlaneCacheSize int `yaml:"planeCacheSize"`

		// NumCores limits how many orientations are exported in parallel
		NumCores int `yaml:"numCores"`
	} `yaml:"render"`

	// ROI parameters
	ROI struct {
		// Label is the name of the ROI created from the seed
		Label string `yaml:"label"`

		// Mode is "add" or "remove"
		Mode string `yaml:"mode"`

		// Threshold is the lower (exclusive) bound of the threshold flood fill
		Threshold float64 `yaml:"threshold"`

		// Seed is an optional (column, row, slice, timestep) to select from
		Seed []int `yaml:"seed"`
	} `yaml:"roi"`

	// Output parameters
	Output struct {
		// Dir is the directory all images are written to
		Dir string `yaml:"dir"`

		// JPEGQuality is used for exported slice sequences
		JPEGQuality int `yaml:"jpegQuality"`

		// Colortable colors the background layer
		Colortable string `yaml:"colortable"`

		// Labels draws slice numbers into grid cells
		Labels bool `yaml:"labels"`

		// SaveSequences exports every slice of every orientation
		SaveSequences bool `yaml:"saveSequences"`
	} `yaml:"output"`

	// Logging parameters
	Logging struct {
		// Level is one of debug, info, warning or error
		Level string `yaml:"level"`

		// Indent pretty prints JSON log entries
		Indent bool `yaml:"indent"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default input parameters
	cfg.Input.Orientation = orientation.Axial.String()
	cfg.Input.PhantomSize = 64
	cfg.Input.PhantomTimesteps = 1

	// Set default render parameters
	cfg.Render.Orientation = orientation.Axial.String()
	cfg.Render.GridWidth = 1
	cfg.Render.GridHeight = 1
	cfg.Render.Alpha = 1.0
	cfg.Render.Selector = "even"
	cfg.Render.PlaneCacheSize = 64
	cfg.Render.NumCores = runtime.NumCPU() // Use all available cores by default

	// Set default ROI parameters
	cfg.ROI.Label = "roi"
	cfg.ROI.Mode = roi.Add.String()
	cfg.ROI.Threshold = 0.5

	// Set default output parameters
	cfg.Output.Dir = "output"
	cfg.Output.JPEGQuality = 90
	cfg.Output.Colortable = "gray"

	// Set default logging parameters
	cfg.Logging.Level = "info"

	return cfg
}

// applyDefaults fills values a partial YAML file left empty.
func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Input.Orientation == "" {
		cfg.Input.Orientation = defaults.Input.Orientation
	}
	if cfg.Input.PhantomSize <= 0 {
		cfg.Input.PhantomSize = defaults.Input.PhantomSize
	}
	if cfg.Input.PhantomTimesteps <= 0 {
		cfg.Input.PhantomTimesteps = defaults.Input.PhantomTimesteps
	}
	if cfg.Render.Orientation == "" {
		cfg.Render.Orientation = defaults.Render.Orientation
	}
	if cfg.Render.GridWidth <= 0 {
		cfg.Render.GridWidth = defaults.Render.GridWidth
	}
	if cfg.Render.GridHeight <= 0 {
		cfg.Render.GridHeight = defaults.Render.GridHeight
	}
	if cfg.Render.Selector == "" {
		cfg.Render.Selector = defaults.Render.Selector
	}
	if cfg.Render.PlaneCacheSize <= 0 {
		cfg.Render.PlaneCacheSize = defaults.Render.PlaneCacheSize
	}
	if cfg.Render.NumCores <= 0 {
		cfg.Render.NumCores = defaults.Render.NumCores
	}
	if cfg.ROI.Label == "" {
		cfg.ROI.Label = defaults.ROI.Label
	}
	if cfg.ROI.Mode == "" {
		cfg.ROI.Mode = defaults.ROI.Mode
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = defaults.Output.Dir
	}
	if cfg.Output.JPEGQuality <= 0 {
		cfg.Output.JPEGQuality = defaults.Output.JPEGQuality
	}
	if cfg.Output.Colortable == "" {
		cfg.Output.Colortable = defaults.Output.Colortable
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	if _, err := orientation.Parse(c.Input.Orientation); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	if _, err := orientation.Parse(c.Render.Orientation); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if _, err := slicesel.ByName(c.Render.Selector); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if c.Render.Alpha < 0 || c.Render.Alpha > 1 {
		return fmt.Errorf("render: alpha %.2f outside [0, 1]", c.Render.Alpha)
	}
	if _, err := roi.ParseMode(c.ROI.Mode); err != nil {
		return fmt.Errorf("roi: %w", err)
	}
	if n := len(c.ROI.Seed); n != 0 && n != 3 && n != 4 {
		return fmt.Errorf("roi: seed needs 3 or 4 coordinates, got %d", n)
	}
	if c.Output.JPEGQuality > 100 {
		return fmt.Errorf("output: jpeg quality %d above 100", c.Output.JPEGQuality)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
