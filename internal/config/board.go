// Package config loads the controller's runtime settings. The clock divisor
// is not configurable: it is a property of the board, not of a deployment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/lift-controller/internal/serialmux"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/board.defaults.json"

// Serial port values that do not name a device.
const (
	PortMock = "mock"
	PortNone = "none"
)

// BoardConfig is the root runtime configuration. Fields omitted from the
// file fall back to the defaults returned by the Get* methods.
type BoardConfig struct {
	// Board link: a device path, "mock" for the simulated board or "none".
	SerialPort *string                `json:"serial_port,omitempty"`
	Serial     *serialmux.PortOptions `json:"serial,omitempty"`

	Listen *string `json:"listen,omitempty"`
	DBPath *string `json:"db_path,omitempty"`

	// External collaborator data
	FloorTable   *string `json:"floor_table,omitempty"`
	SegmentTable *string `json:"segment_table,omitempty"`

	// Pacing
	TimeScale     *float64 `json:"time_scale,omitempty"`
	FrameInterval *string  `json:"frame_interval,omitempty"` // duration string like "20ms"
	OutputRateHz  *float64 `json:"output_rate_hz,omitempty"`
}

func ptrString(v string) *string    { return &v }
func ptrFloat64(v float64) *float64 { return &v }

// EmptyBoardConfig returns a BoardConfig with all fields unset.
func EmptyBoardConfig() *BoardConfig {
	return &BoardConfig{}
}

// LoadBoardConfig loads a BoardConfig from a JSON file. The file must have a
// .json extension and be under 1MB. Partial files are allowed.
func LoadBoardConfig(path string) (*BoardConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyBoardConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the working directory or
// a parent of it. Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *BoardConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadBoardConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *BoardConfig) Validate() error {
	if c.Serial != nil {
		if _, err := c.Serial.Normalize(); err != nil {
			return fmt.Errorf("serial: %w", err)
		}
	}

	if c.TimeScale != nil && *c.TimeScale <= 0 {
		return fmt.Errorf("time_scale must be positive, got %g", *c.TimeScale)
	}

	if c.FrameInterval != nil && *c.FrameInterval != "" {
		d, err := time.ParseDuration(*c.FrameInterval)
		if err != nil {
			return fmt.Errorf("invalid frame_interval '%s': %w", *c.FrameInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("frame_interval must be positive, got %s", d)
		}
	}

	if c.OutputRateHz != nil && *c.OutputRateHz < 0 {
		return fmt.Errorf("output_rate_hz must be non-negative, got %g", *c.OutputRateHz)
	}

	for name, p := range map[string]*string{"floor_table": c.FloorTable, "segment_table": c.SegmentTable} {
		if p == nil || *p == "" {
			continue
		}
		if ext := filepath.Ext(*p); ext != ".yaml" && ext != ".yml" {
			return fmt.Errorf("%s must be a YAML file, got %q", name, *p)
		}
	}

	return nil
}

// GetSerialPort returns the board link, defaulting to the mock board.
func (c *BoardConfig) GetSerialPort() string {
	if c.SerialPort == nil || *c.SerialPort == "" {
		return PortMock
	}
	return *c.SerialPort
}

// GetSerial returns the normalised port options.
func (c *BoardConfig) GetSerial() serialmux.PortOptions {
	var opts serialmux.PortOptions
	if c.Serial != nil {
		opts = *c.Serial
	}
	n, err := opts.Normalize()
	if err != nil {
		n, _ = serialmux.PortOptions{}.Normalize()
	}
	return n
}

// GetListen returns the HTTP listen address.
func (c *BoardConfig) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return "localhost:8080"
	}
	return *c.Listen
}

// GetDBPath returns the trace database path. An explicit empty string
// disables the trace store.
func (c *BoardConfig) GetDBPath() string {
	if c.DBPath == nil {
		return "lift.db"
	}
	return *c.DBPath
}

// GetFloorTable returns the transition table path.
func (c *BoardConfig) GetFloorTable() string {
	if c.FloorTable == nil || *c.FloorTable == "" {
		return "config/floors.example.yaml"
	}
	return *c.FloorTable
}

// GetSegmentTable returns the decoder table path.
func (c *BoardConfig) GetSegmentTable() string {
	if c.SegmentTable == nil || *c.SegmentTable == "" {
		return "config/segments.example.yaml"
	}
	return *c.SegmentTable
}

// GetTimeScale returns the pacing multiplier.
func (c *BoardConfig) GetTimeScale() float64 {
	if c.TimeScale == nil || *c.TimeScale <= 0 {
		return 1
	}
	return *c.TimeScale
}

// GetFrameInterval parses and returns the FrameInterval as a time.Duration.
func (c *BoardConfig) GetFrameInterval() time.Duration {
	if c.FrameInterval == nil || *c.FrameInterval == "" {
		return 20 * time.Millisecond
	}
	d, err := time.ParseDuration(*c.FrameInterval)
	if err != nil || d <= 0 {
		return 20 * time.Millisecond
	}
	return d
}

// GetOutputRateHz returns the output frame rate limit. Zero means unlimited.
func (c *BoardConfig) GetOutputRateHz() float64 {
	if c.OutputRateHz == nil {
		return 25
	}
	return *c.OutputRateHz
}
