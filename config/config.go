// Package config loads the feeder configuration used by the host
// simulator: serial settings, the EEPROM backing file and the full set of
// motion constants.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"mmuctl/core"
	"mmuctl/motion"
)

// SerialConfig selects the printer link
type SerialConfig struct {
	Device        string `json:"device" yaml:"device"` // empty: stdin/stdout
	Baud          int    `json:"baud" yaml:"baud"`
	ReadTimeoutMs int    `json:"read_timeout_ms" yaml:"read_timeout_ms"`
}

// MachineConfig is one feeder
type MachineConfig struct {
	Mode   string        `json:"mode"` // "normal" or "stealth"
	Serial SerialConfig  `json:"serial"`
	EEPROM string        `json:"eeprom"` // backing file, empty keeps it in memory
	Motion motion.Config `json:"motion"`
}

// LoadConfig parses a JSON configuration. Fields left out keep the values
// of DefaultConfig.
func LoadConfig(jsonData []byte) (*MachineConfig, error) {
	config := DefaultConfig()
	if err := json.Unmarshal(jsonData, config); err != nil {
		return nil, err
	}

	// Apply defaults
	applyDefaults(config)

	return config, nil
}

// LoadFile reads a JSON or YAML file, chosen by extension
func LoadFile(path string) (*MachineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if data, err = yamlToJSON(data); err != nil {
			return nil, errors.Wrapf(err, "parse %s", path)
		}
	}
	config, err := LoadConfig(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return config, nil
}

// yamlToJSON lets YAML files share the JSON field names
func yamlToJSON(data []byte) ([]byte, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(doc)
}

// applyDefaults fills in values a file may have zeroed
func applyDefaults(config *MachineConfig) {
	if config.Mode == "" {
		config.Mode = "normal"
	}
	if config.Serial.Baud == 0 {
		config.Serial.Baud = 115200
	}
	if config.Serial.ReadTimeoutMs == 0 {
		config.Serial.ReadTimeoutMs = 10
	}
	def := motion.DefaultConfig()
	if config.Motion.Slots == 0 {
		config.Motion.Slots = def.Slots
	}
	if len(config.Motion.Selector.StallLevels) == 0 {
		config.Motion.Selector.StallLevels = def.Selector.StallLevels
	}
	if len(config.Motion.Idler.StallLevels) == 0 {
		config.Motion.Idler.StallLevels = def.Idler.StallLevels
	}
}

// DefaultConfig returns the MMU2 defaults: 115200 baud on stdin/stdout and
// an in-memory EEPROM
func DefaultConfig() *MachineConfig {
	return &MachineConfig{
		Mode: "normal",
		Serial: SerialConfig{
			Baud:          115200,
			ReadTimeoutMs: 10,
		},
		Motion: motion.DefaultConfig(),
	}
}

// DriverMode maps Mode to the driver current profile
func (c *MachineConfig) DriverMode() core.DriverMode {
	if c.Mode == "stealth" {
		return core.ModeStealth
	}
	return core.ModeNormal
}

// Validate reports every inconsistent value at once, motion constants
// included
func (c *MachineConfig) Validate() error {
	var err error
	if c.Mode != "normal" && c.Mode != "stealth" {
		err = multierr.Append(err, errors.Errorf("mode %q: want normal or stealth", c.Mode))
	}
	if c.Serial.Baud <= 0 {
		err = multierr.Append(err, errors.Errorf("serial baud %d", c.Serial.Baud))
	}
	return multierr.Append(err, c.Motion.Validate())
}
