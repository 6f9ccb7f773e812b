package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"mmuctl/core"
	"mmuctl/motion"
	"mmuctl/storage"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig([]byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, core.ModeNormal, cfg.DriverMode())
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := LoadConfig([]byte(`{
		"serial": {"device": "/dev/ttyACM1"},
		"motion": {"load": {"seek": {"steps": 1200}}}
	}`))
	require.NoError(t, err)

	def := motion.DefaultConfig()
	assert.Equal(t, "/dev/ttyACM1", cfg.Serial.Device)
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, 1200, cfg.Motion.Load.Seek.Steps)
	assert.Equal(t, def.Load.Seek.Period, cfg.Motion.Load.Seek.Period, "sibling fields keep defaults")
	assert.Equal(t, def.Unload, cfg.Motion.Unload)
}

func TestLoadConfigZeroedFields(t *testing.T) {
	cfg, err := LoadConfig([]byte(`{"mode": "", "serial": {"baud": 0}, "motion": {"slots": 0, "idler": {"stall_levels": []}}}`))
	require.NoError(t, err)
	assert.Equal(t, "normal", cfg.Mode)
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, 5, cfg.Motion.Slots)
	assert.Equal(t, motion.DefaultConfig().Idler.StallLevels, cfg.Motion.Idler.StallLevels)
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	_, err := LoadConfig([]byte(`{"mode":`))
	assert.Error(t, err)
}

func TestLoadFileYAML(t *testing.T) {
	cfg, err := LoadFile(filepath.Join("testdata", "mmu2.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, core.ModeStealth, cfg.DriverMode())
	assert.Equal(t, "mmu2.eeprom", cfg.EEPROM)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Device)
	assert.Equal(t, 250000, cfg.Serial.Baud)
	assert.Equal(t, 1, cfg.Motion.MaxFaultRetries)
	assert.Equal(t, []motion.StallLevel{{Backoff: 5, Seek: 5}}, cfg.Motion.Selector.StallLevels)
	assert.Equal(t, motion.DefaultConfig().Idler, cfg.Motion.Idler)
}

func TestLoadFileEmptyYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "none.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg, err := LoadFile(filepath.Join("testdata", "broken.json"))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	errs := multierr.Errors(err)
	assert.Len(t, errs, 3)
	assert.Contains(t, err.Error(), `mode "quiet"`)
	assert.Contains(t, err.Error(), "slots 9")
	assert.Contains(t, err.Error(), "pulley ramp")
}

func TestValidateCoversMotionProcedures(t *testing.T) {
	cfg, err := LoadConfig([]byte(`{"motion": {
		"probe": {"hits": 0},
		"load": {"correction_hits": 0},
		"unload": {"profile": {"very_slow_us": 1000}}
	}}`))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Contains(t, err.Error(), "very slow")
	assert.Contains(t, err.Error(), "sensor hit counts")
}

func TestValidateSlotsBoundedByStore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Motion.Slots = storage.Slots
	require.NoError(t, cfg.Validate())

	cfg.Motion.Slots = storage.Slots + 1
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
	assert.Error(t, cfg.Motion.Validate())
}
