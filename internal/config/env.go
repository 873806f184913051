package config

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment override. A key such as
// timing.visible is read from CSF_TIMING_VISIBLE.
const EnvPrefix = "CSF"

// Short aliases kept for station scripts.
const (
	EnvDistanceMM = "CSF_DISTANCE_MM"
	EnvWidthMM    = "CSF_SCREEN_WIDTH_MM"
	EnvWidthPx    = "CSF_SCREEN_WIDTH_PX"
	EnvHeightPx   = "CSF_SCREEN_HEIGHT_PX"
	EnvVisible    = "CSF_VISIBLE"
	EnvSeed       = "CSF_SEED"
	EnvLogLevel   = "CSF_LOG_LEVEL"
	EnvGPU        = "CSF_GPU"
	EnvAudio      = "CSF_AUDIO"
)

// envKeys lists the settings that may be overridden from the environment,
// with an optional short alias.
var envKeys = []struct {
	key   string
	alias string
}{
	{"display.distance_mm", EnvDistanceMM},
	{"display.width_mm", EnvWidthMM},
	{"display.width_px", EnvWidthPx},
	{"display.height_px", EnvHeightPx},
	{"stimulus.patch_size_deg", ""},
	{"stimulus.eccentricity_deg", ""},
	{"stimulus.gamma", ""},
	{"timing.pre_stim", ""},
	{"timing.visible", EnvVisible},
	{"timing.settle", ""},
	{"staircase.reversals", ""},
	{"audio.enabled", EnvAudio},
	{"audio.cue_file", ""},
	{"render.gpu", EnvGPU},
	{"render.workers", ""},
	{"log_level", EnvLogLevel},
	{"seed", EnvSeed},
}

// EnvName is the canonical variable for a dotted configuration key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// newEnvViper binds every overridable key to its canonical variable and
// alias. Only variables that are set and non-empty reach the settings.
func newEnvViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range envKeys {
		names := []string{k.key, EnvName(k.key)}
		if k.alias != "" && k.alias != EnvName(k.key) {
			names = append(names, k.alias)
		}
		_ = v.BindEnv(names...)
	}
	return v
}

// applyEnv overlays the CSF_* environment on cfg, leaving unset fields alone.
func applyEnv(cfg *Config) error {
	v := newEnvViper()
	err := v.Unmarshal(cfg, viper.DecoderConfigOption(func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	}))
	if err != nil {
		return fmt.Errorf("invalid %s_* environment override: %w", EnvPrefix, err)
	}
	return nil
}
