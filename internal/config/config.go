// Package config loads the test station configuration: display geometry,
// stimulus layout, presentation timing and staircase settings. Values come
// from built-in defaults, an optional YAML file and CSF_* environment
// variables, in that order, and are validated before use.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"CSF/internal/geometry"
	"CSF/internal/staircase"
	"CSF/internal/trial"
)

// Config is the complete station configuration.
type Config struct {
	Display     DisplayConfig   `yaml:"display"`
	Stimulus    StimulusConfig  `yaml:"stimulus"`
	Timing      TimingConfig    `yaml:"timing"`
	Staircase   StaircaseConfig `yaml:"staircase"`
	Frequencies FrequencyConfig `yaml:"frequencies"`
	Demo        DemoConfig      `yaml:"demo"`
	Audio       AudioConfig     `yaml:"audio"`
	Render      RenderConfig    `yaml:"render"`
	LogLevel    string          `yaml:"log_level" validate:"oneof=debug info warn error"`
	// Seed drives every random choice. Zero seeds from the clock.
	Seed int64 `yaml:"seed"`
}

// DisplayConfig describes the screen and the subject's distance from it.
type DisplayConfig struct {
	DistanceMM float64 `yaml:"distance_mm" validate:"gt=0"`
	WidthMM    float64 `yaml:"width_mm" validate:"gt=0"`
	WidthPx    int     `yaml:"width_px" validate:"gt=0"`
	HeightPx   int     `yaml:"height_px" validate:"gt=0"`
}

// StimulusConfig sets the patch layout and rendering of gratings.
type StimulusConfig struct {
	PatchSizeDeg    float64 `yaml:"patch_size_deg" validate:"gt=0"`
	EccentricityDeg float64 `yaml:"eccentricity_deg" validate:"gte=0"`
	Gamma           float64 `yaml:"gamma" validate:"gt=0"`
	Envelope        float64 `yaml:"envelope" validate:"gt=0,lt=1"`
	SquareWave      bool    `yaml:"square_wave"`
	// Apertures draws a faint ring at every empty location.
	Apertures bool `yaml:"apertures"`
}

// TimingConfig holds the presentation durations.
type TimingConfig struct {
	PreStim time.Duration `yaml:"pre_stim" validate:"gte=0"`
	Visible time.Duration `yaml:"visible" validate:"gt=0"`
	Settle  time.Duration `yaml:"settle" validate:"gte=0"`
}

// StaircaseConfig configures the interleaved staircases run per frequency.
type StaircaseConfig struct {
	Count       int           `yaml:"count" validate:"gte=1"`
	StartValues []float64     `yaml:"start_values" validate:"required,dive,gte=0,lte=1"`
	Scale       string        `yaml:"scale" validate:"oneof=linear log"`
	Reversals   int           `yaml:"reversals" validate:"gte=2"`
	Steps       []float64     `yaml:"steps,omitempty" validate:"omitempty,dive,gt=0"`
	Escape      *EscapeConfig `yaml:"escape,omitempty"`
}

// EscapeConfig enables the ceiling escape rule.
type EscapeConfig struct {
	WrongStreak int     `yaml:"wrong_streak" validate:"gte=1"`
	Above       float64 `yaml:"above" validate:"gte=0,lte=1"`
	Result      float64 `yaml:"result" validate:"gte=0,lte=1"`
}

// FrequencyConfig lists the spatial frequencies to test, either explicitly or
// as a geometric range.
type FrequencyConfig struct {
	List   []float64 `yaml:"list,omitempty" validate:"omitempty,dive,gt=0"`
	Min    float64   `yaml:"min" validate:"gt=0"`
	Max    float64   `yaml:"max" validate:"gtefield=Min"`
	Trials int       `yaml:"trials" validate:"gte=1"`
}

// DemoConfig sets the practice stimuli.
type DemoConfig struct {
	Contrasts   []float64 `yaml:"contrasts" validate:"required,dive,gt=0,lte=1"`
	Frequencies []float64 `yaml:"frequencies" validate:"required,dive,gt=0"`
}

// AudioConfig controls the presentation cue.
type AudioConfig struct {
	Enabled bool `yaml:"enabled"`
	// CueFile is an optional WAV file played instead of the built-in tone.
	CueFile string        `yaml:"cue_file"`
	ToneHz  float64       `yaml:"tone_hz" validate:"gt=0"`
	Length  time.Duration `yaml:"length" validate:"gt=0"`
	Volume  float64       `yaml:"volume" validate:"gte=0,lte=1"`
}

// RenderConfig selects the grating rasterizer and window mode.
type RenderConfig struct {
	GPU        bool `yaml:"gpu"`
	Workers    int  `yaml:"workers" validate:"gte=0"`
	Fullscreen bool `yaml:"fullscreen"`
}

// ValidationError reports the first invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Load returns the defaults overlaid with the YAML file at path (when path is
// not empty) and the CSF_* environment, then validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Validate checks field ranges and the relations between fields.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			field := strings.TrimPrefix(fe.Namespace(), "Config.")
			return ValidationError{Field: field, Message: describe(fe)}
		}
		return err
	}
	if n := len(cfg.Staircase.StartValues); n != cfg.Staircase.Count {
		return fmt.Errorf("%w: staircase.start_values has %d entries for %d staircases",
			staircase.ErrStartValueCount, n, cfg.Staircase.Count)
	}
	scale, err := staircase.ParseScale(cfg.Staircase.Scale)
	if err != nil {
		return ValidationError{Field: "staircase.scale", Message: err.Error()}
	}
	if scale == staircase.Log {
		for i, v := range cfg.Staircase.StartValues {
			if v <= 0 {
				return ValidationError{
					Field:   fmt.Sprintf("staircase.start_values[%d]", i),
					Message: "a log staircase needs a start value above zero",
				}
			}
		}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fmt.Sprintf("failed %q", fe.Tag())
	}
	return fmt.Sprintf("failed %q (%s)", fe.Tag(), fe.Param())
}

// Geometry returns the display geometry.
func (c *Config) Geometry() geometry.Display {
	return geometry.Display{
		DistanceMM: c.Display.DistanceMM,
		WidthMM:    c.Display.WidthMM,
		WidthPx:    c.Display.WidthPx,
		HeightPx:   c.Display.HeightPx,
	}
}

// Trial returns the sequencer settings. The configuration must have been
// validated.
func (c *Config) Trial() trial.Config {
	scale, _ := staircase.ParseScale(c.Staircase.Scale)
	tc := trial.Config{
		Frequencies:  append([]float64(nil), c.Frequencies.List...),
		MinFrequency: c.Frequencies.Min,
		MaxFrequency: c.Frequencies.Max,
		Trials:       c.Frequencies.Trials,
		Staircases:   c.Staircase.Count,
		StartValues:  append([]float64(nil), c.Staircase.StartValues...),
		Scale:        scale,
		Steps:        append([]float64(nil), c.Staircase.Steps...),
		Reversals:    c.Staircase.Reversals,
		PatchSizeDeg: c.Stimulus.PatchSizeDeg,
	}
	if e := c.Staircase.Escape; e != nil {
		tc.Escape = &staircase.Escape{WrongStreak: e.WrongStreak, Above: e.Above, Result: e.Result}
	}
	return tc
}
