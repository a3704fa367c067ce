package cubes

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/gekko3d/cubes/cubert/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config is the renderer's startup configuration. The color, angles and
// animate keys may also be edited while running when Watch is set.
type Config struct {
	Title     string     `toml:"title"`
	Width     int        `toml:"width"`
	Height    int        `toml:"height"`
	Instances int        `toml:"instances"`
	TargetFPS int        `toml:"target_fps"`
	Animate   bool       `toml:"animate"`
	Color     string     `toml:"color"`
	Angles    [3]float32 `toml:"angles"`
	Debug     bool       `toml:"debug"`
	Watch     bool       `toml:"watch"`
}

func DefaultConfig() Config {
	return Config{
		Title:     "Cubes",
		Width:     1280,
		Height:    720,
		Instances: core.DefaultInstanceCount,
		TargetFPS: core.DefaultTargetFPS,
		Animate:   true,
		Color:     "#ffffff",
	}
}

// LoadConfig reads path over the defaults. Keys the file omits keep their
// default values; unknown keys are an error.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("%w: %s", ErrInvalidConfig, strict.String())
		}
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: window size %dx%d", ErrInvalidConfig, c.Width, c.Height)
	case c.Instances <= 0:
		return fmt.Errorf("%w: instances must be positive, got %d", ErrInvalidConfig, c.Instances)
	case c.TargetFPS <= 0:
		return fmt.Errorf("%w: target_fps must be positive, got %d", ErrInvalidConfig, c.TargetFPS)
	}
	if _, err := core.ParseColor(c.Color); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	for i, a := range c.Angles {
		if math.IsNaN(float64(a)) || math.IsInf(float64(a), 0) {
			return fmt.Errorf("%w: angles[%d] is not finite", ErrInvalidConfig, i)
		}
	}
	return nil
}

// InputState is the initial per-tick input described by the config.
func (c Config) InputState() core.InputState {
	s := core.NewInputState()
	s.Animate = c.Animate
	s.Angles = core.WrapAngles(mgl32.Vec3(c.Angles))
	// Validate has already accepted the color; a bad one keeps white.
	_ = s.SetColorString(c.Color)
	return s
}
