package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/colornames"
)

// ErrInvalidInput marks user input that was rejected. The previous value is kept.
var ErrInvalidInput = errors.New("invalid input")

var White = mgl32.Vec4{1, 1, 1, 1}

// InputState is the per-tick input handed to the frame loop: the shared
// rotation triple, the base color and whether angles advance on their own.
type InputState struct {
	Angles  mgl32.Vec3
	Color   mgl32.Vec4
	Animate bool
}

func NewInputState() InputState {
	return InputState{Color: White, Animate: true}
}

// InputUpdate is a partial edit coming from outside the control goroutine.
// Zero fields leave the state unchanged.
type InputUpdate struct {
	Color   string
	Angles  *mgl32.Vec3
	Animate *bool
}

// Apply merges u into s. A bad color is reported but the other fields still apply.
func (s *InputState) Apply(u InputUpdate) error {
	if u.Angles != nil {
		s.Angles = WrapAngles(*u.Angles)
	}
	if u.Animate != nil {
		s.Animate = *u.Animate
	}
	if u.Color != "" {
		return s.SetColorString(u.Color)
	}
	return nil
}

// SetColorString parses a color and keeps alpha at 1. On failure the last
// valid color stays in place.
func (s *InputState) SetColorString(str string) error {
	rgb, err := ParseColor(str)
	if err != nil {
		return err
	}
	s.Color = rgb.Vec4(1)
	return nil
}

// SetAngleString sets one axis (0=x, 1=y, 2=z) from text.
func (s *InputState) SetAngleString(axis int, str string) error {
	if axis < 0 || axis > 2 {
		return fmt.Errorf("%w: axis %d", ErrInvalidInput, axis)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(str), 32)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: angle %q", ErrInvalidInput, str)
	}
	s.Angles[axis] = WrapAngle(float32(v))
	return nil
}

// Nudge adds delta to one axis and wraps it.
func (s *InputState) Nudge(axis int, delta float32) {
	if axis < 0 || axis > 2 {
		return
	}
	s.Angles[axis] = WrapAngle(s.Angles[axis] + delta)
}

// Step advances the angles by one frame when animating.
func (s *InputState) Step(targetFPS float32) {
	if s.Animate {
		s.Angles = Advance(s.Angles, targetFPS)
	}
}

// ParseHexColor parses "#rrggbb" into channels in [0, 1].
func ParseHexColor(str string) (mgl32.Vec3, error) {
	if len(str) != 7 || str[0] != '#' {
		return mgl32.Vec3{}, fmt.Errorf("%w: color %q", ErrInvalidInput, str)
	}
	v, err := strconv.ParseUint(str[1:], 16, 32)
	if err != nil {
		return mgl32.Vec3{}, fmt.Errorf("%w: color %q", ErrInvalidInput, str)
	}
	return mgl32.Vec3{
		float32((v>>16)&0xff) / 255,
		float32((v>>8)&0xff) / 255,
		float32(v&0xff) / 255,
	}, nil
}

// ParseColor accepts "#rrggbb" or a CSS color name such as "teal".
func ParseColor(str string) (mgl32.Vec3, error) {
	str = strings.TrimSpace(str)
	if strings.HasPrefix(str, "#") {
		return ParseHexColor(str)
	}
	c, ok := colornames.Map[strings.ToLower(str)]
	if !ok {
		return mgl32.Vec3{}, fmt.Errorf("%w: color %q", ErrInvalidInput, str)
	}
	return mgl32.Vec3{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255}, nil
}

// FormatHexColor is the inverse of ParseHexColor for channels in [0, 1].
func FormatHexColor(rgb mgl32.Vec3) string {
	ch := func(f float32) uint8 {
		f = mgl32.Clamp(f, 0, 1)
		return uint8(math.Round(float64(f) * 255))
	}
	return fmt.Sprintf("#%02x%02x%02x", ch(rgb[0]), ch(rgb[1]), ch(rgb[2]))
}
