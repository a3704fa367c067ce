package cubes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gekko3d/cubes/cubert/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100, cfg.Instances)
	assert.Equal(t, 165, cfg.TargetFPS)
	assert.True(t, cfg.Animate)

	s := cfg.InputState()
	assert.Equal(t, core.White, s.Color)
	assert.Equal(t, mgl32.Vec3{}, s.Angles)
	assert.True(t, s.Animate)
}

func TestParseConfig_OverridesDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
instances = 250
animate = false
color = "#ff8000"
angles = [0.5, 4.0, -1.0]
`))
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Instances)
	assert.Equal(t, 165, cfg.TargetFPS, "omitted keys keep defaults")
	assert.Equal(t, "Cubes", cfg.Title)

	s := cfg.InputState()
	assert.False(t, s.Animate)
	assert.InDelta(t, 1.0, s.Color[0], 1e-6)
	assert.InDelta(t, 128.0/255, s.Color[1], 1e-6)
	assert.InDelta(t, 0.0, s.Color[2], 1e-6)
	assert.Equal(t, float32(1), s.Color[3])
	assert.InDelta(t, 4.0-2*3.14159265, s.Angles[1], 1e-5, "angles are wrapped")
}

func TestParseConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", `instancez = 10`},
		{"zero instances", `instances = 0`},
		{"negative fps", `target_fps = -1`},
		{"bad color", `color = "#zzzzzz"`},
		{"zero width", `width = 0`},
		{"syntax", `instances = `},
		{"wrong type", `animate = "yes"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cubes.toml")
	require.NoError(t, os.WriteFile(path, []byte("title = \"demo\"\ncolor = \"teal\"\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.Title)
	assert.Equal(t, "teal", cfg.Color)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidConfig)
}
