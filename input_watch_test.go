package cubes

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gekko3d/cubes/cubert/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInputUpdate(t *testing.T) {
	u, err := ParseInputUpdate([]byte(`
title = "ignored"
instances = 5
color = "#00ff00"
angles = [0.1, 0.2, 0.3]
`))
	require.NoError(t, err)
	assert.Equal(t, "#00ff00", u.Color)
	require.NotNil(t, u.Angles)
	assert.Equal(t, mgl32.Vec3{0.1, 0.2, 0.3}, *u.Angles)
	assert.Nil(t, u.Animate)

	u, err = ParseInputUpdate([]byte(`animate = false`))
	require.NoError(t, err)
	assert.Empty(t, u.Color)
	assert.Nil(t, u.Angles)
	require.NotNil(t, u.Animate)
	assert.False(t, *u.Animate)

	_, err = ParseInputUpdate([]byte(`color = "not-a-color"`))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = ParseInputUpdate([]byte(`color = `))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestWatchInput_DeliversEdits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cubes.toml")
	require.NoError(t, os.WriteFile(path, []byte(`color = "#ffffff"`), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates, err := WatchInput(ctx, path, NewNopLogger())
	require.NoError(t, err)

	// Unrelated files in the same directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.toml"), []byte(`color = "#000000"`), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("color = \"#ff0000\"\nanimate = false\n"), 0o644))

	var got core.InputUpdate
	deadline := time.After(5 * time.Second)
	for got.Color != "#ff0000" {
		select {
		case got = <-updates:
		case <-deadline:
			t.Fatal("no update for the config edit")
		}
	}
	require.NotNil(t, got.Animate)
	assert.False(t, *got.Animate)

	s := core.NewInputState()
	require.NoError(t, s.Apply(got))
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, s.Color)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-updates:
			return !ok
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatchInput_MissingDirectory(t *testing.T) {
	_, err := WatchInput(context.Background(), filepath.Join(t.TempDir(), "nope", "cubes.toml"), nil)
	assert.Error(t, err)
}
