package cubes

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/gekko3d/cubes/cubert/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"
)

// inputKeys are the config keys that can change while running.
type inputKeys struct {
	Color   *string     `toml:"color"`
	Angles  *[3]float32 `toml:"angles"`
	Animate *bool       `toml:"animate"`
}

// ParseInputUpdate extracts the live-editable keys from a config document.
// Other keys are ignored; absent keys leave the update field empty.
func ParseInputUpdate(data []byte) (core.InputUpdate, error) {
	var keys inputKeys
	if err := toml.NewDecoder(bytes.NewReader(data)).Decode(&keys); err != nil {
		return core.InputUpdate{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	var u core.InputUpdate
	if keys.Color != nil {
		if _, err := core.ParseColor(*keys.Color); err != nil {
			return core.InputUpdate{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		u.Color = *keys.Color
	}
	if keys.Angles != nil {
		a := mgl32.Vec3(*keys.Angles)
		u.Angles = &a
	}
	u.Animate = keys.Animate
	return u, nil
}

// WatchInput re-reads path whenever it changes and sends the live-editable
// keys on the returned channel. The parent directory is watched so editors
// that replace the file by rename are still seen. The channel is closed when
// ctx is done. The watcher never touches render state itself.
func WatchInput(ctx context.Context, path string, log Logger) (<-chan core.InputUpdate, error) {
	log = LoggerOr(log)
	path = filepath.Clean(path)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	updates := make(chan core.InputUpdate, 8)
	go func() {
		defer close(updates)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				data, err := os.ReadFile(path)
				if err != nil {
					// Renamed away mid-save; the following Create delivers the new file.
					log.Debugf("config watch: %v", err)
					continue
				}
				u, err := ParseInputUpdate(data)
				if err != nil {
					log.Warnf("config watch: ignoring %s: %v", path, err)
					continue
				}
				select {
				case updates <- u:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warnf("config watch: %v", err)
			}
		}
	}()
	return updates, nil
}
