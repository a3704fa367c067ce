package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"runtime"

	cubes "github.com/gekko3d/cubes"
	"github.com/gekko3d/cubes/cubert/rt/app"
	"github.com/gekko3d/cubes/cubert/rt/gpu"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	runtime.LockOSThread()
}

const nudgeStep = 0.05

// glfwSurface adapts a glfw window into a gpu.SurfaceSource.
type glfwSurface struct {
	window *glfw.Window
}

func (s glfwSurface) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(s.window)
}

// DrawableSize is the framebuffer size, i.e. the client area already scaled
// by the display's pixel density.
func (s glfwSurface) DrawableSize() gpu.Size {
	w, h := s.window.GetFramebufferSize()
	return gpu.Size{Width: uint32(max(w, 0)), Height: uint32(max(h, 0))}
}

var palette = []string{"#ffffff", "#ff6f61", "#6b5b95", "#88b04b", "#f7cac9", "#92a8d1", "gold", "teal"}

func main() {
	configPath := flag.String("config", "", "TOML config file")
	debug := flag.Bool("debug", false, "Enable debug logging (per-second frame stats)")
	instances := flag.Int("instances", 0, "Number of cubes to draw (overrides config)")
	watch := flag.Bool("watch", false, "Reload color, angles and animate from the config file when it changes")
	flag.Parse()

	log := cubes.NewDefaultLogger("cubes", *debug)

	cfg := cubes.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = cubes.LoadConfig(*configPath)
		if err != nil {
			log.Errorf("%v", err)
			os.Exit(1)
		}
	}
	if *debug {
		cfg.Debug = true
	}
	if *instances > 0 {
		cfg.Instances = *instances
	}
	if *watch {
		cfg.Watch = true
	}
	if err := cfg.Validate(); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
	log.SetDebug(cfg.Debug)

	if err := run(cfg, *configPath, log); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(cfg cubes.Config, configPath string, log cubes.Logger) error {
	if err := glfw.Init(); err != nil {
		return err
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		return err
	}
	defer window.Destroy()

	application := app.NewApp(cfg, func() (*gpu.DeviceContext, error) {
		return gpu.Initialize(glfwSurface{window: window})
	}, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Watch {
		if configPath == "" {
			log.Warnf("-watch needs -config; not watching")
		} else {
			updates, err := cubes.WatchInput(ctx, configPath, log)
			if err != nil {
				return err
			}
			application.Updates = updates
		}
	}

	if err := application.Init(); err != nil {
		return err
	}
	defer application.Release()

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		application.Resize(width, height)
	})

	paletteIndex := 0
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press && action != glfw.Repeat {
			return
		}
		switch key {
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		case glfw.KeySpace:
			application.Input.Animate = !application.Input.Animate
		case glfw.KeyR:
			application.Input.Angles = [3]float32{}
		case glfw.KeyC:
			paletteIndex = (paletteIndex + 1) % len(palette)
			if err := application.SetColor(palette[paletteIndex]); err != nil {
				log.Warnf("color %s: %v", palette[paletteIndex], err)
			}
		case glfw.KeyUp, glfw.KeyDown:
			delta := float32(nudgeStep)
			if key == glfw.KeyDown {
				delta = -delta
			}
			// Held X, Y or Z picks the axis; none nudges all three.
			for axis, k := range []glfw.Key{glfw.KeyX, glfw.KeyY, glfw.KeyZ} {
				if w.GetKey(k) == glfw.Press {
					application.Input.Nudge(axis, delta)
				}
			}
			if w.GetKey(glfw.KeyX) != glfw.Press && w.GetKey(glfw.KeyY) != glfw.Press && w.GetKey(glfw.KeyZ) != glfw.Press {
				for axis := range 3 {
					application.Input.Nudge(axis, delta)
				}
			}
		case glfw.KeyEqual, glfw.KeyKPAdd:
			if err := application.SetInstanceCount(application.Config.Instances * 2); err != nil {
				log.Warnf("instances: %v", err)
			}
		case glfw.KeyMinus, glfw.KeyKPSubtract:
			if err := application.SetInstanceCount(max(application.Config.Instances/2, 1)); err != nil {
				log.Warnf("instances: %v", err)
			}
		}
	})

	for !window.ShouldClose() {
		glfw.PollEvents()
		err := application.Tick()
		if err == nil {
			continue
		}
		if !gpu.IsRecoverable(err) {
			return err
		}
		if rerr := application.Recover(err); rerr != nil {
			return errors.Join(err, rerr)
		}
	}
	return nil
}
