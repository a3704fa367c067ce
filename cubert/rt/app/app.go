package app

import (
	"errors"
	"fmt"
	"time"

	cubes "github.com/gekko3d/cubes"
	"github.com/gekko3d/cubes/cubert/rt/core"
	"github.com/gekko3d/cubes/cubert/rt/gpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

var (
	ErrNotInitialized = errors.New("app not initialized")
	// ErrRecoveryLimit stops a session that keeps failing right after being rebuilt.
	ErrRecoveryLimit = errors.New("too many consecutive recoveries")
)

// MaxRecoveries is how many times in a row Recover may rebuild the session
// without a successful Tick in between.
const MaxRecoveries = 3

// OpenFunc negotiates a device and surface for one session.
type OpenFunc func() (*gpu.DeviceContext, error)

// App is one render session: a device context, the cube pass resources and
// the input state that drives them. All methods run on the control goroutine.
type App struct {
	Config  cubes.Config
	Log     cubes.Logger
	Open    OpenFunc
	Shaders gpu.ShaderSource

	// SessionID changes every time the device is rebuilt.
	SessionID uuid.UUID
	Context   *gpu.DeviceContext
	Resources *gpu.ResourceSet

	Input core.InputState
	// Updates is drained without blocking at the start of every tick.
	Updates <-chan core.InputUpdate

	Profiler *Profiler
	Clock    *cubes.Clock

	layout     []core.Transform
	mvps       []mgl32.Mat4
	lastStats  time.Time
	recoveries int
}

func NewApp(cfg cubes.Config, open OpenFunc, log cubes.Logger) *App {
	return &App{
		Config:   cfg,
		Log:      cubes.LoggerOr(log),
		Open:     open,
		Shaders:  gpu.DefaultShaders(),
		Input:    cfg.InputState(),
		Profiler: NewProfiler(),
		Clock:    cubes.NewClock(),
	}
}

// Init opens a new session, builds the pipeline and resources and draws the
// first frame with the current input before any animation step.
func (a *App) Init() error {
	a.SessionID = uuid.New()
	ctx, err := a.Open()
	if err != nil {
		return err
	}
	a.Context = ctx

	limits := ctx.Device.Limits()
	a.Log.Infof("session %s: surface %v %dx%d, storage binding limit %d bytes, buffer limit %d bytes",
		a.SessionID, ctx.Format, ctx.Size.Width, ctx.Size.Height,
		limits.MaxStorageBufferBindingSize, limits.MaxBufferSize)

	pipeline, err := gpu.BuildPipeline(ctx.Device, ctx.Format, a.Shaders)
	if err != nil {
		a.Release()
		return err
	}
	a.Resources, err = gpu.Allocate(ctx.Device, pipeline, a.Config.Instances, ctx.Size)
	if err != nil {
		a.Release()
		return err
	}
	a.setLayout(a.Config.Instances)

	if err := a.Render(); err != nil {
		a.Release()
		return err
	}
	a.Log.Debugf("session %s: %d instances, target %d fps", a.SessionID, a.Config.Instances, a.Config.TargetFPS)
	return nil
}

func (a *App) setLayout(n int) {
	a.layout = core.GridLayout(n)
	a.mvps = make([]mgl32.Mat4, n)
}

// Resize follows a framebuffer size change. Zero sizes (minimized windows)
// are ignored.
func (a *App) Resize(w, h int) {
	if a.Context == nil || w <= 0 || h <= 0 {
		return
	}
	size := gpu.Size{Width: uint32(w), Height: uint32(h)}
	if !a.Context.Resize(size) {
		return
	}
	if err := a.Resources.Resize(size); err != nil {
		a.Log.Errorf("resize depth texture to %dx%d: %v", w, h, err)
		return
	}
	a.Log.Debugf("resized to %dx%d", w, h)
}

// Update applies pending input and advances the animation by one frame.
func (a *App) Update() {
	a.drainInput()
	a.Input.Step(float32(a.Config.TargetFPS))
}

func (a *App) drainInput() {
	for {
		select {
		case u, ok := <-a.Updates:
			if !ok {
				a.Updates = nil
				return
			}
			if err := a.Input.Apply(u); err != nil {
				a.Log.Warnf("input update: %v", err)
			}
		default:
			return
		}
	}
}

// Render uploads one MVP per instance and the current color, then draws.
func (a *App) Render() error {
	if a.Resources == nil {
		return ErrNotInitialized
	}

	a.Profiler.BeginScope("Upload")
	aspect := core.Aspect(a.Context.Size.Width, a.Context.Size.Height)
	for i, t := range a.layout {
		t.Rotation = a.Input.Angles
		a.mvps[i] = t.MVP(aspect)
	}
	if err := a.Resources.WriteTransforms(a.mvps); err != nil {
		return fmt.Errorf("upload transforms: %w", err)
	}
	if err := a.Resources.UpdateColor(a.Input.Color); err != nil {
		return fmt.Errorf("upload color: %w", err)
	}
	a.Profiler.EndScope("Upload")

	a.Profiler.BeginScope("Render")
	err := gpu.RenderFrame(a.Context.Device, a.Resources, len(a.layout))
	a.Profiler.EndScope("Render")
	a.Profiler.SetCount("Instances", len(a.layout))
	return err
}

// Tick runs one frame. Errors matching gpu.IsRecoverable should be answered
// with Recover.
func (a *App) Tick() error {
	a.Clock.Tick()
	a.Profiler.BeginScope("Update")
	a.Update()
	a.Profiler.EndScope("Update")
	if err := a.Render(); err != nil {
		return err
	}
	a.recoveries = 0
	a.reportStats()
	return nil
}

func (a *App) reportStats() {
	if !a.Log.DebugEnabled() || a.Clock.Time.Sub(a.lastStats) < time.Second {
		return
	}
	a.lastStats = a.Clock.Time
	a.Log.Debugf("%.1f fps | %s", a.Clock.FPS(), a.Profiler.Summary())
}

// SetColor applies a color string and redraws straight away. An invalid
// color keeps the previous one.
func (a *App) SetColor(str string) error {
	if err := a.Input.SetColorString(str); err != nil {
		return err
	}
	return a.Render()
}

// SetInstanceCount changes how many cubes are drawn, growing the transform
// buffer when needed.
func (a *App) SetInstanceCount(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: %d", gpu.ErrInvalidCapacity, n)
	}
	if a.Resources == nil {
		return ErrNotInitialized
	}
	grown, err := a.Resources.EnsureCapacity(n)
	if err != nil {
		return err
	}
	if grown {
		a.Log.Debugf("transform buffer grown to %d instances", n)
	}
	a.Config.Instances = n
	a.setLayout(n)
	a.Profiler.SetCount("Capacity", a.Resources.Capacity())
	return nil
}

// Recover tears the session down and starts a new one. Input state carries
// over; the frame that failed is not retried. After MaxRecoveries rebuilds
// with no good frame in between it gives up with ErrRecoveryLimit.
func (a *App) Recover(cause error) error {
	a.recoveries++
	if a.recoveries > MaxRecoveries {
		return fmt.Errorf("%w (%d): %w", ErrRecoveryLimit, MaxRecoveries, cause)
	}
	old := a.SessionID
	a.Release()
	if err := a.Init(); err != nil {
		return fmt.Errorf("recover session %s: %w", old, err)
	}
	a.Log.Warnf("session %s lost (%v), resumed as %s", old, cause, a.SessionID)
	return nil
}

// Release frees the resources and then the device context.
func (a *App) Release() {
	if a.Resources != nil {
		a.Resources.Release()
		a.Resources = nil
	}
	if a.Context != nil {
		a.Context.Release()
		a.Context = nil
	}
}
