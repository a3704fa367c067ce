package gpu

import (
	"errors"
	"fmt"
)

var (
	// ErrPlatformUnsupported means no WebGPU backend could be created.
	ErrPlatformUnsupported = errors.New("webgpu not supported on this platform")
	ErrNoSuitableAdapter   = errors.New("no suitable gpu adapter")
	ErrDeviceRequestFailed = errors.New("gpu device request failed")
	ErrShaderCompilation   = errors.New("shader compilation failed")
	ErrPipelineCreation    = errors.New("render pipeline creation failed")
	// ErrSurfaceLost and ErrDeviceLost are recoverable by rebuilding the whole
	// session from Initialize forward.
	ErrSurfaceLost = errors.New("surface lost")
	ErrDeviceLost  = errors.New("device lost")
	// ErrCapacityExceeded is returned when an instance count does not fit the
	// transform buffer or the device's storage binding limit.
	ErrCapacityExceeded = errors.New("instance capacity exceeded")
	ErrInvalidCapacity  = errors.New("instance capacity must be positive")
)

// ShaderCompilationError carries the compiler diagnostic for one stage.
type ShaderCompilationError struct {
	Stage string
	Err   error
}

func (e *ShaderCompilationError) Error() string {
	return fmt.Sprintf("%s (%s stage): %v", ErrShaderCompilation, e.Stage, e.Err)
}

func (e *ShaderCompilationError) Unwrap() error { return e.Err }

func (e *ShaderCompilationError) Is(target error) bool { return target == ErrShaderCompilation }

// IsRecoverable reports whether err is cured by re-initializing the session.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrSurfaceLost) || errors.Is(err, ErrDeviceLost)
}
