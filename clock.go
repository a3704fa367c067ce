package cubes

import "time"

// Clock tracks wall time between frames.
type Clock struct {
	Time   time.Time
	Dt     time.Duration
	Frames uint64

	now func() time.Time
}

func NewClock() *Clock {
	return newClockWith(time.Now)
}

func newClockWith(now func() time.Time) *Clock {
	return &Clock{Time: now(), now: now}
}

// Tick advances to the current time and returns the elapsed frame time.
func (c *Clock) Tick() time.Duration {
	now := c.now()
	c.Dt = now.Sub(c.Time)
	c.Time = now
	c.Frames++
	return c.Dt
}

// FPS is the instantaneous rate implied by the last frame, or 0 before any.
func (c *Clock) FPS() float64 {
	if c.Dt <= 0 {
		return 0
	}
	return float64(time.Second) / float64(c.Dt)
}
