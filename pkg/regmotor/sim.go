// Package regmotor simulates a regulated wheel motor: a speed set point, an
// acceleration ramp and a tacho count, advanced in fixed time steps.
package regmotor

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/diffdrive"
)

const (
	DefaultSpeed        = 360
	DefaultAcceleration = 6000
	DefaultStepPeriod   = 5 * time.Millisecond
)

type mode int

const (
	modeIdle mode = iota
	modeForward
	modeBackward
	modeRotate
	modeStopping
)

func (m mode) String() string {
	switch m {
	case modeIdle:
		return "idle"
	case modeForward:
		return "forward"
	case modeBackward:
		return "backward"
	case modeRotate:
		return "rotate"
	case modeStopping:
		return "stopping"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

var closedChan = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

type Sim struct {
	Name    string
	Verbose bool

	lock sync.Mutex

	speed float64 // ticks/s, always >= 0
	accel float64 // ticks/s^2; <= 0 means instant

	mode     mode
	velocity float64
	position float64
	target   float64

	// Closed when the current rotate or stop completes.
	done chan struct{}
}

var _ diffdrive.WheelMotor = (*Sim)(nil)

func New(name string) *Sim {
	return &Sim{
		Name:  name,
		speed: DefaultSpeed,
		accel: DefaultAcceleration,
	}
}

func (s *Sim) SetAcceleration(rate int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.accel = float64(rate)
	s.logf("acceleration=%d", rate)
}

func (s *Sim) SetSpeed(speed int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.speed = math.Abs(float64(speed))
	s.logf("speed=%d", speed)
}

func (s *Sim) Forward() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.finishOp()
	s.mode = modeForward
	s.logf("forward")
}

func (s *Sim) Backward() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.finishOp()
	s.mode = modeBackward
	s.logf("backward")
}

func (s *Sim) Rotate(ticks int) <-chan struct{} {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.finishOp()
	s.logf("rotate %d", ticks)
	s.target = math.Round(s.position) + float64(ticks)
	if s.target == s.position && s.velocity == 0 {
		s.mode = modeIdle
		return closedChan
	}
	s.mode = modeRotate
	s.done = make(chan struct{})
	return s.done
}

func (s *Sim) Stop() <-chan struct{} {
	s.lock.Lock()
	defer s.lock.Unlock()
	switch {
	case s.mode == modeStopping:
		return s.done
	case s.mode == modeIdle && s.velocity == 0:
		return closedChan
	}
	s.finishOp()
	s.logf("stop")
	s.mode = modeStopping
	s.done = make(chan struct{})
	return s.done
}

func (s *Sim) TachoCount() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return int(math.Round(s.position))
}

func (s *Sim) IsMoving() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.mode != modeIdle
}

// Velocity is the current signed wheel speed in ticks/s.
func (s *Sim) Velocity() float64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.velocity
}

// ResetTachoCount zeroes the tacho count; only for tests and calibration
// rigs, the controller never does this.
func (s *Sim) ResetTachoCount() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.target -= s.position
	s.position = 0
}

// Step advances the simulation by dt.
func (s *Sim) Step(dt time.Duration) {
	s.lock.Lock()
	defer s.lock.Unlock()

	secs := dt.Seconds()
	if secs <= 0 {
		return
	}

	switch s.mode {
	case modeIdle:
		return
	case modeForward:
		s.approach(s.speed, secs)
	case modeBackward:
		s.approach(-s.speed, secs)
	case modeStopping:
		s.approach(0, secs)
		if s.velocity == 0 {
			s.mode = modeIdle
			s.finishOp()
			return
		}
	case modeRotate:
		remaining := s.target - s.position
		if remaining == 0 {
			s.arrive()
			return
		}
		// Limit the speed so that we can still brake before the target.
		limit := s.speed
		if s.accel > 0 {
			limit = math.Min(limit, math.Sqrt(2*s.accel*math.Abs(remaining)))
		}
		s.approach(math.Copysign(limit, remaining), secs)
		if s.velocity*remaining > 0 && math.Abs(s.velocity*secs) >= math.Abs(remaining) {
			s.arrive()
			return
		}
	}
	s.position += s.velocity * secs
}

// Run steps the simulation in real time until the context is cancelled.
func (s *Sim) Run(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Step(now.Sub(last))
			last = now
		}
	}
}

func (s *Sim) arrive() {
	s.position = s.target
	s.velocity = 0
	s.mode = modeIdle
	s.finishOp()
}

func (s *Sim) approach(v, secs float64) {
	if s.accel <= 0 {
		s.velocity = v
		return
	}
	maxDelta := s.accel * secs
	switch {
	case v > s.velocity+maxDelta:
		s.velocity += maxDelta
	case v < s.velocity-maxDelta:
		s.velocity -= maxDelta
	default:
		s.velocity = v
	}
}

// finishOp releases anyone waiting on the current operation.
func (s *Sim) finishOp() {
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
}

func (s *Sim) logf(format string, args ...interface{}) {
	if !s.Verbose {
		return
	}
	fmt.Printf("SIM %s: "+format+"\n", append([]interface{}{s.Name}, args...)...)
}
