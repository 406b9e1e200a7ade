package diffdrive

import (
	"fmt"
	"sync"
)

// fakeMotor records every command it receives.
type fakeMotor struct {
	lock sync.Mutex

	calls  []string
	tacho  int
	moving bool

	// When set, Rotate returns this channel instead of a closed one.
	rotateDone chan struct{}
}

func closed() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}

func (f *fakeMotor) record(format string, args ...interface{}) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeMotor) Calls() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeMotor) Reset() {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls = nil
}

func (f *fakeMotor) SetAcceleration(rate int) { f.record("accel %d", rate) }
func (f *fakeMotor) Forward()                 { f.record("forward") }
func (f *fakeMotor) Backward()                { f.record("backward") }
func (f *fakeMotor) SetSpeed(speed int)       { f.record("speed %d", speed) }

func (f *fakeMotor) Rotate(ticks int) <-chan struct{} {
	f.record("rotate %d", ticks)
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.rotateDone != nil {
		return f.rotateDone
	}
	return closed()
}

func (f *fakeMotor) Stop() <-chan struct{} {
	f.record("stop")
	f.lock.Lock()
	defer f.lock.Unlock()
	f.moving = false
	return closed()
}

func (f *fakeMotor) TachoCount() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.tacho
}

func (f *fakeMotor) IsMoving() bool {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.moving
}

type fakeRanger struct{ cm int }

func (r fakeRanger) DistanceCM() (int, error) { return r.cm, nil }

type fakeLight struct{ level int }

func (l fakeLight) LightLevel() (int, error) { return l.level, nil }
