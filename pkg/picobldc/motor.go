package picobldc

import (
	"fmt"
	"sync"
	"time"

	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/diffdrive"
)

// Motor drives one channel of the board as a diffdrive.WheelMotor.  Command
// failures are logged and kept; Err returns the most recent one.
type Motor struct {
	board   *Board
	channel int

	PollInterval time.Duration
	// StartTimeout bounds the wait for the board to report a new move; a
	// move it never starts (zero ticks, stop when idle) completes after it.
	StartTimeout time.Duration

	lock sync.Mutex
	op   *operation
	err  error
}

var _ diffdrive.WheelMotor = (*Motor)(nil)

// operation is a rotate or stop in progress on the board.
type operation struct {
	done chan struct{}
	once sync.Once
}

func (o *operation) finish() {
	o.once.Do(func() { close(o.done) })
}

func (o *operation) finished() bool {
	select {
	case <-o.done:
		return true
	default:
		return false
	}
}

func (m *Motor) SetAcceleration(rate int) {
	m.write([]Register{chanRegAccel}, clampU16(rate))
}

func (m *Motor) SetSpeed(speed int) {
	if speed < 0 {
		speed = -speed
	}
	m.write([]Register{chanRegSpeed}, clampU16(speed))
}

func (m *Motor) Forward() {
	m.supersede()
	m.write([]Register{chanRegMode}, ModeForward)
}

func (m *Motor) Backward() {
	m.supersede()
	m.write([]Register{chanRegMode}, ModeBackward)
}

func (m *Motor) Rotate(ticks int) <-chan struct{} {
	m.supersede()
	t := uint32(int32(ticks))
	m.write(
		[]Register{chanRegTargetHi, chanRegTargetLo, chanRegMode},
		uint16(t>>16), uint16(t), ModeRotate,
	)
	return m.watch()
}

func (m *Motor) Stop() <-chan struct{} {
	m.supersede()
	m.write([]Register{chanRegMode}, ModeStop)
	return m.watch()
}

func (m *Motor) TachoCount() int {
	c, err := m.board.tachoCount(m.channel)
	if err != nil {
		m.recordErr(err)
	}
	return int(c)
}

// IsMoving is true while a rotate or stop is pending, or while the board
// reports the wheel turning.
func (m *Motor) IsMoving() bool {
	m.lock.Lock()
	op := m.op
	m.lock.Unlock()
	if op != nil && !op.finished() {
		return true
	}
	return m.boardMoving()
}

func (m *Motor) boardMoving() bool {
	status, err := m.board.channelStatus(m.channel)
	if err != nil {
		m.recordErr(err)
		return false
	}
	return status&ChanStatusMoving != 0
}

func (m *Motor) Err() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.err
}

// watch starts a new operation that completes once the channel has been
// seen moving and then reports it has stopped.
func (m *Motor) watch() <-chan struct{} {
	op := &operation{done: make(chan struct{})}
	m.lock.Lock()
	m.op = op
	m.lock.Unlock()

	go func() {
		defer op.finish()
		started := time.Now()
		seenMoving := false
		for {
			select {
			case <-op.done:
				return
			case <-time.After(m.PollInterval):
			}
			if m.boardMoving() {
				seenMoving = true
				continue
			}
			if seenMoving || time.Since(started) >= m.StartTimeout {
				return
			}
		}
	}()
	return op.done
}

// supersede releases anyone waiting on the previous operation.
func (m *Motor) supersede() {
	m.lock.Lock()
	op := m.op
	m.op = nil
	m.lock.Unlock()
	if op != nil {
		op.finish()
	}
}

func (m *Motor) write(regs []Register, values ...uint16) {
	if err := m.board.writeChannel(m.channel, regs, values); err != nil {
		m.recordErr(err)
	}
}

func (m *Motor) recordErr(err error) {
	fmt.Printf("PICO: channel %d: %v\n", m.channel, err)
	m.lock.Lock()
	m.err = err
	m.lock.Unlock()
}

func clampU16(v int) uint16 {
	if v < 0 {
		return 0
	}
	if v > 0xffff {
		return 0xffff
	}
	return uint16(v)
}
