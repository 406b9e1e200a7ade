package picobldc

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBoard is an in-memory register file.
type fakeBoard struct {
	lock      sync.Mutex
	regs      map[byte]uint16
	writes    map[byte]int
	failWrite int
	closed    bool
}

func newFakeBoard() *fakeBoard {
	return &fakeBoard{regs: map[byte]uint16{}, writes: map[byte]int{}}
}

func (f *fakeBoard) ReadReg(reg byte, buf []byte) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	binary.BigEndian.PutUint16(buf, f.regs[reg])
	return nil
}

func (f *fakeBoard) WriteReg(reg byte, buf []byte) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.failWrite > 0 {
		f.failWrite--
		return errors.New("nack")
	}
	f.regs[reg] = binary.BigEndian.Uint16(buf)
	f.writes[reg]++
	return nil
}

func (f *fakeBoard) Close() error {
	f.closed = true
	return nil
}

func (f *fakeBoard) get(ch int, r Register) uint16 {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.regs[byte(channelReg(ch, r))]
}

func (f *fakeBoard) ctrl() (value uint16, writes int) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.regs[byte(RegCtrl)], f.writes[byte(RegCtrl)]
}

func (f *fakeBoard) set(ch int, r Register, v uint16) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.regs[byte(channelReg(ch, r))] = v
}

func newTestMotor(t *testing.T, ch int) (*Motor, *fakeBoard) {
	t.Helper()
	fb := newFakeBoard()
	b, err := newBoard(fb)
	require.NoError(t, err)
	b.Retries = 2
	m, err := b.Motor(ch)
	require.NoError(t, err)
	m.PollInterval = time.Millisecond
	m.StartTimeout = 20 * time.Millisecond
	return m, fb
}

func TestBoardEnablesControl(t *testing.T) {
	_, fb := newTestMotor(t, 0)
	assert.Equal(t, RegCtrlEnableI2CControl|RegCtrlRun, fb.regs[byte(RegCtrl)])
}

func TestMotorChannelRange(t *testing.T) {
	b, err := newBoard(newFakeBoard())
	require.NoError(t, err)
	_, err = b.Motor(NumChannels)
	assert.Error(t, err)
}

func TestMotorSpeedAndDirection(t *testing.T) {
	m, fb := newTestMotor(t, 1)

	m.SetAcceleration(150)
	m.SetSpeed(-400)
	m.Backward()
	assert.Equal(t, uint16(150), fb.get(1, chanRegAccel))
	assert.Equal(t, uint16(400), fb.get(1, chanRegSpeed))
	assert.Equal(t, ModeBackward, fb.get(1, chanRegMode))
	assert.Zero(t, fb.get(0, chanRegMode), "other channel untouched")

	m.Forward()
	assert.Equal(t, ModeForward, fb.get(1, chanRegMode))
	assert.NoError(t, m.Err())
}

func TestMotorRotateWaitsForBoard(t *testing.T) {
	m, fb := newTestMotor(t, 0)
	fb.set(0, chanRegStatus, ChanStatusMoving)

	done := m.Rotate(-279)
	assert.Equal(t, ModeRotate, fb.get(0, chanRegMode))
	target := int32(uint32(fb.get(0, chanRegTargetHi))<<16 | uint32(fb.get(0, chanRegTargetLo)))
	assert.Equal(t, int32(-279), target)

	select {
	case <-done:
		t.Fatal("rotate completed while the board still reports moving")
	case <-time.After(20 * time.Millisecond):
	}

	fb.set(0, chanRegStatus, 0)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("rotate did not complete")
	}
}

func TestNewCommandSupersedesRotate(t *testing.T) {
	m, fb := newTestMotor(t, 0)
	fb.set(0, chanRegStatus, ChanStatusMoving)

	done := m.Rotate(1000)
	m.Forward()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("superseded rotate was not released")
	}
}

func TestStopWhenIdleCompletes(t *testing.T) {
	m, fb := newTestMotor(t, 0)
	for i := 0; i < 2; i++ {
		select {
		case <-m.Stop():
		case <-time.After(time.Second):
			t.Fatal("stop did not complete")
		}
		assert.Equal(t, ModeStop, fb.get(0, chanRegMode))
	}
	assert.False(t, m.IsMoving())
}

func TestTachoCountFollowsRegisters(t *testing.T) {
	m, fb := newTestMotor(t, 1)
	fb.set(1, chanRegTacho, 30000)
	assert.Equal(t, 30000, m.TachoCount())
	fb.set(1, chanRegTacho, uint16(0x10000-30000)) // -30000 after a wrap.
	assert.Equal(t, 35536, m.TachoCount())
}

func TestWriteRetries(t *testing.T) {
	m, fb := newTestMotor(t, 0)

	fb.failWrite = 2
	m.SetSpeed(100)
	assert.NoError(t, m.Err())
	assert.Equal(t, uint16(100), fb.get(0, chanRegSpeed))

	fb.failWrite = 10
	m.SetSpeed(200)
	assert.Error(t, m.Err())
}

func TestLoopKeepsWatchdogFed(t *testing.T) {
	fb := newFakeBoard()
	b, err := newBoard(fb)
	require.NoError(t, err)
	b.CtrlRefresh = 10 * time.Millisecond
	require.NoError(t, b.SetWatchdog(50*time.Millisecond))
	m, err := b.Motor(0)
	require.NoError(t, err)
	m.Forward()
	_, before := fb.ctrl()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Loop(ctx, 20*time.Millisecond)
	}()
	time.Sleep(150 * time.Millisecond)
	cancel()
	<-done

	value, after := fb.ctrl()
	assert.GreaterOrEqual(t, after-before, 5, "control word should be rewritten well within the watchdog timeout")
	assert.Equal(t, RegCtrlEnableI2CControl|RegCtrlRun|RegCtrlWatchdogEnable, value)
	assert.Equal(t, ModeForward, fb.get(0, chanRegMode))
}

func TestRotateWaitsForBoardToStart(t *testing.T) {
	m, fb := newTestMotor(t, 0)
	m.StartTimeout = time.Second

	done := m.Rotate(360)
	assert.True(t, m.IsMoving(), "pending rotate counts as moving")
	select {
	case <-done:
		t.Fatal("rotate completed before the board started it")
	case <-time.After(20 * time.Millisecond):
	}

	fb.set(0, chanRegStatus, ChanStatusMoving)
	time.Sleep(10 * time.Millisecond)
	fb.set(0, chanRegStatus, 0)
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("rotate did not complete after the board finished")
	}
	assert.False(t, m.IsMoving())
}

func TestZeroTachos(t *testing.T) {
	m, fb := newTestMotor(t, 0)
	fb.set(0, chanRegTacho, 500)
	assert.Equal(t, 500, m.TachoCount())

	require.NoError(t, m.board.ZeroTachos())
	assert.Equal(t, 0, m.TachoCount())
	fb.set(0, chanRegTacho, 520)
	assert.Equal(t, 20, m.TachoCount())
}
