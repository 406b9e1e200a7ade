package picobldc

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"
)

const (
	DefaultAddr = 0x42
)

type Register byte

// Board-wide registers.
const (
	RegCtrl Register = iota
	RegStatus
	RegWatchdogTimeout
	RegFaultCount

	RegBattV // LSB=4mV
)

// Per-channel register block.  Channel n's registers start at
// RegChannelBase + n*channelStride.
const (
	RegChannelBase Register = 0x10
	channelStride           = 0x10
)

const (
	chanRegMode Register = iota
	chanRegSpeed
	chanRegAccel
	chanRegTargetHi
	chanRegTargetLo
	chanRegTacho
	chanRegStatus
)

// Values of the channel mode register.  The board's speed regulator runs the
// move; the host only sets it up.
const (
	ModeStop uint16 = iota
	ModeForward
	ModeBackward
	ModeRotate
)

const (
	ChanStatusMoving uint16 = 1 << iota
	ChanStatusStalled
)

const (
	RegCtrlEnableI2CControl uint16 = 1 << iota
	RegCtrlRun
	RegCtrlReset
	RegCtrlWatchdogEnable
)

const BattVLSB = 0.004

func channelReg(channel int, r Register) Register {
	return RegChannelBase + Register(channel*channelStride) + r
}

type port interface {
	ReadReg(reg byte, buf []byte) error
	WriteReg(reg byte, buf []byte) error
	Close() error
}

// Board is a Pico-BLDC motor board with a regulated speed/position loop per
// channel.  All register access goes through the board lock.
type Board struct {
	lock sync.Mutex
	dev  port

	tachos *TachoTracker

	// Last control word written.  The board's watchdog is fed by rewriting
	// it, so Loop repeats it every CtrlRefresh.
	ctrl        uint16
	CtrlRefresh time.Duration

	Retries int
}

func Open(deviceFile string, addr int) (*Board, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "opening Pico-BLDC at %#x on %s", addr, deviceFile)
	}
	return newBoard(dev)
}

func newBoard(dev port) (*Board, error) {
	b := &Board{
		dev:         dev,
		CtrlRefresh: 100 * time.Millisecond,
		Retries:     20,
	}
	b.tachos = NewTachoTracker(b)
	if err := b.writeCtrl(RegCtrlEnableI2CControl | RegCtrlRun); err != nil {
		return nil, err
	}
	if err := b.PollTachos(); err != nil {
		return nil, err
	}
	return b, nil
}

// Motor returns a handle on one wheel channel.
func (b *Board) Motor(channel int) (*Motor, error) {
	if channel < 0 || channel >= NumChannels {
		return nil, errors.Errorf("no such motor channel %d", channel)
	}
	return &Motor{
		board:        b,
		channel:      channel,
		PollInterval: 10 * time.Millisecond,
		StartTimeout: 200 * time.Millisecond,
	}, nil
}

func (b *Board) SetWatchdog(timeout time.Duration) error {
	ms := timeout.Milliseconds()
	if ms > 0xffff {
		ms = 0xffff
	}
	ctrl := RegCtrlEnableI2CControl | RegCtrlRun
	if ms > 0 {
		if err := b.writeReg(RegWatchdogTimeout, uint16(ms)); err != nil {
			return err
		}
		ctrl |= RegCtrlWatchdogEnable
	}
	return b.writeCtrl(ctrl)
}

func (b *Board) writeCtrl(ctrl uint16) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.ctrl = ctrl
	return b.writeRegLocked(RegCtrl, ctrl)
}

// refreshCtrl rewrites the last control word, keeping the watchdog fed.
func (b *Board) refreshCtrl() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.writeRegLocked(RegCtrl, b.ctrl)
}

func (b *Board) BattVolts() (float64, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	raw, err := b.readReg(RegBattV)
	if err != nil {
		return 0, err
	}
	return float64(raw) * BattVLSB, nil
}

// RawTachoCounts reads the wrapping tacho registers.  It does not take the
// board lock; use PollTachos from outside the package.
func (b *Board) RawTachoCounts() (raw PerMotorVal[int16], err error) {
	for ch := range raw {
		v, err := b.readReg(channelReg(ch, chanRegTacho))
		if err != nil {
			return raw, err
		}
		raw[ch] = int16(v)
	}
	return raw, nil
}

// PollTachos folds the latest tacho registers into the cumulative counts.
func (b *Board) PollTachos() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.tachos.Poll()
}

// ZeroTachos rebases the cumulative counts so the wheels' current positions
// read as zero.
func (b *Board) ZeroTachos() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if err := b.tachos.Poll(); err != nil {
		return err
	}
	b.tachos.Zero()
	return nil
}

func (b *Board) tachoCount(channel int) (int64, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	err := b.tachos.Poll()
	return b.tachos.Count(channel), err
}

// Loop keeps the tacho counts fresh so that the 16-bit registers never wrap
// unobserved, and rewrites the control word so the watchdog only fires if
// this process stops.
func (b *Board) Loop(ctx context.Context, period time.Duration) {
	fmt.Println("PICO: board loop started")
	defer fmt.Println("PICO: board loop exited")
	tachoTicker := time.NewTicker(period)
	defer tachoTicker.Stop()
	ctrlTicker := time.NewTicker(b.CtrlRefresh)
	defer ctrlTicker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tachoTicker.C:
			if err := b.PollTachos(); err != nil {
				fmt.Println("PICO: failed to poll tachos:", err)
			}
		case <-ctrlTicker.C:
			if err := b.refreshCtrl(); err != nil {
				fmt.Println("PICO: failed to refresh control word:", err)
			}
		}
	}
}

func (b *Board) Close() error {
	for ch := 0; ch < NumChannels; ch++ {
		_ = b.writeReg(channelReg(ch, chanRegMode), ModeStop)
	}
	_ = b.writeReg(RegCtrl, RegCtrlReset)
	return b.dev.Close()
}

func (b *Board) writeReg(reg Register, value uint16) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.writeRegLocked(reg, value)
}

func (b *Board) writeRegLocked(reg Register, value uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], value)
	var err error
	for tries := 0; tries <= b.Retries; tries++ {
		err = b.dev.WriteReg(byte(reg), buf[:])
		if err == nil {
			if tries > 0 {
				fmt.Println("PICO: write succeeded after", tries, "retries")
			}
			return nil
		}
		fmt.Println("PICO: failed to write register", reg, err)
		time.Sleep(time.Millisecond)
	}
	return errors.Wrapf(err, "writing Pico-BLDC register %d", reg)
}

func (b *Board) readReg(reg Register) (uint16, error) {
	var buf [2]byte
	if err := b.dev.ReadReg(byte(reg), buf[:]); err != nil {
		return 0, errors.Wrapf(err, "reading Pico-BLDC register %d", reg)
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

// writeChannel writes several registers of one channel in a single locked
// sequence, so the board never sees a half-configured move.
func (b *Board) writeChannel(channel int, regs []Register, values []uint16) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	for i, r := range regs {
		if err := b.writeRegLocked(channelReg(channel, r), values[i]); err != nil {
			return err
		}
	}
	return nil
}

func (b *Board) channelStatus(channel int) (uint16, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.readReg(channelReg(channel, chanRegStatus))
}
