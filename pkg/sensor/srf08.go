// Package sensor holds the drivers for the robot's ultrasonic rangers and
// light sensor.
package sensor

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"

	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/diffdrive"
	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/mux"
)

const (
	SRF08DefaultAddr = 0x70

	srf08RegCommand = 0
	srf08RegLight   = 1
	srf08RegRangeHi = 2

	srf08CmdRangeCM = 0x51

	// The ranger ignores the bus while pinging; it reads back 0xff until done.
	srf08Busy = 0xff
)

var ErrRangingTimeout = errors.New("SRF08 ranging timed out")

type port interface {
	ReadReg(reg byte, buf []byte) error
	WriteReg(reg byte, buf []byte) error
	Close() error
}

// SRF08 is an ultrasonic ranger that also carries a light sensor.
type SRF08 struct {
	dev port

	PollInterval time.Duration
	Timeout      time.Duration
}

var (
	_ diffdrive.RangeSensor = (*SRF08)(nil)
	_ diffdrive.LightSensor = (*SRF08)(nil)
)

func NewSRF08(deviceFile string, addr int) (*SRF08, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "opening SRF08 at %#x", addr)
	}
	return newSRF08(dev), nil
}

func newSRF08(dev port) *SRF08 {
	return &SRF08{
		dev:          dev,
		PollInterval: 5 * time.Millisecond,
		Timeout:      100 * time.Millisecond,
	}
}

// DistanceCM pings and returns the range to the first echo.  Zero means no
// echo was heard.
func (s *SRF08) DistanceCM() (int, error) {
	if err := s.dev.WriteReg(srf08RegCommand, []byte{srf08CmdRangeCM}); err != nil {
		return 0, errors.Wrap(err, "starting SRF08 ranging")
	}

	deadline := time.Now().Add(s.Timeout)
	var status [1]byte
	for {
		time.Sleep(s.PollInterval)
		// Reads fail while the ranger is busy; treat that the same as 0xff.
		err := s.dev.ReadReg(srf08RegCommand, status[:])
		if err == nil && status[0] != srf08Busy {
			break
		}
		if time.Now().After(deadline) {
			return 0, ErrRangingTimeout
		}
	}

	var buf [2]byte
	if err := s.dev.ReadReg(srf08RegRangeHi, buf[:]); err != nil {
		return 0, errors.Wrap(err, "reading SRF08 range")
	}
	return int(buf[0])<<8 | int(buf[1]), nil
}

// LightLevel returns the light reading taken during the last ping.
func (s *SRF08) LightLevel() (int, error) {
	var buf [1]byte
	if err := s.dev.ReadReg(srf08RegLight, buf[:]); err != nil {
		return 0, errors.Wrap(err, "reading SRF08 light sensor")
	}
	return int(buf[0]), nil
}

func (s *SRF08) Close() error {
	return s.dev.Close()
}

// MuxedRanger selects its mux port before every measurement.
type MuxedRanger struct {
	Port   int
	ranger diffdrive.RangeSensor
	mux    mux.Interface
}

func NewMuxed(ranger diffdrive.RangeSensor, m mux.Interface, muxPort int) *MuxedRanger {
	return &MuxedRanger{
		Port:   muxPort,
		ranger: ranger,
		mux:    m,
	}
}

func (m *MuxedRanger) DistanceCM() (int, error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	if err := m.mux.SelectSinglePort(m.Port); err != nil {
		return 0, err
	}
	return m.ranger.DistanceCM()
}
