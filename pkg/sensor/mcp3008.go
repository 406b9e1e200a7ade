package sensor

import (
	"github.com/pkg/errors"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"

	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/diffdrive"
)

type txer interface {
	Tx(w, r []byte) error
}

// MCP3008 reads a light-dependent resistor through one channel of an MCP3008
// 10-bit ADC on SPI.
type MCP3008 struct {
	conn    txer
	closer  interface{ Close() error }
	channel int
}

var _ diffdrive.LightSensor = (*MCP3008)(nil)

func NewMCP3008(spiDev string, channel int) (*MCP3008, error) {
	if channel < 0 || channel > 7 {
		return nil, errors.Errorf("MCP3008 channel %d out of range", channel)
	}

	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "initialising periph")
	}

	p, err := spireg.Open(spiDev)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", spiDev)
	}

	c, err := p.Connect(physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		_ = p.Close()
		return nil, errors.Wrap(err, "connecting to MCP3008")
	}

	return &MCP3008{
		conn:    c,
		closer:  p,
		channel: channel,
	}, nil
}

// LightLevel returns the raw 10-bit reading, 0-1023.
func (m *MCP3008) LightLevel() (int, error) {
	// Start bit, then single-ended mode and the channel number in the top nibble.
	w := []byte{0x01, byte(0x80 | m.channel<<4), 0x00}
	r := make([]byte, len(w))
	if err := m.conn.Tx(w, r); err != nil {
		return 0, errors.Wrap(err, "reading MCP3008")
	}
	return int(r[1]&0x03)<<8 | int(r[2]), nil
}

func (m *MCP3008) Close() error {
	if m.closer == nil {
		return nil
	}
	return m.closer.Close()
}
