// Package mux drives a TCA9548A I2C multiplexer.  Both ultrasonic rangers
// answer on the same factory address, so each sits behind its own port.
package mux

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"
)

const (
	DefaultAddr = 0x71

	PortFrontRanger = 0
	PortSideRanger  = 1

	NumPorts = 8
)

type Interface interface {
	// Lock takes exclusive use of the bus behind the mux.  Hold it across
	// SelectSinglePort and the transaction that follows.
	Lock()
	Unlock()

	SelectSinglePort(num int) error
	DisableAllPorts() error
	Close() error
}

type writer interface {
	Write(buf []byte) error
	Close() error
}

type Mux struct {
	sync.Mutex
	dev writer

	selected int
}

func New(deviceFile string, addr int) (*Mux, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "opening mux at %#x", addr)
	}
	return &Mux{
		dev:      dev,
		selected: -1,
	}, nil
}

func (p *Mux) SelectSinglePort(num int) error {
	if num < 0 || num >= NumPorts {
		return errors.Errorf("mux port %d out of range", num)
	}
	if p.selected == num {
		return nil
	}
	if err := p.dev.Write([]byte{1 << uint(num)}); err != nil {
		p.selected = -1
		return errors.Wrapf(err, "selecting mux port %d", num)
	}
	p.selected = num
	return nil
}

func (p *Mux) DisableAllPorts() error {
	p.selected = -1
	return p.dev.Write([]byte{0})
}

func (p *Mux) Close() error {
	return p.dev.Close()
}

func Dummy() Interface {
	return &dummyMux{}
}

type dummyMux struct {
	sync.Mutex
}

func (p *dummyMux) SelectSinglePort(num int) error {
	fmt.Printf("Dummy Mux setting port=%d\n", num)
	return nil
}

func (p *dummyMux) DisableAllPorts() error {
	fmt.Printf("Dummy Mux disabling all ports\n")
	return nil
}

func (p *dummyMux) Close() error {
	return nil
}
