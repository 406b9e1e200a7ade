package mux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBus struct {
	writes [][]byte
}

func (r *recordingBus) Write(buf []byte) error {
	r.writes = append(r.writes, append([]byte(nil), buf...))
	return nil
}

func (r *recordingBus) Close() error { return nil }

func TestSelectSinglePortSkipsRedundantWrites(t *testing.T) {
	bus := &recordingBus{}
	m := &Mux{dev: bus, selected: -1}

	require.NoError(t, m.SelectSinglePort(PortSideRanger))
	require.NoError(t, m.SelectSinglePort(PortSideRanger))
	require.NoError(t, m.SelectSinglePort(PortFrontRanger))
	require.NoError(t, m.DisableAllPorts())
	require.NoError(t, m.SelectSinglePort(PortFrontRanger))

	assert.Equal(t, [][]byte{{0x02}, {0x01}, {0x00}, {0x01}}, bus.writes)
	assert.Error(t, m.SelectSinglePort(NumPorts))
}
