package joystick

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"io/ioutil"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, events ...rawEvent) io.ReadCloser {
	var buf bytes.Buffer
	for _, e := range events {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, e))
	}
	return ioutil.NopCloser(&buf)
}

func TestReadEvent(t *testing.T) {
	j := newJoystick(encode(t,
		rawEvent{Time: 1000, Value: 1, Type: uint8(EventTypeButton) | eventTypeInit, Number: ButtonCross},
		rawEvent{Time: 1250, Value: -32767, Type: uint8(EventTypeAxis), Number: AxisLStickY},
	))

	e, err := j.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, EventTypeButton, e.Type)
	assert.True(t, e.Pressed())
	first := e.Time

	e, err = j.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, EventTypeAxis, e.Type)
	assert.Equal(t, uint8(AxisLStickY), e.Number)
	assert.Equal(t, int16(-32767), e.Value)
	assert.Equal(t, int64(250), e.Time.Sub(first).Milliseconds())
	assert.False(t, e.Pressed())
}

func TestLoopStopsAtEOF(t *testing.T) {
	j := newJoystick(encode(t,
		rawEvent{Time: 1, Value: 1, Type: uint8(EventTypeButton), Number: ButtonL1},
		rawEvent{Time: 2, Value: 0, Type: uint8(EventTypeButton), Number: ButtonL1},
	))
	var got []string
	err := j.Loop(context.Background(), func(e *Event) {
		got = append(got, e.String())
	})
	assert.Error(t, err)
	assert.Equal(t, []string{"button(4)=1", "button(4)=0"}, got)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, 0.0, Normalize(0))
	assert.Equal(t, 1.0, Normalize(32767))
	assert.Equal(t, -1.0, Normalize(-32767))
	assert.Equal(t, -1.0, Normalize(-32768))
}

func TestApplyExpo(t *testing.T) {
	assert.Equal(t, 1.0, ApplyExpo(1, 2.5))
	assert.Equal(t, -1.0, ApplyExpo(-1, 2.5))
	assert.Equal(t, 0.0, ApplyExpo(0, 2.5))
	assert.InDelta(t, 0.25, ApplyExpo(0.5, 2), 1e-9)
	assert.InDelta(t, -0.25, ApplyExpo(-0.5, 2), 1e-9)
}
