package diffdrive

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeometryValidate(t *testing.T) {
	require.NoError(t, DefaultGeometry().Validate())

	for _, g := range []Geometry{
		{AxleWidth: 0, LeftWheelRadius: 2.05, RightWheelRadius: 2.05},
		{AxleWidth: 18.48, LeftWheelRadius: 0, RightWheelRadius: 2.05},
		{AxleWidth: 18.48, LeftWheelRadius: 2.05, RightWheelRadius: 0},
		{AxleWidth: -1, LeftWheelRadius: 2.05, RightWheelRadius: 2.05},
		{AxleWidth: 18.48, LeftWheelRadius: -2.05, RightWheelRadius: 2.05},
		{AxleWidth: math.NaN(), LeftWheelRadius: 2.05, RightWheelRadius: 2.05},
		{AxleWidth: 18.48, LeftWheelRadius: 2.05, RightWheelRadius: math.Inf(1)},
	} {
		err := g.Validate()
		assert.ErrorIs(t, err, ErrInvalidGeometry, "geometry %+v", g)
	}
}

func TestWheelSpeedsStraight(t *testing.T) {
	g := DefaultGeometry()
	for _, fwd := range []float64{0.5, 1, 10, 25.7, 50} {
		l, r := WheelSpeeds(g, fwd, 0)
		assert.True(t, l.Forward, "forward=%v", fwd)
		assert.True(t, r.Forward, "forward=%v", fwd)
		assert.Equal(t, l.Speed, r.Speed, "forward=%v", fwd)
	}

	l, _ := WheelSpeeds(g, 10, 0)
	// 10 * 180 / (2.05 * pi) = 279.49...
	assert.Equal(t, 279, l.Speed)
}

func TestWheelSpeedsSpinInPlace(t *testing.T) {
	g := DefaultGeometry()
	for _, rot := range []float64{-120, -45, -1, 1, 30, 90} {
		l, r := WheelSpeeds(g, 0, rot)
		assert.NotEqual(t, l.Forward, r.Forward, "rotation=%v", rot)
		assert.Equal(t, l.Speed, r.Speed, "rotation=%v", rot)
	}

	l, r := WheelSpeeds(g, 0, 90)
	// 90 * 18.48 / (2 * 2.05) = 405.66...
	assert.Equal(t, WheelCommand{Forward: true, Speed: 405}, l)
	assert.Equal(t, WheelCommand{Forward: false, Speed: 405}, r)
}

func TestWheelSpeedsSaturate(t *testing.T) {
	g := DefaultGeometry()

	l, r := WheelSpeeds(g, 1000, 0)
	assert.Equal(t, WheelCommand{Forward: true, Speed: MaxWheelSpeed}, l)
	assert.Equal(t, WheelCommand{Forward: true, Speed: MaxWheelSpeed}, r)

	l, r = WheelSpeeds(g, -1000, 0)
	assert.Equal(t, WheelCommand{Forward: false, Speed: MaxWheelSpeed}, l)
	assert.Equal(t, WheelCommand{Forward: false, Speed: MaxWheelSpeed}, r)

	l, r = WheelSpeeds(g, 0, 1e6)
	assert.Equal(t, WheelCommand{Forward: true, Speed: MaxWheelSpeed}, l)
	assert.Equal(t, WheelCommand{Forward: false, Speed: MaxWheelSpeed}, r)
}

func TestZeroSpeedIsBackwardAtRest(t *testing.T) {
	l, r := WheelSpeeds(DefaultGeometry(), 0, 0)
	assert.Equal(t, WheelCommand{Forward: false, Speed: 0}, l)
	assert.Equal(t, WheelCommand{Forward: false, Speed: 0}, r)

	// Any positive speed selects forward, even when it truncates to 0.
	l, r = WheelSpeeds(DefaultGeometry(), 0.001, 0)
	assert.Equal(t, WheelCommand{Forward: true, Speed: 0}, l)
	assert.Equal(t, WheelCommand{Forward: true, Speed: 0}, r)
}

func TestAngleTicksRoundTrip(t *testing.T) {
	g := DefaultGeometry()
	oneTick := AngleForTicks(g.LeftWheelRadius, g.AxleWidth, 1)
	for _, angle := range []float64{-720, -90, -33.3, 0, 1, 15, 45, 90, 180, 359, 3600} {
		ticks := TicksForAngle(g.LeftWheelRadius, g.AxleWidth, angle)
		back := AngleForTicks(g.LeftWheelRadius, g.AxleWidth, ticks)
		assert.InDelta(t, angle, back, oneTick, "angle %v -> %d ticks -> %v", angle, ticks, back)
	}
}

func TestDistanceTicksRoundTrip(t *testing.T) {
	oneTick := DistanceForTicks(2.05, 1)
	for _, d := range []float64{-100, -1, 0, 0.3, 10, 123.4} {
		ticks := TicksForDistance(2.05, d)
		assert.InDelta(t, d, DistanceForTicks(2.05, ticks), oneTick, "distance %v", d)
	}
}

func TestTicksTruncateAndSaturate(t *testing.T) {
	// 180 * 10 / (pi * 2.05) = 279.49...
	assert.Equal(t, 279, TicksForDistance(2.05, 10))
	assert.Equal(t, -279, TicksForDistance(2.05, -10))

	assert.Equal(t, math.MaxInt32, TicksForDistance(2.05, 1e12))
	assert.Equal(t, math.MinInt32, TicksForDistance(2.05, -1e12))
	assert.Equal(t, math.MaxInt32, TicksForAngle(2.05, 18.48, 1e12))
}
