package picobldc

import "github.com/pkg/errors"

// NumChannels is the number of wheel-motor channels on the board.
const NumChannels = 2

// PerMotorVal holds one value per motor channel.
type PerMotorVal[T any] [NumChannels]T

type tachoSource interface {
	RawTachoCounts() (PerMotorVal[int16], error)
}

// TachoTracker turns the board's 16-bit tacho registers into cumulative
// counts.  Travel of more than 32767 ticks between two polls is misread as
// travel the other way.
type TachoTracker struct {
	src tachoSource

	// Raw registers at the previous poll; nil until the first one, which
	// only sets the baseline.
	last *PerMotorVal[int16]

	total PerMotorVal[int64]
}

func NewTachoTracker(src tachoSource) *TachoTracker {
	return &TachoTracker{
		src: src,
	}
}

func (t *TachoTracker) Poll() error {
	raw, err := t.src.RawTachoCounts()
	if err != nil {
		return errors.Wrap(err, "reading tacho registers")
	}
	if t.last != nil {
		for ch := range raw {
			t.total[ch] += wrapDelta(t.last[ch], raw[ch])
		}
	}
	t.last = &raw
	return nil
}

// wrapDelta is the signed travel from prev to cur, taking the shorter way
// round the 16-bit register.
func wrapDelta(prev, cur int16) int64 {
	return int64(cur - prev)
}

// Zero makes the position at the last poll the new origin.
func (t *TachoTracker) Zero() {
	t.total = PerMotorVal[int64]{}
}

func (t *TachoTracker) Count(channel int) int64 {
	return t.total[channel]
}

func (t *TachoTracker) Counts() PerMotorVal[int64] {
	return t.total
}
