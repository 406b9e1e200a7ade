// Package tunable holds integer parameters that can be adjusted live from the
// joystick.
package tunable

import (
	"fmt"
	"sync/atomic"
)

type Tunable struct {
	Name  string
	Value int64

	Min, Max int
	Step     int
}

// Add moves the value by delta, clamped to [Min, Max].
func (t *Tunable) Add(delta int) {
	for {
		old := atomic.LoadInt64(&t.Value)
		newV := t.clamp(old + int64(delta))
		if atomic.CompareAndSwapInt64(&t.Value, old, newV) {
			fmt.Println("Tunable", t.Name, "=", newV)
			return
		}
	}
}

func (t *Tunable) Increase() {
	t.Add(t.Step)
}

func (t *Tunable) Decrease() {
	t.Add(-t.Step)
}

func (t *Tunable) Get() int {
	return int(atomic.LoadInt64(&t.Value))
}

func (t *Tunable) clamp(v int64) int64 {
	if v < int64(t.Min) {
		return int64(t.Min)
	}
	if v > int64(t.Max) {
		return int64(t.Max)
	}
	return v
}

type Tunables struct {
	All      []*Tunable
	selected int
}

func (t *Tunables) Create(name string, value, min, max, step int) *Tunable {
	newTunable := &Tunable{
		Name: name,
		Min:  min,
		Max:  max,
		Step: step,
	}
	newTunable.Value = newTunable.clamp(int64(value))
	t.All = append(t.All, newTunable)
	return newTunable
}

func (t *Tunables) SelectNext() {
	t.selected++
	if t.selected >= len(t.All) {
		t.selected = 0
	}
	fmt.Println("Tunable", t.Current().Name, "selected, value:", t.Current().Get())
}

func (t *Tunables) SelectPrev() {
	t.selected--
	if t.selected < 0 {
		t.selected = len(t.All) - 1
	}
	fmt.Println("Tunable", t.Current().Name, "selected, value:", t.Current().Get())
}

func (t *Tunables) Current() *Tunable {
	return t.All[t.selected]
}
