// Package sound plays short wav cues on the robot's speaker.
package sound

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// Cue names, resolved against the player's directory.
const (
	CueStart    = "start.wav"
	CueStop     = "stop.wav"
	CueArrived  = "arrived.wav"
	CueShutdown = "shutdown.wav"
)

type Player struct {
	dir   string
	queue chan string
}

// NewPlayer starts the playback goroutine.  If the speaker can't be opened,
// cues are logged and dropped.
func NewPlayer(dir string) *Player {
	p := &Player{
		dir:   dir,
		queue: make(chan string),
	}
	go p.loop()
	return p
}

func (p *Player) loop() {
	defer func() {
		recover()
		p.drain()
	}()
	sampleRate := beep.SampleRate(44100)
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/5)); err != nil {
		fmt.Println("Failed to open speaker", err)
		p.drain()
		return
	}
	var ctrl *beep.Ctrl
	var current beep.StreamSeekCloser
	for path := range p.queue {
		// A new cue cuts off the previous one.
		if ctrl != nil {
			speaker.Lock()
			ctrl.Paused = true
			ctrl.Streamer = nil
			speaker.Unlock()
			ctrl = nil
		}
		if current != nil {
			_ = current.Close()
			current = nil
		}

		f, err := os.Open(path)
		if err != nil {
			fmt.Println("Failed to open sound", err)
			continue
		}
		current, _, err = wav.Decode(f)
		if err != nil {
			fmt.Println("Failed to decode sound", err)
			_ = f.Close()
			continue
		}
		ctrl = &beep.Ctrl{Streamer: current}
		speaker.Play(ctrl)
	}
}

func (p *Player) drain() {
	for s := range p.queue {
		fmt.Println("Unable to play", s)
	}
}

// Play queues a cue without blocking the caller for more than a few ms.
func (p *Player) Play(cue string) {
	defer func() {
		recover() // Don't die if the player is already closed.
	}()
	path := filepath.Join(p.dir, cue)
	select {
	case p.queue <- path:
	case <-time.After(10 * time.Millisecond):
		fmt.Println("Timed out trying to play sound:", path)
	}
}

func (p *Player) Close() {
	close(p.queue)
}
