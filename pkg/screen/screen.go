// Package screen shows the robot's odometry on the 128x128 OLED.
package screen

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"github.com/fogleman/gg"
)

const S = 128

var (
	lock sync.Mutex

	mode                  string
	displacement, heading float64
	forward, rotation     float64
	notice                string
)

func SetMode(m string) {
	lock.Lock()
	mode = m
	lock.Unlock()
}

func SetPose(d, h float64) {
	lock.Lock()
	displacement, heading = d, h
	lock.Unlock()
}

func SetSpeeds(f, r float64) {
	lock.Lock()
	forward, rotation = f, r
	lock.Unlock()
}

func SetNotice(n string) {
	lock.Lock()
	notice = n
	lock.Unlock()
}

// LoopUpdatingScreen redraws the framebuffer twice a second until the
// context is cancelled, then blanks it.
func LoopUpdatingScreen(ctx context.Context, device string) {
	f, err := os.OpenFile(device, os.O_RDWR, 0666)
	if err != nil {
		fmt.Println("Failed to open screen, ignoring:", err)
		return
	}
	defer f.Close()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		var buf [S * S * 2]byte
		select {
		case <-ctx.Done():
			_, _ = f.Seek(0, 0)
			_, _ = f.Write(buf[:])
			return
		case <-ticker.C:
		}

		toFramebuffer(Render().Image(), &buf)
		if _, err = f.Seek(0, 0); err != nil {
			fmt.Println("Screen failure: ", err)
			return
		}
		for i := 0; i < S; i++ {
			if _, err = f.Write(buf[i*S*2 : (i+1)*S*2]); err != nil {
				fmt.Println("Screen failure: ", err)
				return
			}
			time.Sleep(10 * time.Microsecond)
		}
	}
}

// Render draws the current state.
func Render() *gg.Context {
	lock.Lock()
	m, d, h, fwd, rot, n := mode, displacement, heading, forward, rotation, notice
	lock.Unlock()

	dc := gg.NewContext(S, S)
	dc.SetRGBA(1, 0.9, 0, 1)
	dc.DrawString(m, 4, 12)
	dc.DrawString(fmt.Sprintf("D %.1fcm", d), 4, 30)
	dc.DrawString(fmt.Sprintf("H %.1f", h), 4, 44)
	dc.DrawString(fmt.Sprintf("V %.1f W %.0f", fwd, rot), 4, 58)

	// Heading arrow; zero points up the screen.
	dc.Push()
	dc.RotateAbout(gg.Radians(h), S/2, 96)
	dc.DrawRegularPolygon(3, S/2, 96, 18, 0)
	dc.Fill()
	dc.Pop()

	if n != "" {
		DrawWarning(dc, n)
	}
	return dc
}

func DrawWarning(dc *gg.Context, text string) {
	dc.Push()
	dc.Translate(S-18, 14)
	dc.SetRGB(1, 0.2, 0)
	dc.DrawRegularPolygon(3, 0, 0, 12, 0)
	dc.Fill()
	dc.SetRGBA(0, 0, 0, 0.9)
	dc.DrawString("!", -3, 3)
	dc.Pop()
	dc.SetRGB(1, 0.2, 0)
	dc.DrawString(text, 4, S-4)
}

// toFramebuffer packs the image as RGB565, rotated to match the panel's
// mounting.
func toFramebuffer(img image.Image, buf *[S * S * 2]byte) {
	for y := 0; y < S; y++ {
		for x := 0; x < S; x++ {
			r, g, b, _ := img.At(x, y).RGBA() // 16-bit pre-multiplied

			rb := byte(r >> (16 - 5))
			gb := byte(g >> (16 - 6)) // Green has 6 bits
			bb := byte(b >> (16 - 5))

			buf[(S-1-y)*2+x*S*2+1] = (rb << 3) | (gb >> 3)
			buf[(S-1-y)*2+x*S*2] = bb | (gb << 5)
		}
	}
}
