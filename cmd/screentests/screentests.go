package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/screen"
)

func main() {
	ctx := context.Background()

	go screen.LoopUpdatingScreen(ctx, hardware.DefaultConfig().ScreenDevice)

	screen.SetMode("Screen test")
	screen.SetPose(12.5, 45)
	screen.SetSpeeds(10, -30)

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nFailed to read stdin: ", err)
			return
		}

		screen.SetNotice(strings.TrimSpace(line))
	}
}
