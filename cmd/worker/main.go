package main

import (
	"fmt"
	"os"
	"unicode"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/cmd/worker/cmd"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/logx"
)

func main() {
	os.Exit(run())
}

func run() int {
	// RecoverAndPanic must be deferred first so it executes last, after
	// cleanup() has flushed the process's pending events.
	defer logx.RecoverAndPanic()
	cleanup := logx.InitSentry(os.Getenv("SENTRY_DSN"), os.Getenv("SENTRY_ENVIRONMENT"), cmd.Version)
	defer cleanup()

	if err := cmd.Execute(); err != nil {
		logx.CaptureError(err)
		msg := err.Error()
		if msg != "" {
			runes := []rune(msg)
			runes[0] = unicode.ToUpper(runes[0])
			msg = string(runes)
		}
		fmt.Fprintln(os.Stderr, "Error: "+msg)
		return 1
	}
	return 0
}
