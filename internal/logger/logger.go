package logger

import (
	"log"
	"os"
	"sync/atomic"
)

var forced atomic.Bool

// SetDebug forces debug output on regardless of the DEBUG environment variable.
func SetDebug(on bool) {
	forced.Store(on)
}

func Enabled() bool {
	return forced.Load() || os.Getenv("DEBUG") == "1"
}

func DebugLog(format string, args ...any) {
	if Enabled() {
		log.Printf("[DEBUG] "+format, args...)
	}
}
