package timer

import (
	"log/slog"
	"time"
)

// Track returns a function that, when executed, logs the duration through
// the structured logger at debug level.
// Usage: defer timer.Track("Authorize")()
func Track(name string) func() {
	start := time.Now()
	return func() {
		slog.Debug("timing", "name", name, "duration", time.Since(start))
	}
}
