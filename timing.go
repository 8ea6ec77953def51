// FILE: lixenwraith/flatconf/timing.go
package flatconf

import "time"

// Core timing constants for file watching.
const (
	// File watching intervals (ordered by frequency)
	SpinWaitInterval     = 5 * time.Millisecond   // CPU-friendly busy-wait quantum
	MinPollInterval      = 100 * time.Millisecond // Hard floor for file stat polling
	ShutdownTimeout      = 100 * time.Millisecond // Graceful watcher termination window
	DefaultDebounce      = 500 * time.Millisecond // File change coalescence period
	DefaultPollInterval  = time.Second            // Standard file monitoring frequency
	DefaultReloadTimeout = 5 * time.Second        // Maximum duration for a reparse
)

// DefaultMaxWatchers caps subscriber channels per watcher
const DefaultMaxWatchers = 100

// subscriberBuffer is the channel depth per subscriber; events beyond it are dropped
const subscriberBuffer = 10
