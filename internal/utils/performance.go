package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// Timer measures an operation and logs its duration, warning past a threshold
type Timer struct {
	start     time.Time
	name      string
	log       zerolog.Logger
	threshold time.Duration
}

// NewTimer creates a timer that warns when the operation exceeds threshold.
// A zero threshold disables the warning.
func NewTimer(name string, threshold time.Duration, log zerolog.Logger) *Timer {
	return &Timer{
		start:     time.Now(),
		name:      name,
		log:       log,
		threshold: threshold,
	}
}

// Stop logs the elapsed time and returns it
func (t *Timer) Stop() time.Duration {
	duration := time.Since(t.start)

	t.log.Debug().
		Str("operation", t.name).
		Dur("duration_ms", duration).
		Msg("Performance measurement")

	if t.threshold > 0 && duration > t.threshold {
		t.log.Warn().
			Str("operation", t.name).
			Dur("duration", duration).
			Dur("threshold", t.threshold).
			Msg("Operation took longer than expected")
	}

	return duration
}
