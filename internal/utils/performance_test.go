package utils

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestTimer_WarnsPastThreshold(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	timer := NewTimer("order_check_pass", time.Nanosecond, log)
	time.Sleep(time.Millisecond)
	d := timer.Stop()

	assert.GreaterOrEqual(t, d, time.Millisecond)
	assert.Contains(t, buf.String(), "Operation took longer than expected")
	assert.Contains(t, buf.String(), "order_check_pass")
}

func TestTimer_NoWarningWithoutThreshold(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	NewTimer("quick", 0, log).Stop()

	assert.Contains(t, buf.String(), "Performance measurement")
	assert.NotContains(t, buf.String(), "longer than expected")
}
