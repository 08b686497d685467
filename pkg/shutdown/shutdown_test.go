package shutdown

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(nil).Level(zerolog.Disabled)
	return &l
}

func TestShutdownWithTimeout(t *testing.T) {
	sd := NewShutdown(newTestLogger())

	quickCompleted := false
	slowCompleted := false
	timeoutOccurred := false

	sd.HookShutdownCallback("quick", func() {
		time.Sleep(50 * time.Millisecond)
		quickCompleted = true
	}, 1*time.Second)

	sd.HookShutdownCallback("slow", func() {
		time.Sleep(2 * time.Second)
		slowCompleted = true
	}, 100*time.Millisecond)

	sd.HookShutdownCallback("timeout-detector", func() {
		time.Sleep(200 * time.Millisecond)
		timeoutOccurred = true
	}, 50*time.Millisecond)

	sd.ShutdownNow()

	if !quickCompleted {
		t.Error("quick callback should have completed")
	}
	if slowCompleted {
		t.Error("slow callback should not have completed due to timeout")
	}
	if timeoutOccurred {
		t.Error("timeout detector should not have completed due to timeout")
	}
}

func TestShutdownWithoutTimeout(t *testing.T) {
	sd := NewShutdown(newTestLogger())

	completed := false
	sd.HookShutdownCallback("no-timeout", func() {
		time.Sleep(100 * time.Millisecond)
		completed = true
	}, 0)

	sd.ShutdownNow()

	if !completed {
		t.Error("callback without timeout should have completed")
	}
}
