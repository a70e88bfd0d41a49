// Package uptime tracks and formats how long the process (or the host) has
// been up, for inclusion in heartbeat messages.
package uptime

import (
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/host"
)

// Mode selects what the reported uptime is measured from.
type Mode string

const (
	// ModeProcess measures from the start timestamp captured at construction.
	ModeProcess Mode = "process"
	// ModeHost measures from the last boot of the machine.
	ModeHost Mode = "host"
)

// Tracker reports humanized uptime. The process start timestamp is captured
// exactly once, at construction, and never mutated afterwards.
type Tracker struct {
	mode  Mode
	start time.Time
}

// NewTracker creates a tracker for the given mode, capturing the process
// start timestamp now.
func NewTracker(mode Mode) *Tracker {
	return &Tracker{mode: mode, start: time.Now()}
}

// Uptime returns the raw uptime duration. In host mode a failed kernel query
// falls back to process uptime rather than erroring: the heartbeat must go
// out regardless.
func (t *Tracker) Uptime() time.Duration {
	if t.mode == ModeHost {
		if secs, err := host.Uptime(); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Since(t.start)
}

// Humanize returns the uptime as a short phrase, e.g. "up 0 seconds",
// "up 1 minute 5 seconds", "up 2 days 4 hours".
func (t *Tracker) Humanize() string {
	return "up " + FormatDuration(t.Uptime())
}

// FormatDuration renders d using its two most significant non-zero units.
// Durations under one second render as "0 seconds".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)

	units := []struct {
		name string
		secs int64
	}{
		{"day", 86400},
		{"hour", 3600},
		{"minute", 60},
		{"second", 1},
	}

	var parts []string
	for _, u := range units {
		if n := secs / u.secs; n > 0 {
			parts = append(parts, pluralize(n, u.name))
			secs -= n * u.secs
		}
		if len(parts) == 2 {
			break
		}
	}

	if len(parts) == 0 {
		return "0 seconds"
	}
	return strings.Join(parts, " ")
}

func pluralize(n int64, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
