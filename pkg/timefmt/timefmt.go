// Package timefmt renders timestamps and durations the way the chat
// protocol's users expect to read them: compact unit runs for durations
// ("1h 1m 1s") and UTC wall-clock timestamps.
package timefmt

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FormatDelta renders a duration as a space-joined run of day, hour, minute
// and second fields, omitting zero-valued leading units. A zero duration is
// "0s"; a negative duration carries a single leading minus. With fractions
// enabled, a fractional seconds remainder is kept to millisecond precision.
func FormatDelta(delta time.Duration, fractions bool) string {
	secs := delta.Seconds()
	if !fractions {
		// Whole seconds only, so a fractional remainder can never
		// surface as a spurious "0s" field.
		secs = math.Trunc(secs)
	}
	if secs == 0 {
		return "0s"
	}
	if secs < 0 {
		return "-" + FormatDelta(-delta, fractions)
	}

	var parts []string
	units := []struct {
		suffix string
		size   float64
	}{
		{"d", 86400},
		{"h", 3600},
		{"m", 60},
	}
	for _, u := range units {
		if secs >= u.size {
			parts = append(parts, fmt.Sprintf("%d%s", int64(secs/u.size), u.suffix))
			secs = math.Mod(secs, u.size)
		}
	}
	if secs != 0 {
		if fractions {
			// Millisecond precision is plenty for chat output.
			rounded := math.Round(secs*1000) / 1000
			parts = append(parts, strconv.FormatFloat(rounded, 'g', -1, 64)+"s")
		} else {
			parts = append(parts, fmt.Sprintf("%ds", int64(secs)))
		}
	}
	return strings.Join(parts, " ")
}

// FormatDatetime renders t as a UTC wall-clock timestamp,
// "2006-01-02 15:04:05 UTC", with millisecond precision when fractions is
// enabled.
func FormatDatetime(t time.Time, fractions bool) string {
	u := t.UTC()
	ts := u.Format("2006-01-02 15:04:05")
	if fractions {
		ts += fmt.Sprintf(".%03d", u.Nanosecond()/int(time.Millisecond))
	}
	return ts + " UTC"
}
