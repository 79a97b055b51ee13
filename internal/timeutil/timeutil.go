// Package timeutil formats durations for user-facing output.
package timeutil

import (
	"fmt"
	"time"
)

// FormatSeconds converts seconds to HH:MM:SS.MS.
//
//	FormatSeconds(90)     // "00:01:30.00"
//	FormatSeconds(3661)   // "01:01:01.00"
func FormatSeconds(seconds float64) string {
	hours := int(seconds) / 3600
	minutes := (int(seconds) % 3600) / 60
	secs := seconds - float64(hours*3600) - float64(minutes*60)
	return fmt.Sprintf("%02d:%02d:%05.2f", hours, minutes, secs)
}

// FormatElapsed renders a wall-clock duration: fractional seconds below one
// minute, whole-second h/m/s above.
//
//	FormatElapsed(1500 * time.Millisecond) // "1.50 seconds"
//	FormatElapsed(3723 * time.Second)      // "1h2m3s"
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return fmt.Sprintf("%.2f seconds", d.Seconds())
	}
	return d.Round(time.Second).String()
}
