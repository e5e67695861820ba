package models

import "fmt"

// FormatDuration renders a duration in seconds as a player-style label:
// "m:ss" under an hour, "h:mm:ss" above. Fractional seconds are truncated.
func FormatDuration(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}

	total := int(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}
