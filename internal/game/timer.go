package game

import "fmt"

// FormatClock formats the remaining seconds as MM:SS, zero padded.
// Negative values are clamped to 00:00.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
