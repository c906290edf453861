// Package format renders byte counts and durations the way the transfer
// job's progress log lines do.
package format

import "fmt"

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// SizeStr renders a byte count as a human-readable size, e.g. "4.12MB".
func SizeStr(bytes int) string {
	size := float64(bytes)
	unit := 0
	for size >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}
	if unit == 0 {
		return fmt.Sprintf("%d%s", bytes, sizeUnits[unit])
	}
	return fmt.Sprintf("%.2f%s", size, sizeUnits[unit])
}

// SecondsToStr renders a duration given in seconds as "1h2m3s"-style text,
// dropping leading zero components.
func SecondsToStr(totalSeconds float64) string {
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	seconds := int64(totalSeconds)

	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, secs)
	case minutes > 0:
		return fmt.Sprintf("%dm%ds", minutes, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}
