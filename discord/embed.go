package discord

import (
	"fmt"
	"strings"

	"github.com/onnwee/src-herald/store"
)

// Accent colors per status, matching the original bot's palette.
const (
	colorNew      = 0x3498DB // blue
	colorVerified = 0x2ECC71 // green
	colorRejected = 0xE74C3C // red
	colorDeleted  = 0x607D8B // dark grey
)

func statusColor(status store.Status) int {
	switch status {
	case store.StatusVerified:
		return colorVerified
	case store.StatusRejected:
		return colorRejected
	case store.StatusDeleted:
		return colorDeleted
	default:
		return colorNew
	}
}

func embedTitle(status store.Status) string {
	return "⏱️ Speedrun Submission - Status: " + capitalize(string(status))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// formatRunTime renders an elapsed time as H:MM:SS.ss when at least an hour,
// otherwise M:SS.ss. Seconds carry two decimals.
func formatRunTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	hrs := int(seconds) / 3600
	rem := seconds - float64(hrs)*3600
	mins := int(rem) / 60
	secs := rem - float64(mins)*60
	if hrs > 0 {
		return fmt.Sprintf("%d:%02d:%05.2f", hrs, mins, secs)
	}
	return fmt.Sprintf("%d:%05.2f", mins, secs)
}
