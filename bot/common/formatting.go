package common

import (
	"fmt"
	"strings"
	"time"
)

// FormatCount formats a count with thousand separators
func FormatCount(n int64) string {
	if n < 0 {
		return "-" + FormatCount(-n)
	}
	str := fmt.Sprintf("%d", n)

	digits := len(str)
	if digits <= 3 {
		return str
	}

	var result strings.Builder
	for i, digit := range str {
		if i > 0 && (digits-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(digit)
	}

	return result.String()
}

// FormatRatTime renders minutes as days/hours/minutes, e.g. 1d 2h 5m
func FormatRatTime(minutes int64) string {
	if minutes <= 0 {
		return "0m"
	}

	days := minutes / (24 * 60)
	hours := (minutes / 60) % 24
	mins := minutes % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if mins > 0 {
		parts = append(parts, fmt.Sprintf("%dm", mins))
	}
	return strings.Join(parts, " ")
}

// TruncateName shortens a display name to max runes, adding an ellipsis
func TruncateName(name string, max int) string {
	runes := []rune(name)
	if len(runes) <= max || max < 2 {
		return name
	}
	return string(runes[:max-1]) + "…"
}

// RankMedal returns the medal emoji for the top three, else "N."
func RankMedal(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("%d.", rank)
	}
}

// FormatDiscordTimestamp formats a time as a Discord timestamp that displays in user's local timezone
// Format types: "t" = short time, "T" = long time, "d" = short date, "D" = long date,
// "f" = short date/time, "F" = long date/time, "R" = relative time
func FormatDiscordTimestamp(t time.Time, format string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), format)
}
