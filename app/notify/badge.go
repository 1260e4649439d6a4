package notify

import "strconv"

// BadgeText renders a count for a badge that fits three characters.
func BadgeText(count int) string {
	switch {
	case count <= 0:
		return ""
	case count > 99:
		return "99+"
	default:
		return strconv.Itoa(count)
	}
}
