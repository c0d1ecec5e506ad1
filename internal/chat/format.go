package chat

import "time"

// DisplayTime formats a message timestamp by recency tier: time of day for
// today, weekday name within the last week, month and day otherwise.
func DisplayTime(t, now time.Time) string {
	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.Date()
	if y1 == y2 && m1 == m2 && d1 == d2 {
		return t.Format("15:04")
	}
	if now.Sub(t) < 7*24*time.Hour {
		return t.Format("Monday")
	}
	return t.Format("Jan 2")
}
