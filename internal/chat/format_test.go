package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDisplayTime(t *testing.T) {
	// A Monday evening
	now := time.Date(2026, 8, 31, 20, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"earlier today", time.Date(2026, 8, 31, 9, 5, 0, 0, time.UTC), "09:05"},
		{"yesterday", time.Date(2026, 8, 30, 21, 0, 0, 0, time.UTC), "Sunday"},
		{"six days ago", time.Date(2026, 8, 25, 21, 0, 0, 0, time.UTC), "Tuesday"},
		{"exactly a week ago", time.Date(2026, 8, 24, 20, 0, 0, 0, time.UTC), "Aug 24"},
		{"last month", time.Date(2026, 7, 2, 12, 0, 0, 0, time.UTC), "Jul 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayTime(tt.at, now))
		})
	}
}
