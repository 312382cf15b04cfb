package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestCourseAvailability(t *testing.T) {
	now := time.Date(2025, time.June, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start *time.Time
		end   *time.Time
		want  Availability
	}{
		{"no window", nil, nil, Active},
		{"inside window", date(2025, time.June, 1), date(2025, time.June, 30), Active},
		{"before start", date(2025, time.June, 20), nil, Upcoming},
		{"after end", nil, date(2025, time.June, 10), Finished},
		{"end day itself is still active", nil, date(2025, time.June, 15), Active},
		{"start day itself is active", date(2025, time.June, 15), nil, Active},
		// The ordered rule: a passed end date wins even when the start date
		// also lies in the future.
		{"end precedes start check", date(2025, time.July, 1), date(2025, time.June, 1), Finished},
		{"ends today, started today", date(2025, time.June, 15), date(2025, time.June, 15), Active},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CourseAvailability(now, tt.start, tt.end))
		})
	}
}

func TestCourseAvailabilityIgnoresTimeOfDay(t *testing.T) {
	// End date stored with a midnight timestamp must keep the course active
	// for the whole of that day, whatever the clock says now.
	end := date(2025, time.June, 15)
	lateNow := time.Date(2025, time.June, 15, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, Active, CourseAvailability(lateNow, nil, end))

	nextMorning := time.Date(2025, time.June, 16, 0, 0, 1, 0, time.UTC)
	assert.Equal(t, Finished, CourseAvailability(nextMorning, nil, end))
}
