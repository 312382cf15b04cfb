// Package progression holds the course-progress and exam-attempt rules,
// independent of HTTP handlers and storage so they can be tested on their
// own: availability classification, the lesson unlock chain, answer scoring
// and the final-exam state machine.
package progression

import "time"

// Availability is the temporal state of a course relative to its configured
// start/end window.
type Availability string

const (
	Active   Availability = "ACTIVE"
	Upcoming Availability = "UPCOMING"
	Finished Availability = "FINISHED"
)

// CourseAvailability classifies a course window at day granularity,
// ignoring time of day. The end date wins over the start date: a course past
// its end is FINISHED even if its start also lies in the future. The end day
// itself still counts as active.
func CourseAvailability(now time.Time, start, end *time.Time) Availability {
	day := truncateDay(now)
	if end != nil && day.After(truncateDay(*end)) {
		return Finished
	}
	if start != nil && day.Before(truncateDay(*start)) {
		return Upcoming
	}
	return Active
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
