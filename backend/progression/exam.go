package progression

import "errors"

// Status of a user's course progress. completed and failed are terminal:
// once reached, no further exam submissions are accepted.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// MaxExamAttempts caps final-exam submissions per user per course.
const MaxExamAttempts = 2

var (
	// ErrCourseDecided rejects submissions once a terminal status is reached.
	ErrCourseDecided = errors.New("course already completed or failed")
	// ErrNoAttemptsLeft rejects a third submission.
	ErrNoAttemptsLeft = errors.New("no exam attempts left")
	// ErrWindowClosed rejects new attempts after the course end date, even
	// when attempts remain.
	ErrWindowClosed = errors.New("course window has closed")
)

// CanAttemptExam is the entry guard run before an exam is served or scored.
func CanAttemptExam(current Status, attempts int, availability Availability) error {
	if current == StatusCompleted || current == StatusFailed {
		return ErrCourseDecided
	}
	if attempts >= MaxExamAttempts {
		return ErrNoAttemptsLeft
	}
	if availability == Finished {
		return ErrWindowClosed
	}
	return nil
}

// ExamDecision is the outcome of one scored exam submission.
type ExamDecision struct {
	Status           Status
	Attempts         int
	IssueCertificate bool
}

// DecideExam advances the state machine by one submission:
// in_progress -> completed on a pass, in_progress -> failed when the last
// attempt is spent without passing, in_progress -> in_progress otherwise.
// Callers must have run CanAttemptExam against a freshly read attempt count;
// the increment here is computed from that value, never blindly.
func DecideExam(current Status, attempts int, passed bool) ExamDecision {
	d := ExamDecision{Status: current, Attempts: attempts + 1}
	if d.Status == "" {
		d.Status = StatusInProgress
	}
	switch {
	case passed:
		d.Status = StatusCompleted
		d.IssueCertificate = true
	case d.Attempts >= MaxExamAttempts:
		d.Status = StatusFailed
	}
	return d
}
