package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanAttemptExam(t *testing.T) {
	tests := []struct {
		name         string
		status       Status
		attempts     int
		availability Availability
		want         error
	}{
		{"fresh course", StatusInProgress, 0, Active, nil},
		{"one attempt spent", StatusInProgress, 1, Active, nil},
		{"completed is terminal", StatusCompleted, 1, Active, ErrCourseDecided},
		{"failed is terminal", StatusFailed, 2, Active, ErrCourseDecided},
		{"attempts exhausted", StatusInProgress, 2, Active, ErrNoAttemptsLeft},
		{"window closed with attempts remaining", StatusInProgress, 0, Finished, ErrWindowClosed},
		{"terminal status checked before window", StatusCompleted, 2, Finished, ErrCourseDecided},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAttemptExam(tt.status, tt.attempts, tt.availability))
		})
	}
}

func TestDecideExam(t *testing.T) {
	t.Run("first attempt fails, attempts remain", func(t *testing.T) {
		d := DecideExam(StatusInProgress, 0, false)
		assert.Equal(t, StatusInProgress, d.Status)
		assert.Equal(t, 1, d.Attempts)
		assert.False(t, d.IssueCertificate)
	})

	t.Run("second attempt fails, course failed", func(t *testing.T) {
		d := DecideExam(StatusInProgress, 1, false)
		assert.Equal(t, StatusFailed, d.Status)
		assert.Equal(t, 2, d.Attempts)
		assert.False(t, d.IssueCertificate)
	})

	t.Run("pass completes the course and issues a certificate", func(t *testing.T) {
		d := DecideExam(StatusInProgress, 1, true)
		assert.Equal(t, StatusCompleted, d.Status)
		assert.Equal(t, 2, d.Attempts)
		assert.True(t, d.IssueCertificate)
	})

	t.Run("missing progress row defaults to in_progress", func(t *testing.T) {
		d := DecideExam("", 0, false)
		assert.Equal(t, StatusInProgress, d.Status)
		assert.Equal(t, 1, d.Attempts)
	})

	t.Run("attempts increment by exactly one per submission", func(t *testing.T) {
		first := DecideExam(StatusInProgress, 0, false)
		assert.Equal(t, 1, first.Attempts)
		second := DecideExam(first.Status, first.Attempts, false)
		assert.Equal(t, 2, second.Attempts)
		assert.Equal(t, StatusFailed, second.Status)
	})
}
