package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuizAttempt is the audit record of one quiz submission, stored for every
// submission whether it passed or not. Answers maps question id to the set
// of selected option ids.
type QuizAttempt struct {
	gorm.Model
	UserID  uint `gorm:"index;not null"`
	QuizID  uint `gorm:"index;not null"`
	Answers datatypes.JSON
	Score   int
	Total   int
	Passed  bool `gorm:"default:false"`
}

// FinalExamAttempt is immutable once written. It references the
// CourseProgress row that was active at submission time, so it is only
// created after that row has been persisted.
type FinalExamAttempt struct {
	gorm.Model
	UserID           uint `gorm:"index;not null"`
	FinalExamID      uint `gorm:"index;not null"`
	CourseProgressID uint `gorm:"index;not null"`
	Answers          datatypes.JSON
	Score            int
	Total            int
	Passed           bool `gorm:"default:false"`
	SubmittedAt      time.Time
}
