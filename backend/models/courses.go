package models

import (
	"time"

	"gorm.io/gorm"
)

type Course struct {
	gorm.Model
	Title       string `gorm:"not null"`
	Description string
	IsPublished bool `gorm:"default:false"`
	// Optional availability window. A course with no dates is always active.
	StartDate *time.Time
	EndDate   *time.Time
	Lessons   []Lesson
	FinalExam *FinalExam
}

// Lesson order is a strict unlock chain: lesson N opens only once lesson N-1
// is completed.
type Lesson struct {
	gorm.Model
	CourseID      uint   `gorm:"not null;uniqueIndex:idx_lessons_course_order"`
	Title         string `gorm:"not null"`
	SequenceOrder int    `gorm:"not null;uniqueIndex:idx_lessons_course_order"`
	Contents      []LessonContent
	Quiz          *Quiz
}

type LessonContent struct {
	gorm.Model
	LessonID    uint   `gorm:"index;not null"`
	ContentType string `gorm:"default:video"` // video, pdf
	Title       string
	URL         string
}
