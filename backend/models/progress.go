package models

import (
	"time"

	"gorm.io/gorm"
)

// LessonProgress is the per-user-per-lesson completion record, written when
// the lesson's quiz is passed (or the lesson is marked done when it has no
// quiz). One row per (user, lesson).
type LessonProgress struct {
	gorm.Model
	UserID      uint `gorm:"not null;uniqueIndex:idx_lesson_progress_user_lesson"`
	LessonID    uint `gorm:"not null;uniqueIndex:idx_lesson_progress_user_lesson"`
	IsCompleted bool `gorm:"default:false"`
	CompletedAt *time.Time
}

// CourseProgress is the authoritative enrollment record. Status moves
// in_progress -> completed | failed and never leaves a terminal state through
// the exam flow; only an administrator deleting the row resets it.
type CourseProgress struct {
	gorm.Model
	UserID       uint   `gorm:"not null;uniqueIndex:idx_course_progress_user_course"`
	CourseID     uint   `gorm:"not null;uniqueIndex:idx_course_progress_user_course"`
	Status       string `gorm:"default:in_progress"` // in_progress, completed, failed
	ExamAttempts int    `gorm:"default:0"`
	FinalScore   int
	CompletedAt  *time.Time
}
