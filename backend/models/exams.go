package models

import "gorm.io/gorm"

// Quiz gates completion of its lesson: passing it is what marks the lesson
// done. PassMark is an absolute cutoff in correct answers.
type Quiz struct {
	gorm.Model
	LessonID  uint   `gorm:"uniqueIndex;not null"`
	Title     string `gorm:"not null"`
	PassMark  int    `gorm:"default:3"`
	Questions []Question
}

// FinalExam closes a course. One exam per course; two attempts per user.
type FinalExam struct {
	gorm.Model
	CourseID  uint   `gorm:"uniqueIndex;not null"`
	Title     string `gorm:"not null"`
	Questions []Question
}

// Question belongs to either a quiz or a final exam, never both.
type Question struct {
	gorm.Model
	QuizID        *uint  `gorm:"index"`
	FinalExamID   *uint  `gorm:"index"`
	Text          string `gorm:"not null"`
	QuestionType  string `gorm:"default:single"` // single, multiple
	SequenceOrder int
	Options       []Option
}

// Option correctness lives only here. Responses that serve a quiz or exam to
// a learner must strip IsCorrect; scoring always re-reads it from this table.
type Option struct {
	gorm.Model
	QuestionID uint   `gorm:"index;not null"`
	Text       string `gorm:"not null"`
	IsCorrect  bool   `gorm:"default:false"`
}
