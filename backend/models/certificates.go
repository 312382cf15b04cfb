package models

import (
	"time"

	"gorm.io/gorm"
)

// Certificate holds the rendered PDF for a completed course. One row per
// (user, course); reissuing overwrites the stored document instead of
// creating a second row.
type Certificate struct {
	gorm.Model
	UserID       uint   `gorm:"not null;uniqueIndex:idx_certificates_user_course"`
	CourseID     uint   `gorm:"not null;uniqueIndex:idx_certificates_user_course"`
	SerialNumber string `gorm:"unique;not null"`
	PDFURL       string
	IssuedAt     time.Time
}
