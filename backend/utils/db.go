package utils

import (
	"fmt"

	"lms/backend/config"
	"lms/backend/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitDB connects to PostgreSQL and runs migrations.
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the schema. Exported so tests can run it
// against their own database handle.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Sector{},
		&models.Course{},
		&models.Lesson{},
		&models.LessonContent{},
		&models.Quiz{},
		&models.FinalExam{},
		&models.Question{},
		&models.Option{},
		&models.LessonProgress{},
		&models.CourseProgress{},
		&models.QuizAttempt{},
		&models.FinalExamAttempt{},
		&models.Certificate{},
	)
}
