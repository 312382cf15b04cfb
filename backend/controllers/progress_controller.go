package controllers

import (
	"log"
	"strconv"
	"time"

	"lms/backend/config"
	"lms/backend/jobs"
	"lms/backend/models"
	"lms/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ProgressController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Logger *log.Logger
}

func NewProgressController(db *gorm.DB, cfg *config.Config, logger *log.Logger) *ProgressController {
	return &ProgressController{DB: db, Cfg: cfg, Logger: logger}
}

// CourseOverview aggregates per-course outcome counts for the admin panel.
func (pc *ProgressController) CourseOverview(c *fiber.Ctx) error {
	var courses []models.Course
	if err := pc.DB.Order("title").Find(&courses).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	out := make([]fiber.Map, len(courses))
	for i, course := range courses {
		counts := map[string]int64{}
		for _, status := range []string{"in_progress", "completed", "failed"} {
			var n int64
			if err := pc.DB.Model(&models.CourseProgress{}).
				Where("course_id = ? AND status = ?", course.ID, status).
				Count(&n).Error; err != nil {
				return utils.InternalServerError(c, "Could not query database")
			}
			counts[status] = n
		}
		out[i] = fiber.Map{
			"course_id":   course.ID,
			"title":       course.Title,
			"enrolled":    counts["in_progress"] + counts["completed"] + counts["failed"],
			"in_progress": counts["in_progress"],
			"completed":   counts["completed"],
			"failed":      counts["failed"],
		}
	}

	return c.JSON(fiber.Map{"courses": out})
}

// UserProgress lists one user's course rows with lesson completion counts.
func (pc *ProgressController) UserProgress(c *fiber.Ctx) error {
	userID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid user ID")
	}

	var user models.User
	if err := pc.DB.First(&user, userID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	var rows []models.CourseProgress
	if err := pc.DB.Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	out := make([]fiber.Map, len(rows))
	for i, row := range rows {
		var course models.Course
		pc.DB.Select("id", "title").First(&course, row.CourseID)

		var totalLessons int64
		pc.DB.Model(&models.Lesson{}).Where("course_id = ?", row.CourseID).Count(&totalLessons)
		var doneLessons int64
		pc.DB.Model(&models.LessonProgress{}).
			Joins("JOIN lessons ON lessons.id = lesson_progresses.lesson_id").
			Where("lesson_progresses.user_id = ? AND lessons.course_id = ? AND lesson_progresses.is_completed = ?",
				userID, row.CourseID, true).
			Count(&doneLessons)

		out[i] = fiber.Map{
			"course_id":         course.ID,
			"course_title":      course.Title,
			"status":            row.Status,
			"exam_attempts":     row.ExamAttempts,
			"final_score":       row.FinalScore,
			"lessons_completed": doneLessons,
			"lessons_total":     totalLessons,
			"completed_at":      row.CompletedAt,
		}
	}

	return c.JSON(fiber.Map{
		"user": fiber.Map{
			"id":        user.ID,
			"full_name": user.FullName,
			"email":     user.Email,
		},
		"progress": out,
	})
}

// RunCourseSweep triggers the end-of-window sweep on demand. The nightly
// scheduler runs the same pass.
func (pc *ProgressController) RunCourseSweep(c *fiber.Ctx) error {
	swept, err := jobs.SweepFinishedCourses(pc.DB, time.Now())
	if err != nil {
		pc.Logger.Printf("course sweep failed: %v", err)
		return utils.InternalServerError(c, "Sweep failed")
	}
	return c.JSON(fiber.Map{
		"message": "Sweep completed",
		"swept":   swept,
	})
}
