package jobs

import (
	"log"
	"time"

	"lms/backend/models"
	"lms/backend/progression"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// StartScheduler runs the course-window sweep once a day shortly after
// midnight. The returned cron can be stopped on shutdown.
func StartScheduler(db *gorm.DB, logger *log.Logger) *cron.Cron {
	c := cron.New()

	c.AddFunc("15 0 * * *", func() {
		affected, err := SweepFinishedCourses(db, time.Now())
		if err != nil {
			logger.Printf("course sweep failed: %v", err)
			return
		}
		logger.Printf("course sweep marked %d enrollments as failed", affected)
	})

	c.Start()
	return c
}

// SweepFinishedCourses fails every in_progress enrollment whose course end
// date has passed. Idempotent: terminal rows are never touched, so re-running
// has no effect, and completed courses are never failed retroactively.
func SweepFinishedCourses(db *gorm.DB, now time.Time) (int64, error) {
	// Same day boundary as the availability classifier: wall-clock date at
	// UTC midnight, so the sweep and the exam entry guard agree on when a
	// course window closes.
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var courseIDs []uint
	err := db.Model(&models.Course{}).
		Where("end_date IS NOT NULL AND end_date < ?", startOfDay).
		Pluck("id", &courseIDs).Error
	if err != nil {
		return 0, err
	}
	if len(courseIDs) == 0 {
		return 0, nil
	}

	res := db.Model(&models.CourseProgress{}).
		Where("course_id IN ? AND status = ?", courseIDs, string(progression.StatusInProgress)).
		Update("status", string(progression.StatusFailed))
	return res.RowsAffected, res.Error
}
