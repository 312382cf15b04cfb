package controllers

import (
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"time"

	"lms/backend/config"
	"lms/backend/models"
	"lms/backend/progression"
	"lms/backend/services"
	"lms/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ExamController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Certs  *services.CertificateService
	Logger *log.Logger
}

func NewExamController(db *gorm.DB, cfg *config.Config, certs *services.CertificateService, logger *log.Logger) *ExamController {
	return &ExamController{DB: db, Cfg: cfg, Certs: certs, Logger: logger}
}

// GetExam serves the final exam of a course. The entry guard and the
// all-lessons-completed requirement both run before any question is shown.
func (ec *ExamController) GetExam(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	course, exam, progress, availability, ferr := ec.loadExamContext(c, userID, uint(courseID))
	if ferr != nil {
		return ferr
	}

	if err := progression.CanAttemptExam(progression.Status(progress.Status), progress.ExamAttempts, availability); err != nil {
		return examGuardResponse(c, err)
	}

	done, total, err := ec.lessonsCompleted(userID, course.ID)
	if err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	if done < total {
		return utils.Forbidden(c, "Complete all lessons before taking the final exam")
	}

	return c.JSON(fiber.Map{
		"exam": fiber.Map{
			"id":        exam.ID,
			"title":     exam.Title,
			"questions": publicQuestions(exam.Questions),
		},
		"attempts_used": progress.ExamAttempts,
		"attempts_max":  progression.MaxExamAttempts,
	})
}

// SubmitExam scores a submission and advances the course progress state
// machine. The progress upsert and the attempt insert commit together;
// certificate rendering happens after the commit and is never allowed to
// undo a pass.
func (ec *ExamController) SubmitExam(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var input struct {
		Answers []submittedAnswer `json:"answers"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	course, exam, _, availability, ferr := ec.loadExamContext(c, userID, uint(courseID))
	if ferr != nil {
		return ferr
	}

	// The same gate GetExam applies: submission is not a way around the
	// lesson chain.
	lessonsDone, lessonsTotal, err := ec.lessonsCompleted(userID, course.ID)
	if err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	if lessonsDone < lessonsTotal {
		return utils.Forbidden(c, "Complete all lessons before taking the final exam")
	}

	keys := answerKeys(exam.Questions)
	sheet := toAnswerSheet(input.Answers)
	score := progression.Score(keys, sheet)
	total := len(keys)
	passed := progression.ExamPassed(score, total)

	rawAnswers, err := json.Marshal(input.Answers)
	if err != nil {
		return utils.InternalServerError(c, "Could not record attempt")
	}

	var decision progression.ExamDecision
	var guardErr error
	err = ec.DB.Transaction(func(tx *gorm.DB) error {
		// The guard runs against the row read inside this transaction so
		// racing submissions see each other's committed attempt counts.
		var progress models.CourseProgress
		err := tx.Where("user_id = ? AND course_id = ?", userID, course.ID).
			First(&progress).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			progress = models.CourseProgress{
				UserID:   userID,
				CourseID: course.ID,
				Status:   string(progression.StatusInProgress),
			}
		} else if err != nil {
			return err
		}

		if guardErr = progression.CanAttemptExam(progression.Status(progress.Status), progress.ExamAttempts, availability); guardErr != nil {
			return guardErr
		}

		decision = progression.DecideExam(progression.Status(progress.Status), progress.ExamAttempts, passed)

		progress.Status = string(decision.Status)
		progress.ExamAttempts = decision.Attempts
		progress.FinalScore = score
		if decision.Status == progression.StatusCompleted {
			now := time.Now()
			progress.CompletedAt = &now
		}
		if progress.ID == 0 {
			// A racing first submission surfaces here as a unique-index
			// violation on (user_id, course_id) and aborts this transaction.
			if err := tx.Create(&progress).Error; err != nil {
				return err
			}
		} else if err := tx.Save(&progress).Error; err != nil {
			return err
		}

		attempt := models.FinalExamAttempt{
			UserID:           userID,
			FinalExamID:      exam.ID,
			CourseProgressID: progress.ID,
			Answers:          rawAnswers,
			Score:            score,
			Total:            total,
			Passed:           passed,
			SubmittedAt:      time.Now(),
		}
		return tx.Create(&attempt).Error
	})
	if err != nil {
		if guardErr != nil {
			return examGuardResponse(c, guardErr)
		}
		return utils.InternalServerError(c, "Could not record attempt")
	}

	response := fiber.Map{
		"score":         score,
		"total":         total,
		"passed":        passed,
		"status":        decision.Status,
		"attempts_used": decision.Attempts,
		"attempts_left": progression.MaxExamAttempts - decision.Attempts,
	}

	if decision.IssueCertificate {
		cert, certErr := ec.Certs.Issue(userID, course.ID)
		if certErr != nil {
			ec.Logger.Printf("certificate issue failed for user %d course %d: %v", userID, course.ID, certErr)
			response["certificate_pending"] = true
		} else {
			response["certificate_url"] = cert.PDFURL
		}
	}

	return c.JSON(response)
}

// ReviewExam shows the latest attempt with correct answers. Available only
// once the course progress is terminal.
func (ec *ExamController) ReviewExam(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var progress models.CourseProgress
	if err := ec.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&progress).Error; err != nil {
		return utils.NotFound(c, "No exam attempt found")
	}
	status := progression.Status(progress.Status)
	if status != progression.StatusCompleted && status != progression.StatusFailed {
		return utils.Forbidden(c, "Review is available after the course outcome is decided")
	}

	var exam models.FinalExam
	err = ec.DB.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence_order")
	}).Preload("Questions.Options").Where("course_id = ?", courseID).First(&exam).Error
	if err != nil {
		return utils.NotFound(c, "Final exam not found")
	}

	var attempt models.FinalExamAttempt
	err = ec.DB.Where("user_id = ? AND final_exam_id = ?", userID, exam.ID).
		Order("submitted_at DESC").First(&attempt).Error
	if err != nil {
		return utils.NotFound(c, "No exam attempt found")
	}

	var submitted []submittedAnswer
	if len(attempt.Answers) > 0 {
		if err := json.Unmarshal(attempt.Answers, &submitted); err != nil {
			return utils.InternalServerError(c, "Could not decode attempt")
		}
	}
	selectedByQuestion := make(map[uint][]uint, len(submitted))
	for _, a := range submitted {
		selectedByQuestion[a.QuestionID] = a.SelectedOptionIDs
	}

	questions := make([]fiber.Map, len(exam.Questions))
	for i, q := range exam.Questions {
		options := make([]fiber.Map, len(q.Options))
		for j, o := range q.Options {
			options[j] = fiber.Map{
				"id":         o.ID,
				"text":       o.Text,
				"is_correct": o.IsCorrect,
			}
		}
		questions[i] = fiber.Map{
			"id":       q.ID,
			"text":     q.Text,
			"options":  options,
			"selected": selectedByQuestion[q.ID],
		}
	}

	return c.JSON(fiber.Map{
		"status":    progress.Status,
		"score":     attempt.Score,
		"total":     attempt.Total,
		"passed":    attempt.Passed,
		"questions": questions,
	})
}

// ListCertificates returns the caller's certificates.
func (ec *ExamController) ListCertificates(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var certs []models.Certificate
	if err := ec.DB.Where("user_id = ?", userID).Order("issued_at DESC").Find(&certs).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	courseIDs := make([]uint, len(certs))
	for i, cert := range certs {
		courseIDs[i] = cert.CourseID
	}
	titles := make(map[uint]string, len(certs))
	if len(courseIDs) > 0 {
		var courses []models.Course
		if err := ec.DB.Select("id", "title").Where("id IN ?", courseIDs).Find(&courses).Error; err != nil {
			return utils.InternalServerError(c, "Could not query database")
		}
		for _, course := range courses {
			titles[course.ID] = course.Title
		}
	}

	out := make([]fiber.Map, len(certs))
	for i, cert := range certs {
		out[i] = fiber.Map{
			"id":            cert.ID,
			"course_id":     cert.CourseID,
			"course_title":  titles[cert.CourseID],
			"serial_number": cert.SerialNumber,
			"pdf_url":       cert.PDFURL,
			"issued_at":     cert.IssuedAt,
		}
	}
	return c.JSON(fiber.Map{"certificates": out})
}

// RegenerateCertificate re-renders the certificate of a completed course.
// Used when the first render failed after a passing submission.
func (ec *ExamController) RegenerateCertificate(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var progress models.CourseProgress
	if err := ec.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&progress).Error; err != nil {
		return utils.NotFound(c, "Course progress not found")
	}
	if progression.Status(progress.Status) != progression.StatusCompleted {
		return utils.Forbidden(c, "Certificates are issued for completed courses only")
	}

	cert, err := ec.Certs.Issue(userID, uint(courseID))
	if err != nil {
		ec.Logger.Printf("certificate regenerate failed for user %d course %d: %v", userID, courseID, err)
		return utils.InternalServerError(c, "Could not generate certificate")
	}

	return c.JSON(fiber.Map{
		"certificate": fiber.Map{
			"serial_number": cert.SerialNumber,
			"pdf_url":       cert.PDFURL,
			"issued_at":     cert.IssuedAt,
		},
	})
}

// UpsertExam creates or replaces the final exam of a course, replacing the
// question set wholesale.
func (ec *ExamController) UpsertExam(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var input struct {
		Title     string          `json:"title"`
		Questions []questionInput `json:"questions"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := validateQuestionInputs(input.Questions); len(errs) > 0 {
		return utils.ValidationError(c, errs)
	}

	var course models.Course
	if err := ec.DB.First(&course, courseID).Error; err != nil {
		return utils.NotFound(c, "Course not found")
	}

	var exam models.FinalExam
	err = ec.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("course_id = ?", course.ID).First(&exam).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			exam = models.FinalExam{CourseID: course.ID}
		} else if err != nil {
			return err
		}

		exam.Title = input.Title
		if exam.ID == 0 {
			if err := tx.Create(&exam).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Save(&exam).Error; err != nil {
				return err
			}
			if err := deleteQuestionsOf(tx, "final_exam_id", exam.ID); err != nil {
				return err
			}
		}

		return createQuestions(tx, input.Questions, nil, &exam.ID)
	})
	if err != nil {
		return utils.InternalServerError(c, "Could not save exam")
	}

	return c.JSON(fiber.Map{"message": "Exam saved", "exam_id": exam.ID})
}

// --- helpers ---

func (ec *ExamController) loadExamContext(c *fiber.Ctx, userID, courseID uint) (*models.Course, *models.FinalExam, *models.CourseProgress, progression.Availability, error) {
	var course models.Course
	if err := ec.DB.First(&course, courseID).Error; err != nil {
		return nil, nil, nil, "", utils.NotFound(c, "Course not found")
	}

	var exam models.FinalExam
	err := ec.DB.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence_order")
	}).Preload("Questions.Options").Where("course_id = ?", courseID).First(&exam).Error
	if err != nil {
		return nil, nil, nil, "", utils.NotFound(c, "Final exam not found")
	}

	var progress models.CourseProgress
	err = ec.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		progress = models.CourseProgress{
			UserID:   userID,
			CourseID: courseID,
			Status:   string(progression.StatusInProgress),
		}
	} else if err != nil {
		return nil, nil, nil, "", utils.InternalServerError(c, "Could not query database")
	}

	availability := progression.CourseAvailability(time.Now(), course.StartDate, course.EndDate)
	return &course, &exam, &progress, availability, nil
}

func (ec *ExamController) lessonsCompleted(userID, courseID uint) (int64, int64, error) {
	var total int64
	if err := ec.DB.Model(&models.Lesson{}).Where("course_id = ?", courseID).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	var done int64
	err := ec.DB.Model(&models.LessonProgress{}).
		Joins("JOIN lessons ON lessons.id = lesson_progresses.lesson_id").
		Where("lesson_progresses.user_id = ? AND lessons.course_id = ? AND lesson_progresses.is_completed = ?", userID, courseID, true).
		Count(&done).Error
	return done, total, err
}

func examGuardResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, progression.ErrCourseDecided):
		return utils.Forbidden(c, "Course outcome is already decided")
	case errors.Is(err, progression.ErrNoAttemptsLeft):
		return utils.Forbidden(c, "No exam attempts left")
	case errors.Is(err, progression.ErrWindowClosed):
		return utils.Forbidden(c, "Course window has closed")
	default:
		return utils.InternalServerError(c, "Could not evaluate exam access")
	}
}
