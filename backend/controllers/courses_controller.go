package controllers

import (
	"errors"
	"strconv"
	"time"

	"lms/backend/config"
	"lms/backend/models"
	"lms/backend/progression"
	"lms/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CoursesController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewCoursesController(db *gorm.DB, cfg *config.Config) *CoursesController {
	return &CoursesController{DB: db, Cfg: cfg}
}

// GetCatalog returns the published courses sectioned by availability, with
// the caller's progress attached to each.
func (cc *CoursesController) GetCatalog(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var courses []models.Course
	if err := cc.DB.Where("is_published = ?", true).Order("title").Find(&courses).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	var progressRows []models.CourseProgress
	if err := cc.DB.Where("user_id = ?", userID).Find(&progressRows).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	progressByCourse := make(map[uint]models.CourseProgress, len(progressRows))
	for _, p := range progressRows {
		progressByCourse[p.CourseID] = p
	}

	now := time.Now()
	available := []fiber.Map{}
	upcoming := []fiber.Map{}
	finished := []fiber.Map{}

	for _, course := range courses {
		availability := progression.CourseAvailability(now, course.StartDate, course.EndDate)

		entry := fiber.Map{
			"id":           course.ID,
			"title":        course.Title,
			"description":  course.Description,
			"start_date":   course.StartDate,
			"end_date":     course.EndDate,
			"availability": availability,
		}
		if p, ok := progressByCourse[course.ID]; ok {
			entry["status"] = p.Status
			entry["exam_attempts"] = p.ExamAttempts
		} else {
			entry["status"] = string(progression.StatusInProgress)
			entry["exam_attempts"] = 0
		}

		switch availability {
		case progression.Upcoming:
			upcoming = append(upcoming, entry)
		case progression.Finished:
			finished = append(finished, entry)
		default:
			available = append(available, entry)
		}
	}

	return c.JSON(fiber.Map{
		"available": available,
		"upcoming":  upcoming,
		"finished":  finished,
	})
}

// GetCourseDetails returns the course with its lesson unlock chain, the
// caller's progress, the exam reference and the certificate when completed.
func (cc *CoursesController) GetCourseDetails(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var course models.Course
	if err := cc.DB.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	availability := progression.CourseAvailability(time.Now(), course.StartDate, course.EndDate)

	// An upcoming course exposes nothing but its header.
	if availability == progression.Upcoming {
		return c.JSON(fiber.Map{
			"course": fiber.Map{
				"id":          course.ID,
				"title":       course.Title,
				"description": course.Description,
				"start_date":  course.StartDate,
			},
			"availability": availability,
			"lessons":      []fiber.Map{},
		})
	}

	lessons, err := orderedLessons(cc.DB, uint(courseID))
	if err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	completed, err := completedLessons(cc.DB, userID, lessons)
	if err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	orderedIDs := make([]uint, len(lessons))
	for i, l := range lessons {
		orderedIDs[i] = l.ID
	}
	states := progression.UnlockLessons(orderedIDs, completed, availability)

	lessonViews := make([]fiber.Map, len(lessons))
	allCompleted := len(lessons) > 0
	for i, l := range lessons {
		lessonViews[i] = fiber.Map{
			"id":        l.ID,
			"title":     l.Title,
			"order":     l.SequenceOrder,
			"has_quiz":  l.Quiz != nil,
			"unlocked":  states[i].Unlocked,
			"completed": states[i].Completed,
		}
		if !states[i].Completed {
			allCompleted = false
		}
	}

	progress := cc.progressRow(userID, uint(courseID))

	response := fiber.Map{
		"course": fiber.Map{
			"id":          course.ID,
			"title":       course.Title,
			"description": course.Description,
			"start_date":  course.StartDate,
			"end_date":    course.EndDate,
		},
		"availability":          availability,
		"lessons":               lessonViews,
		"all_lessons_completed": allCompleted,
		"status":                progress.Status,
		"exam_attempts":         progress.ExamAttempts,
	}

	var exam models.FinalExam
	if err := cc.DB.Where("course_id = ?", courseID).First(&exam).Error; err == nil {
		response["final_exam_id"] = exam.ID
	}

	if progress.Status == string(progression.StatusCompleted) {
		var cert models.Certificate
		if err := cc.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&cert).Error; err == nil {
			response["certificate_url"] = cert.PDFURL
		}
	}

	return c.JSON(response)
}

// GetLesson serves one lesson with its contents. Accessing a locked lesson
// fails with an authorization error instead of rendering.
func (cc *CoursesController) GetLesson(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}
	lessonID, err := strconv.Atoi(c.Params("lessonId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid lesson ID")
	}

	var course models.Course
	if err := cc.DB.First(&course, courseID).Error; err != nil {
		return utils.NotFound(c, "Course not found")
	}

	availability := progression.CourseAvailability(time.Now(), course.StartDate, course.EndDate)
	if availability == progression.Upcoming {
		return utils.Forbidden(c, "Course has not started yet")
	}

	lesson, state, err := resolveLesson(cc.DB, userID, uint(courseID), uint(lessonID), availability)
	if err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	if lesson == nil {
		return utils.NotFound(c, "Lesson not found")
	}
	if !state.Unlocked {
		return utils.Forbidden(c, "Access denied: previous lesson not completed")
	}

	contents := make([]fiber.Map, len(lesson.Contents))
	for i, content := range lesson.Contents {
		contents[i] = fiber.Map{
			"id":           content.ID,
			"content_type": content.ContentType,
			"title":        content.Title,
			"url":          content.URL,
		}
	}

	response := fiber.Map{
		"lesson": fiber.Map{
			"id":        lesson.ID,
			"title":     lesson.Title,
			"order":     lesson.SequenceOrder,
			"contents":  contents,
			"completed": state.Completed,
		},
		"availability": availability,
	}
	if lesson.Quiz != nil {
		response["quiz_id"] = lesson.Quiz.ID
	}

	return c.JSON(response)
}

// CompleteLesson marks a quiz-less lesson as done. Lessons with a quiz are
// completed by passing the quiz.
func (cc *CoursesController) CompleteLesson(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}
	lessonID, err := strconv.Atoi(c.Params("lessonId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid lesson ID")
	}

	var course models.Course
	if err := cc.DB.First(&course, courseID).Error; err != nil {
		return utils.NotFound(c, "Course not found")
	}

	availability := progression.CourseAvailability(time.Now(), course.StartDate, course.EndDate)
	if availability != progression.Active {
		return utils.Forbidden(c, "Course is not active")
	}

	lesson, state, err := resolveLesson(cc.DB, userID, uint(courseID), uint(lessonID), availability)
	if err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	if lesson == nil {
		return utils.NotFound(c, "Lesson not found")
	}
	if lesson.Quiz != nil {
		return utils.BadRequest(c, "Lesson is completed by passing its quiz")
	}
	if !state.Unlocked {
		return utils.Forbidden(c, "Access denied: previous lesson not completed")
	}

	if err := upsertLessonProgress(cc.DB, userID, uint(lessonID)); err != nil {
		return utils.InternalServerError(c, "Could not save progress")
	}

	return c.JSON(fiber.Map{"message": "Lesson completed"})
}

// --- Admin operations ---

func (cc *CoursesController) CreateCourse(c *fiber.Ctx) error {
	var input struct {
		Title       string     `json:"title"`
		Description string     `json:"description"`
		IsPublished bool       `json:"is_published"`
		StartDate   *time.Time `json:"start_date"`
		EndDate     *time.Time `json:"end_date"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.Title == "" {
		return utils.ValidationError(c, map[string]string{"title": "Title is required"})
	}

	course := models.Course{
		Title:       input.Title,
		Description: input.Description,
		IsPublished: input.IsPublished,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
	}
	if err := cc.DB.Create(&course).Error; err != nil {
		return utils.InternalServerError(c, "Could not create course")
	}

	return c.JSON(fiber.Map{
		"message": "Course created",
		"course":  course,
	})
}

func (cc *CoursesController) UpdateCourse(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var input struct {
		Title       *string    `json:"title"`
		Description *string    `json:"description"`
		IsPublished *bool      `json:"is_published"`
		StartDate   *time.Time `json:"start_date"`
		EndDate     *time.Time `json:"end_date"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var course models.Course
	if err := cc.DB.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	if input.Title != nil {
		course.Title = *input.Title
	}
	if input.Description != nil {
		course.Description = *input.Description
	}
	if input.IsPublished != nil {
		course.IsPublished = *input.IsPublished
	}
	if input.StartDate != nil {
		course.StartDate = input.StartDate
	}
	if input.EndDate != nil {
		course.EndDate = input.EndDate
	}

	if err := cc.DB.Save(&course).Error; err != nil {
		return utils.InternalServerError(c, "Could not update course")
	}

	return c.JSON(fiber.Map{"message": "Course updated", "course": course})
}

// DeleteCourse removes the course and every dependent row. This is the only
// path that resets terminal course progress.
func (cc *CoursesController) DeleteCourse(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var course models.Course
	if err := cc.DB.Preload("Lessons").First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	err = cc.DB.Transaction(func(tx *gorm.DB) error {
		lessonIDs := make([]uint, len(course.Lessons))
		for i, l := range course.Lessons {
			lessonIDs[i] = l.ID
		}

		if len(lessonIDs) > 0 {
			if err := tx.Where("lesson_id IN ?", lessonIDs).Delete(&models.LessonProgress{}).Error; err != nil {
				return err
			}
			if err := tx.Where("lesson_id IN ?", lessonIDs).Delete(&models.LessonContent{}).Error; err != nil {
				return err
			}
			var quizzes []models.Quiz
			if err := tx.Where("lesson_id IN ?", lessonIDs).Find(&quizzes).Error; err != nil {
				return err
			}
			for _, quiz := range quizzes {
				if err := deleteQuestionsOf(tx, "quiz_id", quiz.ID); err != nil {
					return err
				}
				if err := tx.Where("quiz_id = ?", quiz.ID).Delete(&models.QuizAttempt{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("lesson_id IN ?", lessonIDs).Delete(&models.Quiz{}).Error; err != nil {
				return err
			}
		}

		var exam models.FinalExam
		if err := tx.Where("course_id = ?", course.ID).First(&exam).Error; err == nil {
			if err := deleteQuestionsOf(tx, "final_exam_id", exam.ID); err != nil {
				return err
			}
			if err := tx.Where("final_exam_id = ?", exam.ID).Delete(&models.FinalExamAttempt{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&exam).Error; err != nil {
				return err
			}
		}

		for _, step := range []error{
			tx.Where("course_id = ?", course.ID).Delete(&models.CourseProgress{}).Error,
			tx.Where("course_id = ?", course.ID).Delete(&models.Certificate{}).Error,
			tx.Where("course_id = ?", course.ID).Delete(&models.Lesson{}).Error,
			tx.Delete(&course).Error,
		} {
			if step != nil {
				return step
			}
		}
		return nil
	})
	if err != nil {
		return utils.InternalServerError(c, "Could not delete course")
	}

	return c.JSON(fiber.Map{"message": "Course deleted"})
}

func (cc *CoursesController) AddLesson(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var input struct {
		Title string `json:"title"`
		Order int    `json:"order"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.Title == "" {
		return utils.ValidationError(c, map[string]string{"title": "Title is required"})
	}

	var course models.Course
	if err := cc.DB.First(&course, courseID).Error; err != nil {
		return utils.NotFound(c, "Course not found")
	}

	if input.Order == 0 {
		// Append after the current last lesson.
		var maxOrder int
		cc.DB.Model(&models.Lesson{}).Where("course_id = ?", courseID).
			Select("COALESCE(MAX(sequence_order), 0)").Scan(&maxOrder)
		input.Order = maxOrder + 1
	}

	lesson := models.Lesson{
		CourseID:      uint(courseID),
		Title:         input.Title,
		SequenceOrder: input.Order,
	}
	if err := cc.DB.Create(&lesson).Error; err != nil {
		return utils.InternalServerError(c, "Could not create lesson")
	}

	return c.JSON(fiber.Map{"message": "Lesson created", "lesson": lesson})
}

func (cc *CoursesController) UpdateLesson(c *fiber.Ctx) error {
	lessonID, err := strconv.Atoi(c.Params("lessonId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid lesson ID")
	}

	var input struct {
		Title *string `json:"title"`
		Order *int    `json:"order"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var lesson models.Lesson
	if err := cc.DB.First(&lesson, lessonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Lesson not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	if input.Title != nil {
		lesson.Title = *input.Title
	}
	if input.Order != nil {
		lesson.SequenceOrder = *input.Order
	}

	if err := cc.DB.Save(&lesson).Error; err != nil {
		return utils.InternalServerError(c, "Could not update lesson")
	}
	return c.JSON(fiber.Map{"message": "Lesson updated", "lesson": lesson})
}

func (cc *CoursesController) DeleteLesson(c *fiber.Ctx) error {
	lessonID, err := strconv.Atoi(c.Params("lessonId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid lesson ID")
	}

	var lesson models.Lesson
	if err := cc.DB.Preload("Quiz").First(&lesson, lessonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Lesson not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	err = cc.DB.Transaction(func(tx *gorm.DB) error {
		if lesson.Quiz != nil {
			if err := deleteQuestionsOf(tx, "quiz_id", lesson.Quiz.ID); err != nil {
				return err
			}
			if err := tx.Where("quiz_id = ?", lesson.Quiz.ID).Delete(&models.QuizAttempt{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(lesson.Quiz).Error; err != nil {
				return err
			}
		}
		for _, step := range []error{
			tx.Where("lesson_id = ?", lesson.ID).Delete(&models.LessonContent{}).Error,
			tx.Where("lesson_id = ?", lesson.ID).Delete(&models.LessonProgress{}).Error,
			tx.Delete(&lesson).Error,
		} {
			if step != nil {
				return step
			}
		}
		return nil
	})
	if err != nil {
		return utils.InternalServerError(c, "Could not delete lesson")
	}
	return c.JSON(fiber.Map{"message": "Lesson deleted"})
}

func (cc *CoursesController) AddContent(c *fiber.Ctx) error {
	lessonID, err := strconv.Atoi(c.Params("lessonId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid lesson ID")
	}

	var input struct {
		ContentType string `json:"content_type"`
		Title       string `json:"title"`
		URL         string `json:"url"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.ContentType != "video" && input.ContentType != "pdf" {
		return utils.ValidationError(c, map[string]string{"content_type": "Content type must be video or pdf"})
	}
	if input.URL == "" {
		return utils.ValidationError(c, map[string]string{"url": "URL is required"})
	}

	var lesson models.Lesson
	if err := cc.DB.First(&lesson, lessonID).Error; err != nil {
		return utils.NotFound(c, "Lesson not found")
	}

	content := models.LessonContent{
		LessonID:    lesson.ID,
		ContentType: input.ContentType,
		Title:       input.Title,
		URL:         input.URL,
	}
	if err := cc.DB.Create(&content).Error; err != nil {
		return utils.InternalServerError(c, "Could not create content")
	}
	return c.JSON(fiber.Map{"message": "Content added", "content": content})
}

func (cc *CoursesController) DeleteContent(c *fiber.Ctx) error {
	contentID, err := strconv.Atoi(c.Params("contentId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid content ID")
	}

	res := cc.DB.Delete(&models.LessonContent{}, contentID)
	if res.Error != nil {
		return utils.InternalServerError(c, "Could not delete content")
	}
	if res.RowsAffected == 0 {
		return utils.NotFound(c, "Content not found")
	}
	return c.JSON(fiber.Map{"message": "Content deleted"})
}

// --- shared helpers ---

func orderedLessons(db *gorm.DB, courseID uint) ([]models.Lesson, error) {
	var lessons []models.Lesson
	err := db.Preload("Quiz").Preload("Contents").
		Where("course_id = ?", courseID).
		Order("sequence_order").
		Find(&lessons).Error
	return lessons, err
}

func completedLessons(db *gorm.DB, userID uint, lessons []models.Lesson) (map[uint]bool, error) {
	completed := make(map[uint]bool)
	if len(lessons) == 0 {
		return completed, nil
	}

	ids := make([]uint, len(lessons))
	for i, l := range lessons {
		ids[i] = l.ID
	}

	var rows []models.LessonProgress
	err := db.Where("user_id = ? AND lesson_id IN ? AND is_completed = ?", userID, ids, true).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		completed[row.LessonID] = true
	}
	return completed, nil
}

// resolveLesson locates a lesson inside a course together with its unlock
// state for one user. Returns a nil lesson when the id is not part of the
// course, so callers cannot reach a lesson through another course's URL.
// Every lesson-scoped handler, quiz submission included, goes through this.
func resolveLesson(db *gorm.DB, userID, courseID, lessonID uint, availability progression.Availability) (*models.Lesson, progression.LessonState, error) {
	lessons, err := orderedLessons(db, courseID)
	if err != nil {
		return nil, progression.LessonState{}, err
	}
	completed, err := completedLessons(db, userID, lessons)
	if err != nil {
		return nil, progression.LessonState{}, err
	}

	orderedIDs := make([]uint, len(lessons))
	for i, l := range lessons {
		orderedIDs[i] = l.ID
	}
	states := progression.UnlockLessons(orderedIDs, completed, availability)

	for i := range lessons {
		if lessons[i].ID == lessonID {
			return &lessons[i], states[i], nil
		}
	}
	return nil, progression.LessonState{}, nil
}

func (cc *CoursesController) progressRow(userID, courseID uint) models.CourseProgress {
	var progress models.CourseProgress
	err := cc.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&progress).Error
	if err != nil {
		progress = models.CourseProgress{
			UserID:   userID,
			CourseID: courseID,
			Status:   string(progression.StatusInProgress),
		}
	}
	return progress
}

// upsertLessonProgress records lesson completion idempotently on the
// (user_id, lesson_id) conflict key. Re-completing never regresses state.
func upsertLessonProgress(db *gorm.DB, userID, lessonID uint) error {
	now := time.Now()
	row := models.LessonProgress{
		UserID:      userID,
		LessonID:    lessonID,
		IsCompleted: true,
		CompletedAt: &now,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"is_completed": true, "updated_at": now}),
	}).Create(&row).Error
}

func deleteQuestionsOf(tx *gorm.DB, column string, ownerID uint) error {
	var questionIDs []uint
	if err := tx.Model(&models.Question{}).Where(column+" = ?", ownerID).Pluck("id", &questionIDs).Error; err != nil {
		return err
	}
	if len(questionIDs) > 0 {
		if err := tx.Where("question_id IN ?", questionIDs).Delete(&models.Option{}).Error; err != nil {
			return err
		}
	}
	return tx.Where(column+" = ?", ownerID).Delete(&models.Question{}).Error
}
