package controllers

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"lms/backend/config"
	"lms/backend/models"
	"lms/backend/progression"
	"lms/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type QuizController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewQuizController(db *gorm.DB, cfg *config.Config) *QuizController {
	return &QuizController{DB: db, Cfg: cfg}
}

// submittedAnswer is the wire form of one answered question.
type submittedAnswer struct {
	QuestionID        uint   `json:"question_id"`
	SelectedOptionIDs []uint `json:"selected_option_ids"`
}

// GetQuiz returns the quiz of a lesson with questions and options. The
// lesson must belong to the course in the URL and be unlocked for the
// caller; correct flags are stripped from the payload.
func (qc *QuizController) GetQuiz(c *fiber.Ctx) error {
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
	if err := qc.DB.First(&course, courseID).Error; err != nil {
		return utils.NotFound(c, "Course not found")
	}
	availability := progression.CourseAvailability(time.Now(), course.StartDate, course.EndDate)
	if availability == progression.Upcoming {
		return utils.Forbidden(c, "Course has not started yet")
	}

	lesson, state, err := resolveLesson(qc.DB, userID, uint(courseID), uint(lessonID), availability)
	if err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	if lesson == nil {
		return utils.NotFound(c, "Lesson not found")
	}
	if !state.Unlocked {
		return utils.Forbidden(c, "Access denied: previous lesson not completed")
	}

	var quiz models.Quiz
	err = qc.DB.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence_order")
	}).Preload("Questions.Options").Where("lesson_id = ?", lesson.ID).First(&quiz).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Quiz not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	return c.JSON(fiber.Map{
		"quiz": fiber.Map{
			"id":        quiz.ID,
			"title":     quiz.Title,
			"pass_mark": quiz.PassMark,
			"questions": publicQuestions(quiz.Questions),
		},
	})
}

// SubmitQuiz grades the submitted answers. The lesson must belong to the
// course in the URL and be unlocked; a locked lesson cannot be completed
// through its quiz. Passing the quiz completes the lesson; the attempt
// itself is recorded either way.
func (qc *QuizController) SubmitQuiz(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}
	lessonID, err := strconv.Atoi(c.Params("lessonId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid lesson ID")
	}

	var input struct {
		Answers []submittedAnswer `json:"answers"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var course models.Course
	if err := qc.DB.First(&course, courseID).Error; err != nil {
		return utils.NotFound(c, "Course not found")
	}

	availability := progression.CourseAvailability(time.Now(), course.StartDate, course.EndDate)
	if availability != progression.Active {
		return utils.Forbidden(c, "Course is not active")
	}

	lesson, state, err := resolveLesson(qc.DB, userID, uint(courseID), uint(lessonID), availability)
	if err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	if lesson == nil {
		return utils.NotFound(c, "Lesson not found")
	}
	if !state.Unlocked {
		return utils.Forbidden(c, "Access denied: previous lesson not completed")
	}

	var quiz models.Quiz
	err = qc.DB.Preload("Questions.Options").Where("lesson_id = ?", lesson.ID).First(&quiz).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Quiz not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	keys := answerKeys(quiz.Questions)
	sheet := toAnswerSheet(input.Answers)
	score := progression.Score(keys, sheet)
	total := len(keys)
	passed := progression.QuizPassed(score, quiz.PassMark)

	rawAnswers, err := json.Marshal(input.Answers)
	if err != nil {
		return utils.InternalServerError(c, "Could not record attempt")
	}

	err = qc.DB.Transaction(func(tx *gorm.DB) error {
		attempt := models.QuizAttempt{
			UserID:  userID,
			QuizID:  quiz.ID,
			Answers: rawAnswers,
			Score:   score,
			Total:   total,
			Passed:  passed,
		}
		if err := tx.Create(&attempt).Error; err != nil {
			return err
		}
		if passed {
			return upsertLessonProgress(tx, userID, lesson.ID)
		}
		return nil
	})
	if err != nil {
		return utils.InternalServerError(c, "Could not record attempt")
	}

	return c.JSON(fiber.Map{
		"score":            score,
		"total":            total,
		"pass_mark":        quiz.PassMark,
		"passed":           passed,
		"lesson_completed": passed,
	})
}

// UpsertQuiz creates or replaces the quiz of a lesson. The question set is
// replaced wholesale, so stale questions never survive an edit.
func (qc *QuizController) UpsertQuiz(c *fiber.Ctx) error {
	lessonID, err := strconv.Atoi(c.Params("lessonId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid lesson ID")
	}

	var input struct {
		Title     string          `json:"title"`
		PassMark  int             `json:"pass_mark"`
		Questions []questionInput `json:"questions"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := validateQuestionInputs(input.Questions); len(errs) > 0 {
		return utils.ValidationError(c, errs)
	}

	var lesson models.Lesson
	if err := qc.DB.First(&lesson, lessonID).Error; err != nil {
		return utils.NotFound(c, "Lesson not found")
	}

	if input.PassMark <= 0 {
		input.PassMark = 3
	}

	var quiz models.Quiz
	err = qc.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("lesson_id = ?", lesson.ID).First(&quiz).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			quiz = models.Quiz{LessonID: lesson.ID}
		} else if err != nil {
			return err
		}

		quiz.Title = input.Title
		quiz.PassMark = input.PassMark
		if quiz.ID == 0 {
			if err := tx.Create(&quiz).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Save(&quiz).Error; err != nil {
				return err
			}
			if err := deleteQuestionsOf(tx, "quiz_id", quiz.ID); err != nil {
				return err
			}
		}

		return createQuestions(tx, input.Questions, &quiz.ID, nil)
	})
	if err != nil {
		return utils.InternalServerError(c, "Could not save quiz")
	}

	return c.JSON(fiber.Map{"message": "Quiz saved", "quiz_id": quiz.ID})
}

// --- shared question helpers ---

type questionInput struct {
	Text         string `json:"text"`
	QuestionType string `json:"question_type"`
	Options      []struct {
		Text      string `json:"text"`
		IsCorrect bool   `json:"is_correct"`
	} `json:"options"`
}

func validateQuestionInputs(questions []questionInput) map[string]string {
	errs := make(map[string]string)
	if len(questions) == 0 {
		errs["questions"] = "At least one question is required"
		return errs
	}
	for i, q := range questions {
		key := "questions[" + strconv.Itoa(i) + "]"
		if q.Text == "" {
			errs[key] = "Question text is required"
			continue
		}
		if len(q.Options) < 2 {
			errs[key] = "At least two options are required"
			continue
		}
		hasCorrect := false
		for _, o := range q.Options {
			if o.IsCorrect {
				hasCorrect = true
				break
			}
		}
		if !hasCorrect {
			errs[key] = "At least one option must be correct"
		}
	}
	return errs
}

func createQuestions(tx *gorm.DB, inputs []questionInput, quizID, examID *uint) error {
	for i, in := range inputs {
		qType := in.QuestionType
		if qType == "" {
			qType = "single"
			correct := 0
			for _, o := range in.Options {
				if o.IsCorrect {
					correct++
				}
			}
			if correct > 1 {
				qType = "multiple"
			}
		}
		question := models.Question{
			QuizID:        quizID,
			FinalExamID:   examID,
			Text:          in.Text,
			QuestionType:  qType,
			SequenceOrder: i + 1,
		}
		if err := tx.Create(&question).Error; err != nil {
			return err
		}
		for _, o := range in.Options {
			option := models.Option{
				QuestionID: question.ID,
				Text:       o.Text,
				IsCorrect:  o.IsCorrect,
			}
			if err := tx.Create(&option).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func publicQuestions(questions []models.Question) []fiber.Map {
	out := make([]fiber.Map, len(questions))
	for i, q := range questions {
		options := make([]fiber.Map, len(q.Options))
		for j, o := range q.Options {
			options[j] = fiber.Map{"id": o.ID, "text": o.Text}
		}
		out[i] = fiber.Map{
			"id":            q.ID,
			"text":          q.Text,
			"question_type": q.QuestionType,
			"order":         q.SequenceOrder,
			"options":       options,
		}
	}
	return out
}

func answerKeys(questions []models.Question) []progression.QuestionKey {
	keys := make([]progression.QuestionKey, len(questions))
	for i, q := range questions {
		var correct []uint
		for _, o := range q.Options {
			if o.IsCorrect {
				correct = append(correct, o.ID)
			}
		}
		keys[i] = progression.QuestionKey{QuestionID: q.ID, CorrectOptionIDs: correct}
	}
	return keys
}

func toAnswerSheet(answers []submittedAnswer) progression.AnswerSheet {
	sheet := make(progression.AnswerSheet, len(answers))
	for _, a := range answers {
		sheet[a.QuestionID] = a.SelectedOptionIDs
	}
	return sheet
}
