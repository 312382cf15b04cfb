package controllers

import (
	"log"
	"strconv"

	"lms/backend/config"
	"lms/backend/models"
	"lms/backend/services"
	"lms/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AIController backs the admin generation endpoints. Generated content is
// persisted through the same tables as hand-authored content, so nothing
// downstream knows the difference.
type AIController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Gemini *services.GeminiService
	Logger *log.Logger
}

func NewAIController(db *gorm.DB, cfg *config.Config, gemini *services.GeminiService, logger *log.Logger) *AIController {
	return &AIController{DB: db, Cfg: cfg, Gemini: gemini, Logger: logger}
}

// GenerateCourseDescription fills in a course description from its title.
func (ac *AIController) GenerateCourseDescription(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var course models.Course
	if err := ac.DB.First(&course, courseID).Error; err != nil {
		return utils.NotFound(c, "Course not found")
	}

	description, err := ac.Gemini.GenerateDescription(course.Title)
	if err != nil {
		ac.Logger.Printf("description generation failed for course %d: %v", course.ID, err)
		return utils.InternalServerError(c, "Generation failed")
	}

	course.Description = description
	if err := ac.DB.Save(&course).Error; err != nil {
		return utils.InternalServerError(c, "Could not save course")
	}

	return c.JSON(fiber.Map{"description": description})
}

// GenerateQuiz drafts a quiz for a lesson and saves it through the normal
// quiz upsert path.
func (ac *AIController) GenerateQuiz(c *fiber.Ctx) error {
	lessonID, err := strconv.Atoi(c.Params("lessonId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid lesson ID")
	}

	var lesson models.Lesson
	if err := ac.DB.First(&lesson, lessonID).Error; err != nil {
		return utils.NotFound(c, "Lesson not found")
	}

	generated, err := ac.Gemini.GenerateQuestions(lesson.Title, 5)
	if err != nil {
		ac.Logger.Printf("quiz generation failed for lesson %d: %v", lesson.ID, err)
		return utils.InternalServerError(c, "Generation failed")
	}

	quizID, err := ac.saveGenerated(generated, &lesson, nil)
	if err != nil {
		return utils.InternalServerError(c, "Could not save quiz")
	}

	return c.JSON(fiber.Map{
		"message":   "Quiz generated",
		"quiz_id":   quizID,
		"questions": len(generated),
	})
}

// GenerateExam drafts a final exam for a course.
func (ac *AIController) GenerateExam(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var course models.Course
	if err := ac.DB.First(&course, courseID).Error; err != nil {
		return utils.NotFound(c, "Course not found")
	}

	generated, err := ac.Gemini.GenerateQuestions(course.Title, 10)
	if err != nil {
		ac.Logger.Printf("exam generation failed for course %d: %v", course.ID, err)
		return utils.InternalServerError(c, "Generation failed")
	}

	examID, err := ac.saveGenerated(generated, nil, &course)
	if err != nil {
		return utils.InternalServerError(c, "Could not save exam")
	}

	return c.JSON(fiber.Map{
		"message":   "Exam generated",
		"exam_id":   examID,
		"questions": len(generated),
	})
}

// saveGenerated persists a generated question set as either a lesson quiz
// or a course final exam, replacing whatever was there.
func (ac *AIController) saveGenerated(generated []services.GeneratedQuestion, lesson *models.Lesson, course *models.Course) (uint, error) {
	inputs := make([]questionInput, len(generated))
	for i, g := range generated {
		in := questionInput{Text: g.Text}
		correct := 0
		for _, o := range g.Options {
			in.Options = append(in.Options, struct {
				Text      string `json:"text"`
				IsCorrect bool   `json:"is_correct"`
			}{Text: o.Text, IsCorrect: o.IsCorrect})
			if o.IsCorrect {
				correct++
			}
		}
		if correct > 1 {
			in.QuestionType = "multiple"
		} else {
			in.QuestionType = "single"
		}
		inputs[i] = in
	}

	var ownerID uint
	err := ac.DB.Transaction(func(tx *gorm.DB) error {
		if lesson != nil {
			var quiz models.Quiz
			err := tx.Where("lesson_id = ?", lesson.ID).First(&quiz).Error
			if err == gorm.ErrRecordNotFound {
				quiz = models.Quiz{LessonID: lesson.ID, Title: lesson.Title + " quiz", PassMark: 3}
				if err := tx.Create(&quiz).Error; err != nil {
					return err
				}
			} else if err != nil {
				return err
			} else if err := deleteQuestionsOf(tx, "quiz_id", quiz.ID); err != nil {
				return err
			}
			ownerID = quiz.ID
			return createQuestions(tx, inputs, &quiz.ID, nil)
		}

		var exam models.FinalExam
		err := tx.Where("course_id = ?", course.ID).First(&exam).Error
		if err == gorm.ErrRecordNotFound {
			exam = models.FinalExam{CourseID: course.ID, Title: course.Title + " final exam"}
			if err := tx.Create(&exam).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		} else if err := deleteQuestionsOf(tx, "final_exam_id", exam.ID); err != nil {
			return err
		}
		ownerID = exam.ID
		return createQuestions(tx, inputs, nil, &exam.ID)
	})
	return ownerID, err
}
