package tests

import (
	"time"

	"lms/backend/models"
)

func daysFromNow(n int) *time.Time {
	t := time.Now().AddDate(0, 0, n)
	return &t
}

func seedCourse(title string, start, end *time.Time, published bool) models.Course {
	course := models.Course{
		Title:       title,
		Description: "seeded course",
		IsPublished: published,
		StartDate:   start,
		EndDate:     end,
	}
	if err := db.Create(&course).Error; err != nil {
		panic(err)
	}
	return course
}

func seedLesson(courseID uint, order int, title string) models.Lesson {
	lesson := models.Lesson{
		CourseID:      courseID,
		Title:         title,
		SequenceOrder: order,
	}
	if err := db.Create(&lesson).Error; err != nil {
		panic(err)
	}
	return lesson
}

// seedQuestions attaches n single-answer questions to a quiz or exam. Each
// question has four options with the first one correct.
func seedQuestions(n int, quizID, examID *uint) []models.Question {
	questions := make([]models.Question, 0, n)
	for i := 0; i < n; i++ {
		q := models.Question{
			QuizID:        quizID,
			FinalExamID:   examID,
			Text:          "question",
			QuestionType:  "single",
			SequenceOrder: i + 1,
		}
		if err := db.Create(&q).Error; err != nil {
			panic(err)
		}
		for j := 0; j < 4; j++ {
			o := models.Option{
				QuestionID: q.ID,
				Text:       "option",
				IsCorrect:  j == 0,
			}
			if err := db.Create(&o).Error; err != nil {
				panic(err)
			}
			q.Options = append(q.Options, o)
		}
		questions = append(questions, q)
	}
	return questions
}

func seedQuiz(lessonID uint, passMark, questionCount int) (models.Quiz, []models.Question) {
	quiz := models.Quiz{
		LessonID: lessonID,
		Title:    "lesson quiz",
		PassMark: passMark,
	}
	if err := db.Create(&quiz).Error; err != nil {
		panic(err)
	}
	return quiz, seedQuestions(questionCount, &quiz.ID, nil)
}

func seedExam(courseID uint, questionCount int) (models.FinalExam, []models.Question) {
	exam := models.FinalExam{
		CourseID: courseID,
		Title:    "final exam",
	}
	if err := db.Create(&exam).Error; err != nil {
		panic(err)
	}
	return exam, seedQuestions(questionCount, nil, &exam.ID)
}

// answersFor builds a submission answering the first `correct` questions
// right and the rest wrong.
func answersFor(questions []models.Question, correct int) map[string]interface{} {
	answers := make([]map[string]interface{}, 0, len(questions))
	for i, q := range questions {
		optionIdx := 0
		if i >= correct {
			optionIdx = 1
		}
		answers = append(answers, map[string]interface{}{
			"question_id":         q.ID,
			"selected_option_ids": []uint{q.Options[optionIdx].ID},
		})
	}
	return map[string]interface{}{"answers": answers}
}
