package tests

import (
	"fmt"
	"testing"

	"lms/backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuizSubmission(t *testing.T) {
	student := createUser("Quiz Student", "quiz-student@example.com", "studentpass7", "user")
	token := mustToken(student.ID)

	course := seedCourse("Quiz Course", daysFromNow(-1), daysFromNow(30), true)
	first := seedLesson(course.ID, 1, "Quizzed Lesson")
	second := seedLesson(course.ID, 2, "Next Lesson")
	_, questions := seedQuiz(first.ID, 3, 5)

	submitPath := fmt.Sprintf("/api/courses/%d/lessons/%d/quiz/submit", course.ID, first.ID)

	// 2/5 misses the pass mark of 3: attempt recorded, lesson stays open.
	status, body := doRequest(t, "POST", submitPath, token, answersFor(questions, 2))
	expectStatus(t, status, fiber.StatusOK, body)
	assert.Equal(t, false, body["passed"])
	assert.Equal(t, false, body["lesson_completed"])

	secondPath := fmt.Sprintf("/api/courses/%d/lessons/%d", course.ID, second.ID)
	status, body = doRequest(t, "GET", secondPath, token, nil)
	expectStatus(t, status, fiber.StatusForbidden, body)

	// 3/5 meets the pass mark and completes the lesson.
	status, body = doRequest(t, "POST", submitPath, token, answersFor(questions, 3))
	expectStatus(t, status, fiber.StatusOK, body)
	assert.Equal(t, true, body["passed"])
	assert.Equal(t, true, body["lesson_completed"])

	status, body = doRequest(t, "GET", secondPath, token, nil)
	expectStatus(t, status, fiber.StatusOK, body)

	// Both attempts live in history.
	var attempts []models.QuizAttempt
	require.NoError(t, db.Where("user_id = ?", student.ID).Order("id").Find(&attempts).Error)
	require.Len(t, attempts, 2)
	assert.Equal(t, 2, attempts[0].Score)
	assert.False(t, attempts[0].Passed)
	assert.Equal(t, 3, attempts[1].Score)
	assert.True(t, attempts[1].Passed)
}

func TestQuizSupersetAnswerScoresZero(t *testing.T) {
	student := createUser("Superset Student", "superset-student@example.com", "studentpass8", "user")
	token := mustToken(student.ID)

	course := seedCourse("Superset Course", daysFromNow(-1), daysFromNow(30), true)
	lesson := seedLesson(course.ID, 1, "Strict Lesson")
	_, questions := seedQuiz(lesson.ID, 1, 1)

	// Selecting the correct option plus a wrong one earns nothing.
	q := questions[0]
	payload := map[string]interface{}{
		"answers": []map[string]interface{}{{
			"question_id":         q.ID,
			"selected_option_ids": []uint{q.Options[0].ID, q.Options[1].ID},
		}},
	}
	submitPath := fmt.Sprintf("/api/courses/%d/lessons/%d/quiz/submit", course.ID, lesson.ID)
	status, body := doRequest(t, "POST", submitPath, token, payload)
	expectStatus(t, status, fiber.StatusOK, body)
	assert.Equal(t, float64(0), body["score"])
	assert.Equal(t, false, body["passed"])
}

func TestLockedLessonQuizInaccessible(t *testing.T) {
	student := createUser("Locked Quiz Student", "locked-quiz@example.com", "studentpass9", "user")
	token := mustToken(student.ID)

	course := seedCourse("Locked Quiz Course", daysFromNow(-1), daysFromNow(30), true)
	seedLesson(course.ID, 1, "First Lesson")
	second := seedLesson(course.ID, 2, "Locked Lesson")
	_, questions := seedQuiz(second.ID, 3, 5)

	quizPath := fmt.Sprintf("/api/courses/%d/lessons/%d/quiz", course.ID, second.ID)

	// The quiz of a locked lesson can be neither read nor submitted.
	status, body := doRequest(t, "GET", quizPath, token, nil)
	expectStatus(t, status, fiber.StatusForbidden, body)

	status, body = doRequest(t, "POST", quizPath+"/submit", token, answersFor(questions, 5))
	expectStatus(t, status, fiber.StatusForbidden, body)

	// Nothing was completed or recorded by the rejected submission.
	var count int64
	db.Model(&models.LessonProgress{}).Where("user_id = ? AND lesson_id = ?", student.ID, second.ID).Count(&count)
	assert.Equal(t, int64(0), count)
	db.Model(&models.QuizAttempt{}).Where("user_id = ?", student.ID).Count(&count)
	assert.Equal(t, int64(0), count)

	// Lesson 3 must not have been unlocked through the back door either.
	third := seedLesson(course.ID, 3, "Third Lesson")
	status, body = doRequest(t, "GET",
		fmt.Sprintf("/api/courses/%d/lessons/%d", course.ID, third.ID), token, nil)
	expectStatus(t, status, fiber.StatusForbidden, body)
}

func TestQuizOfAnotherCourseNotFound(t *testing.T) {
	courseA := seedCourse("Crosswired Course A", daysFromNow(-1), daysFromNow(30), true)
	courseB := seedCourse("Crosswired Course B", daysFromNow(-1), daysFromNow(30), true)
	lessonB := seedLesson(courseB.ID, 1, "Belongs To B")
	_, questions := seedQuiz(lessonB.ID, 3, 5)

	// Reaching B's lesson through A's URL resolves nothing.
	quizPath := fmt.Sprintf("/api/courses/%d/lessons/%d/quiz", courseA.ID, lessonB.ID)
	status, body := doRequest(t, "GET", quizPath, userToken, nil)
	expectStatus(t, status, fiber.StatusNotFound, body)

	status, body = doRequest(t, "POST", quizPath+"/submit", userToken, answersFor(questions, 5))
	expectStatus(t, status, fiber.StatusNotFound, body)
}

func TestQuizClosedCourseRejectsSubmission(t *testing.T) {
	course := seedCourse("Closed Quiz Course", daysFromNow(-30), daysFromNow(-2), true)
	lesson := seedLesson(course.ID, 1, "Closed Lesson")
	_, questions := seedQuiz(lesson.ID, 3, 5)

	submitPath := fmt.Sprintf("/api/courses/%d/lessons/%d/quiz/submit", course.ID, lesson.ID)
	status, body := doRequest(t, "POST", submitPath, userToken, answersFor(questions, 5))
	expectStatus(t, status, fiber.StatusForbidden, body)
}
