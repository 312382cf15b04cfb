package tests

import (
	"fmt"
	"testing"
	"time"

	"lms/backend/jobs"
	"lms/backend/models"
	"lms/backend/progression"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExamRequiresAllLessonsCompleted(t *testing.T) {
	course := seedCourse("Gated Exam Course", daysFromNow(-1), daysFromNow(30), true)
	seedLesson(course.ID, 1, "Unfinished")
	seedExam(course.ID, 10)

	status, body := doRequest(t, "GET", fmt.Sprintf("/api/courses/%d/exam", course.ID), userToken, nil)
	expectStatus(t, status, fiber.StatusForbidden, body)
}

func TestExamSubmitRequiresAllLessonsCompleted(t *testing.T) {
	student := createUser("Hasty Student", "hasty-student@example.com", "studentpass10", "user")
	token := mustToken(student.ID)

	course := seedCourse("Hasty Exam Course", daysFromNow(-1), daysFromNow(30), true)
	seedLesson(course.ID, 1, "Skipped Lesson")
	_, questions := seedExam(course.ID, 10)

	// A direct submission cannot skip the lesson chain.
	examPath := fmt.Sprintf("/api/courses/%d/exam", course.ID)
	status, body := doRequest(t, "POST", examPath+"/submit", token, answersFor(questions, 10))
	expectStatus(t, status, fiber.StatusForbidden, body)

	// No attempt was spent and no progress row was decided.
	var attempts int64
	db.Model(&models.FinalExamAttempt{}).Where("user_id = ?", student.ID).Count(&attempts)
	assert.Equal(t, int64(0), attempts)
	var progressRows int64
	db.Model(&models.CourseProgress{}).
		Where("user_id = ? AND course_id = ?", student.ID, course.ID).Count(&progressRows)
	assert.Equal(t, int64(0), progressRows)
}

func TestExamFailThenPass(t *testing.T) {
	student := createUser("Exam Student", "exam-student@example.com", "studentpass1", "user")
	token := mustToken(student.ID)

	course := seedCourse("Exam Flow Course", daysFromNow(-1), daysFromNow(30), true)
	lesson := seedLesson(course.ID, 1, "Only Lesson")
	_, questions := seedExam(course.ID, 10)

	completePath := fmt.Sprintf("/api/courses/%d/lessons/%d/complete", course.ID, lesson.ID)
	status, body := doRequest(t, "POST", completePath, token, nil)
	expectStatus(t, status, fiber.StatusOK, body)

	examPath := fmt.Sprintf("/api/courses/%d/exam", course.ID)
	status, body = doRequest(t, "GET", examPath, token, nil)
	expectStatus(t, status, fiber.StatusOK, body)
	assert.Equal(t, float64(0), body["attempts_used"])

	// Review is not available before the outcome is decided.
	status, body = doRequest(t, "GET", examPath+"/review", token, nil)
	expectStatus(t, status, fiber.StatusForbidden, body)

	// 6/10 is below the 70% bar: attempt is spent, course still open.
	status, body = doRequest(t, "POST", examPath+"/submit", token, answersFor(questions, 6))
	expectStatus(t, status, fiber.StatusOK, body)
	assert.Equal(t, false, body["passed"])
	assert.Equal(t, "in_progress", body["status"])
	assert.Equal(t, float64(1), body["attempts_used"])

	// 7/10 is exactly 70% and passes.
	status, body = doRequest(t, "POST", examPath+"/submit", token, answersFor(questions, 7))
	expectStatus(t, status, fiber.StatusOK, body)
	assert.Equal(t, true, body["passed"])
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, float64(2), body["attempts_used"])

	// The pass is durable even though no certificate could be rendered.
	var progress models.CourseProgress
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", student.ID, course.ID).First(&progress).Error)
	assert.Equal(t, "completed", progress.Status)
	assert.Equal(t, 2, progress.ExamAttempts)
	assert.Equal(t, 7, progress.FinalScore)
	assert.NotNil(t, progress.CompletedAt)

	// A decided course rejects further submissions.
	status, body = doRequest(t, "POST", examPath+"/submit", token, answersFor(questions, 10))
	expectStatus(t, status, fiber.StatusForbidden, body)

	// Review now shows the correct answers.
	status, body = doRequest(t, "GET", examPath+"/review", token, nil)
	expectStatus(t, status, fiber.StatusOK, body)
	assert.Equal(t, "completed", body["status"])
	reviewQuestions := body["questions"].([]interface{})
	require.Len(t, reviewQuestions, 10)
	firstOptions := reviewQuestions[0].(map[string]interface{})["options"].([]interface{})
	assert.Contains(t, firstOptions[0].(map[string]interface{}), "is_correct")
}

func TestExamTwoFailuresLockCourse(t *testing.T) {
	student := createUser("Failing Student", "failing-student@example.com", "studentpass2", "user")
	token := mustToken(student.ID)

	course := seedCourse("Two Strikes Course", daysFromNow(-1), daysFromNow(30), true)
	lesson := seedLesson(course.ID, 1, "Only Lesson")
	_, questions := seedExam(course.ID, 10)

	completePath := fmt.Sprintf("/api/courses/%d/lessons/%d/complete", course.ID, lesson.ID)
	status, body := doRequest(t, "POST", completePath, token, nil)
	expectStatus(t, status, fiber.StatusOK, body)

	examPath := fmt.Sprintf("/api/courses/%d/exam", course.ID)

	status, body = doRequest(t, "POST", examPath+"/submit", token, answersFor(questions, 0))
	expectStatus(t, status, fiber.StatusOK, body)
	assert.Equal(t, "in_progress", body["status"])

	// The second failure is terminal.
	status, body = doRequest(t, "POST", examPath+"/submit", token, answersFor(questions, 5))
	expectStatus(t, status, fiber.StatusOK, body)
	assert.Equal(t, "failed", body["status"])
	assert.Equal(t, float64(0), body["attempts_left"])

	status, body = doRequest(t, "POST", examPath+"/submit", token, answersFor(questions, 10))
	expectStatus(t, status, fiber.StatusForbidden, body)

	status, body = doRequest(t, "GET", examPath, token, nil)
	expectStatus(t, status, fiber.StatusForbidden, body)

	// Both attempts were recorded.
	var attempts int64
	db.Model(&models.FinalExamAttempt{}).Where("user_id = ?", student.ID).Count(&attempts)
	assert.Equal(t, int64(2), attempts)
}

func TestExamClosedWindowRejectsRemainingAttempts(t *testing.T) {
	student := createUser("Late Student", "late-student@example.com", "studentpass3", "user")
	token := mustToken(student.ID)

	course := seedCourse("Expired Exam Course", daysFromNow(-30), daysFromNow(-1), true)
	lesson := seedLesson(course.ID, 1, "Only Lesson")
	_, questions := seedExam(course.ID, 10)

	// The student finished the lessons before the window closed.
	require.NoError(t, db.Create(&models.LessonProgress{
		UserID:      student.ID,
		LessonID:    lesson.ID,
		IsCompleted: true,
	}).Error)

	examPath := fmt.Sprintf("/api/courses/%d/exam", course.ID)
	status, body := doRequest(t, "GET", examPath, token, nil)
	expectStatus(t, status, fiber.StatusForbidden, body)

	status, body = doRequest(t, "POST", examPath+"/submit", token, answersFor(questions, 10))
	expectStatus(t, status, fiber.StatusForbidden, body)
}

func TestCourseSweep(t *testing.T) {
	expired := seedCourse("Swept Course", daysFromNow(-30), daysFromNow(-1), true)
	open := seedCourse("Open Course", daysFromNow(-1), daysFromNow(30), true)

	sweptUser := createUser("Swept Student", "swept-student@example.com", "studentpass4", "user")
	safeUser := createUser("Safe Student", "safe-student@example.com", "studentpass5", "user")

	require.NoError(t, db.Create(&models.CourseProgress{
		UserID: sweptUser.ID, CourseID: expired.ID, Status: "in_progress",
	}).Error)
	require.NoError(t, db.Create(&models.CourseProgress{
		UserID: safeUser.ID, CourseID: expired.ID, Status: "completed", ExamAttempts: 1,
	}).Error)
	require.NoError(t, db.Create(&models.CourseProgress{
		UserID: sweptUser.ID, CourseID: open.ID, Status: "in_progress",
	}).Error)

	status, body := doRequest(t, "POST", "/api/admin/jobs/course-sweep", adminToken, nil)
	expectStatus(t, status, fiber.StatusOK, body)
	assert.GreaterOrEqual(t, body["swept"].(float64), float64(1))

	var row models.CourseProgress
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", sweptUser.ID, expired.ID).First(&row).Error)
	assert.Equal(t, "failed", row.Status)

	// Terminal rows and open courses are untouched.
	row = models.CourseProgress{}
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", safeUser.ID, expired.ID).First(&row).Error)
	assert.Equal(t, "completed", row.Status)
	row = models.CourseProgress{}
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", sweptUser.ID, open.ID).First(&row).Error)
	assert.Equal(t, "in_progress", row.Status)

	// Sweeps are admin-only.
	status, body = doRequest(t, "POST", "/api/admin/jobs/course-sweep", userToken, nil)
	expectStatus(t, status, fiber.StatusForbidden, body)
}

func TestSweepUsesSameDayBoundaryAsAvailability(t *testing.T) {
	// A clock far west of UTC: the wall-clock date is the 10th while the
	// instant already lies on the 11th in UTC. The sweep must key off the
	// wall-clock date, like the availability classifier does.
	west := time.FixedZone("WEST", -11*3600)
	now := time.Date(2030, time.March, 10, 23, 0, 0, 0, west)

	endsToday := time.Date(2030, time.March, 10, 0, 0, 0, 0, time.UTC)
	endedYesterday := time.Date(2030, time.March, 9, 0, 0, 0, 0, time.UTC)

	stillOpen := seedCourse("Boundary Open Course", nil, &endsToday, true)
	justClosed := seedCourse("Boundary Closed Course", nil, &endedYesterday, true)

	student := createUser("Boundary Student", "boundary-student@example.com", "studentpass11", "user")
	require.NoError(t, db.Create(&models.CourseProgress{
		UserID: student.ID, CourseID: stillOpen.ID, Status: "in_progress",
	}).Error)
	require.NoError(t, db.Create(&models.CourseProgress{
		UserID: student.ID, CourseID: justClosed.ID, Status: "in_progress",
	}).Error)

	_, err := jobs.SweepFinishedCourses(db, now)
	require.NoError(t, err)

	// The course ending on the wall-clock "today" is still active per the
	// classifier, so the sweep must not fail it.
	assert.Equal(t, progression.Active,
		progression.CourseAvailability(now, nil, &endsToday))
	var row models.CourseProgress
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", student.ID, stillOpen.ID).First(&row).Error)
	assert.Equal(t, "in_progress", row.Status)

	row = models.CourseProgress{}
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", student.ID, justClosed.ID).First(&row).Error)
	assert.Equal(t, "failed", row.Status)
}

func TestCertificateListShowsCourseTitles(t *testing.T) {
	student := createUser("Certified Student", "certified-student@example.com", "studentpass12", "user")
	token := mustToken(student.ID)

	courseA := seedCourse("Certified Course A", nil, nil, true)
	courseB := seedCourse("Certified Course B", nil, nil, true)
	for _, courseID := range []uint{courseA.ID, courseB.ID} {
		require.NoError(t, db.Create(&models.Certificate{
			UserID:       student.ID,
			CourseID:     courseID,
			SerialNumber: fmt.Sprintf("serial-%d-%d", student.ID, courseID),
			PDFURL:       "/uploads/certificates/test.pdf",
			IssuedAt:     time.Now(),
		}).Error)
	}

	status, body := doRequest(t, "GET", "/api/certificates", token, nil)
	expectStatus(t, status, fiber.StatusOK, body)

	certs := body["certificates"].([]interface{})
	require.Len(t, certs, 2)
	titles := []string{}
	for _, raw := range certs {
		titles = append(titles, raw.(map[string]interface{})["course_title"].(string))
	}
	assert.ElementsMatch(t, []string{"Certified Course A", "Certified Course B"}, titles)
}

func TestCertificatesEmptyList(t *testing.T) {
	student := createUser("Certless Student", "certless@example.com", "studentpass6", "user")
	token := mustToken(student.ID)

	status, body := doRequest(t, "GET", "/api/certificates", token, nil)
	expectStatus(t, status, fiber.StatusOK, body)
	assert.Empty(t, body["certificates"])
}
