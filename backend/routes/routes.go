package routes

import (
	"log"

	"lms/backend/config"
	"lms/backend/controllers"
	"lms/backend/middleware"
	"lms/backend/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, logger *log.Logger) {
	// Shared services
	certService := services.NewCertificateService(db, cfg, logger)
	geminiService := services.NewGeminiService(cfg)

	// Auth routes
	authController := controllers.NewAuthController(db, cfg)
	app.Post("/api/auth/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	adminMiddleware := middleware.AdminMiddleware(db, cfg)

	// User routes
	userController := controllers.NewUserController(db, cfg, logger)
	app.Get("/api/user/profile", authMiddleware, userController.GetProfile)
	app.Put("/api/user/profile", authMiddleware, userController.UpdateProfile)

	// Courses routes
	coursesController := controllers.NewCoursesController(db, cfg)
	courses := app.Group("/api/courses", authMiddleware)
	courses.Get("/", coursesController.GetCatalog)
	courses.Get("/:id", coursesController.GetCourseDetails)
	courses.Get("/:id/lessons/:lessonId", coursesController.GetLesson)
	courses.Post("/:id/lessons/:lessonId/complete", coursesController.CompleteLesson)

	// Quiz routes
	quizController := controllers.NewQuizController(db, cfg)
	courses.Get("/:id/lessons/:lessonId/quiz", quizController.GetQuiz)
	courses.Post("/:id/lessons/:lessonId/quiz/submit", quizController.SubmitQuiz)

	// Final exam and certificate routes
	examController := controllers.NewExamController(db, cfg, certService, logger)
	courses.Get("/:id/exam", examController.GetExam)
	courses.Post("/:id/exam/submit", examController.SubmitExam)
	courses.Get("/:id/exam/review", examController.ReviewExam)
	courses.Post("/:id/certificate", examController.RegenerateCertificate)
	app.Get("/api/certificates", authMiddleware, examController.ListCertificates)

	// Admin routes for users and sectors
	adminUsers := app.Group("/api/admin/users", authMiddleware, adminMiddleware)
	adminUsers.Get("/", userController.ListUsers)
	adminUsers.Post("/", userController.InviteUser)
	adminUsers.Put("/:id", userController.UpdateUser)
	adminUsers.Delete("/:id", userController.DeleteUser)

	adminSectors := app.Group("/api/admin/sectors", authMiddleware, adminMiddleware)
	adminSectors.Get("/", userController.ListSectors)
	adminSectors.Post("/", userController.CreateSector)
	adminSectors.Delete("/:id", userController.DeleteSector)

	// Admin routes for courses
	adminCourses := app.Group("/api/admin/courses", authMiddleware, adminMiddleware)
	adminCourses.Post("/", coursesController.CreateCourse)
	adminCourses.Put("/:id", coursesController.UpdateCourse)
	adminCourses.Delete("/:id", coursesController.DeleteCourse)
	adminCourses.Post("/:id/lessons", coursesController.AddLesson)
	adminCourses.Put("/:id/lessons/:lessonId", coursesController.UpdateLesson)
	adminCourses.Delete("/:id/lessons/:lessonId", coursesController.DeleteLesson)
	adminCourses.Post("/:id/lessons/:lessonId/contents", coursesController.AddContent)
	adminCourses.Delete("/:id/lessons/:lessonId/contents/:contentId", coursesController.DeleteContent)
	adminCourses.Put("/:id/lessons/:lessonId/quiz", quizController.UpsertQuiz)
	adminCourses.Put("/:id/exam", examController.UpsertExam)

	// Admin AI generation routes
	aiController := controllers.NewAIController(db, cfg, geminiService, logger)
	adminCourses.Post("/:id/description/generate", aiController.GenerateCourseDescription)
	adminCourses.Post("/:id/lessons/:lessonId/quiz/generate", aiController.GenerateQuiz)
	adminCourses.Post("/:id/exam/generate", aiController.GenerateExam)

	// Admin progress and jobs routes
	progressController := controllers.NewProgressController(db, cfg, logger)
	adminProgress := app.Group("/api/admin/progress", authMiddleware, adminMiddleware)
	adminProgress.Get("/courses", progressController.CourseOverview)
	adminProgress.Get("/users/:id", progressController.UserProgress)
	app.Post("/api/admin/jobs/course-sweep", authMiddleware, adminMiddleware, progressController.RunCourseSweep)
}
