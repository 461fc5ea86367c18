package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/handler"
	"github.com/stemsi/exam-portal/internal/middleware"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/response"
)

// Authenticator is what the auth middlewares need from service.AuthService.
type Authenticator interface {
	middleware.TokenValidator
	middleware.SessionValidator
}

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *handler.AuthHandler
	StudentPortal *handler.StudentPortalHandler
	Exam          *handler.ExamHandler
	Question      *handler.QuestionHandler
	Result        *handler.ResultHandler
	Maintenance   *handler.MaintenanceHandler
	Monitor       *handler.MonitorHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// loginLimiter may be nil to disable login rate limiting.
func SetupRouter(
	auth Authenticator,
	handlers *Handlers,
	loginLimiter *middleware.RateLimiter,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.AccessLog(log))
	router.Use(middleware.Brotli())

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	requireAuth := []gin.HandlerFunc{
		middleware.RequireJWT(auth),
		middleware.CheckSingleDeviceSession(auth, log),
	}

	api := router.Group("/api/v1")

	// ─── 1. Auth Group ─────────────────────────────────────────────────
	authAPI := api.Group("/auth", middleware.NoStore())
	{
		if loginLimiter != nil {
			authAPI.POST("/login", loginLimiter.Middleware(), handlers.Auth.Login)
		} else {
			authAPI.POST("/login", handlers.Auth.Login)
		}
		authAPI.GET("/me", append(requireAuth, handlers.Auth.Me)...)
		authAPI.POST("/logout", append(requireAuth, handlers.Auth.Logout)...)
	}

	// ─── 2. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := api.Group("/student", requireAuth...)
	studentAPI.Use(middleware.RequireRole(model.RoleStudent), middleware.NoStore())
	{
		studentAPI.GET("/exams/available", handlers.StudentPortal.ListAvailable)
		studentAPI.POST("/exams/:exam_id/start", handlers.StudentPortal.StartExam)
		studentAPI.GET("/exams/:exam_id/questions", handlers.StudentPortal.GetQuestions)
		studentAPI.POST("/exams/:exam_id/submit", handlers.StudentPortal.SubmitExam)
		studentAPI.GET("/results", handlers.StudentPortal.MyResults)
		studentAPI.GET("/results/:attempt_id", handlers.StudentPortal.MyResultDetail)
	}

	// ─── 3. Exam Group ─────────────────────────────────────────────────
	examManager := middleware.RequireRole(model.RoleExamManager)
	examAPI := api.Group("/exams", requireAuth...)
	{
		examAPI.GET("", middleware.RequireRole(model.Managers...), handlers.Exam.ListExams)
		examAPI.POST("", examManager, handlers.Exam.CreateExam)
		examAPI.GET("/:exam_id", middleware.RequireRole(model.Managers...), handlers.Exam.GetExam)
		examAPI.PUT("/:exam_id", examManager, handlers.Exam.UpdateExam)
		examAPI.POST("/:exam_id/activate", examManager, handlers.Exam.ActivateExam)
		examAPI.POST("/:exam_id/deactivate", examManager, handlers.Exam.DeactivateExam)
		examAPI.DELETE("/:exam_id",
			middleware.RequireRole(model.RoleExamManager, model.RoleSystemAdmin),
			handlers.Exam.DeleteExam,
		)
		examAPI.GET("/:exam_id/attempts", examManager, handlers.Exam.ListAttempts)
		examAPI.GET("/:exam_id/attempts/ongoing", examManager, handlers.Exam.ListOngoingAttempts)
	}

	// ─── 4. Question Group ─────────────────────────────────────────────
	questionAPI := api.Group("/questions", requireAuth...)
	questionAPI.Use(middleware.RequireRole(model.RoleQuestionManager))
	{
		questionAPI.GET("", handlers.Question.ListQuestions)
		questionAPI.GET("/exam/:exam_id", handlers.Question.ListByExam)
		questionAPI.POST("", handlers.Question.CreateQuestion)
		questionAPI.POST("/check-duplicate", handlers.Question.CheckDuplicate)
		questionAPI.PUT("/:question_id", handlers.Question.UpdateQuestion)
		questionAPI.DELETE("/:question_id", handlers.Question.DeleteQuestion)
	}

	// ─── 5. Result Group ───────────────────────────────────────────────
	resultManager := middleware.RequireRole(model.RoleResultManager)
	resultAPI := api.Group("/results", requireAuth...)
	{
		resultAPI.GET("",
			middleware.RequireRole(model.RoleResultManager, model.RoleSystemAdmin),
			handlers.Result.ListAll,
		)
		resultAPI.GET("/exam/:exam_id", resultManager, handlers.Result.ListByExam)
		resultAPI.GET("/student/:student_id", resultManager, handlers.Result.ListByStudent)
		resultAPI.GET("/attempt/:attempt_id", resultManager, handlers.Result.GetAttempt)
	}

	// ─── 6. Maintenance Group ──────────────────────────────────────────
	maintenanceAPI := api.Group("/maintenance", requireAuth...)
	maintenanceAPI.Use(middleware.RequireRole(model.RoleSystemAdmin))
	{
		maintenanceAPI.POST("/sweep", handlers.Maintenance.Sweep)
	}

	// ─── 7. WebSocket Group (token query) ──────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.RequireWSAuth(auth),
		middleware.CheckSingleDeviceSession(auth, log),
		middleware.RequireRole(model.RoleExamManager),
	)
	{
		ws.GET("/admin/exams/:exam_id/monitor", handlers.Monitor.MonitorExam)
	}

	return router
}
