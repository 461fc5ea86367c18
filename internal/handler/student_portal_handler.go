package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/response"
	"github.com/stemsi/exam-portal/internal/service"
	"github.com/stemsi/exam-portal/internal/validator"
)

// AttemptLifecycle is implemented by service.AttemptService.
type AttemptLifecycle interface {
	ListAvailableExams(ctx context.Context, student service.Identity) ([]model.AvailableExam, error)
	Start(ctx context.Context, examID uuid.UUID, student service.Identity) (*model.StartResult, error)
	GetQuestions(ctx context.Context, examID uuid.UUID, student service.Identity) ([]model.QuestionForStudent, error)
	Submit(ctx context.Context, examID uuid.UUID, student service.Identity, answers []model.SubmittedAnswer) (*model.SubmitResult, error)
}

// StudentPortalHandler handles student-facing endpoints: available exams,
// taking an exam and reading one's own results.
type StudentPortalHandler struct {
	attempts AttemptLifecycle
	results  ResultReader
	log      zerolog.Logger
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(attempts AttemptLifecycle, results ResultReader, log zerolog.Logger) *StudentPortalHandler {
	return &StudentPortalHandler{
		attempts: attempts,
		results:  results,
		log:      log.With().Str("component", "student_portal_handler").Logger(),
	}
}

// ListAvailable godoc
// GET /api/v1/student/exams/available
// Returns exams that are open right now with the caller's attempt state.
func (h *StudentPortalHandler) ListAvailable(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}

	exams, err := h.attempts.ListAvailableExams(c.Request.Context(), who)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// StartExam godoc
// POST /api/v1/student/exams/:exam_id/start
// Creates the caller's attempt or resumes the one in progress.
func (h *StudentPortalHandler) StartExam(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	examID, ok := uuidParam(c, "exam_id")
	if !ok {
		return
	}

	res, err := h.attempts.Start(c.Request.Context(), examID, who)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	status := http.StatusOK
	if res.Outcome == model.StartOutcomeStarted {
		status = http.StatusCreated
	}
	response.Success(c, status, res)
}

// GetQuestions godoc
// GET /api/v1/student/exams/:exam_id/questions
// Returns the exam paper without answer keys.
func (h *StudentPortalHandler) GetQuestions(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	examID, ok := uuidParam(c, "exam_id")
	if !ok {
		return
	}

	questions, err := h.attempts.GetQuestions(c.Request.Context(), examID, who)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// SubmitExam godoc
// POST /api/v1/student/exams/:exam_id/submit
// Grades and closes the caller's attempt. Also used by the client on timeout.
func (h *StudentPortalHandler) SubmitExam(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	examID, ok := uuidParam(c, "exam_id")
	if !ok {
		return
	}

	// An empty body is a timed-out client with nothing answered.
	var req model.SubmitAttemptRequest
	if c.Request.ContentLength != 0 {
		if errs := validator.Bind(c, &req); errs != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, errs)
			return
		}
	}

	res, err := h.attempts.Submit(c.Request.Context(), examID, who, req.Answers)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// MyResults godoc
// GET /api/v1/student/results
func (h *StudentPortalHandler) MyResults(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}

	list, err := h.results.ListForStudent(c.Request.Context(), who)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"results": list})
}

// MyResultDetail godoc
// GET /api/v1/student/results/:attempt_id
func (h *StudentPortalHandler) MyResultDetail(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	attemptID, ok := uuidParam(c, "attempt_id")
	if !ok {
		return
	}

	detail, err := h.results.GetAttemptDetail(c.Request.Context(), attemptID, who)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, detail)
}
