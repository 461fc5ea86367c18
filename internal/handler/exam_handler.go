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

// ExamManager is implemented by service.ExamService.
type ExamManager interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	List(ctx context.Context) ([]model.Exam, error)
	Create(ctx context.Context, req *model.CreateExamRequest, author service.Identity) (*model.Exam, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdateExamRequest) (*model.Exam, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*model.Exam, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListAttempts(ctx context.Context, examID uuid.UUID, onlyInProgress bool) ([]model.AttemptSummary, error)
}

// ExamHandler handles exam management endpoints.
type ExamHandler struct {
	exams ExamManager
	log   zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(exams ExamManager, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		exams: exams,
		log:   log.With().Str("component", "exam_handler").Logger(),
	}
}

// ListExams godoc
// GET /api/v1/exams
func (h *ExamHandler) ListExams(c *gin.Context) {
	exams, err := h.exams.List(c.Request.Context())
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// CreateExam godoc
// POST /api/v1/exams
// Creates an inactive exam owned by the caller.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}

	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.exams.Create(c.Request.Context(), &req, who)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// GetExam godoc
// GET /api/v1/exams/:exam_id
func (h *ExamHandler) GetExam(c *gin.Context) {
	examID, ok := uuidParam(c, "exam_id")
	if !ok {
		return
	}

	exam, err := h.exams.GetByID(c.Request.Context(), examID)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// UpdateExam godoc
// PUT /api/v1/exams/:exam_id
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	examID, ok := uuidParam(c, "exam_id")
	if !ok {
		return
	}

	var req model.UpdateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.exams.Update(c.Request.Context(), examID, &req)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// ActivateExam godoc
// POST /api/v1/exams/:exam_id/activate
func (h *ExamHandler) ActivateExam(c *gin.Context) { h.setActive(c, true) }

// DeactivateExam godoc
// POST /api/v1/exams/:exam_id/deactivate
// Stops new attempts; attempts in progress can still be resumed and submitted.
func (h *ExamHandler) DeactivateExam(c *gin.Context) { h.setActive(c, false) }

func (h *ExamHandler) setActive(c *gin.Context, active bool) {
	examID, ok := uuidParam(c, "exam_id")
	if !ok {
		return
	}

	exam, err := h.exams.SetActive(c.Request.Context(), examID, active)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// DeleteExam godoc
// DELETE /api/v1/exams/:exam_id
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	examID, ok := uuidParam(c, "exam_id")
	if !ok {
		return
	}

	if err := h.exams.Delete(c.Request.Context(), examID); err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// ListAttempts godoc
// GET /api/v1/exams/:exam_id/attempts
func (h *ExamHandler) ListAttempts(c *gin.Context) { h.listAttempts(c, false) }

// ListOngoingAttempts godoc
// GET /api/v1/exams/:exam_id/attempts/ongoing
func (h *ExamHandler) ListOngoingAttempts(c *gin.Context) { h.listAttempts(c, true) }

func (h *ExamHandler) listAttempts(c *gin.Context, onlyInProgress bool) {
	examID, ok := uuidParam(c, "exam_id")
	if !ok {
		return
	}

	attempts, err := h.exams.ListAttempts(c.Request.Context(), examID, onlyInProgress)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempts": attempts})
}
