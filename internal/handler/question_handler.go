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

// QuestionBank is implemented by service.QuestionService.
type QuestionBank interface {
	List(ctx context.Context) ([]model.Question, error)
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error)
	Create(ctx context.Context, req *model.CreateQuestionRequest, author service.Identity) (*model.Question, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdateQuestionRequest) (*model.Question, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindDuplicate(ctx context.Context, req *model.CheckDuplicateRequest) (*model.Question, error)
}

// QuestionHandler handles question bank endpoints.
type QuestionHandler struct {
	questions QuestionBank
	log       zerolog.Logger
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questions QuestionBank, log zerolog.Logger) *QuestionHandler {
	return &QuestionHandler{
		questions: questions,
		log:       log.With().Str("component", "question_handler").Logger(),
	}
}

// ListQuestions godoc
// GET /api/v1/questions
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	qs, err := h.questions.List(c.Request.Context())
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questions": qs})
}

// ListByExam godoc
// GET /api/v1/questions/exam/:exam_id
func (h *QuestionHandler) ListByExam(c *gin.Context) {
	examID, ok := uuidParam(c, "exam_id")
	if !ok {
		return
	}

	qs, err := h.questions.ListByExam(c.Request.Context(), examID)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questions": qs})
}

// CreateQuestion godoc
// POST /api/v1/questions
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}

	var req model.CreateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.questions.Create(c.Request.Context(), &req, who)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"question": q})
}

// CheckDuplicate godoc
// POST /api/v1/questions/check-duplicate
func (h *QuestionHandler) CheckDuplicate(c *gin.Context) {
	var req model.CheckDuplicateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.questions.FindDuplicate(c.Request.Context(), &req)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"duplicate": q != nil, "question": q})
}

// UpdateQuestion godoc
// PUT /api/v1/questions/:question_id
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id, ok := uuidParam(c, "question_id")
	if !ok {
		return
	}

	var req model.UpdateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.questions.Update(c.Request.Context(), id, &req)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"question": q})
}

// DeleteQuestion godoc
// DELETE /api/v1/questions/:question_id
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id, ok := uuidParam(c, "question_id")
	if !ok {
		return
	}

	if err := h.questions.Delete(c.Request.Context(), id); err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}
