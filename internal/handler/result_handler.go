package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/repository"
	"github.com/stemsi/exam-portal/internal/response"
	"github.com/stemsi/exam-portal/internal/service"
)

// ResultReader is implemented by service.ResultService.
type ResultReader interface {
	List(ctx context.Context, f repository.AttemptFilter) ([]model.AttemptSummary, error)
	ListForStudent(ctx context.Context, student service.Identity) ([]model.AttemptSummary, error)
	GetAttemptDetail(ctx context.Context, attemptID uuid.UUID, caller service.Identity) (*model.AttemptDetail, error)
}

// ResultHandler serves results to result managers.
type ResultHandler struct {
	results ResultReader
	log     zerolog.Logger
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(results ResultReader, log zerolog.Logger) *ResultHandler {
	return &ResultHandler{
		results: results,
		log:     log.With().Str("component", "result_handler").Logger(),
	}
}

// ListAll godoc
// GET /api/v1/results
func (h *ResultHandler) ListAll(c *gin.Context) {
	h.list(c, repository.AttemptFilter{})
}

// ListByExam godoc
// GET /api/v1/results/exam/:exam_id
func (h *ResultHandler) ListByExam(c *gin.Context) {
	examID, ok := uuidParam(c, "exam_id")
	if !ok {
		return
	}
	h.list(c, repository.AttemptFilter{ExamID: &examID})
}

// ListByStudent godoc
// GET /api/v1/results/student/:student_id
func (h *ResultHandler) ListByStudent(c *gin.Context) {
	studentID, err := strconv.Atoi(c.Param("student_id"))
	if err != nil || studentID <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	h.list(c, repository.AttemptFilter{StudentID: &studentID})
}

func (h *ResultHandler) list(c *gin.Context, f repository.AttemptFilter) {
	list, err := h.results.List(c.Request.Context(), f)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"results": list})
}

// GetAttempt godoc
// GET /api/v1/results/attempt/:attempt_id
func (h *ResultHandler) GetAttempt(c *gin.Context) {
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
