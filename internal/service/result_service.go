package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/repository"
)

// ResultService serves submitted results to result managers and students.
// Every read is preceded by an integrity sweep so deleted exams and
// questions are reflected in scores.
type ResultService struct {
	exams    ExamStore
	attempts AttemptStore
	answers  AnswerStore
	sweeper  *SweeperService
	log      zerolog.Logger
}

// NewResultService creates a new ResultService.
func NewResultService(exams ExamStore, attempts AttemptStore, answers AnswerStore, sweeper *SweeperService, log zerolog.Logger) *ResultService {
	return &ResultService{
		exams:    exams,
		attempts: attempts,
		answers:  answers,
		sweeper:  sweeper,
		log:      log.With().Str("component", "result_service").Logger(),
	}
}

// List returns attempts matching f after a full sweep.
func (s *ResultService) List(ctx context.Context, f repository.AttemptFilter) ([]model.AttemptSummary, error) {
	s.sweeper.BeforeRead(ctx)

	list, err := s.attempts.ListSummaries(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	if list == nil {
		list = []model.AttemptSummary{}
	}
	return list, nil
}

// ListForStudent returns the caller's own attempt history.
func (s *ResultService) ListForStudent(ctx context.Context, student Identity) ([]model.AttemptSummary, error) {
	if !student.IsStudent() {
		return nil, ErrForbidden
	}
	id := student.UserID
	return s.List(ctx, repository.AttemptFilter{StudentID: &id})
}

// GetAttemptDetail returns a completed attempt with per-answer correctness.
// Students can only read their own attempts.
func (s *ResultService) GetAttemptDetail(ctx context.Context, attemptID uuid.UUID, caller Identity) (*model.AttemptDetail, error) {
	s.sweeper.BeforeAttemptRead(ctx, attemptID)

	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if caller.IsStudent() && attempt.StudentID != caller.UserID {
		return nil, ErrForbidden
	}
	if !attempt.Completed {
		return nil, ErrNotYetCompleted
	}

	detail := &model.AttemptDetail{Attempt: *attempt}
	exam, err := s.exams.GetByID(ctx, attempt.ExamID)
	switch {
	case err == nil:
		detail.ExamName = exam.Name
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("get exam: %w", err)
	}

	answers, err := s.answers.ListDetailsByAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	if answers == nil {
		answers = []model.AnswerDetail{}
	}
	detail.Answers = answers
	detail.TotalQuestions = len(answers)
	return detail, nil
}
