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

// QuestionService handles question bank management.
type QuestionService struct {
	questions QuestionStore
	exams     ExamStore
	log       zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questions QuestionStore, exams ExamStore, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		questions: questions,
		exams:     exams,
		log:       log.With().Str("component", "question_service").Logger(),
	}
}

// GetByID retrieves a question with its answer key.
func (s *QuestionService) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q, err := s.questions.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return q, err
}

// List returns every question in the bank.
func (s *QuestionService) List(ctx context.Context) ([]model.Question, error) {
	qs, err := s.questions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if qs == nil {
		qs = []model.Question{}
	}
	return qs, nil
}

// ListByExam returns an exam's questions with answer keys.
func (s *QuestionService) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	if _, err := s.exams.GetByID(ctx, examID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	qs, err := s.questions.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if qs == nil {
		qs = []model.Question{}
	}
	return qs, nil
}

// Create adds a question to an existing exam.
func (s *QuestionService) Create(ctx context.Context, req *model.CreateQuestionRequest, author Identity) (*model.Question, error) {
	examID, err := uuid.Parse(req.ExamID)
	if err != nil {
		return nil, ErrNotFound
	}
	if _, err := s.exams.GetByID(ctx, examID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}

	q := &model.Question{
		ExamID:        examID,
		QuestionText:  req.QuestionText,
		Option1:       req.Option1,
		Option2:       req.Option2,
		Option3:       req.Option3,
		Option4:       req.Option4,
		CorrectOption: req.CorrectOption,
		CreatedBy:     author.UserID,
	}
	if err := s.questions.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

// Update applies a partial update. Answers already graded keep their
// recorded correctness.
func (s *QuestionService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateQuestionRequest) (*model.Question, error) {
	q, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Apply(q)
	if err := s.questions.Update(ctx, q); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update question: %w", err)
	}
	return q, nil
}

// Delete removes a question. Answers referencing it are repaired by the sweeper.
func (s *QuestionService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.questions.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete question: %w", err)
	}
	s.log.Info().Str("question_id", id.String()).Msg("Question deleted")
	return nil
}

// FindDuplicate returns an existing question with the same text, or nil.
func (s *QuestionService) FindDuplicate(ctx context.Context, req *model.CheckDuplicateRequest) (*model.Question, error) {
	var examID, excludeID *uuid.UUID
	if req.ExamID != "" {
		id, err := uuid.Parse(req.ExamID)
		if err != nil {
			return nil, ErrNotFound
		}
		examID = &id
	}
	if req.ExcludeID != "" {
		id, err := uuid.Parse(req.ExcludeID)
		if err != nil {
			return nil, ErrNotFound
		}
		excludeID = &id
	}

	q, err := s.questions.FindDuplicate(ctx, req.QuestionText, examID, excludeID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find duplicate: %w", err)
	}
	return q, nil
}
