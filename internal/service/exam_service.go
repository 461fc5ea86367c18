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

// ExamService handles exam management for staff.
type ExamService struct {
	exams    ExamStore
	attempts AttemptStore
	sweeper  *SweeperService
	log      zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(exams ExamStore, attempts AttemptStore, sweeper *SweeperService, log zerolog.Logger) *ExamService {
	return &ExamService{
		exams:    exams,
		attempts: attempts,
		sweeper:  sweeper,
		log:      log.With().Str("component", "exam_service").Logger(),
	}
}

// GetByID retrieves an exam by its UUID.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	exam, err := s.exams.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return exam, err
}

// List returns all exams.
func (s *ExamService) List(ctx context.Context) ([]model.Exam, error) {
	exams, err := s.exams.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	if exams == nil {
		exams = []model.Exam{}
	}
	return exams, nil
}

// Create stores a new, inactive exam.
func (s *ExamService) Create(ctx context.Context, req *model.CreateExamRequest, author Identity) (*model.Exam, error) {
	if !req.EndTime.After(req.StartTime) {
		return nil, ErrInvalidSchedule
	}
	exam := &model.Exam{
		Name:            req.Name,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		DurationMinutes: req.DurationMinutes,
		CreatedBy:       author.UserID,
	}
	if err := s.exams.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}
	s.log.Info().Str("exam_id", exam.ID.String()).Int("created_by", author.UserID).Msg("Exam created")
	return exam, nil
}

// Update applies a partial update. The resulting schedule must stay valid.
func (s *ExamService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateExamRequest) (*model.Exam, error) {
	exam, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Apply(exam)
	if !exam.EndTime.After(exam.StartTime) {
		return nil, ErrInvalidSchedule
	}
	if err := s.exams.Update(ctx, exam); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update exam: %w", err)
	}
	return exam, nil
}

// SetActive toggles whether students can see and start the exam.
func (s *ExamService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*model.Exam, error) {
	if err := s.exams.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("set exam active: %w", err)
	}
	s.log.Info().Str("exam_id", id.String()).Bool("active", active).Msg("Exam activation changed")
	return s.GetByID(ctx, id)
}

// Delete removes the exam. Its attempts become orphans and are removed by
// the next sweep; questions stay in the bank.
func (s *ExamService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.exams.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete exam: %w", err)
	}
	s.log.Info().Str("exam_id", id.String()).Msg("Exam deleted")
	return nil
}

// ListAttempts returns the attempts of one exam, optionally only those in progress.
func (s *ExamService) ListAttempts(ctx context.Context, examID uuid.UUID, onlyInProgress bool) ([]model.AttemptSummary, error) {
	if _, err := s.GetByID(ctx, examID); err != nil {
		return nil, err
	}
	s.sweeper.BeforeRead(ctx)

	list, err := s.attempts.ListSummaries(ctx, repository.AttemptFilter{ExamID: &examID, OnlyInProgress: onlyInProgress})
	if err != nil {
		return nil, fmt.Errorf("list exam attempts: %w", err)
	}
	if list == nil {
		list = []model.AttemptSummary{}
	}
	return list, nil
}
