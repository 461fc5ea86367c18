package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/grading"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/repository"
)

// AttemptService runs the exam attempt lifecycle for students:
// start (or resume), fetch the paper, submit.
type AttemptService struct {
	exams     ExamStore
	questions QuestionStore
	attempts  AttemptStore
	events    EventPublisher
	log       zerolog.Logger
	now       func() time.Time
}

// NewAttemptService creates a new AttemptService. events may be nil.
func NewAttemptService(
	exams ExamStore,
	questions QuestionStore,
	attempts AttemptStore,
	events EventPublisher,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		exams:     exams,
		questions: questions,
		attempts:  attempts,
		events:    events,
		log:       log.With().Str("component", "attempt_service").Logger(),
		now:       time.Now,
	}
}

// ListAvailableExams returns the exams that are ongoing right now, annotated
// with the student's attempt state.
func (s *AttemptService) ListAvailableExams(ctx context.Context, student Identity) ([]model.AvailableExam, error) {
	if !student.IsStudent() {
		return nil, ErrForbidden
	}

	exams, err := s.exams.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active exams: %w", err)
	}

	studentID := student.UserID
	mine, err := s.attempts.ListSummaries(ctx, repository.AttemptFilter{StudentID: &studentID})
	if err != nil {
		return nil, fmt.Errorf("list student attempts: %w", err)
	}
	byExam := make(map[uuid.UUID]*model.ExamAttempt, len(mine))
	for i := range mine {
		byExam[mine[i].ExamID] = &mine[i].ExamAttempt
	}

	now := s.now()
	out := make([]model.AvailableExam, 0, len(exams))
	for _, e := range exams {
		status := e.StatusAt(now)
		if status != model.ExamStatusOngoing {
			continue
		}
		a := byExam[e.ID]
		out = append(out, model.AvailableExam{
			Exam:      e,
			Status:    status,
			Attempted: a != nil,
			Completed: a.State() == model.AttemptStateCompleted,
		})
	}
	return out, nil
}

// Start creates the student's attempt, or resumes the in-progress one.
// A completed attempt can never be restarted.
func (s *AttemptService) Start(ctx context.Context, examID uuid.UUID, student Identity) (*model.StartResult, error) {
	if !student.IsStudent() {
		return nil, ErrForbidden
	}

	exam, err := s.exams.GetByID(ctx, examID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}

	existing, err := s.attempts.GetByExamAndStudent(ctx, examID, student.UserID)
	switch {
	case err == nil:
		return resumeOrReject(exam, existing)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("get attempt: %w", err)
	}

	now := s.now()
	if !exam.CanStartNew(now) {
		return nil, ErrExamNotAvailable
	}

	attempt := &model.ExamAttempt{
		ExamID:    examID,
		StudentID: student.UserID,
		StartTime: now,
	}
	err = s.attempts.Create(ctx, attempt)
	if errors.Is(err, repository.ErrConflict) {
		// A concurrent start won the insert.
		existing, err := s.attempts.GetByExamAndStudent(ctx, examID, student.UserID)
		if err != nil {
			return nil, fmt.Errorf("reload attempt after conflict: %w", err)
		}
		return resumeOrReject(exam, existing)
	}
	if err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	s.log.Info().
		Str("exam_id", examID.String()).
		Int("student_id", student.UserID).
		Str("attempt_id", attempt.ID.String()).
		Msg("Attempt started")
	s.publish(ctx, model.AttemptEvent{
		Type:      model.AttemptStateInProgress,
		ExamID:    examID,
		AttemptID: attempt.ID,
		StudentID: student.UserID,
		At:        now,
	})

	return startResult(model.StartOutcomeStarted, exam, attempt), nil
}

func resumeOrReject(exam *model.Exam, a *model.ExamAttempt) (*model.StartResult, error) {
	if a.Completed {
		return nil, ErrAlreadyAttempted
	}
	return startResult(model.StartOutcomeResumed, exam, a), nil
}

func startResult(outcome model.StartOutcome, exam *model.Exam, a *model.ExamAttempt) *model.StartResult {
	return &model.StartResult{
		Outcome:         outcome,
		AttemptID:       a.ID,
		StartTime:       a.StartTime,
		Deadline:        a.StartTime.Add(exam.Duration()),
		DurationMinutes: exam.DurationMinutes,
	}
}

// GetQuestions returns the exam paper without the answer key. The student
// must hold an in-progress attempt for the exam.
func (s *AttemptService) GetQuestions(ctx context.Context, examID uuid.UUID, student Identity) ([]model.QuestionForStudent, error) {
	if !student.IsStudent() {
		return nil, ErrForbidden
	}

	attempt, err := s.attempts.GetByExamAndStudent(ctx, examID, student.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotStarted
	}
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.Completed {
		return nil, ErrAlreadySubmitted
	}

	questions, err := s.questions.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	paper := make([]model.QuestionForStudent, len(questions))
	for i := range questions {
		paper[i] = questions[i].ForStudent()
	}
	return paper, nil
}

// Submit grades the answers against the exam's current questions and closes
// the attempt. Exactly one submit per attempt succeeds.
func (s *AttemptService) Submit(ctx context.Context, examID uuid.UUID, student Identity, answers []model.SubmittedAnswer) (*model.SubmitResult, error) {
	if !student.IsStudent() {
		return nil, ErrForbidden
	}

	attempt, err := s.attempts.GetByExamAndStudent(ctx, examID, student.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotStarted
	}
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.Completed {
		return nil, ErrAlreadySubmitted
	}

	questions, err := s.questions.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	result := grading.Grade(examID, answers, questions)

	rows := make([]model.StudentAnswer, len(result.Answers))
	for i, a := range result.Answers {
		rows[i] = model.StudentAnswer{
			AttemptID:      attempt.ID,
			QuestionID:     a.QuestionID,
			SelectedOption: a.SelectedOption,
			IsCorrect:      a.IsCorrect,
		}
	}

	now := s.now()
	err = s.attempts.Complete(ctx, attempt.ID, result.Score, now, rows)
	if errors.Is(err, repository.ErrAlreadyCompleted) {
		return nil, ErrAlreadySubmitted
	}
	if err != nil {
		return nil, fmt.Errorf("complete attempt: %w", err)
	}

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Int("student_id", student.UserID).
		Int("score", result.Score).
		Int("graded", result.TotalQuestions()).
		Int("submitted", len(answers)).
		Msg("Attempt submitted")
	s.publish(ctx, model.AttemptEvent{
		Type:       model.AttemptStateCompleted,
		ExamID:     examID,
		AttemptID:  attempt.ID,
		StudentID:  student.UserID,
		TotalScore: result.Score,
		At:         now,
	})

	return &model.SubmitResult{
		AttemptID:      attempt.ID,
		TotalScore:     result.Score,
		TotalQuestions: result.TotalQuestions(),
	}, nil
}

// publish is best-effort; a monitor missing an event never fails the request.
func (s *AttemptService) publish(ctx context.Context, ev model.AttemptEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", ev.AttemptID.String()).Msg("Failed to publish attempt event")
	}
}
