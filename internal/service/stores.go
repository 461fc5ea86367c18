package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exam-portal/internal/integrity"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/repository"
)

// The store interfaces below are satisfied by the pgx repositories in
// internal/repository. Lookups return repository.ErrNotFound when nothing matches.

type UserStore interface {
	GetByID(ctx context.Context, id int) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Create(ctx context.Context, u *model.User) error
}

type ExamStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	List(ctx context.Context) ([]model.Exam, error)
	ListActive(ctx context.Context) ([]model.Exam, error)
	Create(ctx context.Context, e *model.Exam) error
	Update(ctx context.Context, e *model.Exam) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	ExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
}

type QuestionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error)
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error)
	List(ctx context.Context) ([]model.Question, error)
	Create(ctx context.Context, q *model.Question) error
	Update(ctx context.Context, q *model.Question) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindDuplicate(ctx context.Context, text string, examID, excludeID *uuid.UUID) (*model.Question, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	ExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
}

type AttemptStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamAttempt, error)
	GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*model.ExamAttempt, error)
	// Create returns repository.ErrConflict when the (exam, student) pair already has an attempt.
	Create(ctx context.Context, a *model.ExamAttempt) error
	// Complete returns repository.ErrAlreadyCompleted when the attempt is already closed.
	Complete(ctx context.Context, attemptID uuid.UUID, score int, endTime time.Time, answers []model.StudentAnswer) error
	ListSummaries(ctx context.Context, f repository.AttemptFilter) ([]model.AttemptSummary, error)
	ListRefs(ctx context.Context) ([]integrity.AttemptRef, error)
	ApplyRepair(ctx context.Context, r integrity.Repair) error
}

type AnswerStore interface {
	ListDetailsByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.AnswerDetail, error)
	ListRefs(ctx context.Context) ([]integrity.AnswerRef, error)
	ListRefsByAttempt(ctx context.Context, attemptID uuid.UUID) ([]integrity.AnswerRef, error)
}
