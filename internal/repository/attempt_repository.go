package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exam-portal/internal/integrity"
	"github.com/stemsi/exam-portal/internal/model"
)

// AttemptRepository handles exam attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// AttemptFilter narrows an attempt listing. Zero values mean "any".
type AttemptFilter struct {
	ExamID         *uuid.UUID
	StudentID      *int
	OnlyInProgress bool
}

const attemptColumns = `id, exam_id, student_id, start_time, end_time, total_score, completed, created_at`

func scanAttempt(row pgx.Row, a *model.ExamAttempt) error {
	return row.Scan(&a.ID, &a.ExamID, &a.StudentID, &a.StartTime, &a.EndTime,
		&a.TotalScore, &a.Completed, &a.CreatedAt)
}

// GetByID retrieves an attempt by its UUID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamAttempt, error) {
	a := &model.ExamAttempt{}
	if err := scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM exam_attempts WHERE id = $1`, id), a); err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// GetByExamAndStudent retrieves the attempt of a student for an exam.
func (r *AttemptRepository) GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*model.ExamAttempt, error) {
	a := &model.ExamAttempt{}
	if err := scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM exam_attempts WHERE exam_id = $1 AND student_id = $2`,
		examID, studentID), a); err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// Create inserts a new in-progress attempt. When another request already
// created the attempt for the same (exam, student) pair it returns ErrConflict
// and the caller re-reads the existing row.
func (r *AttemptRepository) Create(ctx context.Context, a *model.ExamAttempt) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exam_attempts (exam_id, student_id, start_time)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (exam_id, student_id) DO NOTHING
		 RETURNING id, total_score, completed, created_at`,
		a.ExamID, a.StudentID, a.StartTime,
	).Scan(&a.ID, &a.TotalScore, &a.Completed, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrConflict
	}
	return err
}

// Complete closes an attempt and stores its graded answers atomically.
// It returns ErrAlreadyCompleted when the attempt was closed concurrently;
// nothing is written in that case.
func (r *AttemptRepository) Complete(ctx context.Context, attemptID uuid.UUID, score int, endTime time.Time, answers []model.StudentAnswer) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE exam_attempts
		 SET completed = true, total_score = $2, end_time = $3
		 WHERE id = $1 AND completed = false`,
		attemptID, score, endTime)
	if err != nil {
		return fmt.Errorf("close attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyCompleted
	}

	if len(answers) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"student_answers"},
			[]string{"attempt_id", "question_id", "selected_option", "is_correct", "created_at"},
			pgx.CopyFromSlice(len(answers), func(i int) ([]any, error) {
				a := answers[i]
				return []any{attemptID, a.QuestionID, a.SelectedOption, a.IsCorrect, endTime}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("insert answers: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// ListSummaries returns attempts joined with exam name and student, newest first.
func (r *AttemptRepository) ListSummaries(ctx context.Context, f AttemptFilter) ([]model.AttemptSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.exam_id, a.student_id, a.start_time, a.end_time, a.total_score, a.completed, a.created_at,
		        COALESCE(e.exam_name, ''), u.id, u.username, u.full_name, u.email
		 FROM exam_attempts a
		 LEFT JOIN exams e ON e.id = a.exam_id
		 JOIN users u ON u.id = a.student_id
		 WHERE ($1::uuid IS NULL OR a.exam_id = $1)
		   AND ($2::int IS NULL OR a.student_id = $2)
		   AND (NOT $3 OR a.completed = false)
		 ORDER BY a.start_time DESC`,
		f.ExamID, f.StudentID, f.OnlyInProgress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AttemptSummary
	for rows.Next() {
		var s model.AttemptSummary
		if err := rows.Scan(&s.ID, &s.ExamID, &s.StudentID, &s.StartTime, &s.EndTime, &s.TotalScore,
			&s.Completed, &s.CreatedAt, &s.ExamName,
			&s.Student.ID, &s.Student.Username, &s.Student.FullName, &s.Student.Email); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListRefs returns the reconciliation view of every attempt.
func (r *AttemptRepository) ListRefs(ctx context.Context) ([]integrity.AttemptRef, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, exam_id, completed FROM exam_attempts`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (integrity.AttemptRef, error) {
		var a integrity.AttemptRef
		err := row.Scan(&a.ID, &a.ExamID, &a.Completed)
		return a, err
	})
}

// ApplyRepair executes a reconciliation plan in one transaction.
func (r *AttemptRepository) ApplyRepair(ctx context.Context, rep integrity.Repair) error {
	if rep.Empty() {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if len(rep.AttemptsToDelete) > 0 {
		if _, err := tx.Exec(ctx,
			`DELETE FROM student_answers WHERE attempt_id = ANY($1)`, rep.AttemptsToDelete); err != nil {
			return fmt.Errorf("delete answers of orphaned attempts: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM exam_attempts WHERE id = ANY($1)`, rep.AttemptsToDelete); err != nil {
			return fmt.Errorf("delete orphaned attempts: %w", err)
		}
	}

	if len(rep.AnswersToDelete) > 0 {
		if _, err := tx.Exec(ctx,
			`DELETE FROM student_answers WHERE id = ANY($1)`, rep.AnswersToDelete); err != nil {
			return fmt.Errorf("delete orphaned answers: %w", err)
		}
	}

	if len(rep.ScoreUpdates) > 0 {
		batch := &pgx.Batch{}
		for _, u := range rep.ScoreUpdates {
			batch.Queue(`UPDATE exam_attempts SET total_score = $2 WHERE id = $1 AND completed`,
				u.AttemptID, u.TotalScore)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("update scores: %w", err)
		}
	}

	return tx.Commit(ctx)
}
