package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exam-portal/internal/integrity"
	"github.com/stemsi/exam-portal/internal/model"
)

// AnswerRepository handles student answer data access.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// ListDetailsByAttempt returns the graded answers of an attempt joined with
// their questions. Answers whose question no longer exists are skipped.
func (r *AnswerRepository) ListDetailsByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.AnswerDetail, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.question_text, q.option1, q.option2, q.option3, q.option4,
		        s.selected_option, q.correct_option, s.is_correct
		 FROM student_answers s
		 JOIN questions q ON q.id = s.question_id
		 WHERE s.attempt_id = $1
		 ORDER BY q.created_at, q.id`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AnswerDetail
	for rows.Next() {
		var d model.AnswerDetail
		if err := rows.Scan(&d.QuestionID, &d.QuestionText, &d.Option1, &d.Option2, &d.Option3, &d.Option4,
			&d.SelectedOption, &d.CorrectOption, &d.IsCorrect); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListRefs returns the reconciliation view of every answer.
func (r *AnswerRepository) ListRefs(ctx context.Context) ([]integrity.AnswerRef, error) {
	return r.refs(ctx, `SELECT id, attempt_id, question_id, is_correct FROM student_answers`)
}

// ListRefsByAttempt returns the reconciliation view of one attempt's answers.
func (r *AnswerRepository) ListRefsByAttempt(ctx context.Context, attemptID uuid.UUID) ([]integrity.AnswerRef, error) {
	return r.refs(ctx,
		`SELECT id, attempt_id, question_id, is_correct FROM student_answers WHERE attempt_id = $1`, attemptID)
}

func (r *AnswerRepository) refs(ctx context.Context, query string, args ...any) ([]integrity.AnswerRef, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (integrity.AnswerRef, error) {
		var a integrity.AnswerRef
		err := row.Scan(&a.ID, &a.AttemptID, &a.QuestionID, &a.IsCorrect)
		return a, err
	})
}
