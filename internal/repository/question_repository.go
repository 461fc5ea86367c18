package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exam-portal/internal/model"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

const questionColumns = `id, exam_id, question_text, option1, option2, option3, option4,
	correct_option, created_by, created_at, updated_at`

func scanQuestion(row pgx.Row, q *model.Question) error {
	return row.Scan(&q.ID, &q.ExamID, &q.QuestionText, &q.Option1, &q.Option2, &q.Option3, &q.Option4,
		&q.CorrectOption, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt)
}

func (r *QuestionRepository) list(ctx context.Context, query string, args ...any) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := scanQuestion(rows, &q); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// GetByID retrieves a question by its UUID.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	if err := scanQuestion(r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1`, id), q); err != nil {
		return nil, notFound(err)
	}
	return q, nil
}

// ListByExam retrieves all questions of an exam in creation order.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	return r.list(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE exam_id = $1 ORDER BY created_at, id`, examID)
}

// List retrieves every question, newest first.
func (r *QuestionRepository) List(ctx context.Context) ([]model.Question, error) {
	return r.list(ctx, `SELECT `+questionColumns+` FROM questions ORDER BY created_at DESC`)
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (exam_id, question_text, option1, option2, option3, option4, correct_option, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		q.ExamID, q.QuestionText, q.Option1, q.Option2, q.Option3, q.Option4, q.CorrectOption, q.CreatedBy,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
}

// Update writes the mutable question fields.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE questions
		 SET question_text = $1, option1 = $2, option2 = $3, option3 = $4, option4 = $5,
		     correct_option = $6, updated_at = NOW()
		 WHERE id = $7
		 RETURNING updated_at`,
		q.QuestionText, q.Option1, q.Option2, q.Option3, q.Option4, q.CorrectOption, q.ID,
	).Scan(&q.UpdatedAt)
	return notFound(err)
}

// Delete removes a question. Answers referencing it are left for the sweeper.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FindDuplicate returns a question with the same text (case-insensitive),
// optionally restricted to one exam and excluding one id.
func (r *QuestionRepository) FindDuplicate(ctx context.Context, text string, examID, excludeID *uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	err := scanQuestion(r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions
		 WHERE lower(btrim(question_text)) = lower(btrim($1))
		   AND ($2::uuid IS NULL OR exam_id = $2)
		   AND ($3::uuid IS NULL OR id <> $3)
		 LIMIT 1`, text, examID, excludeID), q)
	if err != nil {
		return nil, notFound(err)
	}
	return q, nil
}

// ListIDs returns the ids of every question.
func (r *QuestionRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	return collectIDs(ctx, r.pool, `SELECT id FROM questions`)
}

// ExistingIDs returns the subset of ids that still resolve to a question.
func (r *QuestionRepository) ExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	return collectIDs(ctx, r.pool, `SELECT id FROM questions WHERE id = ANY($1)`, ids)
}
