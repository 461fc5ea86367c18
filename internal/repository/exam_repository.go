package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exam-portal/internal/model"
)

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

const examColumns = `id, exam_name, start_time, end_time, duration_minutes, is_active, created_by, created_at, updated_at`

func scanExam(row pgx.Row, e *model.Exam) error {
	return row.Scan(&e.ID, &e.Name, &e.StartTime, &e.EndTime, &e.DurationMinutes,
		&e.IsActive, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
}

func (r *ExamRepository) list(ctx context.Context, query string, args ...any) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := scanExam(rows, &e); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// GetByID retrieves an exam by its UUID.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	if err := scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id), e); err != nil {
		return nil, notFound(err)
	}
	return e, nil
}

// List returns every exam, newest first.
func (r *ExamRepository) List(ctx context.Context) ([]model.Exam, error) {
	return r.list(ctx, `SELECT `+examColumns+` FROM exams ORDER BY created_at DESC`)
}

// ListActive returns exams whose active flag is set, by start time.
func (r *ExamRepository) ListActive(ctx context.Context) ([]model.Exam, error) {
	return r.list(ctx, `SELECT `+examColumns+` FROM exams WHERE is_active ORDER BY start_time`)
}

// Create inserts a new exam.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (exam_name, start_time, end_time, duration_minutes, is_active, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		e.Name, e.StartTime, e.EndTime, e.DurationMinutes, e.IsActive, e.CreatedBy,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// Update writes the mutable exam fields.
func (r *ExamRepository) Update(ctx context.Context, e *model.Exam) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE exams
		 SET exam_name = $1, start_time = $2, end_time = $3, duration_minutes = $4, updated_at = NOW()
		 WHERE id = $5
		 RETURNING updated_at`,
		e.Name, e.StartTime, e.EndTime, e.DurationMinutes, e.ID,
	).Scan(&e.UpdatedAt)
	return notFound(err)
}

// SetActive flips an exam's active flag.
func (r *ExamRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exams SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an exam. Dependent questions and attempts are left for the sweeper.
func (r *ExamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListIDs returns the ids of every exam.
func (r *ExamRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	return collectIDs(ctx, r.pool, `SELECT id FROM exams`)
}

// ExistingIDs returns the subset of ids that still resolve to an exam.
func (r *ExamRepository) ExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	return collectIDs(ctx, r.pool, `SELECT id FROM exams WHERE id = ANY($1)`, ids)
}

func collectIDs(ctx context.Context, pool *pgxpool.Pool, query string, args ...any) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}
