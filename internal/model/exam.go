package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus is the schedule-derived status of an exam at a given instant.
type ExamStatus string

const (
	ExamStatusInactive  ExamStatus = "INACTIVE"
	ExamStatusScheduled ExamStatus = "SCHEDULED"
	ExamStatusOngoing   ExamStatus = "ONGOING"
	ExamStatusEnded     ExamStatus = "ENDED"
)

// Exam represents an exam entity.
type Exam struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"exam_name"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes int       `json:"duration"`
	IsActive        bool      `json:"is_active"`
	CreatedBy       int       `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// StatusAt classifies the exam against its open window.
// Both window bounds are inclusive.
func (e *Exam) StatusAt(now time.Time) ExamStatus {
	switch {
	case !e.IsActive:
		return ExamStatusInactive
	case now.Before(e.StartTime):
		return ExamStatusScheduled
	case now.After(e.EndTime):
		return ExamStatusEnded
	default:
		return ExamStatusOngoing
	}
}

// CanStartNew reports whether a student without an attempt may begin one now.
// Resuming an in-progress attempt does not consult this.
func (e *Exam) CanStartNew(now time.Time) bool {
	return e.StatusAt(now) == ExamStatusOngoing
}

// Duration returns the per-student time budget.
func (e *Exam) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Name            string    `json:"exam_name" binding:"required,notblank,max=255"`
	StartTime       time.Time `json:"start_time" binding:"required"`
	EndTime         time.Time `json:"end_time" binding:"required,gtfield=StartTime"`
	DurationMinutes int       `json:"duration" binding:"required,min=1,max=1440"`
}

// UpdateExamRequest is the payload for a partial exam update.
type UpdateExamRequest struct {
	Name            *string    `json:"exam_name" binding:"omitempty,notblank,max=255"`
	StartTime       *time.Time `json:"start_time" binding:"omitempty"`
	EndTime         *time.Time `json:"end_time" binding:"omitempty"`
	DurationMinutes *int       `json:"duration" binding:"omitempty,min=1,max=1440"`
}

// Apply copies the set fields of req onto e.
func (req *UpdateExamRequest) Apply(e *Exam) {
	if req.Name != nil {
		e.Name = *req.Name
	}
	if req.StartTime != nil {
		e.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		e.EndTime = *req.EndTime
	}
	if req.DurationMinutes != nil {
		e.DurationMinutes = *req.DurationMinutes
	}
}

// AvailableExam is an ongoing exam as listed for one student.
type AvailableExam struct {
	Exam
	Status    ExamStatus `json:"status"`
	Attempted bool       `json:"attempted"`
	Completed bool       `json:"completed"`
}
