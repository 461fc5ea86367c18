package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptState is the lifecycle state of one (exam, student) pair.
type AttemptState string

const (
	AttemptStateNone       AttemptState = "NO_ATTEMPT"
	AttemptStateInProgress AttemptState = "IN_PROGRESS"
	AttemptStateCompleted  AttemptState = "COMPLETED"
)

// ExamAttempt is a student's single attempt at an exam.
type ExamAttempt struct {
	ID         uuid.UUID  `json:"id"`
	ExamID     uuid.UUID  `json:"exam_id"`
	StudentID  int        `json:"student_id"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time"`
	TotalScore int        `json:"total_score"`
	Completed  bool       `json:"completed"`
	CreatedAt  time.Time  `json:"created_at"`
}

// State derives the lifecycle state. A nil attempt is AttemptStateNone.
func (a *ExamAttempt) State() AttemptState {
	switch {
	case a == nil:
		return AttemptStateNone
	case a.Completed:
		return AttemptStateCompleted
	default:
		return AttemptStateInProgress
	}
}

// StartOutcome tags how a start request was satisfied.
type StartOutcome string

const (
	StartOutcomeStarted StartOutcome = "STARTED"
	StartOutcomeResumed StartOutcome = "RESUMED"
)

// StartResult is returned by a successful start.
type StartResult struct {
	Outcome   StartOutcome `json:"outcome"`
	AttemptID uuid.UUID    `json:"attempt_id"`
	StartTime time.Time    `json:"start_time"`
	// Deadline is start_time + duration; the client submits when it passes.
	Deadline        time.Time `json:"deadline"`
	DurationMinutes int       `json:"duration"`
}

// SubmitResult is returned by a successful submit.
type SubmitResult struct {
	AttemptID      uuid.UUID `json:"attempt_id"`
	TotalScore     int       `json:"total_score"`
	TotalQuestions int       `json:"total_questions"`
}

// AttemptSummary is an attempt joined with its exam and student for listings.
type AttemptSummary struct {
	ExamAttempt
	ExamName string  `json:"exam_name"`
	Student  UserRef `json:"student"`
}

// AnswerDetail is one graded answer with the answer key revealed.
type AnswerDetail struct {
	QuestionID     uuid.UUID `json:"question_id"`
	QuestionText   string    `json:"question_text"`
	Option1        string    `json:"option1"`
	Option2        string    `json:"option2"`
	Option3        string    `json:"option3"`
	Option4        string    `json:"option4"`
	SelectedOption int       `json:"selected_option"`
	CorrectOption  int       `json:"correct_option"`
	IsCorrect      bool      `json:"is_correct"`
}

// AttemptDetail is a completed attempt with per-answer correctness.
type AttemptDetail struct {
	Attempt        ExamAttempt    `json:"attempt"`
	ExamName       string         `json:"exam_name"`
	TotalQuestions int            `json:"total_questions"`
	Answers        []AnswerDetail `json:"answers"`
}

// AttemptEvent is published whenever an attempt changes state.
type AttemptEvent struct {
	Type       AttemptState `json:"type"`
	ExamID     uuid.UUID    `json:"exam_id"`
	AttemptID  uuid.UUID    `json:"attempt_id"`
	StudentID  int          `json:"student_id"`
	TotalScore int          `json:"total_score,omitempty"`
	At         time.Time    `json:"at"`
}
