package model

import (
	"time"

	"github.com/google/uuid"
)

// StudentAnswer is one graded answer persisted at submission.
type StudentAnswer struct {
	ID             uuid.UUID `json:"id"`
	AttemptID      uuid.UUID `json:"attempt_id"`
	QuestionID     uuid.UUID `json:"question_id"`
	SelectedOption int       `json:"selected_option"`
	IsCorrect      bool      `json:"is_correct"`
	CreatedAt      time.Time `json:"created_at"`
}

// SubmittedAnswer is one answer as sent by the client.
// QuestionID stays a string so malformed ids are dropped by grading
// rather than rejecting the whole submission.
type SubmittedAnswer struct {
	QuestionID     string `json:"question_id" binding:"required,max=64"`
	SelectedOption int    `json:"selected_option" binding:"required,min=1,max=4"`
}

// SubmitAttemptRequest is the payload for submitting an attempt.
// An empty list is valid: a timed-out client submits whatever it has.
type SubmitAttemptRequest struct {
	Answers []SubmittedAnswer `json:"answers" binding:"max=1000,dive"`
}
