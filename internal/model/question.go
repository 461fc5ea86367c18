package model

import (
	"time"

	"github.com/google/uuid"
)

// Question is a four-option multiple choice question owned by one exam.
type Question struct {
	ID            uuid.UUID `json:"id"`
	ExamID        uuid.UUID `json:"exam_id"`
	QuestionText  string    `json:"question_text"`
	Option1       string    `json:"option1"`
	Option2       string    `json:"option2"`
	Option3       string    `json:"option3"`
	Option4       string    `json:"option4"`
	CorrectOption int       `json:"correct_option"`
	CreatedBy     int       `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// QuestionForStudent is a question without its answer key.
// It deliberately has no correct_option field.
type QuestionForStudent struct {
	ID           uuid.UUID `json:"id"`
	ExamID       uuid.UUID `json:"exam_id"`
	QuestionText string    `json:"question_text"`
	Option1      string    `json:"option1"`
	Option2      string    `json:"option2"`
	Option3      string    `json:"option3"`
	Option4      string    `json:"option4"`
}

// ForStudent strips the answer key.
func (q *Question) ForStudent() QuestionForStudent {
	return QuestionForStudent{
		ID:           q.ID,
		ExamID:       q.ExamID,
		QuestionText: q.QuestionText,
		Option1:      q.Option1,
		Option2:      q.Option2,
		Option3:      q.Option3,
		Option4:      q.Option4,
	}
}

// CreateQuestionRequest is the payload for adding a question to an exam.
type CreateQuestionRequest struct {
	ExamID        string `json:"exam_id" binding:"required,uuid"`
	QuestionText  string `json:"question_text" binding:"required,notblank,max=2000"`
	Option1       string `json:"option1" binding:"required,max=500"`
	Option2       string `json:"option2" binding:"required,max=500"`
	Option3       string `json:"option3" binding:"required,max=500"`
	Option4       string `json:"option4" binding:"required,max=500"`
	CorrectOption int    `json:"correct_option" binding:"required,min=1,max=4"`
}

// UpdateQuestionRequest is the payload for a partial question update.
type UpdateQuestionRequest struct {
	QuestionText  *string `json:"question_text" binding:"omitempty,notblank,max=2000"`
	Option1       *string `json:"option1" binding:"omitempty,max=500"`
	Option2       *string `json:"option2" binding:"omitempty,max=500"`
	Option3       *string `json:"option3" binding:"omitempty,max=500"`
	Option4       *string `json:"option4" binding:"omitempty,max=500"`
	CorrectOption *int    `json:"correct_option" binding:"omitempty,min=1,max=4"`
}

// Apply copies the set fields of req onto q.
func (req *UpdateQuestionRequest) Apply(q *Question) {
	if req.QuestionText != nil {
		q.QuestionText = *req.QuestionText
	}
	if req.Option1 != nil {
		q.Option1 = *req.Option1
	}
	if req.Option2 != nil {
		q.Option2 = *req.Option2
	}
	if req.Option3 != nil {
		q.Option3 = *req.Option3
	}
	if req.Option4 != nil {
		q.Option4 = *req.Option4
	}
	if req.CorrectOption != nil {
		q.CorrectOption = *req.CorrectOption
	}
}

// CheckDuplicateRequest asks whether a question text already exists.
type CheckDuplicateRequest struct {
	QuestionText string `json:"question_text" binding:"required,notblank,max=2000"`
	ExamID       string `json:"exam_id" binding:"omitempty,uuid"`
	ExcludeID    string `json:"exclude_id" binding:"omitempty,uuid"`
}
