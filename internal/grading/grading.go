// Package grading scores submitted answers against an exam's answer key.
// It performs no I/O; callers load questions and persist results.
package grading

import (
	"github.com/google/uuid"
	"github.com/stemsi/exam-portal/internal/model"
)

// GradedAnswer is a submitted answer matched to an authoritative question.
type GradedAnswer struct {
	QuestionID     uuid.UUID
	SelectedOption int
	IsCorrect      bool
}

// Result is the outcome of grading one submission.
type Result struct {
	Answers []GradedAnswer
	Score   int
}

// TotalQuestions is the number of answers that matched a question of the exam.
func (r Result) TotalQuestions() int {
	return len(r.Answers)
}

// Grade matches answers to questions belonging to examID and marks each one.
//
// Answers are dropped when the question id is malformed, unknown, or owned
// by another exam. Only the first answer per question counts. Output order
// follows the submission order.
func Grade(examID uuid.UUID, answers []model.SubmittedAnswer, questions []model.Question) Result {
	key := make(map[uuid.UUID]int, len(questions))
	for i := range questions {
		if questions[i].ExamID != examID {
			continue
		}
		key[questions[i].ID] = questions[i].CorrectOption
	}

	res := Result{Answers: make([]GradedAnswer, 0, len(answers))}
	seen := make(map[uuid.UUID]struct{}, len(answers))

	for _, a := range answers {
		qid, err := uuid.Parse(a.QuestionID)
		if err != nil {
			continue
		}
		correct, ok := key[qid]
		if !ok {
			continue
		}
		if _, dup := seen[qid]; dup {
			continue
		}
		seen[qid] = struct{}{}

		g := GradedAnswer{
			QuestionID:     qid,
			SelectedOption: a.SelectedOption,
			IsCorrect:      a.SelectedOption == correct,
		}
		if g.IsCorrect {
			res.Score++
		}
		res.Answers = append(res.Answers, g)
	}

	return res
}
