// Package integrity computes repairs for attempts and answers whose parent
// exam or question has been deleted. Plan is pure; applying the repair is
// the caller's job.
package integrity

import "github.com/google/uuid"

// AttemptRef is the part of an attempt the planner needs.
type AttemptRef struct {
	ID        uuid.UUID
	ExamID    uuid.UUID
	Completed bool
}

// AnswerRef is the part of a student answer the planner needs.
type AnswerRef struct {
	ID         uuid.UUID
	AttemptID  uuid.UUID
	QuestionID uuid.UUID
	IsCorrect  bool
}

// Snapshot is the state a plan is computed from.
//
// Answers must be read before Attempts, and both before ExamIDs and
// QuestionIDs. With that order every parent referenced by a dependent row
// existed when the dependent was read, so a missing parent means deleted.
type Snapshot struct {
	ExamIDs     map[uuid.UUID]struct{}
	QuestionIDs map[uuid.UUID]struct{}
	Attempts    []AttemptRef
	Answers     []AnswerRef
}

// ScoreUpdate resets a completed attempt's cached score.
type ScoreUpdate struct {
	AttemptID  uuid.UUID
	TotalScore int
}

// Repair lists the writes that bring the store back to a consistent state.
type Repair struct {
	// AttemptsToDelete are removed together with all of their answers.
	AttemptsToDelete []uuid.UUID
	// AnswersToDelete reference deleted questions and belong to surviving attempts.
	AnswersToDelete []uuid.UUID
	ScoreUpdates    []ScoreUpdate
}

// Empty reports whether the repair is a no-op.
func (r Repair) Empty() bool {
	return len(r.AttemptsToDelete) == 0 && len(r.AnswersToDelete) == 0 && len(r.ScoreUpdates) == 0
}

// IDSet builds a set from a slice of ids.
func IDSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Plan computes the repair for s. Output order follows snapshot order.
func Plan(s Snapshot) Repair {
	var r Repair

	doomed := make(map[uuid.UUID]struct{})
	completed := make(map[uuid.UUID]bool, len(s.Attempts))
	for _, a := range s.Attempts {
		if _, ok := s.ExamIDs[a.ExamID]; !ok {
			doomed[a.ID] = struct{}{}
			r.AttemptsToDelete = append(r.AttemptsToDelete, a.ID)
			continue
		}
		completed[a.ID] = a.Completed
	}

	// Remaining correct answers per surviving attempt, and which ones lost answers.
	remaining := make(map[uuid.UUID]int)
	var touched []uuid.UUID
	seen := make(map[uuid.UUID]struct{})

	for _, ans := range s.Answers {
		if _, gone := doomed[ans.AttemptID]; gone {
			continue
		}
		if _, ok := s.QuestionIDs[ans.QuestionID]; !ok {
			r.AnswersToDelete = append(r.AnswersToDelete, ans.ID)
			if _, dup := seen[ans.AttemptID]; !dup {
				seen[ans.AttemptID] = struct{}{}
				touched = append(touched, ans.AttemptID)
			}
			continue
		}
		if ans.IsCorrect {
			remaining[ans.AttemptID]++
		}
	}

	for _, id := range touched {
		if !completed[id] {
			continue
		}
		r.ScoreUpdates = append(r.ScoreUpdates, ScoreUpdate{AttemptID: id, TotalScore: remaining[id]})
	}

	return r
}
