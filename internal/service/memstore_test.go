package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/integrity"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/repository"
)

// memDB is an in-memory entity store with the same uniqueness and
// compare-and-swap guarantees as the Postgres schema.
type memDB struct {
	mu        sync.Mutex
	users     map[int]model.User
	exams     map[uuid.UUID]model.Exam
	questions map[uuid.UUID]model.Question
	attempts  map[uuid.UUID]model.ExamAttempt
	answers   map[uuid.UUID]model.StudentAnswer
	seq       int

	failComplete error
	failRepair   error
	repairs      int
}

func newMemDB() *memDB {
	return &memDB{
		users:     map[int]model.User{},
		exams:     map[uuid.UUID]model.Exam{},
		questions: map[uuid.UUID]model.Question{},
		attempts:  map[uuid.UUID]model.ExamAttempt{},
		answers:   map[uuid.UUID]model.StudentAnswer{},
	}
}

func (db *memDB) tick() time.Time {
	db.seq++
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(db.seq) * time.Second)
}

func (db *memDB) examStore() *memExams         { return &memExams{db} }
func (db *memDB) questionStore() *memQuestions { return &memQuestions{db} }
func (db *memDB) attemptStore() *memAttempts   { return &memAttempts{db} }
func (db *memDB) answerStore() *memAnswers     { return &memAnswers{db} }
func (db *memDB) userStore() *memUsers         { return &memUsers{db} }

func (db *memDB) attemptCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.attempts)
}

func (db *memDB) answersOf(attemptID uuid.UUID) []model.StudentAnswer {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []model.StudentAnswer
	for _, a := range db.answers {
		if a.AttemptID == attemptID {
			out = append(out, a)
		}
	}
	return out
}

func (db *memDB) attempt(id uuid.UUID) (model.ExamAttempt, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	a, ok := db.attempts[id]
	return a, ok
}

// ─── Users ──────────────────────────────────────────────────────────

type memUsers struct{ db *memDB }

func (s *memUsers) GetByID(_ context.Context, id int) (*model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (s *memUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memUsers) Create(_ context.Context, u *model.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, existing := range s.db.users {
		if existing.Username == u.Username {
			return repository.ErrConflict
		}
	}
	u.ID = len(s.db.users) + 1
	u.CreatedAt = s.db.tick()
	u.UpdatedAt = u.CreatedAt
	s.db.users[u.ID] = *u
	return nil
}

// ─── Exams ──────────────────────────────────────────────────────────

type memExams struct{ db *memDB }

func (s *memExams) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e, ok := s.db.exams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (s *memExams) list(active bool) []model.Exam {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.Exam
	for _, e := range s.db.exams {
		if active && !e.IsActive {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *memExams) List(_ context.Context) ([]model.Exam, error)       { return s.list(false), nil }
func (s *memExams) ListActive(_ context.Context) ([]model.Exam, error) { return s.list(true), nil }

func (s *memExams) Create(_ context.Context, e *model.Exam) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e.ID = uuid.New()
	e.CreatedAt = s.db.tick()
	e.UpdatedAt = e.CreatedAt
	s.db.exams[e.ID] = *e
	return nil
}

func (s *memExams) Update(_ context.Context, e *model.Exam) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.exams[e.ID]; !ok {
		return repository.ErrNotFound
	}
	s.db.exams[e.ID] = *e
	return nil
}

func (s *memExams) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e, ok := s.db.exams[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.IsActive = active
	s.db.exams[id] = e
	return nil
}

func (s *memExams) Delete(_ context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.exams[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.db.exams, id)
	return nil
}

func (s *memExams) ListIDs(_ context.Context) ([]uuid.UUID, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var ids []uuid.UUID
	for id := range s.db.exams {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *memExams) ExistingIDs(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []uuid.UUID
	for _, id := range ids {
		if _, ok := s.db.exams[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// ─── Questions ──────────────────────────────────────────────────────

type memQuestions struct{ db *memDB }

func (s *memQuestions) GetByID(_ context.Context, id uuid.UUID) (*model.Question, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	q, ok := s.db.questions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &q, nil
}

func (s *memQuestions) filter(keep func(model.Question) bool) []model.Question {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.Question
	for _, q := range s.db.questions {
		if keep(q) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *memQuestions) ListByExam(_ context.Context, examID uuid.UUID) ([]model.Question, error) {
	return s.filter(func(q model.Question) bool { return q.ExamID == examID }), nil
}

func (s *memQuestions) List(_ context.Context) ([]model.Question, error) {
	return s.filter(func(model.Question) bool { return true }), nil
}

func (s *memQuestions) Create(_ context.Context, q *model.Question) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	q.ID = uuid.New()
	q.CreatedAt = s.db.tick()
	q.UpdatedAt = q.CreatedAt
	s.db.questions[q.ID] = *q
	return nil
}

func (s *memQuestions) Update(_ context.Context, q *model.Question) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.questions[q.ID]; !ok {
		return repository.ErrNotFound
	}
	s.db.questions[q.ID] = *q
	return nil
}

func (s *memQuestions) Delete(_ context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.questions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.db.questions, id)
	return nil
}

func (s *memQuestions) FindDuplicate(_ context.Context, text string, examID, excludeID *uuid.UUID) (*model.Question, error) {
	matches := s.filter(func(q model.Question) bool {
		if !strings.EqualFold(strings.TrimSpace(q.QuestionText), strings.TrimSpace(text)) {
			return false
		}
		if examID != nil && q.ExamID != *examID {
			return false
		}
		return excludeID == nil || q.ID != *excludeID
	})
	if len(matches) == 0 {
		return nil, repository.ErrNotFound
	}
	return &matches[0], nil
}

func (s *memQuestions) ListIDs(_ context.Context) ([]uuid.UUID, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var ids []uuid.UUID
	for id := range s.db.questions {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *memQuestions) ExistingIDs(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []uuid.UUID
	for _, id := range ids {
		if _, ok := s.db.questions[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// ─── Attempts ───────────────────────────────────────────────────────

type memAttempts struct{ db *memDB }

func (s *memAttempts) GetByID(_ context.Context, id uuid.UUID) (*model.ExamAttempt, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, ok := s.db.attempts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (s *memAttempts) GetByExamAndStudent(_ context.Context, examID uuid.UUID, studentID int) (*model.ExamAttempt, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, a := range s.db.attempts {
		if a.ExamID == examID && a.StudentID == studentID {
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memAttempts) Create(_ context.Context, a *model.ExamAttempt) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, existing := range s.db.attempts {
		if existing.ExamID == a.ExamID && existing.StudentID == a.StudentID {
			return repository.ErrConflict
		}
	}
	a.ID = uuid.New()
	a.CreatedAt = s.db.tick()
	s.db.attempts[a.ID] = *a
	return nil
}

func (s *memAttempts) Complete(_ context.Context, attemptID uuid.UUID, score int, endTime time.Time, answers []model.StudentAnswer) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.failComplete != nil {
		return s.db.failComplete
	}
	a, ok := s.db.attempts[attemptID]
	if !ok || a.Completed {
		return repository.ErrAlreadyCompleted
	}
	a.Completed = true
	a.TotalScore = score
	a.EndTime = &endTime
	s.db.attempts[attemptID] = a
	for _, ans := range answers {
		ans.ID = uuid.New()
		ans.AttemptID = attemptID
		ans.CreatedAt = endTime
		s.db.answers[ans.ID] = ans
	}
	return nil
}

func (s *memAttempts) ListSummaries(_ context.Context, f repository.AttemptFilter) ([]model.AttemptSummary, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.AttemptSummary
	for _, a := range s.db.attempts {
		if f.ExamID != nil && a.ExamID != *f.ExamID {
			continue
		}
		if f.StudentID != nil && a.StudentID != *f.StudentID {
			continue
		}
		if f.OnlyInProgress && a.Completed {
			continue
		}
		u := s.db.users[a.StudentID]
		out = append(out, model.AttemptSummary{
			ExamAttempt: a,
			ExamName:    s.db.exams[a.ExamID].Name,
			Student:     model.UserRef{ID: u.ID, Username: u.Username, FullName: u.FullName},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

func (s *memAttempts) ListRefs(_ context.Context) ([]integrity.AttemptRef, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []integrity.AttemptRef
	for _, a := range s.db.attempts {
		out = append(out, integrity.AttemptRef{ID: a.ID, ExamID: a.ExamID, Completed: a.Completed})
	}
	return out, nil
}

func (s *memAttempts) ApplyRepair(_ context.Context, r integrity.Repair) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.failRepair != nil {
		return s.db.failRepair
	}
	s.db.repairs++
	doomed := integrity.IDSet(r.AttemptsToDelete)
	for id, ans := range s.db.answers {
		if _, ok := doomed[ans.AttemptID]; ok {
			delete(s.db.answers, id)
		}
	}
	for _, id := range r.AttemptsToDelete {
		delete(s.db.attempts, id)
	}
	for _, id := range r.AnswersToDelete {
		delete(s.db.answers, id)
	}
	for _, u := range r.ScoreUpdates {
		if a, ok := s.db.attempts[u.AttemptID]; ok && a.Completed {
			a.TotalScore = u.TotalScore
			s.db.attempts[u.AttemptID] = a
		}
	}
	return nil
}

// ─── Answers ────────────────────────────────────────────────────────

type memAnswers struct{ db *memDB }

func (s *memAnswers) ListDetailsByAttempt(_ context.Context, attemptID uuid.UUID) ([]model.AnswerDetail, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	type row struct {
		d  model.AnswerDetail
		at time.Time
	}
	var rows []row
	for _, a := range s.db.answers {
		if a.AttemptID != attemptID {
			continue
		}
		q, ok := s.db.questions[a.QuestionID]
		if !ok {
			continue
		}
		rows = append(rows, row{at: q.CreatedAt, d: model.AnswerDetail{
			QuestionID: q.ID, QuestionText: q.QuestionText,
			Option1: q.Option1, Option2: q.Option2, Option3: q.Option3, Option4: q.Option4,
			SelectedOption: a.SelectedOption, CorrectOption: q.CorrectOption, IsCorrect: a.IsCorrect,
		}})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].at.Before(rows[j].at) })
	out := make([]model.AnswerDetail, len(rows))
	for i, r := range rows {
		out[i] = r.d
	}
	return out, nil
}

func (s *memAnswers) refs(keep func(model.StudentAnswer) bool) []integrity.AnswerRef {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []integrity.AnswerRef
	for _, a := range s.db.answers {
		if keep(a) {
			out = append(out, integrity.AnswerRef{ID: a.ID, AttemptID: a.AttemptID, QuestionID: a.QuestionID, IsCorrect: a.IsCorrect})
		}
	}
	return out
}

func (s *memAnswers) ListRefs(_ context.Context) ([]integrity.AnswerRef, error) {
	return s.refs(func(model.StudentAnswer) bool { return true }), nil
}

func (s *memAnswers) ListRefsByAttempt(_ context.Context, attemptID uuid.UUID) ([]integrity.AnswerRef, error) {
	return s.refs(func(a model.StudentAnswer) bool { return a.AttemptID == attemptID }), nil
}

// ─── Fixture ────────────────────────────────────────────────────────

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.AttemptEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev model.AttemptEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) all() []model.AttemptEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.AttemptEvent(nil), p.events...)
}

var (
	fixedNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	student1 = Identity{UserID: 1, Role: model.RoleStudent}
	student2 = Identity{UserID: 2, Role: model.RoleStudent}
	manager  = Identity{UserID: 3, Role: model.RoleExamManager}
	results  = Identity{UserID: 4, Role: model.RoleResultManager}
)

type fixture struct {
	db        *memDB
	events    *recordingPublisher
	attempts  *AttemptService
	exams     *ExamService
	questions *QuestionService
	results   *ResultService
	sweeper   *SweeperService
}

func newFixture() *fixture {
	db := newMemDB()
	log := zerolog.Nop()
	events := &recordingPublisher{}

	for _, u := range []model.User{
		{ID: 1, Username: "siti", FullName: "Siti", Role: model.RoleStudent},
		{ID: 2, Username: "budi", FullName: "Budi", Role: model.RoleStudent},
		{ID: 3, Username: "exams", FullName: "Exam Manager", Role: model.RoleExamManager},
		{ID: 4, Username: "results", FullName: "Result Manager", Role: model.RoleResultManager},
	} {
		db.users[u.ID] = u
	}

	sweeper := NewSweeperService(db.examStore(), db.questionStore(), db.attemptStore(), db.answerStore(), nil, time.Minute, log)
	attempts := NewAttemptService(db.examStore(), db.questionStore(), db.attemptStore(), events, log)
	attempts.now = func() time.Time { return fixedNow }

	return &fixture{
		db:        db,
		events:    events,
		attempts:  attempts,
		exams:     NewExamService(db.examStore(), db.attemptStore(), sweeper, log),
		questions: NewQuestionService(db.questionStore(), db.examStore(), log),
		results:   NewResultService(db.examStore(), db.attemptStore(), db.answerStore(), sweeper, log),
		sweeper:   sweeper,
	}
}

// ongoingExam stores an active exam whose window contains fixedNow, with
// questions whose correct options are given in order.
func (f *fixture) ongoingExam(correct ...int) (model.Exam, []model.Question) {
	return f.exam(true, fixedNow.Add(-time.Hour), fixedNow.Add(time.Hour), correct...)
}

func (f *fixture) exam(active bool, start, end time.Time, correct ...int) (model.Exam, []model.Question) {
	ctx := context.Background()
	e := &model.Exam{Name: "Biology", StartTime: start, EndTime: end, DurationMinutes: 45, IsActive: active, CreatedBy: manager.UserID}
	_ = f.db.examStore().Create(ctx, e)

	qs := make([]model.Question, 0, len(correct))
	for i, c := range correct {
		q := &model.Question{
			ExamID: e.ID, QuestionText: "Q" + string(rune('1'+i)),
			Option1: "a", Option2: "b", Option3: "c", Option4: "d",
			CorrectOption: c, CreatedBy: manager.UserID,
		}
		_ = f.db.questionStore().Create(ctx, q)
		qs = append(qs, *q)
	}
	return *e, qs
}

func answer(q model.Question, option int) model.SubmittedAnswer {
	return model.SubmittedAnswer{QuestionID: q.ID.String(), SelectedOption: option}
}
