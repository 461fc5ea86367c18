package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exam-portal/internal/model"
)

func TestStart_NewAttempt(t *testing.T) {
	f := newFixture()
	exam, _ := f.ongoingExam(1, 2)

	res, err := f.attempts.Start(context.Background(), exam.ID, student1)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if res.Outcome != model.StartOutcomeStarted {
		t.Errorf("outcome = %s, want STARTED", res.Outcome)
	}
	if !res.StartTime.Equal(fixedNow) {
		t.Errorf("start_time = %v, want %v", res.StartTime, fixedNow)
	}
	if want := fixedNow.Add(45 * time.Minute); !res.Deadline.Equal(want) {
		t.Errorf("deadline = %v, want %v", res.Deadline, want)
	}

	a, ok := f.db.attempt(res.AttemptID)
	if !ok || a.Completed || a.StudentID != student1.UserID {
		t.Fatalf("stored attempt = %+v (found %v)", a, ok)
	}

	evs := f.events.all()
	if len(evs) != 1 || evs[0].Type != model.AttemptStateInProgress || evs[0].AttemptID != res.AttemptID {
		t.Errorf("events = %+v", evs)
	}
}

func TestStart_ResumeInProgress(t *testing.T) {
	f := newFixture()
	exam, _ := f.ongoingExam(1)
	ctx := context.Background()

	first, err := f.attempts.Start(ctx, exam.ID, student1)
	if err != nil {
		t.Fatalf("first Start: %v", err)
	}

	// The window closes, the student comes back.
	f.attempts.now = func() time.Time { return fixedNow.Add(3 * time.Hour) }
	second, err := f.attempts.Start(ctx, exam.ID, student1)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if second.Outcome != model.StartOutcomeResumed || second.AttemptID != first.AttemptID {
		t.Fatalf("resume = %+v, want RESUMED %s", second, first.AttemptID)
	}
	if !second.StartTime.Equal(first.StartTime) {
		t.Errorf("resume changed start_time: %v → %v", first.StartTime, second.StartTime)
	}
	if f.db.attemptCount() != 1 {
		t.Errorf("attempts = %d, want 1", f.db.attemptCount())
	}
}

func TestStart_ResumeIgnoresDeactivation(t *testing.T) {
	f := newFixture()
	exam, _ := f.ongoingExam(1)
	ctx := context.Background()

	if _, err := f.attempts.Start(ctx, exam.ID, student1); err != nil {
		t.Fatal(err)
	}
	_ = f.db.examStore().SetActive(ctx, exam.ID, false)

	res, err := f.attempts.Start(ctx, exam.ID, student1)
	if err != nil || res.Outcome != model.StartOutcomeResumed {
		t.Fatalf("Start after deactivation = %+v, %v; want RESUMED", res, err)
	}
	if _, err := f.attempts.Start(ctx, exam.ID, student2); !errors.Is(err, ErrExamNotAvailable) {
		t.Fatalf("new student on inactive exam: err = %v, want ErrExamNotAvailable", err)
	}
}

func TestStart_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		active bool
		start  time.Time
		end    time.Time
		who    Identity
		want   error
	}{
		{"inactive", false, fixedNow.Add(-time.Hour), fixedNow.Add(time.Hour), student1, ErrExamNotAvailable},
		{"before window", true, fixedNow.Add(time.Minute), fixedNow.Add(time.Hour), student1, ErrExamNotAvailable},
		{"after window", true, fixedNow.Add(-2 * time.Hour), fixedNow.Add(-time.Second), student1, ErrExamNotAvailable},
		{"not a student", true, fixedNow.Add(-time.Hour), fixedNow.Add(time.Hour), manager, ErrForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			exam, _ := f.exam(tc.active, tc.start, tc.end, 1)
			_, err := f.attempts.Start(context.Background(), exam.ID, tc.who)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if f.db.attemptCount() != 0 {
				t.Errorf("attempt created on rejection")
			}
		})
	}
}

func TestStart_WindowBoundsInclusive(t *testing.T) {
	for name, exam := range map[string]struct{ start, end time.Time }{
		"at start": {fixedNow, fixedNow.Add(time.Hour)},
		"at end":   {fixedNow.Add(-time.Hour), fixedNow},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			e, _ := f.exam(true, exam.start, exam.end, 1)
			if _, err := f.attempts.Start(context.Background(), e.ID, student1); err != nil {
				t.Fatalf("Start: %v", err)
			}
		})
	}
}

func TestStart_UnknownExam(t *testing.T) {
	f := newFixture()
	if _, err := f.attempts.Start(context.Background(), uuid.New(), student1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestStart_AfterSubmitIsAlreadyAttempted(t *testing.T) {
	f := newFixture()
	exam, qs := f.ongoingExam(1)
	ctx := context.Background()

	if _, err := f.attempts.Start(ctx, exam.ID, student1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.attempts.Submit(ctx, exam.ID, student1, []model.SubmittedAnswer{answer(qs[0], 1)}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.attempts.Start(ctx, exam.ID, student1); !errors.Is(err, ErrAlreadyAttempted) {
		t.Fatalf("err = %v, want ErrAlreadyAttempted", err)
	}
	if f.db.attemptCount() != 1 {
		t.Errorf("attempts = %d, want 1", f.db.attemptCount())
	}
}

func TestStart_ConcurrentCreatesOneAttempt(t *testing.T) {
	f := newFixture()
	exam, _ := f.ongoingExam(1)

	const n = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ids     = map[uuid.UUID]int{}
		started int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.attempts.Start(context.Background(), exam.ID, student1)
			if err != nil {
				t.Errorf("Start: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			ids[res.AttemptID]++
			if res.Outcome == model.StartOutcomeStarted {
				started++
			}
		}()
	}
	wg.Wait()

	if f.db.attemptCount() != 1 || len(ids) != 1 {
		t.Fatalf("attempts = %d, distinct ids = %d; want 1 and 1", f.db.attemptCount(), len(ids))
	}
	if started != 1 {
		t.Errorf("STARTED outcomes = %d, want 1", started)
	}
}

func TestSubmit_GradesAndCompletes(t *testing.T) {
	f := newFixture()
	exam, qs := f.ongoingExam(1, 2, 3)
	ctx := context.Background()

	start, err := f.attempts.Start(ctx, exam.ID, student1)
	if err != nil {
		t.Fatal(err)
	}
	res, err := f.attempts.Submit(ctx, exam.ID, student1, []model.SubmittedAnswer{
		answer(qs[0], 1), answer(qs[1], 2), answer(qs[2], 4),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.TotalScore != 2 || res.TotalQuestions != 3 {
		t.Fatalf("result = %+v, want 2/3", res)
	}

	a, _ := f.db.attempt(start.AttemptID)
	if !a.Completed || a.TotalScore != 2 || a.EndTime == nil || !a.EndTime.Equal(fixedNow) {
		t.Errorf("attempt after submit = %+v", a)
	}
	if got := len(f.db.answersOf(start.AttemptID)); got != 3 {
		t.Errorf("stored answers = %d, want 3", got)
	}

	_, err = f.attempts.Submit(ctx, exam.ID, student1, []model.SubmittedAnswer{answer(qs[2], 3)})
	if !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("second submit err = %v, want ErrAlreadySubmitted", err)
	}
	if a2, _ := f.db.attempt(start.AttemptID); a2.TotalScore != 2 || !a2.EndTime.Equal(*a.EndTime) {
		t.Errorf("second submit mutated attempt: %+v", a2)
	}
}

func TestSubmit_DropsForeignAndUnknownQuestions(t *testing.T) {
	f := newFixture()
	exam, qs := f.ongoingExam(1, 2)
	_, foreign := f.ongoingExam(3)
	ctx := context.Background()

	start, _ := f.attempts.Start(ctx, exam.ID, student1)
	res, err := f.attempts.Submit(ctx, exam.ID, student1, []model.SubmittedAnswer{
		answer(qs[0], 1),
		answer(foreign[0], 3),
		{QuestionID: uuid.NewString(), SelectedOption: 1},
		{QuestionID: "not-a-uuid", SelectedOption: 2},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.TotalScore != 1 || res.TotalQuestions != 1 {
		t.Fatalf("result = %+v, want 1/1", res)
	}
	stored := f.db.answersOf(start.AttemptID)
	if len(stored) != 1 || stored[0].QuestionID != qs[0].ID {
		t.Errorf("stored answers = %+v", stored)
	}
}

func TestSubmit_EmptyAnswers(t *testing.T) {
	f := newFixture()
	exam, _ := f.ongoingExam(1, 2)
	ctx := context.Background()

	if _, err := f.attempts.Start(ctx, exam.ID, student1); err != nil {
		t.Fatal(err)
	}
	res, err := f.attempts.Submit(ctx, exam.ID, student1, nil)
	if err != nil || res.TotalScore != 0 || res.TotalQuestions != 0 {
		t.Fatalf("Submit(nil) = %+v, %v", res, err)
	}
}

func TestSubmit_AfterWindowStillAccepted(t *testing.T) {
	f := newFixture()
	exam, qs := f.ongoingExam(2)
	ctx := context.Background()

	if _, err := f.attempts.Start(ctx, exam.ID, student1); err != nil {
		t.Fatal(err)
	}
	f.attempts.now = func() time.Time { return fixedNow.Add(24 * time.Hour) }
	res, err := f.attempts.Submit(ctx, exam.ID, student1, []model.SubmittedAnswer{answer(qs[0], 2)})
	if err != nil || res.TotalScore != 1 {
		t.Fatalf("late submit = %+v, %v", res, err)
	}
}

func TestSubmit_NotStarted(t *testing.T) {
	f := newFixture()
	exam, qs := f.ongoingExam(1)
	_, err := f.attempts.Submit(context.Background(), exam.ID, student1, []model.SubmittedAnswer{answer(qs[0], 1)})
	if !errors.Is(err, ErrNotStarted) {
		t.Fatalf("err = %v, want ErrNotStarted", err)
	}
}

func TestSubmit_StoreFailureLeavesAttemptInProgress(t *testing.T) {
	f := newFixture()
	exam, qs := f.ongoingExam(1)
	ctx := context.Background()

	start, _ := f.attempts.Start(ctx, exam.ID, student1)
	f.db.failComplete = errors.New("connection reset")
	if _, err := f.attempts.Submit(ctx, exam.ID, student1, []model.SubmittedAnswer{answer(qs[0], 1)}); err == nil {
		t.Fatal("expected error")
	}
	if a, _ := f.db.attempt(start.AttemptID); a.Completed {
		t.Fatal("attempt completed despite failure")
	}

	f.db.failComplete = nil
	res, err := f.attempts.Submit(ctx, exam.ID, student1, []model.SubmittedAnswer{answer(qs[0], 1)})
	if err != nil || res.TotalScore != 1 {
		t.Fatalf("retry = %+v, %v", res, err)
	}
}

func TestSubmit_ConcurrentExactlyOneWins(t *testing.T) {
	f := newFixture()
	exam, qs := f.ongoingExam(1, 2)
	ctx := context.Background()
	start, _ := f.attempts.Start(ctx, exam.ID, student1)

	const n = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		rejected int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Half the callers send a different answer set.
			opt := 1 + i%2
			_, err := f.attempts.Submit(ctx, exam.ID, student1, []model.SubmittedAnswer{answer(qs[0], opt), answer(qs[1], 2)})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrAlreadySubmitted):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if ok != 1 || rejected != n-1 {
		t.Fatalf("ok = %d, rejected = %d", ok, rejected)
	}
	if got := len(f.db.answersOf(start.AttemptID)); got != 2 {
		t.Errorf("stored answers = %d, want 2", got)
	}
}

func TestGetQuestions_RequiresLiveAttempt(t *testing.T) {
	f := newFixture()
	exam, qs := f.ongoingExam(1, 2)
	ctx := context.Background()

	if _, err := f.attempts.GetQuestions(ctx, exam.ID, student1); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("before start: err = %v, want ErrNotStarted", err)
	}

	if _, err := f.attempts.Start(ctx, exam.ID, student1); err != nil {
		t.Fatal(err)
	}
	paper, err := f.attempts.GetQuestions(ctx, exam.ID, student1)
	if err != nil {
		t.Fatalf("GetQuestions: %v", err)
	}
	if len(paper) != 2 || paper[0].ID != qs[0].ID {
		t.Fatalf("paper = %+v", paper)
	}

	if _, err := f.attempts.Submit(ctx, exam.ID, student1, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := f.attempts.GetQuestions(ctx, exam.ID, student1); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("after submit: err = %v, want ErrAlreadySubmitted", err)
	}
}

func TestListAvailableExams(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	open, qs := f.ongoingExam(1)
	openUntouched, _ := f.ongoingExam(1)
	f.exam(true, fixedNow.Add(time.Hour), fixedNow.Add(2*time.Hour), 1)   // scheduled
	f.exam(false, fixedNow.Add(-time.Hour), fixedNow.Add(time.Hour), 1)   // inactive
	f.exam(true, fixedNow.Add(-2*time.Hour), fixedNow.Add(-time.Hour), 1) // ended

	if _, err := f.attempts.Start(ctx, open.ID, student1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.attempts.Submit(ctx, open.ID, student1, []model.SubmittedAnswer{answer(qs[0], 1)}); err != nil {
		t.Fatal(err)
	}

	list, err := f.attempts.ListAvailableExams(ctx, student1)
	if err != nil {
		t.Fatalf("ListAvailableExams: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d exams, want 2", len(list))
	}
	byID := map[uuid.UUID]model.AvailableExam{}
	for _, e := range list {
		byID[e.ID] = e
		if e.Status != model.ExamStatusOngoing {
			t.Errorf("exam %s status = %s", e.ID, e.Status)
		}
	}
	if e := byID[open.ID]; !e.Attempted || !e.Completed {
		t.Errorf("attempted exam = %+v", e)
	}
	if e := byID[openUntouched.ID]; e.Attempted || e.Completed {
		t.Errorf("untouched exam = %+v", e)
	}
}
