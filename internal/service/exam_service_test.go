package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exam-portal/internal/model"
)

func TestExamService_CreateUpdateActivate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	exam, err := f.exams.Create(ctx, &model.CreateExamRequest{
		Name:            "Chemistry",
		StartTime:       fixedNow,
		EndTime:         fixedNow.Add(2 * time.Hour),
		DurationMinutes: 60,
	}, manager)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if exam.IsActive || exam.CreatedBy != manager.UserID {
		t.Fatalf("created exam = %+v", exam)
	}

	early := fixedNow.Add(3 * time.Hour)
	if _, err := f.exams.Update(ctx, exam.ID, &model.UpdateExamRequest{StartTime: &early}); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("start after end: err = %v, want ErrInvalidSchedule", err)
	}

	name := "Organic Chemistry"
	updated, err := f.exams.Update(ctx, exam.ID, &model.UpdateExamRequest{Name: &name})
	if err != nil || updated.Name != name {
		t.Fatalf("Update = %+v, %v", updated, err)
	}

	active, err := f.exams.SetActive(ctx, exam.ID, true)
	if err != nil || !active.IsActive {
		t.Fatalf("SetActive = %+v, %v", active, err)
	}
}

func TestExamService_NotFound(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := uuid.New()

	if _, err := f.exams.GetByID(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID: %v", err)
	}
	if _, err := f.exams.SetActive(ctx, id, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetActive: %v", err)
	}
	if err := f.exams.Delete(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete: %v", err)
	}
	if _, err := f.exams.ListAttempts(ctx, id, false); !errors.Is(err, ErrNotFound) {
		t.Errorf("ListAttempts: %v", err)
	}
}

func TestExamService_ListAttempts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	exam, qs := f.ongoingExam(1)

	f.submitted(t, exam, student1, answer(qs[0], 1))
	live, _ := f.attempts.Start(ctx, exam.ID, student2)

	all, err := f.exams.ListAttempts(ctx, exam.ID, false)
	if err != nil || len(all) != 2 {
		t.Fatalf("all = %d, %v", len(all), err)
	}
	ongoing, err := f.exams.ListAttempts(ctx, exam.ID, true)
	if err != nil || len(ongoing) != 1 || ongoing[0].ID != live.AttemptID {
		t.Fatalf("ongoing = %+v, %v", ongoing, err)
	}
	if ongoing[0].Student.Username != "budi" || ongoing[0].ExamName != exam.Name {
		t.Errorf("summary = %+v", ongoing[0])
	}
}

func TestQuestionService(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	exam, _ := f.ongoingExam()

	q, err := f.questions.Create(ctx, &model.CreateQuestionRequest{
		ExamID: exam.ID.String(), QuestionText: "What is H2O?",
		Option1: "Water", Option2: "Salt", Option3: "Air", Option4: "Fire", CorrectOption: 1,
	}, Identity{UserID: 5, Role: model.RoleQuestionManager})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := f.questions.Create(ctx, &model.CreateQuestionRequest{ExamID: uuid.NewString(), QuestionText: "x", CorrectOption: 1},
		Identity{UserID: 5, Role: model.RoleQuestionManager}); !errors.Is(err, ErrNotFound) {
		t.Errorf("create on missing exam: err = %v", err)
	}

	dup, err := f.questions.FindDuplicate(ctx, &model.CheckDuplicateRequest{QuestionText: "  what is h2o? ", ExamID: exam.ID.String()})
	if err != nil || dup == nil || dup.ID != q.ID {
		t.Fatalf("FindDuplicate = %+v, %v", dup, err)
	}
	none, err := f.questions.FindDuplicate(ctx, &model.CheckDuplicateRequest{QuestionText: "What is H2O?", ExcludeID: q.ID.String()})
	if err != nil || none != nil {
		t.Fatalf("FindDuplicate excluding self = %+v, %v", none, err)
	}

	list, err := f.questions.ListByExam(ctx, exam.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListByExam = %d, %v", len(list), err)
	}
	if _, err := f.questions.ListByExam(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("ListByExam missing exam: err = %v", err)
	}

	if err := f.questions.Delete(ctx, q.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.questions.Delete(ctx, q.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: err = %v", err)
	}
}
