package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/database"
	"github.com/stemsi/exam-portal/internal/logger"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/repository"
	"github.com/stemsi/exam-portal/internal/service"
)

const demoPassword = "portal123"

var demoUsers = []struct {
	username string
	fullName string
	role     model.Role
}{
	{"admin", "System Administrator", model.RoleSystemAdmin},
	{"exams", "Exam Manager", model.RoleExamManager},
	{"questions", "Question Manager", model.RoleQuestionManager},
	{"results", "Result Manager", model.RoleResultManager},
	{"siti", "Siti Aminah", model.RoleStudent},
	{"budi", "Budi Santoso", model.RoleStudent},
	{"rina", "Rina Wati", model.RoleStudent},
}

var demoQuestions = []model.CreateQuestionRequest{
	{QuestionText: "What is the chemical symbol for water?", Option1: "O2", Option2: "H2O", Option3: "CO2", Option4: "HO", CorrectOption: 2},
	{QuestionText: "Which planet is closest to the Sun?", Option1: "Venus", Option2: "Earth", Option3: "Mercury", Option4: "Mars", CorrectOption: 3},
	{QuestionText: "What is 7 x 8?", Option1: "56", Option2: "54", Option3: "64", Option4: "48", CorrectOption: 1},
	{QuestionText: "Which gas do plants absorb for photosynthesis?", Option1: "Oxygen", Option2: "Nitrogen", Option3: "Helium", Option4: "Carbon dioxide", CorrectOption: 4},
	{QuestionText: "What is the SI unit of force?", Option1: "Joule", Option2: "Newton", Option3: "Watt", Option4: "Pascal", CorrectOption: 2},
}

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	examRepo := repository.NewExamRepository(pool)
	authService := service.NewAuthService(cfg, repository.NewUserRepository(pool), nil)
	examService := service.NewExamService(examRepo, repository.NewAttemptRepository(pool), nil, log)
	questionService := service.NewQuestionService(repository.NewQuestionRepository(pool), examRepo, log)

	fmt.Println("=== Seeding demo users ===")

	var author service.Identity
	for _, u := range demoUsers {
		user, err := authService.CreateUser(ctx, u.username, u.fullName, "", demoPassword, u.role)
		if errors.Is(err, service.ErrDuplicateUser) {
			fmt.Printf("  %-10s exists, skipped\n", u.username)
			continue
		}
		if err != nil {
			log.Fatal().Err(err).Str("username", u.username).Msg("Failed to create user")
		}
		if u.role == model.RoleExamManager {
			author = service.Identity{UserID: user.ID, Role: user.Role}
		}
		fmt.Printf("  %-10s %s (ID %d)\n", user.Username, user.Role, user.ID)
	}

	if author.UserID == 0 {
		fmt.Println("\nExam manager already existed; skipping demo exam.")
		return
	}

	fmt.Println("\n=== Seeding demo exam ===")

	now := time.Now().UTC().Truncate(time.Minute)
	exam, err := examService.Create(ctx, &model.CreateExamRequest{
		Name:            "Demo: General Science",
		StartTime:       now.Add(-time.Hour),
		EndTime:         now.Add(7 * 24 * time.Hour),
		DurationMinutes: 30,
	}, author)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create exam")
	}

	for i := range demoQuestions {
		req := demoQuestions[i]
		req.ExamID = exam.ID.String()
		if _, err := questionService.Create(ctx, &req, author); err != nil {
			log.Fatal().Err(err).Int("question", i+1).Msg("Failed to create question")
		}
	}

	if _, err := examService.SetActive(ctx, exam.ID, true); err != nil {
		log.Fatal().Err(err).Msg("Failed to activate exam")
	}

	fmt.Printf("Created active exam %q (%s) with %d questions.\n", exam.Name, exam.ID, len(demoQuestions))
	fmt.Printf("\nSeed completed! All demo accounts use password %q.\n", demoPassword)
}
