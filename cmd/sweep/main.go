package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/database"
	"github.com/stemsi/exam-portal/internal/integrity"
	"github.com/stemsi/exam-portal/internal/logger"
	"github.com/stemsi/exam-portal/internal/repository"
	"github.com/stemsi/exam-portal/internal/service"
)

func main() {
	var attempt string
	flag.StringVar(&attempt, "attempt", "", "Repair a single attempt instead of the whole store")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// ─── Connect to PostgreSQL + Redis ─────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Service ────────────────────────────────────────────
	sweeper := service.NewSweeperService(
		repository.NewExamRepository(pool),
		repository.NewQuestionRepository(pool),
		repository.NewAttemptRepository(pool),
		repository.NewAnswerRepository(pool),
		service.NewRedisLocker(rdb),
		cfg.SweepLockTTL,
		log,
	)

	// ─── Sweep ─────────────────────────────────────────────────────────
	var rep integrity.Repair
	if attempt != "" {
		id, perr := uuid.Parse(attempt)
		if perr != nil {
			log.Fatal().Err(perr).Str("attempt", attempt).Msg("Invalid attempt ID")
		}
		fmt.Printf("=== Sweeping attempt %s ===\n", id)
		rep, err = sweeper.SweepAttempt(ctx, id)
	} else {
		fmt.Println("=== Sweeping all attempts and answers ===")
		rep, err = sweeper.Sweep(ctx)
	}
	if errors.Is(err, service.ErrSweepInProgress) {
		fmt.Println("Another sweep is running; try again later.")
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Sweep failed")
	}

	fmt.Printf("Attempts deleted: %d\n", len(rep.AttemptsToDelete))
	fmt.Printf("Answers deleted:  %d\n", len(rep.AnswersToDelete))
	fmt.Printf("Scores updated:   %d\n", len(rep.ScoreUpdates))
}
