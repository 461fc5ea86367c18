package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/integrity"
	"github.com/stemsi/exam-portal/internal/repository"
	"golang.org/x/sync/errgroup"
)

// ErrSweepInProgress is returned by Sweep when another instance holds the lock.
var ErrSweepInProgress = errors.New("integrity sweep already in progress")

// SweeperService repairs attempts and answers left behind by exam and
// question deletions.
type SweeperService struct {
	exams     ExamStore
	questions QuestionStore
	attempts  AttemptStore
	answers   AnswerStore
	locker    Locker // nil runs unlocked
	lockTTL   time.Duration
	log       zerolog.Logger
}

// NewSweeperService creates a new SweeperService.
func NewSweeperService(
	exams ExamStore,
	questions QuestionStore,
	attempts AttemptStore,
	answers AnswerStore,
	locker Locker,
	lockTTL time.Duration,
	log zerolog.Logger,
) *SweeperService {
	return &SweeperService{
		exams:     exams,
		questions: questions,
		attempts:  attempts,
		answers:   answers,
		locker:    locker,
		lockTTL:   lockTTL,
		log:       log.With().Str("component", "sweeper").Logger(),
	}
}

// Sweep reconciles the whole store and returns the repair it applied.
func (s *SweeperService) Sweep(ctx context.Context) (integrity.Repair, error) {
	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, config.CacheKey.SweepLockKey(), s.lockTTL)
		if err != nil {
			return integrity.Repair{}, fmt.Errorf("acquire sweep lock: %w", err)
		}
		if !ok {
			return integrity.Repair{}, ErrSweepInProgress
		}
		defer release()
	}

	snap, err := s.fullSnapshot(ctx)
	if err != nil {
		return integrity.Repair{}, err
	}
	return s.apply(ctx, integrity.Plan(snap))
}

// SweepAttempt reconciles a single attempt and its answers.
func (s *SweeperService) SweepAttempt(ctx context.Context, attemptID uuid.UUID) (integrity.Repair, error) {
	snap, err := s.attemptSnapshot(ctx, attemptID)
	if err != nil {
		return integrity.Repair{}, err
	}
	return s.apply(ctx, integrity.Plan(snap))
}

// BeforeRead runs a full sweep ahead of a multi-attempt read. Failures are
// logged and the read proceeds on unrepaired data. A nil sweeper does nothing.
func (s *SweeperService) BeforeRead(ctx context.Context) {
	if s == nil {
		return
	}
	if _, err := s.Sweep(ctx); err != nil && !errors.Is(err, ErrSweepInProgress) {
		s.log.Error().Err(err).Msg("Integrity sweep before read failed")
	}
}

// BeforeAttemptRead is BeforeRead scoped to one attempt.
func (s *SweeperService) BeforeAttemptRead(ctx context.Context, attemptID uuid.UUID) {
	if s == nil {
		return
	}
	if _, err := s.SweepAttempt(ctx, attemptID); err != nil {
		s.log.Error().Err(err).Str("attempt_id", attemptID.String()).Msg("Attempt sweep before read failed")
	}
}

func (s *SweeperService) apply(ctx context.Context, rep integrity.Repair) (integrity.Repair, error) {
	if rep.Empty() {
		return rep, nil
	}
	if err := s.attempts.ApplyRepair(ctx, rep); err != nil {
		return integrity.Repair{}, fmt.Errorf("apply repair: %w", err)
	}
	s.log.Info().
		Int("attempts_deleted", len(rep.AttemptsToDelete)).
		Int("answers_deleted", len(rep.AnswersToDelete)).
		Int("scores_updated", len(rep.ScoreUpdates)).
		Msg("Integrity repair applied")
	return rep, nil
}

// fullSnapshot reads dependents before parents; see integrity.Snapshot.
func (s *SweeperService) fullSnapshot(ctx context.Context) (integrity.Snapshot, error) {
	var snap integrity.Snapshot

	answers, err := s.answers.ListRefs(ctx)
	if err != nil {
		return snap, fmt.Errorf("list answers: %w", err)
	}
	attempts, err := s.attempts.ListRefs(ctx)
	if err != nil {
		return snap, fmt.Errorf("list attempts: %w", err)
	}

	var examIDs, questionIDs []uuid.UUID
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ids, err := s.exams.ListIDs(gctx)
		if err != nil {
			return fmt.Errorf("list exam ids: %w", err)
		}
		examIDs = ids
		return nil
	})
	g.Go(func() error {
		ids, err := s.questions.ListIDs(gctx)
		if err != nil {
			return fmt.Errorf("list question ids: %w", err)
		}
		questionIDs = ids
		return nil
	})
	if err := g.Wait(); err != nil {
		return snap, err
	}

	snap.Answers = answers
	snap.Attempts = attempts
	snap.ExamIDs = integrity.IDSet(examIDs)
	snap.QuestionIDs = integrity.IDSet(questionIDs)
	return snap, nil
}

func (s *SweeperService) attemptSnapshot(ctx context.Context, attemptID uuid.UUID) (integrity.Snapshot, error) {
	var snap integrity.Snapshot

	answers, err := s.answers.ListRefsByAttempt(ctx, attemptID)
	if err != nil {
		return snap, fmt.Errorf("list attempt answers: %w", err)
	}
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if errors.Is(err, repository.ErrNotFound) {
		return snap, nil
	}
	if err != nil {
		return snap, fmt.Errorf("get attempt: %w", err)
	}

	questionRefs := make([]uuid.UUID, 0, len(answers))
	for _, a := range answers {
		questionRefs = append(questionRefs, a.QuestionID)
	}

	var examIDs, questionIDs []uuid.UUID
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ids, err := s.exams.ExistingIDs(gctx, []uuid.UUID{attempt.ExamID})
		if err != nil {
			return fmt.Errorf("check exam: %w", err)
		}
		examIDs = ids
		return nil
	})
	g.Go(func() error {
		if len(questionRefs) == 0 {
			return nil
		}
		ids, err := s.questions.ExistingIDs(gctx, questionRefs)
		if err != nil {
			return fmt.Errorf("check questions: %w", err)
		}
		questionIDs = ids
		return nil
	})
	if err := g.Wait(); err != nil {
		return snap, err
	}

	snap.Answers = answers
	snap.Attempts = []integrity.AttemptRef{{ID: attempt.ID, ExamID: attempt.ExamID, Completed: attempt.Completed}}
	snap.ExamIDs = integrity.IDSet(examIDs)
	snap.QuestionIDs = integrity.IDSet(questionIDs)
	return snap, nil
}
