package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/model"
)

// EventPublisher broadcasts attempt state changes to live monitors.
type EventPublisher interface {
	Publish(ctx context.Context, ev model.AttemptEvent) error
}

// AttemptEvents publishes and subscribes to attempt events over Redis Pub/Sub,
// one channel per exam.
type AttemptEvents struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewAttemptEvents creates a new AttemptEvents.
func NewAttemptEvents(rdb *redis.Client, log zerolog.Logger) *AttemptEvents {
	return &AttemptEvents{
		rdb: rdb,
		log: log.With().Str("component", "attempt_events").Logger(),
	}
}

// Publish sends the event to the exam's monitor channel.
func (e *AttemptEvents) Publish(ctx context.Context, ev model.AttemptEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	channel := config.CacheKey.ExamMonitorChannel(ev.ExamID.String())
	return e.rdb.Publish(ctx, channel, payload).Err()
}

// Subscribe opens a subscription to one exam's events. The caller closes it.
func (e *AttemptEvents) Subscribe(ctx context.Context, examID uuid.UUID) *redis.PubSub {
	return e.rdb.Subscribe(ctx, config.CacheKey.ExamMonitorChannel(examID.String()))
}

// Watch subscribes to one exam and decodes its events until ctx is done or
// stop is called. The returned channel is closed when the subscription ends.
func (e *AttemptEvents) Watch(ctx context.Context, examID uuid.UUID) (<-chan model.AttemptEvent, func(), error) {
	pubsub := e.Subscribe(ctx, examID)
	// Wait for the subscription to be confirmed so no event published after
	// Watch returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan model.AttemptEvent, 16)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var ev model.AttemptEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				e.log.Warn().Err(err).Str("channel", msg.Channel).Msg("Dropping malformed attempt event")
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	stop := func() { _ = pubsub.Close() }
	return out, stop, nil
}
