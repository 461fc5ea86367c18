package database

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// pingWithRetry calls ping up to attempts times with exponential backoff.
// Containers started together often come up before their database does.
func pingWithRetry(ctx context.Context, log zerolog.Logger, target string, attempts int, ping func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	backoff := initialBackoff

	var err error
	for i := 1; ; i++ {
		if err = ping(ctx); err == nil {
			return nil
		}
		if i >= attempts {
			return err
		}

		log.Warn().
			Err(err).
			Str("target", target).
			Int("attempt", i).
			Dur("retry_in", backoff).
			Msg("Connection not ready")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}
