package util

import (
	"context"
	"time"

	"github.com/jpillora/backoff"
	"github.com/rs/zerolog/log"
)

type Operation func(ctx context.Context) error

// Retry runs op up to attempts times with exponential backoff between tries,
// returning the last error. It gives up early when ctx is done.
func Retry(ctx context.Context, name string, attempts int, op Operation) error {
	return retry(ctx, name, attempts, &backoff.Backoff{
		Min:    500 * time.Millisecond,
		Max:    30 * time.Second,
		Factor: 2,
		Jitter: true,
	}, op)
}

func retry(ctx context.Context, name string, attempts int, b *backoff.Backoff, op Operation) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}

		d := b.Duration()
		log.Warn().
			Err(err).
			Str("op", name).
			Int("attempt", i+1).
			Dur("wait", d).
			Msg("retrying")

		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
