// Package cache mirrors each round into Redis: the latest quote per venue as a
// hash and the full round on a pub/sub channel.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/suwandre/arbwatch/internal/models"
)

type ClientConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// The subset of *redis.Client the publisher needs.
type redisWriter interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type RoundPublisher struct {
	rdb     redisWriter
	channel string
	close   func() error
}

// Connects and pings Redis before returning.
func NewRoundPublisher(ctx context.Context, cfg ClientConfig) (*RoundPublisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	p := newRoundPublisher(rdb, cfg.Channel)
	p.close = rdb.Close
	return p, nil
}

func newRoundPublisher(rdb redisWriter, channel string) *RoundPublisher {
	return &RoundPublisher{rdb: rdb, channel: channel}
}

func QuoteKey(exchange string) string {
	return "quote:" + exchange
}

// OnRound satisfies scheduler.Listener. Failures are logged and never reach
// the polling loop.
func (p *RoundPublisher) OnRound(ctx context.Context, round *models.RoundResult) {
	if err := p.Publish(ctx, round); err != nil {
		log.Warn().Err(err).Uint64("round", round.Seq).Msg("failed to publish round to redis")
	}
}

func (p *RoundPublisher) Publish(ctx context.Context, round *models.RoundResult) error {
	var errs []error

	for _, row := range round.Rows {
		if row.Quote == nil {
			continue
		}
		if err := p.rdb.HSet(ctx, QuoteKey(row.Exchange), quoteFields(row)).Err(); err != nil {
			errs = append(errs, fmt.Errorf("redis: set quote %s: %w", row.Exchange, err))
		}
	}

	payload, err := json.Marshal(round)
	if err != nil {
		return errors.Join(append(errs, fmt.Errorf("redis: encode round: %w", err))...)
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		errs = append(errs, fmt.Errorf("redis: publish %s: %w", p.channel, err))
	}

	return errors.Join(errs...)
}

func quoteFields(row models.VenueRow) map[string]interface{} {
	fields := map[string]interface{}{
		"symbol": row.Quote.Symbol,
		"maker":  formatFloat(row.Fees.Maker),
		"taker":  formatFloat(row.Fees.Taker),
		"ts":     strconv.FormatInt(row.Quote.ObservedAt.UnixNano(), 10),
	}
	if row.Quote.Bid != nil {
		fields["bid"] = formatFloat(*row.Quote.Bid)
	}
	if row.Quote.Ask != nil {
		fields["ask"] = formatFloat(*row.Quote.Ask)
	}
	return fields
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (p *RoundPublisher) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}
