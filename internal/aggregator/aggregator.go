package aggregator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/suwandre/arbwatch/internal/exchange"
	"github.com/suwandre/arbwatch/internal/fees"
	"github.com/suwandre/arbwatch/internal/models"
)

type Aggregator struct {
	exchanges    []exchange.Exchange
	fees         *fees.Cache
	venueTimeout time.Duration
}

// Holds one venue's row together with its position in the configured order.
type venueResult struct {
	index int
	row   models.VenueRow
}

func NewAggregator(exchanges []exchange.Exchange, feeCache *fees.Cache, venueTimeout time.Duration) *Aggregator {
	return &Aggregator{
		exchanges:    exchanges,
		fees:         feeCache,
		venueTimeout: venueTimeout,
	}
}

// Exchanges returns the venues in configured order.
func (a *Aggregator) Exchanges() []exchange.Exchange {
	return a.exchanges
}

// Queries every venue concurrently and returns one row per venue in
// configured order. A venue that fails or times out still gets a row, with a
// nil quote; the round itself never fails.
func (a *Aggregator) Poll(ctx context.Context, symbol string) []models.VenueRow {
	results := make(chan venueResult, len(a.exchanges))

	var wg sync.WaitGroup

	for i, ex := range a.exchanges {
		wg.Add(1)

		go func(i int, ex exchange.Exchange) {
			defer wg.Done()

			results <- venueResult{index: i, row: a.pollVenue(ctx, ex, symbol)}
		}(i, ex)
	}

	// Close the channel once all goroutines finish
	go func() {
		wg.Wait()
		close(results)
	}()

	rows := make([]models.VenueRow, len(a.exchanges))
	for result := range results {
		rows[result.index] = result.row
	}

	return rows
}

// Fetches quote and fees for one venue concurrently, each under its own
// timeout, so a slow fee endpoint cannot cost the venue its quote.
func (a *Aggregator) pollVenue(ctx context.Context, ex exchange.Exchange, symbol string) models.VenueRow {
	row := models.VenueRow{Exchange: ex.Name()}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		a.fetchFees(ctx, ex, &row)
	}()
	go func() {
		defer wg.Done()
		a.fetchQuote(ctx, ex, symbol, &row)
	}()

	wg.Wait()
	return row
}

func (a *Aggregator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.venueTimeout > 0 {
		return context.WithTimeout(ctx, a.venueTimeout)
	}
	return context.WithCancel(ctx)
}

// fetchFees only touches the fee fields of row.
func (a *Aggregator) fetchFees(ctx context.Context, ex exchange.Exchange, row *models.VenueRow) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("exchange", ex.Name()).Interface("panic", r).Msg("fee lookup panicked, using defaults")
			row.Fees = a.fees.Defaults()
			row.FeeSource = string(fees.SourceDefault)
			row.FeeErr = "adapter panic"
		}
	}()

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	schedule, source, err := a.fees.Get(ctx, ex)
	if err != nil {
		evt := log.Warn()
		if errors.Is(err, exchange.ErrFeesUnavailable) {
			evt = log.Debug()
		}
		evt.Err(err).Str("exchange", ex.Name()).Msg("fee lookup failed, using defaults")
		row.FeeErr = err.Error()
	}
	row.Fees = schedule
	row.FeeSource = string(source)
}

// fetchQuote only touches the quote fields of row.
func (a *Aggregator) fetchQuote(ctx context.Context, ex exchange.Exchange, symbol string, row *models.VenueRow) {
	// An adapter bug must not take the round down with it.
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("exchange", ex.Name()).Interface("panic", r).Msg("exchange adapter panicked, skipping")
			row.Quote = nil
			row.QuoteErr = "adapter panic"
		}
	}()

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	quote, err := ex.GetQuote(ctx, symbol)
	if err != nil {
		log.Warn().Err(err).Str("exchange", ex.Name()).Msg("failed to fetch quote, skipping")
		row.QuoteErr = err.Error()
		return
	}
	row.Quote = quote
}
