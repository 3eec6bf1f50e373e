// Package exchangetest provides an in-memory exchange for tests.
package exchangetest

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/suwandre/arbwatch/internal/models"
)

// Fake is a scriptable exchange. Zero values mean "no quote sides, no fees".
type Fake struct {
	ExchangeName string
	Bid          *float64
	Ask          *float64
	Change       *float64
	QuoteErr     error
	Fees         *models.PartialFees
	FeesErr      error
	// Delay blocks GetQuote until it elapses or ctx is done.
	Delay time.Duration
	// FeesDelay does the same for GetFees.
	FeesDelay time.Duration

	quoteCalls atomic.Int64
	feeCalls   atomic.Int64
}

func (f *Fake) Name() string {
	return f.ExchangeName
}

func (f *Fake) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	f.quoteCalls.Add(1)
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.QuoteErr != nil {
		return nil, f.QuoteErr
	}
	return &models.Quote{
		Exchange:     f.ExchangeName,
		Symbol:       symbol,
		Bid:          f.Bid,
		Ask:          f.Ask,
		Change24hPct: f.Change,
		ObservedAt:   time.Now(),
	}, nil
}

func (f *Fake) GetFees(ctx context.Context) (*models.PartialFees, error) {
	f.feeCalls.Add(1)
	if f.FeesDelay > 0 {
		select {
		case <-time.After(f.FeesDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.FeesErr != nil {
		return nil, f.FeesErr
	}
	return f.Fees, nil
}

func (f *Fake) QuoteCalls() int64 {
	return f.quoteCalls.Load()
}

func (f *Fake) FeeCalls() int64 {
	return f.feeCalls.Load()
}

// Fees builds a full PartialFees.
func Fees(maker, taker float64) *models.PartialFees {
	return &models.PartialFees{Maker: &maker, Taker: &taker}
}
