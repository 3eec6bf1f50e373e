// Package scanner reduces one round of venue rows to the single most
// profitable buy-low/sell-high pairing.
//
// The best ask is the smallest raw ask and the best bid the largest raw bid.
// Ties go to the venue seen first in configured order. The same venue may end
// up on both sides; such opportunities are flagged with SameVenue.
package scanner

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/suwandre/arbwatch/internal/fees"
	"github.com/suwandre/arbwatch/internal/models"
)

// minBuyPrice guards the capital / price division.
const minBuyPrice = 1e-12

type Scanner struct {
	capital float64
	newID   func() string
}

func NewScanner(capital float64) *Scanner {
	return &Scanner{
		capital: capital,
		newID:   uuid.NewString,
	}
}

func (s *Scanner) Capital() float64 {
	return s.capital
}

// Scan returns the round's opportunity, or nil when there is no usable ask,
// no usable bid, or the buy price is degenerate.
func (s *Scanner) Scan(symbol string, rows []models.VenueRow, observedAt time.Time) *models.Opportunity {
	buy, okBuy := BestAsk(rows)
	sell, okSell := BestBid(rows)
	if !okBuy || !okSell {
		return nil
	}

	opp, ok := Evaluate(*buy.Ask(), buy.Fees, *sell.Bid(), sell.Fees, s.capital)
	if !ok {
		log.Debug().
			Str("buy_exchange", buy.Exchange).
			Float64("ask", *buy.Ask()).
			Msg("degenerate buy price, no opportunity this round")
		return nil
	}

	opp.ID = s.newID()
	opp.Symbol = symbol
	opp.BuyExchange = buy.Exchange
	opp.SellExchange = sell.Exchange
	opp.SameVenue = buy.Exchange == sell.Exchange
	opp.ObservedAt = observedAt

	return &opp
}

// BestAsk returns the row with the smallest usable ask.
func BestAsk(rows []models.VenueRow) (models.VenueRow, bool) {
	var best models.VenueRow
	found := false
	for _, r := range rows {
		ask := r.Ask()
		if !usable(ask) {
			continue
		}
		if !found || *ask < *best.Ask() {
			best, found = r, true
		}
	}
	return best, found
}

// BestBid returns the row with the largest usable bid.
func BestBid(rows []models.VenueRow) (models.VenueRow, bool) {
	var best models.VenueRow
	found := false
	for _, r := range rows {
		bid := r.Bid()
		if !usable(bid) {
			continue
		}
		if !found || *bid > *best.Bid() {
			best, found = r, true
		}
	}
	return best, found
}

// Evaluate computes the fee-adjusted economics of buying at ask and selling
// at bid with the given capital. It reports false when the result would be
// meaningless (degenerate buy price, non-positive capital, non-finite math).
func Evaluate(ask float64, buyFees models.FeeSchedule, bid float64, sellFees models.FeeSchedule, capital float64) (models.Opportunity, bool) {
	if !(capital > 0) || math.IsInf(capital, 0) {
		return models.Opportunity{}, false
	}

	buyAdj := fees.BuyPrice(ask, buyFees)
	sellAdj := fees.SellPrice(bid, sellFees)
	if !(buyAdj > minBuyPrice) || !finite(buyAdj) || !finite(sellAdj) {
		return models.Opportunity{}, false
	}

	quantity := capital / buyAdj
	invested := quantity * buyAdj
	received := quantity * sellAdj
	if !finite(quantity) || !(invested > minBuyPrice) || !finite(received) {
		return models.Opportunity{}, false
	}

	profit := received - invested

	return models.Opportunity{
		BuyPriceRaw:     ask,
		BuyPriceFeeAdj:  buyAdj,
		SellPriceRaw:    bid,
		SellPriceFeeAdj: sellAdj,
		BuyFeeRate:      buyFees.Maker,
		SellFeeRate:     sellFees.Taker,
		Quantity:        quantity,
		CapitalInvested: invested,
		CapitalReceived: received,
		Profit:          profit,
		ProfitPct:       profit / invested * 100,
	}, true
}

func usable(p *float64) bool {
	return p != nil && *p > 0 && finite(*p)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
