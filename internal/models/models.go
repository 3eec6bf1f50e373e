package models

import "time"

// Quote is one venue's top of book for the tracked pair. A nil side means the
// venue returned no usable price for it.
type Quote struct {
	Exchange     string    `json:"exchange"`
	Symbol       string    `json:"symbol"`
	Bid          *float64  `json:"bid"`
	Ask          *float64  `json:"ask"`
	Change24hPct *float64  `json:"change_24h_pct"`
	ObservedAt   time.Time `json:"observed_at"`
}

type FeeSchedule struct {
	Maker float64 `json:"maker"` // applied on the buy side
	Taker float64 `json:"taker"` // applied on the sell side
}

// PartialFees is what a venue exposes about its own schedule. Nil fields are
// unknown and get filled from the configured defaults.
type PartialFees struct {
	Maker *float64 `json:"maker,omitempty"`
	Taker *float64 `json:"taker,omitempty"`
}

type Opportunity struct {
	ID              string    `json:"id"`
	Symbol          string    `json:"symbol"`
	BuyExchange     string    `json:"buy_exchange"`
	SellExchange    string    `json:"sell_exchange"`
	BuyPriceRaw     float64   `json:"buy_price_raw"`
	BuyPriceFeeAdj  float64   `json:"buy_price_fee_adj"`
	SellPriceRaw    float64   `json:"sell_price_raw"`
	SellPriceFeeAdj float64   `json:"sell_price_fee_adj"`
	BuyFeeRate      float64   `json:"buy_fee_rate"`  // maker rate of the buy venue
	SellFeeRate     float64   `json:"sell_fee_rate"` // taker rate of the sell venue
	Quantity        float64   `json:"quantity"`
	CapitalInvested float64   `json:"capital_invested"`
	CapitalReceived float64   `json:"capital_received"`
	Profit          float64   `json:"profit"`
	ProfitPct       float64   `json:"profit_pct"`
	SameVenue       bool      `json:"same_venue"`
	ObservedAt      time.Time `json:"observed_at"`
}

// VenueRow is the aggregator's output for one configured venue. Quote is nil
// when the quote fetch failed; the row is still kept for display.
type VenueRow struct {
	Exchange  string      `json:"exchange"`
	Quote     *Quote      `json:"quote"`
	Fees      FeeSchedule `json:"fees"`
	FeeSource string      `json:"fee_source"`
	QuoteErr  string      `json:"quote_error,omitempty"`
	FeeErr    string      `json:"fee_error,omitempty"`
}

func (r VenueRow) Bid() *float64 {
	if r.Quote == nil {
		return nil
	}
	return r.Quote.Bid
}

func (r VenueRow) Ask() *float64 {
	if r.Quote == nil {
		return nil
	}
	return r.Quote.Ask
}

// RowView is the display shape of a VenueRow.
type RowView struct {
	Exchange     string   `json:"exchange"`
	Bid          *float64 `json:"bid"`
	Ask          *float64 `json:"ask"`
	BidFeeAdj    *float64 `json:"bid_fee_adj"`
	AskFeeAdj    *float64 `json:"ask_fee_adj"`
	SpreadPct    *float64 `json:"spread_pct"` // (bid - ask) / ask * 100
	Change24hPct *float64 `json:"change_24h_pct"`
	MakerFeePct  float64  `json:"maker_fee_pct"`
	TakerFeePct  float64  `json:"taker_fee_pct"`
}

func (r VenueRow) View() RowView {
	v := RowView{
		Exchange:    r.Exchange,
		Bid:         r.Bid(),
		Ask:         r.Ask(),
		MakerFeePct: r.Fees.Maker * 100,
		TakerFeePct: r.Fees.Taker * 100,
	}
	if r.Quote != nil {
		v.Change24hPct = r.Quote.Change24hPct
	}
	if v.Bid != nil {
		adj := *v.Bid * (1 - r.Fees.Taker)
		v.BidFeeAdj = &adj
	}
	if v.Ask != nil {
		adj := *v.Ask * (1 + r.Fees.Maker)
		v.AskFeeAdj = &adj
	}
	if v.Bid != nil && v.Ask != nil && *v.Ask > 0 {
		spread := (*v.Bid - *v.Ask) / *v.Ask * 100
		v.SpreadPct = &spread
	}
	return v
}

// RoundResult is the immutable snapshot of one poll-scan-record cycle.
// A nil Opportunity means the round found nothing to record.
type RoundResult struct {
	Seq         uint64       `json:"seq"`
	Symbol      string       `json:"symbol"`
	Capital     float64      `json:"capital"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at"`
	Rows        []VenueRow   `json:"rows"`
	Opportunity *Opportunity `json:"opportunity"`
}

func (r *RoundResult) Views() []RowView {
	views := make([]RowView, 0, len(r.Rows))
	for _, row := range r.Rows {
		views = append(views, row.View())
	}
	return views
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
