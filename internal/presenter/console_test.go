package presenter

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/suwandre/arbwatch/internal/models"
)

func sampleRound(opp *models.Opportunity) *models.RoundResult {
	return &models.RoundResult{
		Seq:         7,
		Symbol:      "ETH/BRL",
		Capital:     5000,
		CompletedAt: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		Rows: []models.VenueRow{
			{
				Exchange: "okx",
				Quote:    &models.Quote{Bid: models.Float(999), Ask: models.Float(1000), Change24hPct: models.Float(1.5)},
				Fees:     models.FeeSchedule{Maker: 0.0002, Taker: 0.0003},
			},
			{
				Exchange: "novadax",
				Fees:     models.FeeSchedule{Maker: 0.0002, Taker: 0.0003},
				QuoteErr: "timeout",
			},
		},
		Opportunity: opp,
	}
}

func TestRenderShowsRowsAndMissingValues(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	if err := c.Render(sampleRound(nil)); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()

	for _, want := range []string{"round 7", "ETH/BRL", "capital 5000.00", "EXCHANGE", "okx", "999.00", "1000.20", "1.50", "0.0200", "0.0300"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}

	var novadax string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "novadax") {
			novadax = line
		}
	}
	if strings.Count(novadax, notAvailable) != 6 {
		t.Fatalf("expected 6 N/A cells for a failed venue, got line %q", novadax)
	}
	if !strings.HasSuffix(out, "no opportunity this round\n") {
		t.Fatalf("expected no-opportunity footer:\n%s", out)
	}
}

func TestSummary(t *testing.T) {
	opp := &models.Opportunity{
		BuyExchange:     "okx",
		SellExchange:    "kucoin",
		BuyPriceRaw:     1000,
		BuyPriceFeeAdj:  1000.2,
		SellPriceRaw:    1010,
		SellPriceFeeAdj: 1009.697,
		BuyFeeRate:      0.0002,
		SellFeeRate:     0.0003,
		Quantity:        4.999000199960007,
		CapitalInvested: 5000,
		CapitalReceived: 5047.475504899,
		Profit:          47.4755049,
		ProfitPct:       0.94951009798,
	}

	got := Summary(opp)
	for _, want := range []string{"buy on okx, sell on kucoin", "1000.20", "1009.70", "4.999000", "5047.48", "profit 47.48 (0.9495%)"} {
		if !strings.Contains(got, want) {
			t.Fatalf("summary missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "same venue") {
		t.Fatal("cross-venue opportunity should not be flagged")
	}

	opp.SellExchange = "okx"
	opp.SameVenue = true
	if !strings.Contains(Summary(opp), "(same venue)") {
		t.Fatal("same-venue opportunity should be flagged")
	}
}
