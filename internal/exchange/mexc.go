package exchange

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/suwandre/arbwatch/internal/models"
)

const mexcBaseURL = "https://api.mexc.com"

func init() {
	Register("mexc", func(Credentials) Exchange { return NewMexcAdapter() })
}

type MexcAdapter struct {
	baseURL    string
	httpClient *http.Client
}

func NewMexcAdapter() *MexcAdapter {
	return &MexcAdapter{
		baseURL:    mexcBaseURL,
		httpClient: newHTTPClient(),
	}
}

func (m *MexcAdapter) Name() string {
	return "mexc"
}

func (m *MexcAdapter) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	pair, err := venueSymbol(symbol, "")
	if err != nil {
		return nil, fmt.Errorf("mexc ticker: %w", err)
	}

	// MEXC spot reports priceChangePercent as a fraction, unlike Binance.
	var raw struct {
		Symbol             string `json:"symbol"`
		BidPrice           string `json:"bidPrice"`
		AskPrice           string `json:"askPrice"`
		PriceChangePercent string `json:"priceChangePercent"`
	}

	u := fmt.Sprintf("%s/api/v3/ticker/24hr?symbol=%s", m.baseURL, url.QueryEscape(pair))
	if err := getJSON(ctx, m.httpClient, "mexc ticker", u, nil, &raw); err != nil {
		return nil, err
	}

	return &models.Quote{
		Exchange:     m.Name(),
		Symbol:       symbol,
		Bid:          parsePrice(raw.BidPrice),
		Ask:          parsePrice(raw.AskPrice),
		Change24hPct: fractionToPct(raw.PriceChangePercent),
		ObservedAt:   time.Now(),
	}, nil
}

// MEXC publishes a zero maker fee for spot.
func (m *MexcAdapter) GetFees(ctx context.Context) (*models.PartialFees, error) {
	return &models.PartialFees{Maker: rate(0), Taker: rate(0.0005)}, nil
}
