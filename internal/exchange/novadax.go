package exchange

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/suwandre/arbwatch/internal/models"
)

const novadaxBaseURL = "https://api.novadax.com"

func init() {
	Register("novadax", func(Credentials) Exchange { return NewNovadaxAdapter() })
}

type NovadaxAdapter struct {
	baseURL    string
	httpClient *http.Client
}

func NewNovadaxAdapter() *NovadaxAdapter {
	return &NovadaxAdapter{
		baseURL:    novadaxBaseURL,
		httpClient: newHTTPClient(),
	}
}

func (n *NovadaxAdapter) Name() string {
	return "novadax"
}

func (n *NovadaxAdapter) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	pair, err := venueSymbol(symbol, "_")
	if err != nil {
		return nil, fmt.Errorf("novadax ticker: %w", err)
	}

	var raw struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Data    *struct {
			Symbol    string `json:"symbol"`
			Bid       string `json:"bid"`
			Ask       string `json:"ask"`
			LastPrice string `json:"lastPrice"`
			Open24h   string `json:"open24h"`
		} `json:"data"`
	}

	u := fmt.Sprintf("%s/v1/market/ticker?symbol=%s", n.baseURL, url.QueryEscape(pair))
	if err := getJSON(ctx, n.httpClient, "novadax ticker", u, nil, &raw); err != nil {
		return nil, err
	}

	if raw.Code != "A10000" {
		return nil, fmt.Errorf("novadax API error %s: %s", raw.Code, raw.Message)
	}

	if raw.Data == nil {
		return nil, fmt.Errorf("novadax returned no ticker for %s", pair)
	}

	return &models.Quote{
		Exchange:     n.Name(),
		Symbol:       symbol,
		Bid:          parsePrice(raw.Data.Bid),
		Ask:          parsePrice(raw.Data.Ask),
		Change24hPct: changePct(raw.Data.LastPrice, raw.Data.Open24h),
		ObservedAt:   time.Now(),
	}, nil
}

// NovaDAX does not publish its schedule through the public API.
func (n *NovadaxAdapter) GetFees(ctx context.Context) (*models.PartialFees, error) {
	return nil, ErrFeesUnavailable
}
