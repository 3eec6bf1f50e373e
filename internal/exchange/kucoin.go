package exchange

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/suwandre/arbwatch/internal/models"
)

const kucoinBaseURL = "https://api.kucoin.com"

func init() {
	Register("kucoin", func(Credentials) Exchange { return NewKucoinAdapter() })
}

type KucoinAdapter struct {
	baseURL    string
	httpClient *http.Client
}

func NewKucoinAdapter() *KucoinAdapter {
	return &KucoinAdapter{
		baseURL:    kucoinBaseURL,
		httpClient: newHTTPClient(),
	}
}

func (k *KucoinAdapter) Name() string {
	return "kucoin"
}

func (k *KucoinAdapter) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	pair, err := venueSymbol(symbol, "-")
	if err != nil {
		return nil, fmt.Errorf("kucoin stats: %w", err)
	}

	// "buy" is the best bid and "sell" the best ask.
	var raw struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
		Data *struct {
			Symbol     string `json:"symbol"`
			Buy        string `json:"buy"`
			Sell       string `json:"sell"`
			ChangeRate string `json:"changeRate"`
		} `json:"data"`
	}

	u := fmt.Sprintf("%s/api/v1/market/stats?symbol=%s", k.baseURL, url.QueryEscape(pair))
	if err := getJSON(ctx, k.httpClient, "kucoin stats", u, nil, &raw); err != nil {
		return nil, err
	}

	if raw.Code != "200000" {
		return nil, fmt.Errorf("kucoin API error %s: %s", raw.Code, raw.Msg)
	}

	if raw.Data == nil {
		return nil, fmt.Errorf("kucoin returned no stats for %s", pair)
	}

	return &models.Quote{
		Exchange:     k.Name(),
		Symbol:       symbol,
		Bid:          parsePrice(raw.Data.Buy),
		Ask:          parsePrice(raw.Data.Sell),
		Change24hPct: fractionToPct(raw.Data.ChangeRate),
		ObservedAt:   time.Now(),
	}, nil
}

func (k *KucoinAdapter) GetFees(ctx context.Context) (*models.PartialFees, error) {
	return &models.PartialFees{Maker: rate(0.001), Taker: rate(0.001)}, nil
}
