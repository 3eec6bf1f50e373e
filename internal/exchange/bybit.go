package exchange

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/suwandre/arbwatch/internal/models"
)

const (
	bybitBaseURL    = "https://api.bybit.com"
	bybitRecvWindow = "5000"
)

func init() {
	Register("bybit", func(creds Credentials) Exchange { return NewBybitAdapter(creds) })
}

type BybitAdapter struct {
	creds      Credentials
	baseURL    string
	httpClient *http.Client
}

type bybitTicker struct {
	Symbol       string `json:"symbol"`
	Bid1Price    string `json:"bid1Price"`
	Ask1Price    string `json:"ask1Price"`
	Price24hPcnt string `json:"price24hPcnt"` // fraction, e.g. "0.0123"
}

func NewBybitAdapter(creds Credentials) *BybitAdapter {
	return &BybitAdapter{
		creds:      creds,
		baseURL:    bybitBaseURL,
		httpClient: newHTTPClient(),
	}
}

func (b *BybitAdapter) Name() string {
	return "bybit"
}

func (b *BybitAdapter) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	pair, err := venueSymbol(symbol, "")
	if err != nil {
		return nil, fmt.Errorf("bybit ticker: %w", err)
	}

	var raw struct {
		RetCode int    `json:"retCode"`
		RetMsg  string `json:"retMsg"`
		Result  struct {
			List []bybitTicker `json:"list"`
		} `json:"result"`
	}

	u := fmt.Sprintf("%s/v5/market/tickers?category=spot&symbol=%s", b.baseURL, url.QueryEscape(pair))
	if err := getJSON(ctx, b.httpClient, "bybit ticker", u, nil, &raw); err != nil {
		return nil, err
	}

	if raw.RetCode != 0 {
		return nil, fmt.Errorf("bybit API error %d: %s", raw.RetCode, raw.RetMsg)
	}

	if len(raw.Result.List) == 0 {
		return nil, fmt.Errorf("bybit returned empty ticker list for %s", pair)
	}

	t := raw.Result.List[0]
	return &models.Quote{
		Exchange:     b.Name(),
		Symbol:       symbol,
		Bid:          parsePrice(t.Bid1Price),
		Ask:          parsePrice(t.Ask1Price),
		Change24hPct: fractionToPct(t.Price24hPcnt),
		ObservedAt:   time.Now(),
	}, nil
}

// Returns the account's spot fee rate when credentials are configured,
// otherwise the published spot schedule.
func (b *BybitAdapter) GetFees(ctx context.Context) (*models.PartialFees, error) {
	if !b.creds.Present() {
		return &models.PartialFees{Maker: rate(0.001), Taker: rate(0.001)}, nil
	}

	query := "category=spot"
	timestamp := nowMillis()

	header := http.Header{}
	header.Set("X-BAPI-API-KEY", b.creds.APIKey)
	header.Set("X-BAPI-TIMESTAMP", timestamp)
	header.Set("X-BAPI-RECV-WINDOW", bybitRecvWindow)
	header.Set("X-BAPI-SIGN", hmacSHA256Hex(b.creds.APISecret, timestamp+b.creds.APIKey+bybitRecvWindow+query))

	var raw struct {
		RetCode int    `json:"retCode"`
		RetMsg  string `json:"retMsg"`
		Result  struct {
			List []struct {
				Symbol       string `json:"symbol"`
				MakerFeeRate string `json:"makerFeeRate"`
				TakerFeeRate string `json:"takerFeeRate"`
			} `json:"list"`
		} `json:"result"`
	}

	u := fmt.Sprintf("%s/v5/account/fee-rate?%s", b.baseURL, query)
	if err := getJSON(ctx, b.httpClient, "bybit fee-rate", u, header, &raw); err != nil {
		return nil, err
	}

	if raw.RetCode != 0 {
		return nil, fmt.Errorf("bybit API error %d: %s", raw.RetCode, raw.RetMsg)
	}

	// Spot rates are set per account tier, so every symbol carries the same pair.
	if len(raw.Result.List) == 0 {
		return nil, fmt.Errorf("bybit fee-rate: %w", ErrFeesUnavailable)
	}

	r := raw.Result.List[0]
	return &models.PartialFees{
		Maker: parseRate(r.MakerFeeRate),
		Taker: parseRate(r.TakerFeeRate),
	}, nil
}
