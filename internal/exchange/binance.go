package exchange

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/suwandre/arbwatch/internal/models"
)

const binanceBaseURL = "https://api.binance.com"

func init() {
	Register("binance", func(creds Credentials) Exchange { return NewBinanceAdapter(creds) })
}

// BinanceAdapter talks to the Binance spot REST API.
type BinanceAdapter struct {
	creds      Credentials
	baseURL    string
	httpClient *http.Client
}

func NewBinanceAdapter(creds Credentials) *BinanceAdapter {
	return &BinanceAdapter{
		creds:      creds,
		baseURL:    binanceBaseURL,
		httpClient: newHTTPClient(),
	}
}

func (b *BinanceAdapter) Name() string {
	return "binance"
}

// Fetches best bid/ask and the rolling 24h change from the 24hr ticker.
func (b *BinanceAdapter) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	pair, err := venueSymbol(symbol, "")
	if err != nil {
		return nil, fmt.Errorf("binance ticker: %w", err)
	}

	var raw struct {
		Symbol             string `json:"symbol"`
		BidPrice           string `json:"bidPrice"`
		AskPrice           string `json:"askPrice"`
		PriceChangePercent string `json:"priceChangePercent"` // already a percentage
	}

	u := fmt.Sprintf("%s/api/v3/ticker/24hr?symbol=%s", b.baseURL, url.QueryEscape(pair))
	if err := getJSON(ctx, b.httpClient, "binance ticker", u, nil, &raw); err != nil {
		return nil, err
	}

	return &models.Quote{
		Exchange:     b.Name(),
		Symbol:       symbol,
		Bid:          parsePrice(raw.BidPrice),
		Ask:          parsePrice(raw.AskPrice),
		Change24hPct: parsePct(raw.PriceChangePercent),
		ObservedAt:   time.Now(),
	}, nil
}

// Returns the account's commission rates when credentials are configured,
// otherwise the published spot schedule.
func (b *BinanceAdapter) GetFees(ctx context.Context) (*models.PartialFees, error) {
	if !b.creds.Present() {
		return &models.PartialFees{Maker: rate(0.001), Taker: rate(0.001)}, nil
	}

	params := url.Values{}
	params.Set("omitZeroBalances", "true")
	params.Set("timestamp", nowMillis())
	query := params.Encode()
	query += "&signature=" + hmacSHA256Hex(b.creds.APISecret, query)

	header := http.Header{}
	header.Set("X-MBX-APIKEY", b.creds.APIKey)

	var raw struct {
		CommissionRates struct {
			Maker string `json:"maker"`
			Taker string `json:"taker"`
		} `json:"commissionRates"`
	}

	u := fmt.Sprintf("%s/api/v3/account?%s", b.baseURL, query)
	if err := getJSON(ctx, b.httpClient, "binance account", u, header, &raw); err != nil {
		return nil, err
	}

	return &models.PartialFees{
		Maker: parseRate(raw.CommissionRates.Maker),
		Taker: parseRate(raw.CommissionRates.Taker),
	}, nil
}
