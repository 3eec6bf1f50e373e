package exchange

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/suwandre/arbwatch/internal/models"
)

const okxBaseURL = "https://www.okx.com"

func init() {
	Register("okx", func(Credentials) Exchange { return NewOkxAdapter() })
}

type OkxAdapter struct {
	baseURL    string
	httpClient *http.Client
}

type okxTicker struct {
	InstID  string `json:"instId"`
	Last    string `json:"last"`
	BidPx   string `json:"bidPx"`
	AskPx   string `json:"askPx"`
	Open24h string `json:"open24h"`
}

func NewOkxAdapter() *OkxAdapter {
	return &OkxAdapter{
		baseURL:    okxBaseURL,
		httpClient: newHTTPClient(),
	}
}

func (o *OkxAdapter) Name() string {
	return "okx"
}

func (o *OkxAdapter) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	instID, err := venueSymbol(symbol, "-")
	if err != nil {
		return nil, fmt.Errorf("okx ticker: %w", err)
	}

	var raw struct {
		Code string      `json:"code"`
		Msg  string      `json:"msg"`
		Data []okxTicker `json:"data"`
	}

	u := fmt.Sprintf("%s/api/v5/market/ticker?instId=%s", o.baseURL, url.QueryEscape(instID))
	if err := getJSON(ctx, o.httpClient, "okx ticker", u, nil, &raw); err != nil {
		return nil, err
	}

	if raw.Code != "0" {
		return nil, fmt.Errorf("okx API error %s: %s", raw.Code, raw.Msg)
	}

	if len(raw.Data) == 0 {
		return nil, fmt.Errorf("okx returned empty ticker for %s", instID)
	}

	t := raw.Data[0]
	return &models.Quote{
		Exchange:     o.Name(),
		Symbol:       symbol,
		Bid:          parsePrice(t.BidPx),
		Ask:          parsePrice(t.AskPx),
		Change24hPct: changePct(t.Last, t.Open24h),
		ObservedAt:   time.Now(),
	}, nil
}

// Regular-tier spot schedule.
func (o *OkxAdapter) GetFees(ctx context.Context) (*models.PartialFees, error) {
	return &models.PartialFees{Maker: rate(0.0008), Taker: rate(0.001)}, nil
}
