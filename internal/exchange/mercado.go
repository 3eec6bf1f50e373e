package exchange

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/suwandre/arbwatch/internal/models"
)

const mercadoBaseURL = "https://api.mercadobitcoin.net"

func init() {
	Register("mercado", func(Credentials) Exchange { return NewMercadoAdapter() })
}

// MercadoAdapter talks to the Mercado Bitcoin v4 public API.
type MercadoAdapter struct {
	baseURL    string
	httpClient *http.Client
}

type mercadoTicker struct {
	Pair string `json:"pair"`
	Buy  string `json:"buy"`
	Sell string `json:"sell"`
	Last string `json:"last"`
	Open string `json:"open"`
}

func NewMercadoAdapter() *MercadoAdapter {
	return &MercadoAdapter{
		baseURL:    mercadoBaseURL,
		httpClient: newHTTPClient(),
	}
}

func (m *MercadoAdapter) Name() string {
	return "mercado"
}

func (m *MercadoAdapter) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	pair, err := venueSymbol(symbol, "-")
	if err != nil {
		return nil, fmt.Errorf("mercado tickers: %w", err)
	}

	var raw []mercadoTicker
	u := fmt.Sprintf("%s/api/v4/tickers?symbols=%s", m.baseURL, url.QueryEscape(pair))
	if err := getJSON(ctx, m.httpClient, "mercado tickers", u, nil, &raw); err != nil {
		return nil, err
	}

	for _, t := range raw {
		if t.Pair != pair {
			continue
		}
		return &models.Quote{
			Exchange:     m.Name(),
			Symbol:       symbol,
			Bid:          parsePrice(t.Buy),
			Ask:          parsePrice(t.Sell),
			Change24hPct: changePct(t.Last, t.Open),
			ObservedAt:   time.Now(),
		}, nil
	}

	return nil, fmt.Errorf("mercado returned no ticker for %s", pair)
}

func (m *MercadoAdapter) GetFees(ctx context.Context) (*models.PartialFees, error) {
	return &models.PartialFees{Maker: rate(0.003), Taker: rate(0.007)}, nil
}
