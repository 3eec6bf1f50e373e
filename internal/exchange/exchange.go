package exchange

import (
	"context"
	"errors"

	"github.com/suwandre/arbwatch/internal/models"
)

var (
	// ErrFeesUnavailable means the venue does not expose a fee schedule and
	// the caller should fall back to its defaults.
	ErrFeesUnavailable = errors.New("fee schedule not available")
	ErrUnknownExchange = errors.New("unknown exchange")
)

// Exchange is one trading venue. Implementations must be safe to call
// concurrently with other adapters.
type Exchange interface {
	Name() string
	// GetQuote returns the venue's best bid/ask for a canonical BASE/QUOTE symbol.
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
	// GetFees returns the venue's maker/taker rates, possibly partial.
	GetFees(ctx context.Context) (*models.PartialFees, error)
}

type Credentials struct {
	APIKey    string
	APISecret string
}

func (c Credentials) Present() bool {
	return c.APIKey != "" && c.APISecret != ""
}

// Venues with an authenticated fee endpoint. Credentials for any other venue
// are never sent anywhere.
var authenticatedVenues = map[string]bool{
	"binance": true,
	"bybit":   true,
}

// UsesCredentials reports whether the named venue reads API credentials.
func UsesCredentials(name string) bool {
	return authenticatedVenues[normalize(name)]
}
