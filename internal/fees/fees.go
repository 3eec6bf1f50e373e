// Package fees turns whatever a venue exposes about its fee schedule into a
// complete maker/taker pair.
package fees

import (
	"math"

	"github.com/suwandre/arbwatch/internal/models"
)

// Source records where a resolved schedule came from.
type Source string

const (
	SourceVenue   Source = "venue"   // both rates from the venue
	SourcePartial Source = "partial" // one rate from the venue, one default
	SourceDefault Source = "default" // both rates from configuration
)

// Resolve fills each missing or out-of-range field of partial from defaults.
func Resolve(partial *models.PartialFees, defaults models.FeeSchedule) (models.FeeSchedule, Source) {
	if partial == nil {
		return defaults, SourceDefault
	}

	out := defaults
	fromVenue := 0

	if validRate(partial.Maker) {
		out.Maker = *partial.Maker
		fromVenue++
	}
	if validRate(partial.Taker) {
		out.Taker = *partial.Taker
		fromVenue++
	}

	switch fromVenue {
	case 2:
		return out, SourceVenue
	case 1:
		return out, SourcePartial
	default:
		return out, SourceDefault
	}
}

func validRate(r *float64) bool {
	return r != nil && !math.IsNaN(*r) && *r >= 0 && *r < 1
}

// BuyPrice is the effective price paid when buying at ask with a maker fee.
func BuyPrice(ask float64, s models.FeeSchedule) float64 {
	return ask * (1 + s.Maker)
}

// SellPrice is the effective price received when selling at bid with a taker fee.
func SellPrice(bid float64, s models.FeeSchedule) float64 {
	return bid * (1 - s.Taker)
}
