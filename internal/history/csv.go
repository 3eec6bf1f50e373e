package history

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/suwandre/arbwatch/internal/models"
)

const timestampLayout = "2006-01-02 15:04:05"

var csvHeader = []string{
	"timestamp",
	"buy_exchange",
	"buy_price_raw",
	"buy_price_fee_adj",
	"sell_exchange",
	"sell_price_raw",
	"sell_price_fee_adj",
	"quantity",
	"capital_invested",
	"capital_received",
	"profit",
	"profit_pct",
}

// CSVRecorder appends one row per opportunity. The header is written only
// when the file is new or empty, so restarts never truncate history.
type CSVRecorder struct {
	path string
	file *os.File
	w    *csv.Writer
	mu   sync.Mutex
}

func NewCSVRecorder(path string) (*CSVRecorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("csv history: open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv history: stat %s: %w", path, err)
	}

	r := &CSVRecorder{path: path, file: f, w: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := r.writeRow(csvHeader); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return r, nil
}

func (r *CSVRecorder) Record(ctx context.Context, opp models.Opportunity) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.writeRow(csvRow(opp))
}

func (r *CSVRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.w.Flush()
	if err := r.w.Error(); err != nil {
		_ = r.file.Close()
		return fmt.Errorf("csv history: flush %s: %w", r.path, err)
	}
	return r.file.Close()
}

func (r *CSVRecorder) writeRow(row []string) error {
	if err := r.w.Write(row); err != nil {
		return fmt.Errorf("csv history: write %s: %w", r.path, err)
	}
	r.w.Flush()
	if err := r.w.Error(); err != nil {
		return fmt.Errorf("csv history: flush %s: %w", r.path, err)
	}
	if err := r.file.Sync(); err != nil {
		return fmt.Errorf("csv history: sync %s: %w", r.path, err)
	}
	return nil
}

// Prices and amounts use 2 decimals, quantity uses 4.
func csvRow(opp models.Opportunity) []string {
	return []string{
		opp.ObservedAt.Format(timestampLayout),
		opp.BuyExchange,
		fixed(opp.BuyPriceRaw, 2),
		fixed(opp.BuyPriceFeeAdj, 2),
		opp.SellExchange,
		fixed(opp.SellPriceRaw, 2),
		fixed(opp.SellPriceFeeAdj, 2),
		fixed(opp.Quantity, 4),
		fixed(opp.CapitalInvested, 2),
		fixed(opp.CapitalReceived, 2),
		fixed(opp.Profit, 2),
		fixed(opp.ProfitPct, 2),
	}
}

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}
