package presenter

import (
	"context"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/suwandre/arbwatch/internal/models"
)

const notAvailable = "N/A"

// Console renders each round as a table followed by the opportunity summary.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// OnRound satisfies scheduler.Listener.
func (c *Console) OnRound(_ context.Context, round *models.RoundResult) {
	if err := c.Render(round); err != nil {
		log.Warn().Err(err).Msg("failed to render round")
	}
}

func (c *Console) Render(round *models.RoundResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "\n%s  round %d  %s  capital %s\n",
		round.CompletedAt.Format("2006-01-02 15:04:05"), round.Seq, round.Symbol, money(round.Capital))

	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "EXCHANGE\tBID\tASK\tBID (FEES)\tASK (FEES)\tSPREAD %\t24H %\tMAKER %\tTAKER %\t")
	for _, v := range round.Views() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			v.Exchange,
			price(v.Bid),
			price(v.Ask),
			price(v.BidFeeAdj),
			price(v.AskFeeAdj),
			pct(v.SpreadPct),
			pct(v.Change24hPct),
			fixed(v.MakerFeePct, 4),
			fixed(v.TakerFeePct, 4),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := io.WriteString(c.out, Summary(round.Opportunity))
	return err
}

// Summary describes an opportunity in plain text.
func Summary(opp *models.Opportunity) string {
	if opp == nil {
		return "no opportunity this round\n"
	}

	venues := fmt.Sprintf("buy on %s, sell on %s", opp.BuyExchange, opp.SellExchange)
	if opp.SameVenue {
		venues += " (same venue)"
	}

	return fmt.Sprintf(
		"%s\n  buy  %s (raw %s, fee %s%%)\n  sell %s (raw %s, fee %s%%)\n  quantity %s  invested %s  received %s\n  profit %s (%s%%)\n",
		venues,
		money(opp.BuyPriceFeeAdj), money(opp.BuyPriceRaw), fixed(opp.BuyFeeRate*100, 4),
		money(opp.SellPriceFeeAdj), money(opp.SellPriceRaw), fixed(opp.SellFeeRate*100, 4),
		fixed(opp.Quantity, 6), money(opp.CapitalInvested), money(opp.CapitalReceived),
		money(opp.Profit), fixed(opp.ProfitPct, 4),
	)
}

func price(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return money(*v)
}

func pct(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return fixed(*v, 2)
}

func money(v float64) string {
	return fixed(v, 2)
}

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}
