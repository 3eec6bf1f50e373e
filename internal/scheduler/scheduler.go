package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/suwandre/arbwatch/internal/aggregator"
	"github.com/suwandre/arbwatch/internal/history"
	"github.com/suwandre/arbwatch/internal/models"
	"github.com/suwandre/arbwatch/internal/scanner"
)

const (
	recordTimeout        = 10 * time.Second
	defaultInterval      = 10 * time.Second
	defaultRecentHistory = 500
)

// Listener receives every completed round, after recording.
type Listener interface {
	OnRound(ctx context.Context, round *models.RoundResult)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, round *models.RoundResult)

func (f ListenerFunc) OnRound(ctx context.Context, round *models.RoundResult) {
	f(ctx, round)
}

type Config struct {
	Symbol   string
	Interval time.Duration
	// RecentHistory bounds the in-memory list of recent opportunities.
	RecentHistory int
}

// Scheduler drives one round per tick from a single goroutine, so rounds
// never overlap. Ticks that arrive while a round is still running are dropped.
type Scheduler struct {
	aggregator *aggregator.Aggregator
	scanner    *scanner.Scanner
	recorder   history.Recorder
	listeners  []Listener
	symbol     string
	interval   time.Duration
	maxRecent  int

	mu     sync.RWMutex
	latest *models.RoundResult
	recent []models.Opportunity // oldest first

	seq      atomic.Uint64
	skipped  atomic.Uint64
	running  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
	doneCh   chan struct{}
}

func NewScheduler(agg *aggregator.Aggregator, sc *scanner.Scanner, rec history.Recorder, cfg Config) *Scheduler {
	maxRecent := cfg.RecentHistory
	if maxRecent <= 0 {
		maxRecent = defaultRecentHistory
	}
	interval := cfg.Interval
	if interval <= 0 {
		log.Warn().Stringer("interval", interval).Stringer("default", defaultInterval).Msg("non-positive poll interval, using default")
		interval = defaultInterval
	}
	return &Scheduler{
		aggregator: agg,
		scanner:    sc,
		recorder:   rec,
		symbol:     cfg.Symbol,
		interval:   interval,
		maxRecent:  maxRecent,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// AddListener registers l. It must be called before Start.
func (s *Scheduler) AddListener(l Listener) {
	s.listeners = append(s.listeners, l)
}

// Begins the polling loop in a background goroutine. The first round runs
// immediately. The loop exits when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(s.doneCh)
		defer cancel()

		s.RunOnce(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				started := time.Now()
				s.RunOnce(ctx)
				// time.Ticker drops ticks while a round overruns the interval.
				if missed := uint64(time.Since(started) / s.interval); missed > 0 {
					s.skipped.Add(missed)
					log.Warn().Uint64("missed", missed).Msg("round overran the poll interval")
				}
			case <-s.stopCh:
				log.Info().Msg("scheduler stopped")
				return
			case <-ctx.Done():
				log.Info().Msg("scheduler stopped")
				return
			}
		}
	}()

	log.Info().
		Stringer("interval", s.interval).
		Str("symbol", s.symbol).
		Int("exchanges", len(s.aggregator.Exchanges())).
		Msg("scheduler started")
}

// Signals the background goroutine to exit cleanly. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Done is closed once the polling loop has exited.
func (s *Scheduler) Done() <-chan struct{} {
	return s.doneCh
}

// Skipped counts ticks that did not start a round because one was still running.
func (s *Scheduler) Skipped() uint64 {
	return s.skipped.Load()
}

// RunOnce executes a single round synchronously and returns its result, or
// nil when the round was skipped or abandoned.
func (s *Scheduler) RunOnce(ctx context.Context) *models.RoundResult {
	if !s.running.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		log.Warn().Msg("previous round still running, skipping tick")
		return nil
	}
	defer s.running.Store(false)

	started := time.Now()
	rows := s.aggregator.Poll(ctx, s.symbol)

	// Stop requested mid-round: drop the results rather than record a round
	// built from cancelled queries.
	if ctx.Err() != nil {
		log.Info().Msg("round abandoned on shutdown")
		return nil
	}

	round := &models.RoundResult{
		Seq:         s.seq.Add(1),
		Symbol:      s.symbol,
		Capital:     s.scanner.Capital(),
		StartedAt:   started,
		CompletedAt: time.Now(),
		Rows:        rows,
		Opportunity: s.scanner.Scan(s.symbol, rows, started),
	}

	if round.Opportunity != nil {
		s.record(*round.Opportunity)
	}

	s.mu.Lock()
	s.latest = round
	if round.Opportunity != nil {
		s.recent = append(s.recent, *round.Opportunity)
		if over := len(s.recent) - s.maxRecent; over > 0 {
			s.recent = append([]models.Opportunity(nil), s.recent[over:]...)
		}
	}
	s.mu.Unlock()

	s.logRound(round)

	for _, l := range s.listeners {
		l.OnRound(ctx, round)
	}

	return round
}

// Writes run detached from the loop's context so a shutdown can't leave a
// half-written record behind.
func (s *Scheduler) record(opp models.Opportunity) {
	if s.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if err := s.recorder.Record(ctx, opp); err != nil {
		log.Error().Err(err).Str("id", opp.ID).Msg("failed to record opportunity")
	}
}

func (s *Scheduler) logRound(round *models.RoundResult) {
	quoted := 0
	for _, r := range round.Rows {
		if r.Quote != nil {
			quoted++
		}
	}

	evt := log.Info().
		Uint64("round", round.Seq).
		Int("exchanges", len(round.Rows)).
		Int("quoted", quoted).
		Dur("took", round.CompletedAt.Sub(round.StartedAt))

	if opp := round.Opportunity; opp != nil {
		evt.Str("buy", opp.BuyExchange).
			Str("sell", opp.SellExchange).
			Float64("profit", opp.Profit).
			Float64("profit_pct", opp.ProfitPct).
			Msg("round complete")
		return
	}
	evt.Msg("round complete, no opportunity")
}

// Returns the most recent completed round.
func (s *Scheduler) Latest() (*models.RoundResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.latest, s.latest != nil
}

// Returns up to limit recorded opportunities, newest first.
func (s *Scheduler) Recent(limit int) []models.Opportunity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.recent) {
		limit = len(s.recent)
	}
	out := make([]models.Opportunity, 0, limit)
	for i := len(s.recent) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.recent[i])
	}
	return out
}
