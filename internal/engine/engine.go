// Package engine runs the periodic trading cycle: reconcile, manage
// open shorts, scan the market, and open new positions through the
// risk gatekeeper.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/odiszapc/bitget-bot/internal/calendar"
	"github.com/odiszapc/bitget-bot/internal/config"
	"github.com/odiszapc/bitget-bot/internal/exchange"
	"github.com/odiszapc/bitget-bot/internal/indicator"
	"github.com/odiszapc/bitget-bot/internal/market"
	"github.com/odiszapc/bitget-bot/internal/metrics"
	"github.com/odiszapc/bitget-bot/internal/position"
	"github.com/odiszapc/bitget-bot/internal/recorder"
	"github.com/odiszapc/bitget-bot/internal/risk"
	"github.com/odiszapc/bitget-bot/internal/signal"
	"github.com/odiszapc/bitget-bot/internal/state"
	"github.com/odiszapc/bitget-bot/internal/universe"
)

const (
	btcSymbol    = "BTCUSDT"
	candleLimit  = 100 // enough closes for MACD(12,26,9) plus headroom
	streamMaxAge = 30 * time.Second
)

// APIMeter exposes the per-cycle REST call counter of the live client.
// The dry-run wrapper does not forward it, so the engine receives the
// meter separately and treats it as optional.
type APIMeter interface {
	APICalls() int64
	ResetAPICalls()
}

// Deps bundles everything a running engine needs.
type Deps struct {
	Client   exchange.Client
	Meter    APIMeter             // optional
	Stream   *exchange.PriceStream // optional mark-price cache
	Store    *state.Store
	Recorder recorder.Recorder
	Calendar *calendar.Calendar
	Log      zerolog.Logger
}

// Engine owns the snapshot between cycles and drives one full cycle at
// a time; cycles never overlap.
type Engine struct {
	cfg  *config.Config
	deps Deps

	params  signal.Params
	ctrl    position.Controller
	gate    risk.Gatekeeper
	planner risk.Planner
	filters universe.Thresholds

	maxScan int
	workers int
	now     func() time.Time

	snap state.Snapshot
}

// New wires an engine from config and dependencies.
func New(cfg *config.Config, deps Deps) *Engine {
	return &Engine{
		cfg:    cfg,
		deps:   deps,
		params: signal.DefaultParams(),
		ctrl: position.Controller{
			StartPct:    cfg.Trailing.StartPct,
			LockPct:     cfg.Trailing.LockPct,
			DistancePct: cfg.Trailing.DistancePct,
		},
		gate: risk.Gatekeeper{
			MaxPositions:    cfg.Trading.MaxPositions,
			MinSignals:      cfg.Trading.MinSignals,
			BTCBullLimitPct: cfg.Trading.BTCBullLimitPct,
		},
		planner: risk.Planner{
			MaxPositions: cfg.Trading.MaxPositions,
			Leverage:     cfg.Trading.Leverage,
			MinStopPct:   cfg.Trading.MinStopPct,
			MinTPPct:     cfg.Trading.MinTPPct,
		},
		filters: universe.Thresholds{
			MinVolumeUSD: cfg.Trading.MinVolumeUSD,
			MaxATRPct:    cfg.Trading.MaxATRPct,
		},
		maxScan: 50,
		workers: 8,
		now:     time.Now,
	}
}

// Run loads the snapshot, executes one cycle immediately, then repeats
// on the configured cadence until the context ends. The final snapshot
// is written before returning.
func (e *Engine) Run(ctx context.Context) error {
	snap, err := e.deps.Store.Load(e.now())
	if err != nil {
		e.deps.Log.Error().Err(err).Msg("state snapshot unreadable, starting from empty")
	}
	e.snap = snap

	if err := e.Cycle(ctx); err != nil {
		if exchange.IsAuth(err) {
			return fmt.Errorf("initial cycle: %w", err)
		}
		e.deps.Log.Error().Err(err).Msg("cycle failed")
	}

	fatal := make(chan error, 1)
	c := cron.New(cron.WithChain(cron.DelayIfStillRunning(cronLogger{e.deps.Log})))
	_, err = c.AddFunc(fmt.Sprintf("@every %dm", e.cfg.Trading.CycleMinutes), func() {
		if err := e.Cycle(ctx); err != nil {
			if exchange.IsAuth(err) {
				select {
				case fatal <- err:
				default:
				}
				return
			}
			e.deps.Log.Error().Err(err).Msg("cycle failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule cycle: %w", err)
	}
	c.Start()
	e.deps.Log.Info().Int("minutes", e.cfg.Trading.CycleMinutes).Msg("engine started")

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-fatal:
	}

	// Let an in-flight cycle finish before the final snapshot write.
	<-c.Stop().Done()
	if err := e.deps.Store.Save(e.snap); err != nil {
		e.deps.Log.Error().Err(err).Msg("final snapshot write failed")
	}
	e.deps.Log.Info().Msg("engine stopped")
	return runErr
}

// Cycle runs one full pass. Only auth failures propagate as errors;
// everything else degrades to skipping the affected instrument or the
// rest of the cycle.
func (e *Engine) Cycle(ctx context.Context) error {
	started := e.now()
	if e.deps.Meter != nil {
		e.deps.Meter.ResetAPICalls()
	}
	log := e.deps.Log.With().Time("cycle", started).Logger()

	if e.snap.DailyPnL.Roll(started) {
		log.Info().Msg("new UTC day, daily P&L reset")
	}

	balance, err := e.deps.Client.FetchBalance(ctx)
	if err != nil {
		if exchange.IsAuth(err) {
			return fmt.Errorf("fetch balance: %w", err)
		}
		// An unreadable balance must not stall reconciliation or
		// trailing management; the cycle runs scan-only instead.
		log.Warn().Err(err).Msg("balance unavailable, scan-only cycle")
		balance = 0
	}

	exchPositions, err := e.deps.Client.FetchOpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("fetch positions: %w", err)
	}

	marks := e.collectMarks(ctx, e.snap.Positions, exchPositions)
	rec := state.Reconcile(e.snap.Positions, exchPositions, e.ctrl, marks, started)
	e.snap.Positions = rec.Positions
	for _, c := range rec.Conflicts {
		log.Warn().Str("symbol", c.Symbol).Str("field", c.Field).
			Float64("snapshot", c.Snapshot).Float64("exchange", c.Exchange).
			Msg("snapshot disagrees with exchange, exchange wins")
	}
	for _, sym := range rec.Adopted {
		log.Warn().Str("symbol", sym).Msg("adopted untracked short from exchange")
	}
	for _, p := range rec.Closed {
		e.bookClose(p, marks, "exchange", started)
	}

	e.manageTrailing(ctx, marks, log)

	unrealized := e.totalUnrealizedPct(marks)
	halted := e.snap.DailyPnL.CheckHalt(unrealized, e.cfg.Trading.DailyLossLimitPct)
	if halted {
		log.Warn().Float64("realizedPct", e.snap.DailyPnL.AccumulatedPct).
			Float64("unrealizedPct", unrealized).
			Msg("daily loss limit active, entries suspended until UTC midnight")
	}

	btcChange := 0.0
	if tk, err := e.deps.Client.FetchTicker(ctx, btcSymbol); err != nil {
		if exchange.IsAuth(err) {
			return fmt.Errorf("btc ticker: %w", err)
		}
		// No BTC reading means no bull-market evidence; the check passes.
		log.Warn().Err(err).Msg("btc ticker unavailable")
	} else {
		btcChange = tk.Change24h
	}

	inBlackout, event := false, ""
	if e.deps.Calendar != nil {
		inBlackout, event = e.deps.Calendar.InBlackout(started)
	}
	if inBlackout {
		log.Info().Str("event", event).Msg("news blackout window active")
	}

	candidates, scanned, err := e.scan(ctx)
	if err != nil {
		return err
	}

	opened := 0
	scanOnly := balance <= 0
	if scanOnly && len(candidates) > 0 {
		log.Warn().Msg("zero balance, scan-only mode")
	}
	for _, cand := range candidates {
		decision := e.gate.Check(risk.Input{
			Halted:          halted,
			BTC24hChangePct: btcChange,
			InBlackout:      inBlackout,
			OpenPositions:   len(e.snap.Positions),
			SignalCount:     cand.sig.Count,
			SymbolHeld:      e.holds(cand.sig.Symbol),
		})
		if !decision.Authorized {
			log.Debug().Str("symbol", cand.sig.Symbol).Str("reason", decision.Reason).Msg("entry denied")
			continue
		}
		if scanOnly {
			log.Info().Str("symbol", cand.sig.Symbol).Strs("flags", cand.sig.Flags()).Msg("would enter, but balance is zero")
			continue
		}
		if err := e.open(ctx, cand, balance, started, log); err != nil {
			if exchange.IsAuth(err) {
				return err
			}
			log.Error().Err(err).Str("symbol", cand.sig.Symbol).Msg("entry failed")
			continue
		}
		opened++
	}

	e.snap.LastCycleAt = started
	e.snap.StartBalance = balance
	if err := e.deps.Store.Save(e.snap); err != nil {
		log.Error().Err(err).Msg("snapshot write failed")
	}

	if e.deps.Stream != nil {
		e.deps.Stream.SetSymbols(e.streamSymbols())
	}

	metrics.CyclesTotal.Inc()
	metrics.OpenPositions.Set(float64(len(e.snap.Positions)))
	metrics.DailyPnLPct.Set(e.snap.DailyPnL.AccumulatedPct)

	var apiCalls int64
	if e.deps.Meter != nil {
		apiCalls = e.deps.Meter.APICalls()
	}
	if err := e.deps.Recorder.RecordCycle(&recorder.CycleReport{
		StartedAt:     started,
		Duration:      e.now().Sub(started),
		Scanned:       scanned,
		Candidates:    len(candidates),
		Opened:        opened,
		OpenPositions: len(e.snap.Positions),
		DailyPnLPct:   e.snap.DailyPnL.AccumulatedPct,
		Halted:        halted,
		APICalls:      apiCalls,
	}); err != nil {
		log.Error().Err(err).Msg("record cycle failed")
	}

	log.Info().
		Int("scanned", scanned).
		Int("candidates", len(candidates)).
		Int("opened", opened).
		Int("open", len(e.snap.Positions)).
		Float64("dailyPnlPct", e.snap.DailyPnL.AccumulatedPct).
		Int64("apiCalls", apiCalls).
		Dur("took", e.now().Sub(started)).
		Msg("cycle complete")
	return nil
}

// Snapshot returns a copy of the current engine state, for tests and
// status reporting.
func (e *Engine) Snapshot() state.Snapshot { return e.snap }

func (e *Engine) holds(symbol string) bool {
	for _, p := range e.snap.Positions {
		if p.Symbol == symbol {
			return true
		}
	}
	return false
}

// collectMarks gathers the freshest known price for every symbol that
// appears in either position set, preferring the websocket cache and
// falling back to REST tickers.
func (e *Engine) collectMarks(ctx context.Context, snap []position.Position, exch []market.ExchangePosition) map[string]float64 {
	symbols := make(map[string]bool)
	for _, p := range snap {
		symbols[p.Symbol] = true
	}
	for _, p := range exch {
		symbols[p.Symbol] = true
	}

	marks := make(map[string]float64, len(symbols))
	for sym := range symbols {
		if e.deps.Stream != nil {
			if px, ok := e.deps.Stream.Price(sym, streamMaxAge); ok {
				marks[sym] = px
				continue
			}
		}
		tk, err := e.deps.Client.FetchTicker(ctx, sym)
		if err != nil {
			e.deps.Log.Warn().Err(err).Str("symbol", sym).Msg("no mark price this cycle")
			continue
		}
		marks[sym] = tk.Last
	}
	return marks
}

// manageTrailing ratchets the stop of each open short and pushes the
// new trigger to the exchange. The local stop and stage commit only
// after the exchange confirms; on a failed push they roll back so the
// next cycle re-attempts the same transition.
func (e *Engine) manageTrailing(ctx context.Context, marks map[string]float64, log zerolog.Logger) {
	for i := range e.snap.Positions {
		p := &e.snap.Positions[i]
		mark, ok := marks[p.Symbol]
		if !ok {
			continue
		}
		prevStop, prevStage := p.StopPrice, p.TrailingStage
		newStop, updated := e.ctrl.Advance(p, mark)
		if !updated {
			continue
		}
		if err := e.deps.Client.UpdateStopLoss(ctx, p.Symbol, newStop); err != nil {
			p.StopPrice, p.TrailingStage = prevStop, prevStage
			log.Error().Err(err).Str("symbol", p.Symbol).
				Float64("stop", newStop).
				Msg("stop update failed, holding previous stop for retry")
			continue
		}
		log.Info().Str("symbol", p.Symbol).
			Str("stage", string(p.TrailingStage)).
			Float64("stop", newStop).
			Float64("profitPct", p.UnrealizedPct(mark)).
			Msg("trailing stop advanced")
	}
}

// totalUnrealizedPct converts per-position price moves into one
// account-level percentage: each slot holds balance/maxPositions at the
// configured leverage.
func (e *Engine) totalUnrealizedPct(marks map[string]float64) float64 {
	total := 0.0
	for _, p := range e.snap.Positions {
		mark, ok := marks[p.Symbol]
		if !ok {
			continue
		}
		total += p.UnrealizedPct(mark) * e.cfg.Trading.Leverage / float64(e.cfg.Trading.MaxPositions)
	}
	return total
}

func (e *Engine) bookClose(p position.Position, marks map[string]float64, reason string, now time.Time) {
	realized := 0.0
	if mark, ok := marks[p.Symbol]; ok {
		realized = p.UnrealizedPct(mark) * e.cfg.Trading.Leverage / float64(e.cfg.Trading.MaxPositions)
	}
	e.snap.DailyPnL.AddRealized(realized)
	e.deps.Log.Info().Str("symbol", p.Symbol).Float64("realizedPct", realized).Msg("position closed")
	if err := e.deps.Recorder.RecordClose(&recorder.TradeClose{
		Symbol:      p.Symbol,
		EntryPrice:  p.EntryPrice,
		Size:        p.Size,
		RealizedPct: realized,
		ClosedAt:    now,
		Reason:      reason,
	}); err != nil {
		e.deps.Log.Error().Err(err).Str("symbol", p.Symbol).Msg("record close failed")
	}
}

type candidate struct {
	sig    signal.Signal
	atrPct float64
	last   float64
}

type scanOutcome struct {
	cand candidate
	err  error
}

// scan fetches candles and funding for the volume-filtered universe in
// parallel, evaluates signals, and returns tradeable candidates ranked
// by flag count, then RSI. All fetches complete before any ranking.
func (e *Engine) scan(ctx context.Context) ([]candidate, int, error) {
	instruments, err := e.deps.Client.ListInstruments(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list instruments: %w", err)
	}
	kept := universe.FilterByVolume(instruments, e.filters)
	sort.Slice(kept, func(i, j int) bool { return kept[i].Volume24h > kept[j].Volume24h })
	if len(kept) > e.maxScan {
		kept = kept[:e.maxScan]
	}

	jobs := make(chan market.Instrument)
	results := make(chan scanOutcome)
	var wg sync.WaitGroup
	workers := e.workers
	if workers > len(kept) {
		workers = len(kept)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for inst := range jobs {
				results <- e.evaluate(ctx, inst)
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, inst := range kept {
			select {
			case jobs <- inst:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	var candidates []candidate
	var authErr error
	for out := range results {
		if out.err != nil {
			if exchange.IsAuth(out.err) && authErr == nil {
				authErr = out.err
			}
			continue
		}
		if out.cand.sig.Tradeable(e.cfg.Trading.MinSignals) {
			candidates = append(candidates, out.cand)
		}
	}
	if authErr != nil {
		return nil, len(kept), authErr
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].sig.Count != candidates[j].sig.Count {
			return candidates[i].sig.Count > candidates[j].sig.Count
		}
		return candidates[i].sig.RSI > candidates[j].sig.RSI
	})
	return candidates, len(kept), nil
}

// evaluate runs the full per-instrument pipeline: candles, volatility
// filter, funding, signal.
func (e *Engine) evaluate(ctx context.Context, inst market.Instrument) scanOutcome {
	series, err := e.deps.Client.FetchCandles(ctx, inst.Symbol, e.cfg.Trading.Timeframe, candleLimit)
	if err != nil {
		metrics.ScanErrorsTotal.WithLabelValues("fetch").Inc()
		return scanOutcome{err: err}
	}
	if err := series.Validate(); err != nil {
		metrics.ScanErrorsTotal.WithLabelValues("bad_series").Inc()
		e.deps.Log.Debug().Err(err).Str("symbol", inst.Symbol).Msg("series rejected")
		return scanOutcome{err: err}
	}

	atrPct, err := indicator.ATRPct(series.Candles, e.params.RSIPeriod)
	if err != nil {
		metrics.ScanErrorsTotal.WithLabelValues("insufficient_data").Inc()
		return scanOutcome{err: err}
	}
	if !e.filters.KeepVolatility(atrPct) {
		return scanOutcome{err: fmt.Errorf("%s: atr %.2f%% above ceiling", inst.Symbol, atrPct)}
	}

	funding, fundingKnown := 0.0, true
	if funding, err = e.deps.Client.FetchFundingRate(ctx, inst.Symbol); err != nil {
		if exchange.IsAuth(err) {
			return scanOutcome{err: err}
		}
		// Funding stays unknown; the signal engine evaluates three flags.
		fundingKnown = false
		funding = 0
	}

	sig, err := signal.Evaluate(e.params, series, funding, fundingKnown)
	if err != nil {
		metrics.ScanErrorsTotal.WithLabelValues("insufficient_data").Inc()
		return scanOutcome{err: err}
	}
	return scanOutcome{cand: candidate{sig: sig, atrPct: atrPct, last: series.LastClose()}}
}

// open places one short and registers the resulting position.
func (e *Engine) open(ctx context.Context, cand candidate, balance float64, now time.Time, log zerolog.Logger) error {
	symbol := cand.sig.Symbol

	entry := cand.last
	if tk, err := e.deps.Client.FetchTicker(ctx, symbol); err == nil {
		entry = tk.Last
	}

	plan, err := e.planner.Plan(balance, entry, cand.atrPct)
	if err != nil {
		return fmt.Errorf("size %s: %w", symbol, err)
	}

	orderID, err := e.deps.Client.OpenShort(ctx, exchange.OrderRequest{
		Symbol:          symbol,
		Size:            plan.Size,
		Leverage:        plan.Leverage,
		StopPrice:       plan.StopPrice,
		TakeProfitPrice: plan.TakeProfitPrice,
	})
	if err != nil {
		return fmt.Errorf("open short %s: %w", symbol, err)
	}

	p := position.New(symbol, entry, plan.Size, plan.Leverage, plan.StopPrice, plan.TakeProfitPrice, now)
	position.MarkOpen(&p)
	e.snap.Positions = append(e.snap.Positions, p)

	log.Info().Str("symbol", symbol).
		Str("orderId", orderID).
		Strs("flags", cand.sig.Flags()).
		Float64("entry", entry).
		Float64("size", plan.Size).
		Float64("stop", plan.StopPrice).
		Float64("takeProfit", plan.TakeProfitPrice).
		Msg("short opened")

	if err := e.deps.Recorder.RecordOpen(&recorder.TradeOpen{
		Symbol:          symbol,
		OrderID:         orderID,
		EntryPrice:      entry,
		Size:            plan.Size,
		Leverage:        plan.Leverage,
		StopPrice:       plan.StopPrice,
		TakeProfitPrice: plan.TakeProfitPrice,
		SignalCount:     cand.sig.Count,
		RSI:             cand.sig.RSI,
		OpenedAt:        now,
	}); err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("record open failed")
	}
	return nil
}

func (e *Engine) streamSymbols() []string {
	out := make([]string, 0, len(e.snap.Positions)+1)
	for _, p := range e.snap.Positions {
		out = append(out, p.Symbol)
	}
	out = append(out, btcSymbol)
	return out
}

// cronLogger adapts zerolog to the cron logging interface; the only
// interesting message is the still-running delay warning.
type cronLogger struct{ log zerolog.Logger }

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.log.Debug().Fields(kv).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.log.Error().Err(err).Fields(kv).Msg(msg)
}
