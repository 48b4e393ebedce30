package state

import (
	"math"
	"sort"
	"time"

	"github.com/odiszapc/bitget-bot/internal/market"
	"github.com/odiszapc/bitget-bot/internal/position"
)

const sizeEpsilon = 1e-9

// Conflict records an irreconcilable disagreement between the snapshot
// and the exchange. The exchange value wins for trading decisions; the
// conflict is surfaced to the operator, never silently corrected.
type Conflict struct {
	Symbol   string
	Field    string
	Snapshot float64
	Exchange float64
}

// ReconcileResult is the outcome of one reconciliation pass.
type ReconcileResult struct {
	Positions []position.Position // the live set going forward
	Closed    []position.Position // closed while the bot was down
	Adopted   []string            // symbols found on the exchange only
	Conflicts []Conflict
}

// Reconcile merges the persisted position set with the exchange's
// authoritative live list. It is a pure function of its inputs and is
// idempotent: applying it twice to the same pair yields the same set.
//
//   - snapshot ∩ exchange: keep, trust the exchange's entry/size, and
//     recompute the trailing stage from current profit instead of the
//     persisted stage.
//   - snapshot only: the position closed while the bot was down; mark
//     closed, never resubmit orders for it.
//   - exchange only: adopt as open with a fresh trailing stage.
//
// marks supplies the freshest known price per symbol; a missing mark
// leaves the recomputed stage at none, which the controller re-ratchets
// on the next cycle.
func Reconcile(snap []position.Position, exch []market.ExchangePosition, ctrl position.Controller, marks map[string]float64, now time.Time) ReconcileResult {
	live := make(map[string]market.ExchangePosition, len(exch))
	for _, ep := range exch {
		if ep.Side == "short" && ep.Size > sizeEpsilon {
			live[ep.Symbol] = ep
		}
	}

	var res ReconcileResult
	tracked := make(map[string]bool, len(snap))

	for _, p := range snap {
		if !p.Live() {
			continue
		}
		tracked[p.Symbol] = true
		ep, onExchange := live[p.Symbol]
		if !onExchange {
			position.MarkClosed(&p)
			res.Closed = append(res.Closed, p)
			continue
		}

		if math.Abs(p.Size-ep.Size) > sizeEpsilon*math.Max(1, p.Size) {
			res.Conflicts = append(res.Conflicts, Conflict{Symbol: p.Symbol, Field: "size", Snapshot: p.Size, Exchange: ep.Size})
			p.Size = ep.Size
		}
		if ep.EntryPrice > 0 && math.Abs(p.EntryPrice-ep.EntryPrice) > sizeEpsilon*ep.EntryPrice {
			res.Conflicts = append(res.Conflicts, Conflict{Symbol: p.Symbol, Field: "entryPrice", Snapshot: p.EntryPrice, Exchange: ep.EntryPrice})
			p.EntryPrice = ep.EntryPrice
		}
		if ep.Leverage > 0 {
			p.Leverage = ep.Leverage
		}

		// Present on the exchange means the entry order filled.
		position.MarkOpen(&p)

		p.TrailingStage = position.StageNone
		if mark, ok := marks[p.Symbol]; ok && mark > 0 {
			p.TrailingStage = ctrl.StageForProfit(p.UnrealizedPct(mark))
		}
		if p.StopPrice == 0 && ep.StopLoss > 0 {
			p.StopPrice = ep.StopLoss
		}
		if p.TakeProfitPrice == 0 && ep.TakeProfit > 0 {
			p.TakeProfitPrice = ep.TakeProfit
		}
		res.Positions = append(res.Positions, p)
	}

	// Externally opened or desynced shorts: adopt with best-effort data.
	for _, ep := range exch {
		if ep.Side != "short" || ep.Size <= sizeEpsilon || tracked[ep.Symbol] {
			continue
		}
		adopted := position.New(ep.Symbol, ep.EntryPrice, ep.Size, ep.Leverage, ep.StopLoss, ep.TakeProfit, now)
		position.MarkOpen(&adopted)
		res.Positions = append(res.Positions, adopted)
		res.Adopted = append(res.Adopted, ep.Symbol)
	}

	sort.Slice(res.Positions, func(i, j int) bool { return res.Positions[i].Symbol < res.Positions[j].Symbol })
	sort.Slice(res.Closed, func(i, j int) bool { return res.Closed[i].Symbol < res.Closed[j].Symbol })
	sort.Strings(res.Adopted)
	return res
}
