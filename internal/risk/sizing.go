package risk

import "errors"

// Planner converts an authorized signal into concrete order parameters.
// Everything it produces is computed once at entry and stored on the
// position; neither balance nor ATR is consulted again afterwards.
type Planner struct {
	MaxPositions int
	Leverage     float64
	MinStopPct   float64
	MinTPPct     float64
}

// Plan is the full set of order parameters for one short entry.
type Plan struct {
	Margin          float64 // quote currency committed
	Size            float64 // base units
	Leverage        float64
	StopPct         float64
	TakeProfitPct   float64
	StopPrice       float64
	TakeProfitPrice float64
}

// Plan sizes the position from the current balance and derives SL/TP
// from the hybrid ATR rule: stop = max(min_stop, 1.5×ATR%),
// take-profit = max(min_tp, 2.5×ATR%). For a short the stop sits above
// entry and the take-profit below.
func (p Planner) Plan(balance, entryPrice, atrPct float64) (Plan, error) {
	if balance <= 0 {
		return Plan{}, errors.New("non-positive balance")
	}
	if entryPrice <= 0 {
		return Plan{}, errors.New("non-positive entry price")
	}
	if p.MaxPositions < 1 {
		return Plan{}, errors.New("max positions must be at least 1")
	}

	margin := balance / float64(p.MaxPositions)
	notional := margin * p.Leverage

	stopPct := p.MinStopPct
	if v := 1.5 * atrPct; v > stopPct {
		stopPct = v
	}
	tpPct := p.MinTPPct
	if v := 2.5 * atrPct; v > tpPct {
		tpPct = v
	}

	return Plan{
		Margin:          margin,
		Size:            notional / entryPrice,
		Leverage:        p.Leverage,
		StopPct:         stopPct,
		TakeProfitPct:   tpPct,
		StopPrice:       entryPrice * (1 + stopPct/100),
		TakeProfitPrice: entryPrice * (1 - tpPct/100),
	}, nil
}
