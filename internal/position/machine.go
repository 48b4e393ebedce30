package position

// Controller drives per-cycle position transitions. The orchestrator is
// the only caller; transitions never originate from external callbacks.
type Controller struct {
	StartPct    float64 // profit that moves the stop to breakeven
	LockPct     float64 // profit that locks DistancePct of gain
	DistancePct float64 // trailing distance behind the best price
}

// MarkOpen records a confirmed exchange fill.
func MarkOpen(p *Position) {
	if p.Status == StatusOpening {
		p.Status = StatusOpen
	}
}

// MarkClosing records a stop/take-profit trigger or a manual close request.
func MarkClosing(p *Position) {
	if p.Status == StatusOpen {
		p.Status = StatusClosing
	}
}

// MarkClosed records the exchange-confirmed close. The caller moves the
// position to history afterwards.
func MarkClosed(p *Position) {
	p.Status = StatusClosed
}

// Advance runs at most one trailing transition for the cycle and returns
// the updated stop price when it changed. The stop only ever tightens:
// for a short it is monotonically non-increasing once trailing begins.
func (c Controller) Advance(p *Position, markPrice float64) (newStop float64, updated bool) {
	if p.Status != StatusOpen || markPrice <= 0 {
		return 0, false
	}
	profit := p.UnrealizedPct(markPrice)

	switch p.TrailingStage {
	case StageNone:
		if profit >= c.StartPct {
			p.TrailingStage = StageBreakeven
			// A zero stop means none is on record (adopted position).
			if p.StopPrice == 0 || p.EntryPrice < p.StopPrice {
				p.StopPrice = p.EntryPrice
				return p.StopPrice, true
			}
		}
	case StageBreakeven:
		if profit >= c.LockPct {
			p.TrailingStage = StagePlus2
			locked := p.EntryPrice * (1 - c.DistancePct/100)
			if p.StopPrice == 0 || locked < p.StopPrice {
				p.StopPrice = locked
				return p.StopPrice, true
			}
		}
	case StagePlus2:
		trailed := markPrice * (1 + c.DistancePct/100)
		if p.StopPrice == 0 || trailed < p.StopPrice {
			p.StopPrice = trailed
			return p.StopPrice, true
		}
	}
	return 0, false
}

// StageForProfit recomputes the trailing stage from current profit alone.
// Recovery uses it instead of trusting a stale persisted stage.
func (c Controller) StageForProfit(profitPct float64) TrailingStage {
	switch {
	case profitPct >= c.LockPct:
		return StagePlus2
	case profitPct >= c.StartPct:
		return StageBreakeven
	default:
		return StageNone
	}
}
