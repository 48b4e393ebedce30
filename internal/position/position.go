// Package position owns the lifecycle of open shorts, including the trailing-stop controller.
package position

import "time"

// Status is the lifecycle state of a position.
type Status string

const (
	StatusOpening Status = "opening"
	StatusOpen    Status = "open"
	StatusClosing Status = "closing"
	StatusClosed  Status = "closed"
)

// TrailingStage tracks how far the trailing-stop controller has ratcheted.
type TrailingStage string

const (
	StageNone      TrailingStage = "none"
	StageBreakeven TrailingStage = "breakeven"
	StagePlus2     TrailingStage = "plus2"
)

// Position is the persisted unit of risk. Entry price, size, and targets
// are fixed at entry and never recomputed from later balances or ATR.
type Position struct {
	Symbol          string        `json:"symbol"`
	EntryPrice      float64       `json:"entryPrice"`
	Size            float64       `json:"size"` // base units
	Leverage        float64       `json:"leverage"`
	OpenedAt        time.Time     `json:"openedAt"`
	StopPrice       float64       `json:"stopPrice"`
	TakeProfitPrice float64       `json:"takeProfitPrice"`
	TrailingStage   TrailingStage `json:"trailingStage"`
	Status          Status        `json:"status"`
}

// New creates a freshly planned short awaiting its exchange fill.
func New(symbol string, entry, size, leverage, stop, takeProfit float64, now time.Time) Position {
	return Position{
		Symbol:          symbol,
		EntryPrice:      entry,
		Size:            size,
		Leverage:        leverage,
		OpenedAt:        now,
		StopPrice:       stop,
		TakeProfitPrice: takeProfit,
		TrailingStage:   StageNone,
		Status:          StatusOpening,
	}
}

// Live reports whether the position still counts against max_positions
// and the one-per-symbol rule.
func (p Position) Live() bool {
	return p.Status == StatusOpening || p.Status == StatusOpen || p.Status == StatusClosing
}

// UnrealizedPct returns the price-move profit of a short at the given
// mark price, in percent. Positive when the price has fallen.
func (p Position) UnrealizedPct(markPrice float64) float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	return (p.EntryPrice - markPrice) / p.EntryPrice * 100
}
