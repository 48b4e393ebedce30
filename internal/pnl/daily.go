// Package pnl tracks realized and unrealized profit since the last UTC midnight.
package pnl

import "time"

const dayLayout = "2006-01-02"

// Daily is the process-wide daily P&L accumulator. It is an explicit
// context object carried through each cycle, serialized in the snapshot,
// never a package-level global.
type Daily struct {
	AccumulatedPct float64 `json:"accumulatedPct"`
	DayStart       string  `json:"dayStart"` // UTC calendar date
	Halted         bool    `json:"halted"`
}

// NewDaily starts a fresh accumulator anchored at the given instant's UTC date.
func NewDaily(now time.Time) Daily {
	return Daily{DayStart: now.UTC().Format(dayLayout)}
}

// Roll resets the accumulator when the UTC calendar date has advanced
// past DayStart. The halt flag clears only here, never on P&L recovery.
func (d *Daily) Roll(now time.Time) bool {
	today := now.UTC().Format(dayLayout)
	if d.DayStart == today {
		return false
	}
	d.DayStart = today
	d.AccumulatedPct = 0
	d.Halted = false
	return true
}

// AddRealized books the realized P&L of a closed position, as a
// percentage of the day's starting balance.
func (d *Daily) AddRealized(pct float64) {
	d.AccumulatedPct += pct
}

// CheckHalt evaluates the loss limit against realized plus unrealized
// P&L. Once tripped, Halted stays true until the next UTC midnight reset
// regardless of later recovery.
func (d *Daily) CheckHalt(unrealizedPct, lossLimitPct float64) bool {
	if d.AccumulatedPct+unrealizedPct <= -lossLimitPct {
		d.Halted = true
	}
	return d.Halted
}
