// Package risk holds the pre-trade gatekeeper and the position sizing planner.
// The gatekeeper is the single authority that may authorize a new entry.
package risk

import "fmt"

// Deny reasons, one per checklist item.
const (
	ReasonDailyHalt    = "daily loss limit reached"
	ReasonBTCBull      = "btc bull market"
	ReasonNewsBlackout = "news blackout window"
	ReasonMaxPositions = "max positions reached"
	ReasonWeakSignal   = "signal below minimum"
	ReasonDuplicate    = "position already held for symbol"
)

// Gatekeeper evaluates the ordered pre-trade checklist.
type Gatekeeper struct {
	MaxPositions    int
	MinSignals      int
	BTCBullLimitPct float64
}

// Input carries everything one authorization decision needs. All fields
// are plain values so the check stays a pure function.
type Input struct {
	Halted          bool
	BTC24hChangePct float64
	InBlackout      bool
	OpenPositions   int
	SignalCount     int
	SymbolHeld      bool
}

// Decision is the gatekeeper verdict for one symbol this cycle.
type Decision struct {
	Authorized bool
	Reason     string
}

// Check runs the checklist in fixed order and short-circuits on the
// first failure, so a deny always names the earliest broken rule.
func (g Gatekeeper) Check(in Input) Decision {
	switch {
	case in.Halted:
		return deny(ReasonDailyHalt)
	case in.BTC24hChangePct > g.BTCBullLimitPct:
		return deny(fmt.Sprintf("%s: +%.2f%% (limit +%.2f%%)", ReasonBTCBull, in.BTC24hChangePct, g.BTCBullLimitPct))
	case in.InBlackout:
		return deny(ReasonNewsBlackout)
	case in.OpenPositions >= g.MaxPositions:
		return deny(fmt.Sprintf("%s: %d/%d", ReasonMaxPositions, in.OpenPositions, g.MaxPositions))
	case in.SignalCount < g.MinSignals:
		return deny(fmt.Sprintf("%s: %d/%d", ReasonWeakSignal, in.SignalCount, g.MinSignals))
	case in.SymbolHeld:
		return deny(ReasonDuplicate)
	}
	return Decision{Authorized: true}
}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}
