// Package signal fuses indicator conditions into a per-candidate short signal.
package signal

import (
	"github.com/odiszapc/bitget-bot/internal/indicator"
	"github.com/odiszapc/bitget-bot/internal/market"
)

// Params groups the indicator periods and thresholds used by evaluation.
type Params struct {
	RSIPeriod        int
	RSIThreshold     float64
	EMAFast          int
	EMASlow          int
	MACDFast         int
	MACDSlow         int
	MACDSignal       int
	FundingThreshold float64 // fraction, 0.0001 == 0.01%
}

// DefaultParams returns the standard indicator settings.
func DefaultParams() Params {
	return Params{
		RSIPeriod:        14,
		RSIThreshold:     70,
		EMAFast:          9,
		EMASlow:          21,
		MACDFast:         12,
		MACDSlow:         26,
		MACDSignal:       9,
		FundingThreshold: 0.0001,
	}
}

// Signal is the four-flag evaluation result for one candidate this cycle.
// Signals are ephemeral; nothing here is ever persisted.
type Signal struct {
	Symbol            string
	RSIOverbought     bool
	EMABearCross      bool
	MACDBearCross     bool
	FundingOverloaded bool
	Count             int
	RSI               float64
}

// Tradeable reports whether the signal clears the minimum flag count.
func (s Signal) Tradeable(minSignals int) bool { return s.Count >= minSignals }

// Flags lists the names of the raised flags, for logging and reports.
func (s Signal) Flags() []string {
	var out []string
	if s.RSIOverbought {
		out = append(out, "RSI")
	}
	if s.EMABearCross {
		out = append(out, "EMA_CROSS")
	}
	if s.MACDBearCross {
		out = append(out, "MACD_CROSS")
	}
	if s.FundingOverloaded {
		out = append(out, "FUNDING")
	}
	return out
}

// Evaluate computes the four short conditions for one candidate. A series
// too short for any indicator yields indicator.ErrInsufficientData, which
// callers must treat as "no signal this cycle" for the instrument.
// fundingKnown is false when the exchange reported no funding rate; the
// funding flag then simply stays down.
func Evaluate(p Params, series market.Series, fundingRate float64, fundingKnown bool) (Signal, error) {
	closes := series.Closes()
	sig := Signal{Symbol: series.Symbol}

	rsi, err := indicator.RSI(closes, p.RSIPeriod)
	if err != nil {
		return Signal{}, err
	}
	sig.RSI = rsi
	sig.RSIOverbought = rsi > p.RSIThreshold

	fast, err := indicator.EMA(closes, p.EMAFast)
	if err != nil {
		return Signal{}, err
	}
	slow, err := indicator.EMA(closes, p.EMASlow)
	if err != nil {
		return Signal{}, err
	}
	sig.EMABearCross = crossedBelow(fast, slow)

	macd, signalLine, err := indicator.MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
	if err != nil {
		return Signal{}, err
	}
	sig.MACDBearCross = crossedBelow(macd, signalLine)

	sig.FundingOverloaded = fundingKnown && fundingRate > p.FundingThreshold

	for _, raised := range []bool{sig.RSIOverbought, sig.EMABearCross, sig.MACDBearCross, sig.FundingOverloaded} {
		if raised {
			sig.Count++
		}
	}
	return sig, nil
}

// crossedBelow reports a bearish crossover on the latest two entries:
// the prior candle strictly above, the current strictly below. Equality
// on either side counts as no cross, so a flat line never oscillates.
// The slices are tail-aligned; lengths may differ.
func crossedBelow(a, b []float64) bool {
	if len(a) < 2 || len(b) < 2 {
		return false
	}
	curA, prevA := a[len(a)-1], a[len(a)-2]
	curB, prevB := b[len(b)-1], b[len(b)-2]
	return prevA > prevB && curA < curB
}
