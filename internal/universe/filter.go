// Package universe narrows the full instrument list to a liquid, tradeable candidate pool.
package universe

import "github.com/odiszapc/bitget-bot/internal/market"

// Thresholds are the per-cycle filter limits.
type Thresholds struct {
	MinVolumeUSD float64
	MaxATRPct    float64
}

// KeepVolume reports whether an instrument clears the 24h volume floor.
func (t Thresholds) KeepVolume(inst market.Instrument) bool {
	return inst.Volume24h >= t.MinVolumeUSD
}

// KeepVolatility reports whether an instrument's ATR percentage is inside
// the acceptable band. Extreme volatility is excluded for this cycle only.
func (t Thresholds) KeepVolatility(atrPct float64) bool {
	return atrPct <= t.MaxATRPct
}

// FilterByVolume applies the volume rule to the full instrument list.
// The ATR rule runs later, once candle data has been fetched.
func FilterByVolume(instruments []market.Instrument, t Thresholds) []market.Instrument {
	out := make([]market.Instrument, 0, len(instruments))
	for _, inst := range instruments {
		if t.KeepVolume(inst) {
			out = append(out, inst)
		}
	}
	return out
}
