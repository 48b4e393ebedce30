// Package indicator provides pure technical-indicator math over candle data.
package indicator

import (
	"errors"

	"github.com/odiszapc/bitget-bot/internal/market"
)

// ErrInsufficientData is returned when a series is too short for the
// requested period. Callers must treat it as "no signal", never as zero.
var ErrInsufficientData = errors.New("insufficient data for indicator")

// RSI computes the Wilder-smoothed Relative Strength Index over the full
// series and returns the latest value. Requires at least period+1 closes.
func RSI(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(closes) < period+1 {
		return 0, ErrInsufficientData
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100.0, nil
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs), nil
}

// EMA computes an exponential moving average seeded with the SMA of the
// first period values. The result has len(values)-period+1 entries; entry
// zero corresponds to input index period-1.
func EMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	if len(values) < period {
		return nil, ErrInsufficientData
	}

	out := make([]float64, 0, len(values)-period+1)
	var seed float64
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	seed /= float64(period)
	out = append(out, seed)

	k := 2.0 / (float64(period) + 1.0)
	prev := seed
	for i := period; i < len(values); i++ {
		prev = (values[i]-prev)*k + prev
		out = append(out, prev)
	}
	return out, nil
}

// MACD computes the MACD line (fast EMA minus slow EMA) and its signal
// line. Both returned series are aligned to each other with the signal
// line starting signalPeriod-1 entries into the MACD line; the tails of
// the two slices refer to the same candle.
func MACD(closes []float64, fastPeriod, slowPeriod, signalPeriod int) (macd, signal []float64, err error) {
	if fastPeriod >= slowPeriod {
		return nil, nil, errors.New("fast period must be shorter than slow period")
	}
	if len(closes) < slowPeriod+signalPeriod {
		return nil, nil, ErrInsufficientData
	}

	fast, err := EMA(closes, fastPeriod)
	if err != nil {
		return nil, nil, err
	}
	slow, err := EMA(closes, slowPeriod)
	if err != nil {
		return nil, nil, err
	}

	// Align the fast series to the slow one; both tails end on the last close.
	offset := len(fast) - len(slow)
	line := make([]float64, len(slow))
	for i := range slow {
		line[i] = fast[i+offset] - slow[i]
	}

	signal, err = EMA(line, signalPeriod)
	if err != nil {
		return nil, nil, err
	}
	macd = line[len(line)-len(signal):]
	return macd, signal, nil
}

// ATRPct computes the Wilder-smoothed Average True Range over the series
// and returns it as a percentage of the latest close. Requires period+1
// candles (the first true range needs a prior close).
func ATRPct(candles []market.Candle, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(candles) < period+1 {
		return 0, ErrInsufficientData
	}

	trueRange := func(c, prev market.Candle) float64 {
		tr := c.High - c.Low
		if hc := abs(c.High - prev.Close); hc > tr {
			tr = hc
		}
		if lc := abs(c.Low - prev.Close); lc > tr {
			tr = lc
		}
		return tr
	}

	var atr float64
	for i := 1; i <= period; i++ {
		atr += trueRange(candles[i], candles[i-1])
	}
	atr /= float64(period)

	for i := period + 1; i < len(candles); i++ {
		atr = (atr*float64(period-1) + trueRange(candles[i], candles[i-1])) / float64(period)
	}

	last := candles[len(candles)-1].Close
	if last <= 0 {
		return 0, errors.New("non-positive last close")
	}
	return atr / last * 100.0, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
