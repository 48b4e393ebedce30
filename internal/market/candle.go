// Package market holds the data types shared between the exchange layer and the decision engine.
package market

import (
	"errors"
	"fmt"
	"time"
)

// Candle is a single OHLCV bar.
type Candle struct {
	Ts     time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Series is an ordered candle sequence for one symbol and timeframe.
// It is rebuilt from scratch every cycle, never mutated in place.
type Series struct {
	Symbol   string
	Interval time.Duration
	Candles  []Candle
}

var (
	// ErrUnordered reports timestamps that are not strictly increasing.
	ErrUnordered = errors.New("candle timestamps not strictly increasing")
	// ErrGap reports a hole larger than one timeframe interval.
	ErrGap = errors.New("gap in candle series")
)

// Validate checks the series invariants: strictly increasing timestamps
// and no gap wider than one interval. A series that fails validation must
// not be fed to the indicator library.
func (s Series) Validate() error {
	if s.Interval <= 0 {
		return fmt.Errorf("series %s: non-positive interval", s.Symbol)
	}
	for i := 1; i < len(s.Candles); i++ {
		prev, cur := s.Candles[i-1].Ts, s.Candles[i].Ts
		if !cur.After(prev) {
			return fmt.Errorf("series %s at index %d: %w", s.Symbol, i, ErrUnordered)
		}
		if cur.Sub(prev) > s.Interval {
			return fmt.Errorf("series %s at index %d: %w", s.Symbol, i, ErrGap)
		}
	}
	return nil
}

// Len returns the number of candles.
func (s Series) Len() int { return len(s.Candles) }

// Closes extracts the close prices in order.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Close
	}
	return out
}

// LastClose returns the most recent close, or 0 for an empty series.
func (s Series) LastClose() float64 {
	if len(s.Candles) == 0 {
		return 0
	}
	return s.Candles[len(s.Candles)-1].Close
}

// Instrument is one tradeable perpetual contract with its rolling volume.
type Instrument struct {
	Symbol    string
	Volume24h float64 // quote (USDT) volume
}

// Ticker is a point-in-time price observation.
type Ticker struct {
	Symbol    string
	Last      float64
	Change24h float64 // percent
}

// ExchangePosition mirrors the exchange's view of one live position.
type ExchangePosition struct {
	Symbol        string
	Side          string // "short" or "long"
	Size          float64
	EntryPrice    float64
	Leverage      float64
	UnrealizedPnL float64
	StopLoss      float64
	TakeProfit    float64
}
