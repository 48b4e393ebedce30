package signal

import (
	"errors"
	"testing"
	"time"

	"github.com/odiszapc/bitget-bot/internal/indicator"
	"github.com/odiszapc/bitget-bot/internal/market"
)

func seriesFromCloses(closes []float64) market.Series {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]market.Candle, len(closes))
	for i, c := range closes {
		candles[i] = market.Candle{
			Ts: base.Add(time.Duration(i) * 15 * time.Minute),
			Open: c, High: c, Low: c, Close: c, Volume: 1000,
		}
	}
	return market.Series{Symbol: "TESTUSDT", Interval: 15 * time.Minute, Candles: candles}
}

func TestCrossedBelow(t *testing.T) {
	cases := []struct {
		name string
		a, b []float64
		want bool
	}{
		{"fresh cross", []float64{2, 0.5}, []float64{1, 1}, true},
		{"already below", []float64{0.5, 0.4}, []float64{1, 1}, false},
		{"touch from above", []float64{2, 1}, []float64{1, 1}, false},
		{"flat on flat", []float64{1, 1}, []float64{1, 1}, false},
		{"cross upward", []float64{0.5, 2}, []float64{1, 1}, false},
		{"too short", []float64{1}, []float64{1, 1}, false},
	}
	for _, tc := range cases {
		if got := crossedBelow(tc.a, tc.b); got != tc.want {
			t.Fatalf("%s: crossedBelow=%v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestEvaluateFlatSeriesNoCross(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 100
	}
	sig, err := Evaluate(DefaultParams(), seriesFromCloses(closes), 0.0005, true)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if sig.EMABearCross || sig.MACDBearCross {
		t.Fatalf("flat line must never report a cross: %+v", sig)
	}
	if !sig.FundingOverloaded {
		t.Fatalf("expected funding flag for 0.05%% rate")
	}
}

func TestEvaluateDowntrendNotOverbought(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 200 - float64(i)
	}
	sig, err := Evaluate(DefaultParams(), seriesFromCloses(closes), 0, true)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if sig.RSIOverbought {
		t.Fatalf("downtrend flagged overbought, RSI=%.1f", sig.RSI)
	}
	if sig.FundingOverloaded {
		t.Fatalf("zero funding must not flag")
	}
}

func TestEvaluateUnknownFundingStaysDown(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 100 + float64(i%3)
	}
	sig, err := Evaluate(DefaultParams(), seriesFromCloses(closes), 0.01, false)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if sig.FundingOverloaded {
		t.Fatalf("missing funding rate must not raise the flag")
	}
}

func TestEvaluateInsufficientData(t *testing.T) {
	closes := make([]float64, 20) // enough for RSI, too short for MACD
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	_, err := Evaluate(DefaultParams(), seriesFromCloses(closes), 0, true)
	if !errors.Is(err, indicator.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestTradeableAndFlags(t *testing.T) {
	sig := Signal{RSIOverbought: true, EMABearCross: true, FundingOverloaded: true, Count: 3}
	if !sig.Tradeable(3) {
		t.Fatalf("count 3 should be tradeable")
	}
	if sig.Tradeable(4) {
		t.Fatalf("count 3 must not clear a 4-signal minimum")
	}
	flags := sig.Flags()
	if len(flags) != 3 || flags[0] != "RSI" || flags[1] != "EMA_CROSS" || flags[2] != "FUNDING" {
		t.Fatalf("unexpected flags: %v", flags)
	}
}
