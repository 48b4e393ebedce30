package market

import (
	"errors"
	"testing"
	"time"
)

func mkSeries(interval time.Duration, offsets ...time.Duration) Series {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]Candle, len(offsets))
	for i, off := range offsets {
		candles[i] = Candle{Ts: base.Add(off), Open: 1, High: 1, Low: 1, Close: 1, Volume: 1}
	}
	return Series{Symbol: "TESTUSDT", Interval: interval, Candles: candles}
}

func TestValidateOrdered(t *testing.T) {
	s := mkSeries(15*time.Minute, 0, 15*time.Minute, 30*time.Minute)
	if err := s.Validate(); err != nil {
		t.Fatalf("expected valid series, got %v", err)
	}
}

func TestValidateRejectsDuplicateTimestamp(t *testing.T) {
	s := mkSeries(15*time.Minute, 0, 15*time.Minute, 15*time.Minute)
	err := s.Validate()
	if !errors.Is(err, ErrUnordered) {
		t.Fatalf("expected ErrUnordered, got %v", err)
	}
}

func TestValidateRejectsGap(t *testing.T) {
	s := mkSeries(15*time.Minute, 0, 15*time.Minute, 60*time.Minute)
	err := s.Validate()
	if !errors.Is(err, ErrGap) {
		t.Fatalf("expected ErrGap, got %v", err)
	}
}

func TestClosesAndLastClose(t *testing.T) {
	s := mkSeries(time.Minute, 0, time.Minute)
	s.Candles[0].Close = 10
	s.Candles[1].Close = 11
	closes := s.Closes()
	if len(closes) != 2 || closes[0] != 10 || closes[1] != 11 {
		t.Fatalf("unexpected closes: %v", closes)
	}
	if s.LastClose() != 11 {
		t.Fatalf("unexpected last close: %.2f", s.LastClose())
	}
	if (Series{}).LastClose() != 0 {
		t.Fatalf("expected zero last close for empty series")
	}
}
