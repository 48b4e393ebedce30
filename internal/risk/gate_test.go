package risk

import (
	"strings"
	"testing"
)

func gate() Gatekeeper {
	return Gatekeeper{MaxPositions: 5, MinSignals: 3, BTCBullLimitPct: 5}
}

func passingInput() Input {
	return Input{BTC24hChangePct: 1.2, OpenPositions: 2, SignalCount: 3}
}

func TestCheckAuthorizes(t *testing.T) {
	d := gate().Check(passingInput())
	if !d.Authorized {
		t.Fatalf("expected authorization, got deny: %s", d.Reason)
	}
}

func TestCheckDeniesInOrder(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Input)
		want   string
	}{
		{"halted", func(in *Input) { in.Halted = true }, ReasonDailyHalt},
		{"btc bull", func(in *Input) { in.BTC24hChangePct = 7 }, ReasonBTCBull},
		{"blackout", func(in *Input) { in.InBlackout = true }, ReasonNewsBlackout},
		{"max positions", func(in *Input) { in.OpenPositions = 5 }, ReasonMaxPositions},
		{"weak signal", func(in *Input) { in.SignalCount = 2 }, ReasonWeakSignal},
		{"duplicate", func(in *Input) { in.SymbolHeld = true }, ReasonDuplicate},
	}
	for _, tc := range cases {
		in := passingInput()
		tc.mutate(&in)
		d := gate().Check(in)
		if d.Authorized {
			t.Fatalf("%s: expected deny", tc.name)
		}
		if !strings.Contains(d.Reason, tc.want) {
			t.Fatalf("%s: expected reason %q, got %q", tc.name, tc.want, d.Reason)
		}
	}
}

func TestCheckShortCircuitsOnFirstFailure(t *testing.T) {
	in := passingInput()
	in.Halted = true
	in.SignalCount = 0 // would also fail, but the halt must win
	d := gate().Check(in)
	if d.Reason != ReasonDailyHalt {
		t.Fatalf("expected earliest rule to win, got %q", d.Reason)
	}
}

func TestCheckTwoOfFourSignalsDenied(t *testing.T) {
	// RSI + EMA cross, no MACD cross, small funding: count 2.
	in := passingInput()
	in.SignalCount = 2
	d := gate().Check(in)
	if d.Authorized || !strings.Contains(d.Reason, ReasonWeakSignal) {
		t.Fatalf("expected weak-signal deny, got %+v", d)
	}
}

func TestCheckDeniesAllWhenFull(t *testing.T) {
	// Five positions already open: every candidate is denied regardless of
	// signal strength.
	for count := 3; count <= 4; count++ {
		in := passingInput()
		in.OpenPositions = 5
		in.SignalCount = count
		d := gate().Check(in)
		if d.Authorized || !strings.Contains(d.Reason, ReasonMaxPositions) {
			t.Fatalf("count=%d: expected max-positions deny, got %+v", count, d)
		}
	}
}

func TestCheckBTCAtLimitPasses(t *testing.T) {
	in := passingInput()
	in.BTC24hChangePct = 5
	if d := gate().Check(in); !d.Authorized {
		t.Fatalf("change at the limit must pass, got deny: %s", d.Reason)
	}
}
