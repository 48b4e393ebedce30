package risk

import (
	"math"
	"testing"
)

func planner() Planner {
	return Planner{MaxPositions: 5, Leverage: 10, MinStopPct: 2, MinTPPct: 5}
}

func TestPlanHighATRUsesATRMultiples(t *testing.T) {
	plan, err := planner().Plan(1000, 100, 10)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if plan.StopPct != 15 {
		t.Fatalf("expected stop pct 15, got %.2f", plan.StopPct)
	}
	if plan.TakeProfitPct != 25 {
		t.Fatalf("expected tp pct 25, got %.2f", plan.TakeProfitPct)
	}
	if math.Abs(plan.StopPrice-115) > 1e-9 {
		t.Fatalf("expected stop price 115, got %.4f", plan.StopPrice)
	}
	if math.Abs(plan.TakeProfitPrice-75) > 1e-9 {
		t.Fatalf("expected tp price 75, got %.4f", plan.TakeProfitPrice)
	}
}

func TestPlanLowATRUsesFloors(t *testing.T) {
	plan, err := planner().Plan(1000, 100, 1)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if plan.StopPct != 2 {
		t.Fatalf("expected stop pct floor 2, got %.2f", plan.StopPct)
	}
	if plan.TakeProfitPct != 5 {
		t.Fatalf("expected tp pct floor 5, got %.2f", plan.TakeProfitPct)
	}
}

func TestPlanSizing(t *testing.T) {
	plan, err := planner().Plan(1000, 50, 1)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if math.Abs(plan.Margin-200) > 1e-9 {
		t.Fatalf("expected margin 200, got %.4f", plan.Margin)
	}
	// 200 margin at 10x is 2000 notional, 40 base units at price 50.
	if math.Abs(plan.Size-40) > 1e-9 {
		t.Fatalf("expected size 40, got %.4f", plan.Size)
	}
	if plan.Leverage != 10 {
		t.Fatalf("expected leverage carried onto plan, got %.1f", plan.Leverage)
	}
}

func TestPlanRejectsBadInputs(t *testing.T) {
	if _, err := planner().Plan(0, 100, 5); err == nil {
		t.Fatalf("expected error for zero balance")
	}
	if _, err := planner().Plan(1000, 0, 5); err == nil {
		t.Fatalf("expected error for zero entry price")
	}
}
