package threshold

import (
	"math"
	"testing"
)

func TestDefaultGrid(t *testing.T) {
	grid := DefaultGrid()
	want := []float64{0.3, 0.35, 0.4, 0.45, 0.5, 0.55, 0.6, 0.65, 0.7}
	if len(grid) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(grid))
	}
	for i := range want {
		if grid[i] != want[i] {
			t.Fatalf("grid[%d]: expected %.2f, got %v", i, want[i], grid[i])
		}
	}
}

func TestEvaluateWorkedScenario(t *testing.T) {
	probs := []float64{0.9, 0.4, 0.6, 0.3, 0.7}
	rets := []float64{0.01, -0.02, 0.03, -0.01, 0.02}
	res := Evaluate(0.5, probs, rets)

	if res.Trades != 3 {
		t.Fatalf("expected 3 trades, got %d", res.Trades)
	}
	want := (1.01*1.03*1.02 - 1) * 100
	if math.Abs(res.TotalReturnPct-want) > 1e-9 {
		t.Fatalf("expected total return %.6f, got %.6f", want, res.TotalReturnPct)
	}
	if res.WinRatePct != 100 {
		t.Fatalf("expected 100%% win rate, got %.2f", res.WinRatePct)
	}

	strategy := []float64{0.01, 0, 0.03, 0, 0.02}
	mean := 0.012
	var ss float64
	for _, v := range strategy {
		ss += (v - mean) * (v - mean)
	}
	wantSharpe := mean / math.Sqrt(ss/5) * math.Sqrt(252)
	if math.Abs(res.Sharpe-wantSharpe) > 1e-9 {
		t.Fatalf("expected sharpe %.6f, got %.6f", wantSharpe, res.Sharpe)
	}
}

func TestEvaluateNoTrades(t *testing.T) {
	res := Evaluate(0.95, []float64{0.2, 0.9}, []float64{0.01, 0.02})
	if res.Trades != 0 || res.WinRatePct != 0 || res.Sharpe != 0 || res.TotalReturnPct != 0 {
		t.Fatalf("expected zeroed result, got %+v", res)
	}
}

func TestEvaluateUsesRecentSuffix(t *testing.T) {
	// the oldest probability has no matching return and is dropped
	res := Evaluate(0.5, []float64{0.9, 0.2, 0.8}, []float64{-0.01, 0.03})
	if res.Trades != 1 {
		t.Fatalf("expected 1 trade, got %d", res.Trades)
	}
	if math.Abs(res.TotalReturnPct-3) > 1e-9 || res.WinRatePct != 100 {
		t.Fatalf("expected +3%% at 100%% wins, got %.4f / %.1f", res.TotalReturnPct, res.WinRatePct)
	}
}

func TestSweepTradesNonIncreasing(t *testing.T) {
	probs := []float64{0.31, 0.42, 0.55, 0.61, 0.38, 0.72, 0.49, 0.66, 0.58, 0.33}
	rets := []float64{0.01, -0.01, 0.02, 0.005, -0.02, 0.015, 0.0, -0.004, 0.007, 0.002}
	report := NewOptimizer(nil).Sweep(probs, rets)
	if len(report.Results) != 9 {
		t.Fatalf("expected 9 rows, got %d", len(report.Results))
	}
	for i := 1; i < len(report.Results); i++ {
		if report.Results[i].Trades > report.Results[i-1].Trades {
			t.Fatalf("trades increased from %.2f to %.2f", report.Results[i-1].Threshold, report.Results[i].Threshold)
		}
	}
}

func TestSweepBestPicksFirstMaximum(t *testing.T) {
	// every threshold below 0.6 trades the same rows, so ties resolve to 0.30
	probs := []float64{0.8, 0.1, 0.9}
	rets := []float64{0.02, -0.05, 0.01}
	report := NewOptimizer([]float64{0.3, 0.4, 0.85}).Sweep(probs, rets)
	if report.BestByReturn.Threshold != 0.3 {
		t.Fatalf("expected best by return at 0.30, got %.2f", report.BestByReturn.Threshold)
	}
	if report.BestBySharpe.Threshold != 0.3 {
		t.Fatalf("expected best by sharpe at 0.30, got %.2f", report.BestBySharpe.Threshold)
	}
}

func TestSweepTruncatesToRecent(t *testing.T) {
	report := NewOptimizer([]float64{0.5}).Sweep([]float64{0.9, 0.9, 0.9}, []float64{0.01, 0.02})
	if report.Results[0].Trades != 2 {
		t.Fatalf("expected 2 trades after truncation, got %d", report.Results[0].Trades)
	}
}
