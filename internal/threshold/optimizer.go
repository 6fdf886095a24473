package threshold

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"stock-oracle/internal/domain"
)

const tradingDaysPerYear = 252

// DefaultGrid is 0.30 through 0.70 in steps of 0.05.
func DefaultGrid() []float64 {
	grid := make([]float64, 0, 9)
	for i := 0; i < 9; i++ {
		grid = append(grid, math.Round((0.30+0.05*float64(i))*100)/100)
	}
	return grid
}

type Optimizer struct {
	grid []float64
}

// NewOptimizer sweeps the given ascending grid, or DefaultGrid when empty.
func NewOptimizer(grid []float64) *Optimizer {
	if len(grid) == 0 {
		grid = DefaultGrid()
	}
	return &Optimizer{grid: append([]float64(nil), grid...)}
}

func (o *Optimizer) Grid() []float64 {
	return append([]float64(nil), o.grid...)
}

// Sweep evaluates every grid threshold over the holdout probabilities and their
// attributed returns. Inputs of different length are cut to the shared most
// recent suffix. Ties for best keep the lowest threshold.
func (o *Optimizer) Sweep(probs, returns []float64) domain.SweepReport {
	n := min(len(probs), len(returns))
	probs = probs[len(probs)-n:]
	returns = returns[len(returns)-n:]

	report := domain.SweepReport{Results: make([]domain.ThresholdSweepResult, 0, len(o.grid))}
	sharpes := make([]float64, 0, len(o.grid))
	totals := make([]float64, 0, len(o.grid))
	for _, t := range o.grid {
		res := Evaluate(t, probs, returns)
		report.Results = append(report.Results, res)
		sharpes = append(sharpes, res.Sharpe)
		totals = append(totals, res.TotalReturnPct)
	}
	if len(report.Results) > 0 {
		report.BestBySharpe = report.Results[floats.MaxIdx(sharpes)]
		report.BestByReturn = report.Results[floats.MaxIdx(totals)]
	}
	return report
}

// Evaluate trades every row whose probability exceeds t. Unequal inputs are cut
// to their most recent common suffix.
func Evaluate(t float64, probs, returns []float64) domain.ThresholdSweepResult {
	res := domain.ThresholdSweepResult{Threshold: t}
	n := min(len(probs), len(returns))
	if n == 0 {
		return res
	}
	probs = probs[len(probs)-n:]
	returns = returns[len(returns)-n:]
	strategy := make([]float64, n)
	growth := make([]float64, n)
	wins := 0
	for i := 0; i < n; i++ {
		if probs[i] > t {
			res.Trades++
			strategy[i] = returns[i]
			if returns[i] > 0 {
				wins++
			}
		}
		growth[i] = 1 + strategy[i]
	}
	res.TotalReturnPct = (floats.Prod(growth) - 1) * 100
	if std := stat.PopStdDev(strategy, nil); std > 0 {
		res.Sharpe = stat.Mean(strategy, nil) / std * math.Sqrt(tradingDaysPerYear)
	}
	if res.Trades > 0 {
		res.WinRatePct = float64(wins) / float64(res.Trades) * 100
	}
	return res
}
