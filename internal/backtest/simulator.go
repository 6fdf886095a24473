package backtest

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"stock-oracle/internal/domain"
	"stock-oracle/internal/ml/features"
)

const (
	ReliabilityWindow = 30
	DecisionThreshold = 0.5
)

// Result holds the full holdout series and the reliability summary of its tail.
type Result struct {
	Series      []domain.BacktestPoint
	Reliability domain.ReliabilityReport
}

// Window returns the last floor(fraction*n) labeled rows of the table, the holdout
// as the reporting layer sizes it.
func Window(rows []domain.FeatureRow, fraction float64) []domain.FeatureRow {
	labeled := features.Labeled(rows)
	size := int(fraction * float64(len(labeled)))
	if size <= 0 {
		return nil
	}
	return labeled[len(labeled)-size:]
}

// Align repairs a length mismatch between holdout rows and prediction records by
// keeping the most recent entries of both, then pairs them by calendar date.
func Align(rows []domain.FeatureRow, records []domain.PredictionRecord) ([]domain.FeatureRow, []domain.PredictionRecord) {
	m := min(len(rows), len(records))
	rows = rows[len(rows)-m:]
	records = records[len(records)-m:]

	byDate := make(map[string]domain.PredictionRecord, m)
	for _, rec := range records {
		byDate[domain.DateKey(rec.Date)] = rec
	}
	outRows := make([]domain.FeatureRow, 0, m)
	outRecs := make([]domain.PredictionRecord, 0, m)
	for _, r := range rows {
		rec, ok := byDate[domain.DateKey(r.Date)]
		if !ok {
			continue
		}
		outRows = append(outRows, r)
		outRecs = append(outRecs, rec)
	}
	return outRows, outRecs
}

// Successor returns the table row that follows last by position, or nil when last
// is the final row or is not in the table.
func Successor(table []domain.FeatureRow, last domain.FeatureRow) *domain.FeatureRow {
	key := domain.DateKey(last.Date)
	for i := len(table) - 1; i >= 0; i-- {
		if domain.DateKey(table[i].Date) != key {
			continue
		}
		if i+1 < len(table) {
			return &table[i+1]
		}
		return nil
	}
	return nil
}

// AttributedReturns assigns each row the daily return of its successor, the move
// its signal trades. The last row takes next's return, or 0 when next is nil.
func AttributedReturns(rows []domain.FeatureRow, next *domain.FeatureRow) []float64 {
	out := make([]float64, len(rows))
	for i := 0; i+1 < len(rows); i++ {
		out[i] = rows[i+1].DailyReturn
	}
	if len(rows) > 0 && next != nil {
		out[len(rows)-1] = next.DailyReturn
	}
	return out
}

// Simulate expects rows and records already aligned. next is the row after the
// last holdout row, nil when there is none.
func Simulate(rows []domain.FeatureRow, records []domain.PredictionRecord, next *domain.FeatureRow) Result {
	returns := AttributedReturns(rows, next)
	series := make([]domain.BacktestPoint, len(records))
	for i, rec := range records {
		series[i] = domain.BacktestPoint{Date: rec.Date, Prob: rec.Prob, MarketReturn: returns[i]}
	}
	return Result{
		Series:      series,
		Reliability: Reliability(records, returns, ReliabilityWindow),
	}
}

// Reliability trades the last window records at the decision threshold.
func Reliability(records []domain.PredictionRecord, returns []float64, window int) domain.ReliabilityReport {
	n := min(len(records), len(returns))
	records = records[len(records)-n:]
	returns = returns[len(returns)-n:]
	if window > 0 && n > window {
		records = records[n-window:]
		returns = returns[n-window:]
		n = window
	}
	report := domain.ReliabilityReport{History: make([]domain.TradeLogEntry, n)}
	if n == 0 {
		return report
	}

	strategy := make([]float64, n)
	growth := make([]float64, n)
	correct := 0
	for i, rec := range records {
		entry := domain.TradeLogEntry{
			Date:   rec.Date,
			Signal: domain.SignalHold,
			Prob:   rec.Prob,
			Actual: domain.DirectionOf(rec.Label),
		}
		signal := 0
		if rec.Prob > DecisionThreshold {
			signal = 1
			entry.Signal = domain.SignalBuy
			strategy[i] = returns[i]
		}
		entry.Return = strategy[i]
		entry.Correct = signal == rec.Label
		if entry.Correct {
			correct++
		}
		growth[i] = 1 + strategy[i]
		report.History[n-1-i] = entry
	}
	report.Accuracy = float64(correct) / float64(n)
	report.NetProfit = floats.Prod(growth) - 1
	report.AvgReturn = stat.Mean(strategy, nil)
	return report
}
