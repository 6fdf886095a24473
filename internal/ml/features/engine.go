package features

import (
	"math"
	"sort"

	"stock-oracle/internal/domain"
	"stock-oracle/internal/ta"
)

const (
	rsiPeriod    = 14
	macdFast     = 12
	macdSlow     = 26
	macdSignal   = 9
	bbPeriod     = 20
	bbStdDevs    = 2.0
	volWindow    = 5
	longestTrend = 50

	// MinRows is the smallest feature table a training run accepts.
	MinRows = 50
)

var maPeriods = [4]int{5, 10, 20, longestTrend}

type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// BuildRows derives the feature table from daily bars. Rows whose indicators are
// still warming up, or that carry any non-finite value, are dropped. Every row but
// the final one is labeled with the direction of the next close.
func (e *Engine) BuildRows(bars []domain.PriceBar) []domain.FeatureRow {
	normalized := NormalizeBars(bars)
	n := len(normalized)
	if n == 0 {
		return nil
	}

	closes := make([]float64, n)
	for i := range normalized {
		closes[i] = normalized[i].Close
	}

	var ma [len(maPeriods)][]float64
	for k, period := range maPeriods {
		ma[k] = ta.SMASeries(closes, period)
	}
	rsi := ta.RSISeries(closes, rsiPeriod)
	macdLine, macdSig := ta.MACDSeries(closes, macdFast, macdSlow, macdSignal)
	bands := ta.BollingerSeries(closes, bbPeriod, bbStdDevs)
	returns := ta.PctChangeSeries(closes)
	vol := ta.RollingStdSeries(returns, volWindow)

	rows := make([]domain.FeatureRow, 0, n)
	for i := range normalized {
		bar := normalized[i]
		row := domain.FeatureRow{
			PriceBar:    bar,
			MA5:         ma[0][i],
			MA10:        ma[1][i],
			MA20:        ma[2][i],
			MA50:        ma[3][i],
			RSI:         rsi[i],
			MACD:        macdLine[i],
			MACDSignal:  macdSig[i],
			MACDHist:    macdLine[i] - macdSig[i],
			BBMiddle:    bands.Middle[i],
			BBStd:       bands.Std[i],
			BBUpper:     bands.Upper[i],
			BBLower:     bands.Lower[i],
			BBPosition:  (closes[i] - bands.Lower[i]) / (bands.Upper[i] - bands.Lower[i]),
			DailyReturn: returns[i],
			Volatility5: vol[i],
			CloseToOpen: bar.Close / bar.Open,
			HighToLow:   bar.High / bar.Low,
		}
		if i+1 < n {
			row.Labeled = true
			if closes[i+1] > closes[i] {
				row.Target = 1
			}
		}
		if anyNaN(Vector(row)...) || anyNaN(row.BBMiddle, row.BBStd) {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// NormalizeBars orders bars by date and keeps the last bar seen for a repeated date.
func NormalizeBars(in []domain.PriceBar) []domain.PriceBar {
	byDate := make(map[string]int, len(in))
	out := make([]domain.PriceBar, 0, len(in))
	for _, b := range in {
		key := domain.DateKey(b.Date)
		if idx, ok := byDate[key]; ok {
			out[idx] = b
			continue
		}
		byDate[key] = len(out)
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// Labeled returns the rows usable for training and evaluation.
func Labeled(rows []domain.FeatureRow) []domain.FeatureRow {
	out := make([]domain.FeatureRow, 0, len(rows))
	for _, r := range rows {
		if r.Labeled {
			out = append(out, r)
		}
	}
	return out
}

func anyNaN(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
