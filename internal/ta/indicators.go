package ta

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// MeanStd returns the population mean and standard deviation of values.
func MeanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	return stat.PopMeanStdDev(values, nil)
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func hasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// SMASeries is the trailing simple mean over period values. Warm-up positions are NaN.
func SMASeries(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		window := values[i-period+1 : i+1]
		if hasNaN(window) {
			continue
		}
		out[i] = stat.Mean(window, nil)
	}
	return out
}

// RollingStdSeries is the trailing sample standard deviation (N-1) over period values.
func RollingStdSeries(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 1 {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		window := values[i-period+1 : i+1]
		if hasNaN(window) {
			continue
		}
		out[i] = stat.StdDev(window, nil)
	}
	return out
}

// PctChangeSeries is values[i]/values[i-1] - 1. Position 0 and zero bases are NaN.
func PctChangeSeries(values []float64) []float64 {
	out := nanSeries(len(values))
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}
		out[i] = values[i]/values[i-1] - 1
	}
	return out
}

// EMASeries smooths with alpha = 2/(period+1), seeded with the first value and
// without bias adjustment.
func EMASeries(values []float64, period int) []float64 {
	if len(values) == 0 {
		return nil
	}
	if period <= 1 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	alpha := 2.0 / float64(period+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RSISeries averages gains and losses with a plain trailing mean over period deltas,
// not Wilder smoothing. The first delta is taken as zero. A window with neither gains
// nor losses has no defined RSI and is NaN.
func RSISeries(closes []float64, period int) []float64 {
	out := nanSeries(len(closes))
	if period <= 0 || len(closes) < period {
		return out
	}
	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else if delta < 0 {
			losses[i] = -delta
		}
	}
	avgGain := SMASeries(gains, period)
	avgLoss := SMASeries(losses, period)
	for i := period - 1; i < len(closes); i++ {
		out[i] = rsiFromAvg(avgGain[i], avgLoss[i])
	}
	return out
}

func rsiFromAvg(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return math.NaN()
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

func MACDSeries(values []float64, fast, slow, signal int) ([]float64, []float64) {
	if len(values) == 0 {
		return nil, nil
	}
	fastEMA := EMASeries(values, fast)
	slowEMA := EMASeries(values, slow)
	macdLine := make([]float64, len(values))
	for i := range values {
		macdLine[i] = fastEMA[i] - slowEMA[i]
	}
	signalLine := EMASeries(macdLine, signal)
	return macdLine, signalLine
}

// Bands holds the Bollinger series aligned with the input.
type Bands struct {
	Middle []float64
	Std    []float64
	Upper  []float64
	Lower  []float64
}

// BollingerSeries uses the trailing mean and sample standard deviation over period values.
func BollingerSeries(values []float64, period int, stdDevs float64) Bands {
	middle := SMASeries(values, period)
	std := RollingStdSeries(values, period)
	upper := nanSeries(len(values))
	lower := nanSeries(len(values))
	for i := range values {
		if math.IsNaN(middle[i]) || math.IsNaN(std[i]) {
			continue
		}
		upper[i] = middle[i] + stdDevs*std[i]
		lower[i] = middle[i] - stdDevs*std[i]
	}
	return Bands{Middle: middle, Std: std, Upper: upper, Lower: lower}
}
