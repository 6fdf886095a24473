package features

import "stock-oracle/internal/domain"

// FeatureNames lists the model inputs in the order Vector emits them.
var FeatureNames = []string{
	"MA5", "MA10", "MA20", "MA50",
	"Daily_Return", "Volatility_5",
	"Close_to_Open", "High_to_Low",
	"RSI", "MACD", "MACD_Signal", "MACD_Hist",
	"BB_Upper", "BB_Lower", "BB_Position",
}

func Vector(r domain.FeatureRow) []float64 {
	return []float64{
		r.MA5, r.MA10, r.MA20, r.MA50,
		r.DailyReturn, r.Volatility5,
		r.CloseToOpen, r.HighToLow,
		r.RSI, r.MACD, r.MACDSignal, r.MACDHist,
		r.BBUpper, r.BBLower, r.BBPosition,
	}
}

// Matrix builds the design matrix and label vector for a table.
func Matrix(rows []domain.FeatureRow) ([][]float64, []int) {
	x := make([][]float64, len(rows))
	y := make([]int, len(rows))
	for i := range rows {
		x[i] = Vector(rows[i])
		y[i] = rows[i].Target
	}
	return x, y
}
