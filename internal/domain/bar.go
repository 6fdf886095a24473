package domain

import (
	"encoding/json"
	"time"
)

// DateLayout is the calendar-date format used wherever a bar date leaves the process.
const DateLayout = "2006-01-02"

// PriceBar represents a single daily OHLCV bar for a ticker.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// FeatureRow is a PriceBar extended with derived indicators and the next-bar label.
// Labeled is false only for the most recent row, whose successor is not known yet.
type FeatureRow struct {
	PriceBar

	MA5         float64
	MA10        float64
	MA20        float64
	MA50        float64
	RSI         float64
	MACD        float64
	MACDSignal  float64
	MACDHist    float64
	BBMiddle    float64
	BBStd       float64
	BBUpper     float64
	BBLower     float64
	BBPosition  float64
	DailyReturn float64
	Volatility5 float64
	CloseToOpen float64
	HighToLow   float64

	Target  int
	Labeled bool
}

type featureRowJSON struct {
	Date          string  `json:"Date"`
	Open          float64 `json:"Open"`
	High          float64 `json:"High"`
	Low           float64 `json:"Low"`
	Close         float64 `json:"Close"`
	Volume        float64 `json:"Volume"`
	MA5           float64 `json:"MA5"`
	MA10          float64 `json:"MA10"`
	MA20          float64 `json:"MA20"`
	MA50          float64 `json:"MA50"`
	RSI           float64 `json:"RSI"`
	MACD          float64 `json:"MACD"`
	MACDSignal    float64 `json:"MACD_Signal"`
	MACDHist      float64 `json:"MACD_Hist"`
	BBMiddle      float64 `json:"BB_Middle"`
	BBStd         float64 `json:"BB_Std"`
	BBUpper       float64 `json:"BB_Upper"`
	BBLower       float64 `json:"BB_Lower"`
	BBPosition    float64 `json:"BB_Position"`
	DailyReturn   float64 `json:"Daily_Return"`
	Volatility5   float64 `json:"Volatility_5"`
	CloseToOpen   float64 `json:"Close_to_Open"`
	HighToLow     float64 `json:"High_to_Low"`
	Target        int     `json:"Target"`
	TargetLabeled bool    `json:"Target_Known"`
}

// MarshalJSON renders the row for chart consumers with the date as a calendar-date string.
func (r FeatureRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(featureRowJSON{
		Date:          r.Date.Format(DateLayout),
		Open:          r.Open,
		High:          r.High,
		Low:           r.Low,
		Close:         r.Close,
		Volume:        r.Volume,
		MA5:           r.MA5,
		MA10:          r.MA10,
		MA20:          r.MA20,
		MA50:          r.MA50,
		RSI:           r.RSI,
		MACD:          r.MACD,
		MACDSignal:    r.MACDSignal,
		MACDHist:      r.MACDHist,
		BBMiddle:      r.BBMiddle,
		BBStd:         r.BBStd,
		BBUpper:       r.BBUpper,
		BBLower:       r.BBLower,
		BBPosition:    r.BBPosition,
		DailyReturn:   r.DailyReturn,
		Volatility5:   r.Volatility5,
		CloseToOpen:   r.CloseToOpen,
		HighToLow:     r.HighToLow,
		Target:        r.Target,
		TargetLabeled: r.Labeled,
	})
}

// DateKey truncates a timestamp to its UTC calendar date, the join key between
// feature rows and prediction records.
func DateKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
