package domain

import (
	"encoding/json"
	"time"
)

type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
)

// DirectionOf maps a binary label to its display direction.
func DirectionOf(label int) Direction {
	if label == 1 {
		return DirectionUp
	}
	return DirectionDown
}

type TradeSignal string

const (
	SignalBuy  TradeSignal = "BUY"
	SignalHold TradeSignal = "HOLD"
)

// PredictionRecord is one holdout row as seen by the evaluator: its date, the true
// next-bar label and the model's probability of an up move.
type PredictionRecord struct {
	Date  time.Time
	Label int
	Prob  float64
}

type TradeLogEntry struct {
	Date    time.Time   `json:"-"`
	Signal  TradeSignal `json:"signal"`
	Prob    float64     `json:"prob"`
	Actual  Direction   `json:"actual"`
	Return  float64     `json:"return"`
	Correct bool        `json:"is_correct"`
}

func (e TradeLogEntry) MarshalJSON() ([]byte, error) {
	type alias TradeLogEntry
	return json.Marshal(struct {
		Date string `json:"date"`
		alias
	}{Date: e.Date.Format(DateLayout), alias: alias(e)})
}

// ReliabilityReport summarises the most recent trades of a backtest window.
// History is ordered newest first.
type ReliabilityReport struct {
	Accuracy  float64         `json:"accuracy_30d"`
	NetProfit float64         `json:"profit_30d"`
	AvgReturn float64         `json:"avg_return"`
	History   []TradeLogEntry `json:"history"`
}

type BacktestPoint struct {
	Date         time.Time `json:"-"`
	Prob         float64   `json:"prob"`
	MarketReturn float64   `json:"market_return"`
}

func (p BacktestPoint) MarshalJSON() ([]byte, error) {
	type alias BacktestPoint
	return json.Marshal(struct {
		Date string `json:"date"`
		alias
	}{Date: p.Date.Format(DateLayout), alias: alias(p)})
}

type ThresholdSweepResult struct {
	Threshold      float64 `json:"threshold"`
	TotalReturnPct float64 `json:"total_return_pct"`
	Sharpe         float64 `json:"sharpe"`
	Trades         int     `json:"trades"`
	WinRatePct     float64 `json:"win_rate_pct"`
}

type SweepReport struct {
	Ticker       string                 `json:"ticker,omitempty"`
	Algorithm    string                 `json:"algorithm,omitempty"`
	Results      []ThresholdSweepResult `json:"results"`
	BestBySharpe ThresholdSweepResult   `json:"best_by_sharpe"`
	BestByReturn ThresholdSweepResult   `json:"best_by_return"`
}

// Metrics are computed on the holdout partition of one training run.
// ConfusionMatrix is laid out as [[tn, fp], [fn, tp]].
type Metrics struct {
	Accuracy        float64   `json:"accuracy"`
	F1              float64   `json:"f1_score"`
	Precision       float64   `json:"precision"`
	ConfusionMatrix [2][2]int `json:"confusion_matrix"`
	YTrue           []int     `json:"y_true"`
	YProb           []float64 `json:"y_prob"`
}

type PipelineResult struct {
	Ticker      string            `json:"ticker"`
	Algorithm   string            `json:"algorithm"`
	Prediction  Direction         `json:"prediction"`
	Confidence  float64           `json:"confidence"`
	Metrics     Metrics           `json:"metrics"`
	Reliability ReliabilityReport `json:"reliability"`
	Backtest    []BacktestPoint   `json:"backtest_data"`
	History     []FeatureRow      `json:"history"`
	Degraded    []string          `json:"degraded,omitempty"`
}

type ModelComparison struct {
	Algorithm string  `json:"algorithm"`
	Accuracy  float64 `json:"accuracy"`
	F1        float64 `json:"f1_score"`
	Status    string  `json:"status"`
	Error     string  `json:"error,omitempty"`
}

const (
	ComparisonOK      = "ok"
	ComparisonSkipped = "skipped"
	ComparisonFailed  = "failed"
)

type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "Positive"
	SentimentNeutral  SentimentLabel = "Neutral"
	SentimentNegative SentimentLabel = "Negative"
)

type Headline struct {
	Title     string         `json:"title"`
	Score     float64        `json:"score"`
	Label     SentimentLabel `json:"label"`
	Link      string         `json:"link"`
	Publisher string         `json:"publisher"`
}

type Sentiment struct {
	Ticker    string         `json:"ticker,omitempty"`
	Score     float64        `json:"score"`
	Label     SentimentLabel `json:"label"`
	Headlines []Headline     `json:"headlines"`
}
