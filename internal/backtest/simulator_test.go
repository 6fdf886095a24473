package backtest

import (
	"math"
	"testing"
	"time"

	"stock-oracle/internal/domain"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func day(i int) time.Time { return start.AddDate(0, 0, i) }

func records(probs []float64, labels []int) []domain.PredictionRecord {
	out := make([]domain.PredictionRecord, len(probs))
	for i := range probs {
		out[i] = domain.PredictionRecord{Date: day(i), Prob: probs[i], Label: labels[i]}
	}
	return out
}

func TestReliabilityAllHold(t *testing.T) {
	recs := records([]float64{0.1, 0.2, 0.3}, []int{0, 1, 0})
	rep := Reliability(recs, []float64{0.05, -0.02, 0.01}, ReliabilityWindow)
	if rep.NetProfit != 0 || rep.AvgReturn != 0 {
		t.Fatalf("expected zero profit, got %.6f / %.6f", rep.NetProfit, rep.AvgReturn)
	}
	for _, e := range rep.History {
		if e.Signal != domain.SignalHold || e.Return != 0 {
			t.Fatalf("expected HOLD with zero return, got %+v", e)
		}
	}
}

func TestReliabilityAlwaysBuy(t *testing.T) {
	recs := records([]float64{0.9, 0.9, 0.9}, []int{1, 1, 1})
	rep := Reliability(recs, []float64{0.01, 0.02, -0.005}, ReliabilityWindow)
	want := 1.01*1.02*0.995 - 1
	if math.Abs(rep.NetProfit-want) > 1e-12 {
		t.Fatalf("expected net profit %.6f, got %.6f", want, rep.NetProfit)
	}
	if math.Abs(rep.NetProfit-0.02469) > 1e-5 {
		t.Fatalf("expected about 0.02469, got %.6f", rep.NetProfit)
	}
	if rep.Accuracy != 1 {
		t.Fatalf("expected accuracy 1, got %.4f", rep.Accuracy)
	}
}

func TestReliabilityWorkedScenario(t *testing.T) {
	recs := records([]float64{0.9, 0.4, 0.6, 0.3, 0.7}, []int{1, 0, 1, 0, 1})
	rets := []float64{0.01, -0.02, 0.03, -0.01, 0.02}
	rep := Reliability(recs, rets, ReliabilityWindow)

	want := 1.01*1.03*1.02 - 1
	if math.Abs(rep.NetProfit-want) > 1e-12 {
		t.Fatalf("expected net profit %.6f, got %.6f", want, rep.NetProfit)
	}
	if math.Abs(rep.AvgReturn-0.06/5) > 1e-12 {
		t.Fatalf("expected average return 0.012, got %.6f", rep.AvgReturn)
	}
	trades := 0
	for _, e := range rep.History {
		if e.Signal == domain.SignalBuy {
			trades++
		}
	}
	if trades != 3 {
		t.Fatalf("expected 3 trades, got %d", trades)
	}
	if !rep.History[0].Date.Equal(day(4)) || !rep.History[4].Date.Equal(day(0)) {
		t.Fatalf("expected newest-first history, got %s..%s", rep.History[0].Date, rep.History[4].Date)
	}
	if rep.Accuracy != 1 {
		t.Fatalf("expected accuracy 1, got %.4f", rep.Accuracy)
	}
}

func TestReliabilityUsesRecentWindow(t *testing.T) {
	probs := make([]float64, 40)
	labels := make([]int, 40)
	rets := make([]float64, 40)
	for i := range probs {
		probs[i] = 0.8
		labels[i] = 1
		if i < 10 {
			rets[i] = -0.5
		} else {
			rets[i] = 0.001
		}
	}
	rep := Reliability(records(probs, labels), rets, ReliabilityWindow)
	if len(rep.History) != 30 {
		t.Fatalf("expected 30 entries, got %d", len(rep.History))
	}
	if rep.NetProfit <= 0 {
		t.Fatalf("expected early losses excluded, got %.6f", rep.NetProfit)
	}
	if !rep.History[29].Date.Equal(day(10)) {
		t.Fatalf("expected oldest entry on day 10, got %s", rep.History[29].Date)
	}
}

func TestAlignKeepsMostRecent(t *testing.T) {
	rows := make([]domain.FeatureRow, 100)
	for i := range rows {
		rows[i] = domain.FeatureRow{PriceBar: domain.PriceBar{Date: day(i)}, Labeled: true}
	}
	recs := make([]domain.PredictionRecord, 98)
	for i := range recs {
		recs[i] = domain.PredictionRecord{Date: day(i + 2), Prob: 0.5}
	}
	gotRows, gotRecs := Align(rows, recs)
	if len(gotRows) != 98 || len(gotRecs) != 98 {
		t.Fatalf("expected 98/98, got %d/%d", len(gotRows), len(gotRecs))
	}
	if !gotRows[0].Date.Equal(day(2)) || !gotRows[97].Date.Equal(day(99)) {
		t.Fatalf("expected rows day 2..99, got %s..%s", gotRows[0].Date, gotRows[97].Date)
	}
}

func TestAlignDropsUnmatchedDates(t *testing.T) {
	rows := []domain.FeatureRow{
		{PriceBar: domain.PriceBar{Date: day(0)}},
		{PriceBar: domain.PriceBar{Date: day(1)}},
	}
	recs := []domain.PredictionRecord{{Date: day(1)}, {Date: day(5)}}
	gotRows, gotRecs := Align(rows, recs)
	if len(gotRows) != 1 || !gotRecs[0].Date.Equal(day(1)) {
		t.Fatalf("expected a single day-1 pair, got %d rows", len(gotRows))
	}
}

func TestAttributedReturnsShift(t *testing.T) {
	rows := []domain.FeatureRow{{DailyReturn: 0.1}, {DailyReturn: 0.2}, {DailyReturn: 0.3}}
	got := AttributedReturns(rows, nil)
	if got[0] != 0.2 || got[1] != 0.3 || got[2] != 0 {
		t.Fatalf("unexpected attributed returns %v", got)
	}
}

func TestAttributedReturnsUsesSuccessor(t *testing.T) {
	rows := []domain.FeatureRow{{DailyReturn: 0.1}, {DailyReturn: 0.2}}
	got := AttributedReturns(rows, &domain.FeatureRow{DailyReturn: -0.04})
	if got[0] != 0.2 || got[1] != -0.04 {
		t.Fatalf("unexpected attributed returns %v", got)
	}
}

func TestSuccessor(t *testing.T) {
	table := []domain.FeatureRow{
		{PriceBar: domain.PriceBar{Date: day(0)}},
		{PriceBar: domain.PriceBar{Date: day(1)}, Labeled: true},
		{PriceBar: domain.PriceBar{Date: day(2)}, DailyReturn: 0.03},
	}
	next := Successor(table, table[1])
	if next == nil || !next.Date.Equal(day(2)) {
		t.Fatalf("expected the day-2 row, got %+v", next)
	}
	if Successor(table, table[2]) != nil {
		t.Fatal("expected no successor for the final row")
	}
	if Successor(table, domain.FeatureRow{PriceBar: domain.PriceBar{Date: day(9)}}) != nil {
		t.Fatal("expected no successor for a row outside the table")
	}
}

func TestWindowFloorsSize(t *testing.T) {
	rows := make([]domain.FeatureRow, 52)
	for i := range rows {
		rows[i] = domain.FeatureRow{PriceBar: domain.PriceBar{Date: day(i)}, Labeled: i < 51}
	}
	got := Window(rows, 0.2)
	if len(got) != 10 {
		t.Fatalf("expected 10 rows, got %d", len(got))
	}
	if !got[9].Date.Equal(day(50)) {
		t.Fatalf("expected last labeled row, got %s", got[9].Date)
	}
}

func TestSimulateSeries(t *testing.T) {
	rows := []domain.FeatureRow{
		{PriceBar: domain.PriceBar{Date: day(0)}, DailyReturn: 0.5},
		{PriceBar: domain.PriceBar{Date: day(1)}, DailyReturn: 0.01},
		{PriceBar: domain.PriceBar{Date: day(2)}, DailyReturn: -0.02},
	}
	recs := records([]float64{0.7, 0.2, 0.6}, []int{1, 0, 0})
	res := Simulate(rows, recs, nil)
	if len(res.Series) != 3 {
		t.Fatalf("expected 3 points, got %d", len(res.Series))
	}
	if res.Series[0].MarketReturn != 0.01 || res.Series[2].MarketReturn != 0 {
		t.Fatalf("unexpected market returns %+v", res.Series)
	}
	if math.Abs(res.Reliability.NetProfit-0.01) > 1e-12 {
		t.Fatalf("expected net profit 0.01, got %.6f", res.Reliability.NetProfit)
	}
	if math.Abs(res.Reliability.Accuracy-2.0/3.0) > 1e-12 {
		t.Fatalf("expected accuracy 2/3, got %.4f", res.Reliability.Accuracy)
	}

	// the newest holdout row trades the move into the retained final bar
	withNext := Simulate(rows, recs, &domain.FeatureRow{DailyReturn: 0.04})
	if withNext.Series[2].MarketReturn != 0.04 {
		t.Fatalf("expected the successor return, got %v", withNext.Series[2].MarketReturn)
	}
	if math.Abs(withNext.Reliability.NetProfit-(1.01*1.04-1)) > 1e-12 {
		t.Fatalf("expected net profit %.6f, got %.6f", 1.01*1.04-1, withNext.Reliability.NetProfit)
	}
}
