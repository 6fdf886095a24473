package report

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"stock-oracle/internal/domain"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// RenderComparisons formats a comparison run for a terminal.
func RenderComparisons(rows []domain.ModelComparison) string {
	t := newTable("Model", "Accuracy", "F1 Score", "Status")
	for _, r := range rows {
		t.Row(r.Algorithm, fmt.Sprintf("%.4f", r.Accuracy), fmt.Sprintf("%.4f", r.F1), r.Status)
	}
	return t.Render()
}

// RenderSweep formats the threshold grid followed by both best picks.
func RenderSweep(report domain.SweepReport) string {
	t := newTable("Threshold", "Net Profit %", "Sharpe", "Trades", "Win Rate %")
	for _, r := range report.Results {
		t.Row(
			fmt.Sprintf("%.2f", r.Threshold),
			fmt.Sprintf("%.2f", r.TotalReturnPct),
			fmt.Sprintf("%.2f", r.Sharpe),
			strconv.Itoa(r.Trades),
			fmt.Sprintf("%.2f", r.WinRatePct),
		)
	}
	return t.Render() + fmt.Sprintf("\nBest Threshold (Sharpe): %.2f\nBest Threshold (Profit): %.2f\n",
		report.BestBySharpe.Threshold, report.BestByReturn.Threshold)
}

// RenderForecast summarises a pipeline result in a few lines.
func RenderForecast(res *domain.PipelineResult) string {
	t := newTable("Field", "Value")
	t.Row("Ticker", res.Ticker)
	t.Row("Algorithm", res.Algorithm)
	t.Row("Prediction", string(res.Prediction))
	t.Row("Confidence", fmt.Sprintf("%.4f", res.Confidence))
	t.Row("Accuracy", fmt.Sprintf("%.4f", res.Metrics.Accuracy))
	t.Row("F1 Score", fmt.Sprintf("%.4f", res.Metrics.F1))
	t.Row("Precision", fmt.Sprintf("%.4f", res.Metrics.Precision))
	t.Row("Accuracy (30d)", fmt.Sprintf("%.4f", res.Reliability.Accuracy))
	t.Row("Profit (30d)", fmt.Sprintf("%.4f", res.Reliability.NetProfit))
	return t.Render()
}
