package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"stock-oracle/internal/domain"
)

var (
	comparisonHeader = []string{"Model", "Accuracy", "F1 Score", "Status", "Error"}
	sweepHeader      = []string{"Threshold", "Net Profit %", "Sharpe", "Trades", "Win Rate %"}
)

// WriteComparisonsCSV writes rows in the order given.
func WriteComparisonsCSV(w io.Writer, rows []domain.ModelComparison) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(comparisonHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{r.Algorithm, formatFloat(r.Accuracy), formatFloat(r.F1), r.Status, r.Error}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteSweepCSV(w io.Writer, report domain.SweepReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(sweepHeader); err != nil {
		return err
	}
	for _, r := range report.Results {
		rec := []string{
			strconv.FormatFloat(r.Threshold, 'f', 2, 64),
			formatFloat(r.TotalReturnPct),
			formatFloat(r.Sharpe),
			strconv.Itoa(r.Trades),
			formatFloat(r.WinRatePct),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveFile creates path and hands it to write.
func SaveFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
