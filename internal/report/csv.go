package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/wonny/marketpulse/internal/contracts"
)

// Columns is the column order shared by the tabular reports
var Columns = []string{
	"symbol", "date", "open", "high", "low", "close", "volume",
	"daily_return", "moving_average", "volatility",
}

// CSVWriter writes records as comma separated values with a header row
type CSVWriter struct{}

func (CSVWriter) Extension() string { return "csv" }

func (CSVWriter) Write(path string, records []contracts.MetricRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		return err
	}
	for _, rec := range records {
		if err := w.Write(csvRow(rec)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return f.Close()
}

func csvRow(rec contracts.MetricRecord) []string {
	return []string{
		rec.Symbol,
		rec.Date.Format(contracts.DateLayout),
		formatFloat(rec.Open),
		formatFloat(rec.High),
		formatFloat(rec.Low),
		formatFloat(rec.Close),
		strconv.FormatInt(rec.Volume, 10),
		formatFloat(rec.DailyReturn),
		formatFloat(rec.MovingAverage),
		formatFloat(rec.Volatility),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
