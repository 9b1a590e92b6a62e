package report

import (
	"github.com/parquet-go/parquet-go"

	"github.com/wonny/marketpulse/internal/contracts"
)

// parquetRow is the flat columnar layout of a record
type parquetRow struct {
	Symbol        string  `parquet:"symbol,dict"`
	Date          string  `parquet:"date"`
	Open          float64 `parquet:"open"`
	High          float64 `parquet:"high"`
	Low           float64 `parquet:"low"`
	Close         float64 `parquet:"close"`
	Volume        int64   `parquet:"volume"`
	DailyReturn   float64 `parquet:"daily_return"`
	MovingAverage float64 `parquet:"moving_average"`
	Volatility    float64 `parquet:"volatility"`
}

// ParquetWriter writes records as a Parquet file
type ParquetWriter struct{}

func (ParquetWriter) Extension() string { return "parquet" }

func (ParquetWriter) Write(path string, records []contracts.MetricRecord) error {
	rows := make([]parquetRow, len(records))
	for i, rec := range records {
		s := rec.ToStoredRow()
		rows[i] = parquetRow(s)
	}
	return parquet.WriteFile(path, rows)
}
