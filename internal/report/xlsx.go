package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/wonny/marketpulse/internal/contracts"
)

// Sheet names of the XLSX report
const (
	SheetSummary = "Summary"
	SheetRecords = "Records"
)

// XLSXWriter writes a workbook with a summary sheet and a records sheet
type XLSXWriter struct{}

func (XLSXWriter) Extension() string { return "xlsx" }

func (XLSXWriter) Write(path string, records []contracts.MetricRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	// the default sheet becomes the summary
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetRecords); err != nil {
		return err
	}

	summaryHeader := []interface{}{"symbol", "records", "from", "to", "last_close", "avg_return", "moving_average", "volatility", "total_volume"}
	if err := f.SetSheetRow(SheetSummary, "A1", &summaryHeader); err != nil {
		return err
	}
	for i, s := range Summarize(records) {
		row := []interface{}{s.Symbol, s.Records, s.FirstDate, s.LastDate, s.LastClose, s.AvgReturn, s.LastMA, s.LastVol, s.TotalVolume}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetSummary, cell, &row); err != nil {
			return err
		}
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetRecords, "A1", &header); err != nil {
		return err
	}
	for i, rec := range records {
		row := []interface{}{
			rec.Symbol, rec.Date.Format(contracts.DateLayout),
			rec.Open, rec.High, rec.Low, rec.Close, rec.Volume,
			rec.DailyReturn, rec.MovingAverage, rec.Volatility,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetRecords, cell, &row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
