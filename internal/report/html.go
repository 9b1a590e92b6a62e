package report

import (
	"fmt"
	"html/template"
	"os"
	"time"

	"github.com/wonny/marketpulse/internal/contracts"
	"github.com/wonny/marketpulse/pkg/config"
)

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"price": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"pct":   func(v float64) string { return fmt.Sprintf("%+.2f%%", v) },
	"date":  func(t time.Time) string { return t.Format(contracts.DateLayout) },
	"trend": func(v float64) string {
		if v < 0 {
			return "down"
		}
		return "up"
	},
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.App}} Report</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-bottom: 2em; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: right; }
th { background: #f0f0f0; }
td.symbol { text-align: left; font-weight: bold; }
.up { color: #0a7d32; }
.down { color: #c0392b; }
</style>
</head>
<body>
<h1>{{.App}} Report</h1>
<p class="generated">Generated {{.Generated}} · {{len .Records}} records · {{len .Summary}} symbols</p>

<h2>Summary</h2>
<table id="summary">
<thead><tr><th>Symbol</th><th>Records</th><th>From</th><th>To</th><th>Last Close</th><th>Avg Return</th><th>Moving Avg</th><th>Volatility</th></tr></thead>
<tbody>
{{- range .Summary}}
<tr><td class="symbol">{{.Symbol}}</td><td>{{.Records}}</td><td>{{.FirstDate}}</td><td>{{.LastDate}}</td><td>{{price .LastClose}}</td><td class="{{trend .AvgReturn}}">{{pct .AvgReturn}}</td><td>{{price .LastMA}}</td><td>{{price .LastVol}}</td></tr>
{{- end}}
</tbody>
</table>

<h2>Daily Metrics</h2>
<table id="records">
<thead><tr><th>Symbol</th><th>Date</th><th>Open</th><th>High</th><th>Low</th><th>Close</th><th>Volume</th><th>Daily Return</th><th>Moving Avg</th><th>Volatility</th></tr></thead>
<tbody>
{{- range .Records}}
<tr><td class="symbol">{{.Symbol}}</td><td>{{date .Date}}</td><td>{{price .Open}}</td><td>{{price .High}}</td><td>{{price .Low}}</td><td>{{price .Close}}</td><td>{{.Volume}}</td><td class="{{trend .DailyReturn}}">{{pct .DailyReturn}}</td><td>{{price .MovingAverage}}</td><td>{{price .Volatility}}</td></tr>
{{- end}}
</tbody>
</table>
</body>
</html>
`))

type htmlData struct {
	App       string
	Generated string
	Summary   []SymbolSummary
	Records   []contracts.MetricRecord
}

// HTMLWriter writes a standalone HTML page with a summary and the full record table
type HTMLWriter struct{}

func (HTMLWriter) Extension() string { return "html" }

func (HTMLWriter) Write(path string, records []contracts.MetricRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	data := htmlData{
		App:       config.AppName,
		Generated: time.Now().Format("2006-01-02 15:04:05"),
		Summary:   Summarize(records),
		Records:   records,
	}
	if err := htmlTemplate.Execute(f, data); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return f.Close()
}
