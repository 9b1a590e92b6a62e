package report

import (
	"sort"

	"github.com/wonny/marketpulse/internal/contracts"
)

// SymbolSummary is the per-symbol overview shown at the top of the HTML and XLSX reports
type SymbolSummary struct {
	Symbol      string
	Records     int
	FirstDate   string
	LastDate    string
	LastClose   float64
	AvgReturn   float64
	LastMA      float64
	LastVol     float64
	TotalVolume int64
}

// Summarize groups records by symbol, sorted by symbol
func Summarize(records []contracts.MetricRecord) []SymbolSummary {
	bySymbol := make(map[string][]contracts.MetricRecord)
	for _, rec := range records {
		bySymbol[rec.Symbol] = append(bySymbol[rec.Symbol], rec)
	}

	out := make([]SymbolSummary, 0, len(bySymbol))
	for symbol, recs := range bySymbol {
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].Date.Before(recs[j].Date) })

		s := SymbolSummary{Symbol: symbol, Records: len(recs)}
		var sumReturn float64
		for _, r := range recs {
			sumReturn += r.DailyReturn
			s.TotalVolume += r.Volume
		}
		first, last := recs[0], recs[len(recs)-1]
		s.FirstDate = first.Date.Format(contracts.DateLayout)
		s.LastDate = last.Date.Format(contracts.DateLayout)
		s.LastClose = last.Close
		s.LastMA = last.MovingAverage
		s.LastVol = last.Volatility
		s.AvgReturn = sumReturn / float64(len(recs))
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
