package transform

import (
	"math"
	"sort"

	"github.com/guregu/null/v6"

	"github.com/wonny/marketpulse/internal/contracts"
)

// CleanStats describes what Clean did to one symbol's raw bars
type CleanStats struct {
	Input      int `json:"input"`
	Duplicates int `json:"duplicates"` // rows collapsed onto a later row with the same date
	Filled     int `json:"filled"`     // individual fields forward-filled
	Dropped    int `json:"dropped"`    // rows still incomplete after filling
}

// Clean sorts raw bars by date and repairs missing fields.
//
// Dates are normalised to UTC midnight. When a date appears more than once the
// last occurrence in input order wins. Each missing field (null, NaN or Inf) is
// forward-filled from the most recent earlier row that had it; rows that still
// lack a field, which can only happen at the start of the series, are dropped.
// ⭐ SSOT: 결측치 처리는 여기서만
func Clean(raw []contracts.RawBar) ([]contracts.Bar, CleanStats) {
	stats := CleanStats{Input: len(raw)}
	if len(raw) == 0 {
		return nil, stats
	}

	rows := make([]contracts.RawBar, 0, len(raw))
	for _, r := range raw {
		if r.Date.IsZero() {
			stats.Dropped++
			continue
		}
		r.Date = contracts.NormalizeDate(r.Date)
		rows = append(rows, r)
	}

	// stable, so equal dates keep input order and the last one is the latest
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})

	deduped := rows[:0]
	for i, r := range rows {
		if i+1 < len(rows) && rows[i+1].Date.Equal(r.Date) {
			stats.Duplicates++
			continue
		}
		deduped = append(deduped, r)
	}

	var last fillState
	bars := make([]contracts.Bar, 0, len(deduped))
	for _, r := range deduped {
		bar, filled, ok := last.apply(r)
		stats.Filled += filled
		if !ok {
			stats.Dropped++
			continue
		}
		bars = append(bars, bar)
	}

	return bars, stats
}

// fillState carries the most recent valid value of each field
type fillState struct {
	symbol                 string
	open, high, low, close null.Float
	volume                 null.Int
}

// apply fills r from the carried values, updates them, and reports whether the row is complete
func (s *fillState) apply(r contracts.RawBar) (contracts.Bar, int, bool) {
	filled := 0

	if r.Symbol != "" {
		s.symbol = r.Symbol
	} else if s.symbol != "" {
		filled++
	}

	fill := func(v null.Float, carried *null.Float) null.Float {
		if validFloat(v) {
			*carried = v
			return v
		}
		if carried.Valid {
			filled++
		}
		return *carried
	}

	open := fill(r.Open, &s.open)
	high := fill(r.High, &s.high)
	low := fill(r.Low, &s.low)
	closePx := fill(r.Close, &s.close)

	volume := r.Volume
	if volume.Valid {
		s.volume = volume
	} else {
		if s.volume.Valid {
			filled++
		}
		volume = s.volume
	}

	if s.symbol == "" || !open.Valid || !high.Valid || !low.Valid || !closePx.Valid || !volume.Valid {
		return contracts.Bar{}, filled, false
	}

	return contracts.Bar{
		Symbol: s.symbol,
		Date:   r.Date,
		Open:   open.Float64,
		High:   high.Float64,
		Low:    low.Float64,
		Close:  closePx.Float64,
		Volume: volume.Int64,
	}, filled, true
}

func validFloat(v null.Float) bool {
	return v.Valid && !math.IsNaN(v.Float64) && !math.IsInf(v.Float64, 0)
}
