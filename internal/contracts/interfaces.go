package contracts

import "context"

// BarFetcher retrieves raw daily bars for one symbol
// ⭐ SSOT: 시세 조회 인터페이스 (yahoo, alpha_vantage, cache)
type BarFetcher interface {
	// Name identifies the data source in logs and metrics
	Name() string
	// FetchBars returns raw bars for the lookback period ("5d", "1mo", "1y", ...).
	// An empty slice with nil error means the provider had no data.
	FetchBars(ctx context.Context, symbol, period string) ([]RawBar, error)
}

// Reporter renders the records of one run
// ⭐ SSOT: 리포트 생성 인터페이스
type Reporter interface {
	Generate(ctx context.Context, records []MetricRecord) error
}
