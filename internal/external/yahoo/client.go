package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"github.com/wonny/marketpulse/internal/contracts"
	"github.com/wonny/marketpulse/internal/external"
	"github.com/wonny/marketpulse/pkg/config"
	"github.com/wonny/marketpulse/pkg/httputil"
	"github.com/wonny/marketpulse/pkg/logger"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// Client fetches daily bars from the Yahoo Finance chart API
// ⭐ SSOT: Yahoo Finance API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// Compile-time interface check.
var _ contracts.BarFetcher = (*Client)(nil)

// NewClient creates a new Yahoo Finance client
func NewClient(httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    defaultBaseURL,
	}
}

// WithBaseURL points the client at another host (tests, proxies)
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// Name returns the data source name
func (c *Client) Name() string {
	return config.SourceYahoo
}

// chartResponse is the subset of /v8/finance/chart we use
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		GMTOffset int64  `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []null.Float `json:"open"`
			High   []null.Float `json:"high"`
			Low    []null.Float `json:"low"`
			Close  []null.Float `json:"close"`
			Volume []null.Int   `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []null.Float `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// FetchBars returns daily bars for period ("1mo", "1y", ...).
// OHLC are split/dividend adjusted with the adjclose/close ratio when Yahoo provides it.
func (c *Client) FetchBars(ctx context.Context, symbol, period string) ([]contracts.RawBar, error) {
	if err := external.ValidatePeriod(period); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("range", period)
	params.Set("interval", "1d")
	params.Set("events", "div,split")
	fullURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"period": period,
	}).Info("Fetching data from Yahoo Finance")

	var resp chartResponse
	if err := c.httpClient.GetJSON(ctx, fullURL, &resp); err != nil {
		if httputil.IsStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("%s: %w", symbol, external.ErrNoData)
		}
		if httputil.IsStatus(err, http.StatusTooManyRequests) {
			return nil, fmt.Errorf("%s: %w", symbol, external.ErrRateLimited)
		}
		return nil, fmt.Errorf("fetch chart %s: %w", symbol, err)
	}

	if e := resp.Chart.Error; e != nil {
		return nil, fmt.Errorf("%s: %s (%s): %w", symbol, e.Description, e.Code, external.ErrNoData)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, nil
	}

	bars, err := parseChart(symbol, resp.Chart.Result[0])
	if err != nil {
		return nil, fmt.Errorf("parse chart %s: %w", symbol, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"rows":   len(bars),
	}).Info("Successfully fetched rows")

	return bars, nil
}

// parseChart zips the parallel timestamp and quote arrays into bars
func parseChart(symbol string, r chartResult) ([]contracts.RawBar, error) {
	if len(r.Timestamp) == 0 {
		return nil, nil
	}
	if len(r.Indicators.Quote) == 0 {
		return nil, errors.New("missing quote indicators")
	}

	q := r.Indicators.Quote[0]
	n := len(r.Timestamp)
	if len(q.Open) != n || len(q.High) != n || len(q.Low) != n || len(q.Close) != n || len(q.Volume) != n {
		return nil, fmt.Errorf("quote arrays do not match %d timestamps", n)
	}

	var adj []null.Float
	if len(r.Indicators.AdjClose) > 0 && len(r.Indicators.AdjClose[0].AdjClose) == n {
		adj = r.Indicators.AdjClose[0].AdjClose
	}

	bars := make([]contracts.RawBar, n)
	for i, ts := range r.Timestamp {
		// exchange-local calendar date
		local := time.Unix(ts+r.Meta.GMTOffset, 0).UTC()

		bar := contracts.RawBar{
			Symbol: symbol,
			Date:   contracts.NormalizeDate(local),
			Open:   q.Open[i],
			High:   q.High[i],
			Low:    q.Low[i],
			Close:  q.Close[i],
			Volume: q.Volume[i],
		}

		if adj != nil && adj[i].Valid && q.Close[i].Valid && q.Close[i].Float64 != 0 {
			ratio := adj[i].Float64 / q.Close[i].Float64
			bar.Open = scale(bar.Open, ratio)
			bar.High = scale(bar.High, ratio)
			bar.Low = scale(bar.Low, ratio)
			bar.Close = adj[i]
		}

		bars[i] = bar
	}

	return bars, nil
}

func scale(v null.Float, ratio float64) null.Float {
	if !v.Valid {
		return v
	}
	return null.FloatFrom(v.Float64 * ratio)
}
