package alphavantage

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"github.com/wonny/marketpulse/internal/contracts"
	"github.com/wonny/marketpulse/internal/external"
	"github.com/wonny/marketpulse/pkg/config"
	"github.com/wonny/marketpulse/pkg/httputil"
	"github.com/wonny/marketpulse/pkg/logger"
)

const defaultBaseURL = "https://www.alphavantage.co"

// compact output covers the latest 100 trading days
var compactPeriods = map[string]bool{"1d": true, "5d": true, "1mo": true, "3mo": true}

// Client fetches daily bars from Alpha Vantage TIME_SERIES_DAILY
// ⭐ SSOT: Alpha Vantage API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	apiKey     string
	now        func() time.Time
}

// Compile-time interface check.
var _ contracts.BarFetcher = (*Client)(nil)

// NewClient creates a new Alpha Vantage client
func NewClient(httpClient *httputil.Client, apiKey string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		now:        time.Now,
	}
}

// WithBaseURL points the client at another host (tests, proxies)
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// Name returns the data source name
func (c *Client) Name() string {
	return config.SourceAlphaVantage
}

type dailyResponse struct {
	ErrorMessage string                    `json:"Error Message"`
	Note         string                    `json:"Note"`
	Information  string                    `json:"Information"`
	Series       map[string]dailyDataPoint `json:"Time Series (Daily)"`
}

type dailyDataPoint struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// FetchBars returns daily bars on or after the start of period
func (c *Client) FetchBars(ctx context.Context, symbol, period string) ([]contracts.RawBar, error) {
	start, err := external.PeriodStart(c.now(), period)
	if err != nil {
		return nil, err
	}

	outputSize := "full"
	if compactPeriods[period] {
		outputSize = "compact"
	}

	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY")
	params.Set("symbol", symbol)
	params.Set("outputsize", outputSize)
	params.Set("apikey", c.apiKey)
	fullURL := fmt.Sprintf("%s/query?%s", c.baseURL, params.Encode())

	c.logger.WithFields(map[string]interface{}{
		"symbol":     symbol,
		"period":     period,
		"outputsize": outputSize,
	}).Info("Fetching data from Alpha Vantage")

	var resp dailyResponse
	if err := c.httpClient.GetJSON(ctx, fullURL, &resp); err != nil {
		// keep the api key out of logs and errors
		return nil, fmt.Errorf("fetch daily series %s: %w", symbol, redact(err, c.apiKey))
	}

	switch {
	case resp.ErrorMessage != "":
		return nil, fmt.Errorf("%s: %s: %w", symbol, resp.ErrorMessage, external.ErrNoData)
	case resp.Note != "":
		return nil, fmt.Errorf("%s: %s: %w", symbol, resp.Note, external.ErrRateLimited)
	case resp.Information != "" && len(resp.Series) == 0:
		return nil, fmt.Errorf("%s: %s: %w", symbol, resp.Information, external.ErrRateLimited)
	}

	bars, err := parseSeries(symbol, resp.Series, start)
	if err != nil {
		return nil, fmt.Errorf("parse daily series %s: %w", symbol, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"rows":   len(bars),
	}).Info("Successfully fetched rows")

	return bars, nil
}

// parseSeries converts the date-keyed map into ascending bars on or after start.
// Unparsable values become missing fields for the cleaner to fill.
func parseSeries(symbol string, series map[string]dailyDataPoint, start time.Time) ([]contracts.RawBar, error) {
	bars := make([]contracts.RawBar, 0, len(series))
	for day, p := range series {
		date, err := time.Parse(contracts.DateLayout, day)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", day, err)
		}
		if date.Before(start) {
			continue
		}

		bars = append(bars, contracts.RawBar{
			Symbol: symbol,
			Date:   date,
			Open:   parseFloat(p.Open),
			High:   parseFloat(p.High),
			Low:    parseFloat(p.Low),
			Close:  parseFloat(p.Close),
			Volume: parseInt(p.Volume),
		})
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})
	return bars, nil
}

func parseFloat(s string) null.Float {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return null.Float{}
	}
	return null.FloatFrom(v)
}

func parseInt(s string) null.Int {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return null.Int{}
	}
	return null.IntFrom(v)
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, secret string) error {
	if secret == "" {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), secret, "***"), err: err}
}
