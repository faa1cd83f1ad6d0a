package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"stockpulse/internal/model"
)

const defaultYahooBaseURL = "https://query1.finance.yahoo.com"

// Yahoo implements DataSource using the Yahoo Finance public chart API.
type Yahoo struct {
	Client    *http.Client
	BaseURL   string
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahoo creates a Yahoo Finance fetcher. proxyURL may be empty.
func NewYahoo(baseURL, proxyURL string) *Yahoo {
	if baseURL == "" {
		baseURL = defaultYahooBaseURL
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &Yahoo{
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		BaseURL: baseURL,
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
}

func (f *Yahoo) Name() string { return "yahoo" }

func (f *Yahoo) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from the Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func toInt(v interface{}) int64 {
	return int64(toFloat(v))
}

// FetchDaily retrieves daily bars for [from, to] and validates them into a
// PriceSeries. The provider's payload is untrusted input.
func (f *Yahoo) FetchDaily(ctx context.Context, symbol string, from, to time.Time) (*model.PriceSeries, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&period1=%d&period2=%d",
		f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)), from.Unix(), to.Unix())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("yahoo request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: yahoo fetch %s: %v", ErrDataUnavailable, symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: yahoo read body: %v", ErrDataUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: yahoo: status %d for %s", ErrDataUnavailable, resp.StatusCode, symbol)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("%w: yahoo decode: %v", ErrDataUnavailable, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("%w: yahoo api error for %s: %s",
			ErrDataUnavailable, symbol, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 ||
		len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: yahoo: no data returned for %s", ErrDataUnavailable, symbol)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]model.PriceBar, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		o := toFloat(quote.Open[i])
		h := toFloat(quote.High[i])
		l := toFloat(quote.Low[i])
		c := toFloat(quote.Close[i])
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue // null bars: holidays etc.
		}
		bars = append(bars, model.PriceBar{
			Symbol: symbol,
			Date:   model.Day(time.Unix(ts, 0)),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: toInt(quote.Volume[i]),
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: yahoo: only null bars returned for %s", ErrDataUnavailable, symbol)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	series, err := model.NewPriceSeries(symbol, bars)
	if err != nil {
		return nil, fmt.Errorf("yahoo: %w", err)
	}
	return series, nil
}
