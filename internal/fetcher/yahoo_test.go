package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartOK = `{
  "chart": {
    "result": [{
      "timestamp": [1767225600, 1767312000, 1767398400],
      "indicators": {
        "quote": [{
          "open":   [100.0, 101.0, null],
          "high":   [101.5, 102.0, null],
          "low":    [99.5, 100.5, null],
          "close":  [101.0, 101.5, null],
          "volume": [1000, 1200, null]
        }]
      }
    }],
    "error": null
  }
}`

const chartAPIError = `{
  "chart": {
    "result": null,
    "error": {"code": "Not Found", "description": "No data found, symbol may be delisted"}
  }
}`

func newTestYahoo(srv *httptest.Server) *Yahoo {
	f := NewYahoo(srv.URL, "")
	f.Client = srv.Client()
	return f
}

func TestYahoo_FetchDaily(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, chartOK)
	}))
	defer srv.Close()

	f := newTestYahoo(srv)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	series, err := f.FetchDaily(context.Background(), "AAPL", from, to)
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/AAPL", gotPath)
	assert.Contains(t, gotQuery, fmt.Sprintf("period1=%d", from.Unix()))
	assert.Contains(t, gotQuery, fmt.Sprintf("period2=%d", to.Unix()))

	// The third bar is all nulls and must be skipped.
	require.Len(t, series.Bars, 2)
	assert.Equal(t, "AAPL", series.Symbol)
	assert.Equal(t, 101.0, series.Bars[0].Close)
	assert.Equal(t, 101.5, series.Bars[1].Close)
	assert.Equal(t, int64(1200), series.Bars[1].Volume)
	assert.True(t, series.Bars[0].Date.Before(series.Bars[1].Date))
}

func TestYahoo_FetchDailySymbolMapping(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		fmt.Fprint(w, chartOK)
	}))
	defer srv.Close()

	f := newTestYahoo(srv)
	_, err := f.FetchDaily(context.Background(), "SPX500", time.Now().AddDate(0, 0, -5), time.Now())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(gotPath, "/%5EGSPC"), "path %q should carry the escaped ^GSPC ticker", gotPath)
}

func TestYahoo_FetchDailyErrors(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"api error", http.StatusOK, chartAPIError, "delisted"},
		{"server error", http.StatusInternalServerError, "oops", "status 500"},
		{"bad json", http.StatusOK, "{not json", "decode"},
		{"empty result", http.StatusOK, `{"chart":{"result":[],"error":null}}`, "no data"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			}))
			defer srv.Close()

			f := newTestYahoo(srv)
			_, err := f.FetchDaily(context.Background(), "AAPL", time.Now().AddDate(0, 0, -5), time.Now())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDataUnavailable), "want ErrDataUnavailable, got %v", err)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestYahoo_FetchDailyOnlyNullBars(t *testing.T) {
	body := `{"chart":{"result":[{"timestamp":[1767225600],"indicators":{"quote":[{"open":[null],"high":[null],"low":[null],"close":[null],"volume":[null]}]}}],"error":null}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	f := newTestYahoo(srv)
	_, err := f.FetchDaily(context.Background(), "AAPL", time.Now().AddDate(0, 0, -5), time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDataUnavailable))
}
