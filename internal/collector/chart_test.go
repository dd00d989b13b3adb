package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LJTian/AINewsHub/internal/storage"
)

// 2024-12-31, 2025-01-02, 缺收盘价, 缺时间戳
const chartBody = `{"chart":{"result":[{
	"timestamp":[1735603200,1735776000,1735862400,null],
	"indicators":{"quote":[{
		"open":[10,11,12,13],
		"high":[10.5,11.5,12.5,13.5],
		"low":[9.5,10.5,11.5,12.5],
		"close":[10.2,11.2,null,13.2],
		"volume":[100,null,300,400]
	}]}
}]}}`

func newTestChart(t *testing.T, rapid, yahoo *httptest.Server) *ChartFetcher {
	t.Helper()
	c := NewChartFetcher("", http.DefaultClient, storage.NewMemoryCache[ChartData](time.Minute), nil)
	if rapid != nil {
		c.RapidAPIKey = "rk"
		c.RapidAPIURL = rapid.URL
	}
	if yahoo != nil {
		c.YahooURL = yahoo.URL + "/chart/"
	}
	c.now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }
	return c
}

func TestChartDropsIncompletePoints(t *testing.T) {
	yahoo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chart/NVDA", r.URL.Path)
		assert.Equal(t, "6mo", r.URL.Query().Get("range"))
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		fmt.Fprint(w, chartBody)
	}))
	defer yahoo.Close()

	c := newTestChart(t, nil, yahoo)
	got := c.History(context.Background(), " nvda ", "6MO", "1d")

	assert.Equal(t, "NVDA", got.Symbol)
	require.Len(t, got.Points, 2)
	assert.Equal(t, int64(1735603200000), got.Points[0].T)
	assert.Equal(t, 10.2, got.Points[0].C)
	require.NotNil(t, got.Points[0].V)
	assert.Equal(t, 100.0, *got.Points[0].V)
	assert.Nil(t, got.Points[1].V)
}

func TestChartYTDTrimmedAndSentAsOneYear(t *testing.T) {
	rapid := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "rk", r.Header.Get("X-RapidAPI-Key"))
		assert.Equal(t, "1y", r.URL.Query().Get("range"))
		assert.Equal(t, "MSFT", r.URL.Query().Get("symbol"))
		fmt.Fprint(w, chartBody)
	}))
	defer rapid.Close()

	c := newTestChart(t, rapid, nil)
	got := c.History(context.Background(), "MSFT", "ytd", "1d")
	require.Len(t, got.Points, 1)
	assert.Equal(t, int64(1735776000000), got.Points[0].T)
}

func TestChartFallsBackToYahooAndCaches(t *testing.T) {
	var rapidCalls, yahooCalls atomic.Int32
	rapid := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rapidCalls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer rapid.Close()
	yahoo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		yahooCalls.Add(1)
		fmt.Fprint(w, chartBody)
	}))
	defer yahoo.Close()

	c := newTestChart(t, rapid, yahoo)
	first := c.History(context.Background(), "GOOGL", "1y", "1d")
	second := c.History(context.Background(), "googl", "1Y", "1D")

	assert.Len(t, first.Points, 2)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, rapidCalls.Load())
	assert.EqualValues(t, 1, yahooCalls.Load())
}

func TestChartEmptyResultIsCached(t *testing.T) {
	var calls atomic.Int32
	yahoo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer yahoo.Close()

	c := newTestChart(t, nil, yahoo)
	for i := 0; i < 3; i++ {
		got := c.History(context.Background(), "ZZZZ", "1mo", "1d")
		assert.NotNil(t, got.Points)
		assert.Empty(t, got.Points)
	}
	assert.EqualValues(t, 1, calls.Load())
}

func TestChartAllSourcesFailEncodesEmptyList(t *testing.T) {
	yahoo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer yahoo.Close()

	c := newTestChart(t, nil, yahoo)
	for i := 0; i < 2; i++ {
		// 第二次来自缓存
		body, err := json.Marshal(c.History(context.Background(), "ZZZZ", "1mo", "1d"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"symbol":"ZZZZ","points":[]}`, string(body))
	}
}

func TestTrimYTDNeverNil(t *testing.T) {
	c := newTestChart(t, nil, nil)
	assert.NotNil(t, c.trimYTD("ytd", nil))
	assert.NotNil(t, c.trimYTD("1mo", nil))
	assert.NotNil(t, c.trimYTD("ytd", []Point{{T: 1}}))
}

func TestChartRejectsInvalidSymbol(t *testing.T) {
	var calls atomic.Int32
	yahoo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer yahoo.Close()

	c := newTestChart(t, nil, yahoo)
	got := c.History(context.Background(), "../etc", "1mo", "1d")
	assert.Empty(t, got.Points)
	got = c.History(context.Background(), strings.Repeat("A", 20), "1mo", "1d")
	assert.Empty(t, got.Points)
	assert.EqualValues(t, 0, calls.Load())
}

func TestChartKey(t *testing.T) {
	assert.Equal(t, "NVDA|ytd|1d", ChartKey("nvda", "YTD", "1D"))
}
