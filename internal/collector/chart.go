package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/LJTian/AINewsHub/internal/logger"
	"github.com/LJTian/AINewsHub/internal/storage"
)

const (
	rapidAPIChartURL   = "https://apidojo-yahoo-finance-v1.p.rapidapi.com/stock/v3/get-chart"
	rapidAPIHost       = "apidojo-yahoo-finance-v1.p.rapidapi.com"
	yahooChartURL      = "https://query1.finance.yahoo.com/v8/finance/chart/"
	chartClientTimeout = 20 * time.Second
)

// 股票代码只允许常见字符，避免拼进 URL 路径时出问题
var symbolRe = regexp.MustCompile(`^[A-Z0-9.\-^=]{1,16}$`)

// 公开接口在 interval=auto 时使用的默认粒度
var chartRangeDefaults = map[string]struct{ rng, interval string }{
	"1d":  {"1d", "5m"},
	"5d":  {"5d", "15m"},
	"1mo": {"1mo", "1d"},
	"6mo": {"6mo", "1d"},
	"ytd": {"1y", "1d"},
	"1y":  {"1y", "1d"},
	"5y":  {"5y", "1wk"},
	"max": {"max", "1mo"},
}

// Point 一根 K 线，t 为毫秒时间戳
type Point struct {
	T int64    `json:"t"`
	O *float64 `json:"o"`
	H *float64 `json:"h"`
	L *float64 `json:"l"`
	C float64  `json:"c"`
	V *float64 `json:"v"`
}

type ChartData struct {
	Symbol string  `json:"symbol"`
	Points []Point `json:"points"`
}

// yahooChartResp RapidAPI 与公开接口共用的 chart 响应结构
type yahooChartResp struct {
	Chart struct {
		Result []struct {
			Timestamp  []*int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

// ChartFetcher 拉取行情历史，结果按 (代码, 区间, 粒度) 缓存
type ChartFetcher struct {
	RapidAPIKey string
	RapidAPIURL string
	YahooURL    string

	client *http.Client
	cache  storage.Cache[ChartData]
	log    logger.Logger
	now    func() time.Time
}

func NewChartFetcher(rapidAPIKey string, client *http.Client, cache storage.Cache[ChartData], log logger.Logger) *ChartFetcher {
	if cache == nil {
		cache = storage.NewMemoryCache[ChartData](storage.DefaultTTL)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &ChartFetcher{
		RapidAPIKey: rapidAPIKey,
		RapidAPIURL: rapidAPIChartURL,
		YahooURL:    yahooChartURL,
		client:      client,
		cache:       cache,
		log:         log.With(logger.String("source", "chart")),
		now:         time.Now,
	}
}

// ChartKey 缓存 key
func ChartKey(symbol, rng, interval string) string {
	return strings.ToUpper(symbol) + "|" + strings.ToLower(rng) + "|" + strings.ToLower(interval)
}

// History 返回行情点；所有数据源都失败时返回空点列（同样会被缓存，避免短时间内反复请求）
func (c *ChartFetcher) History(ctx context.Context, symbol, rng, interval string) ChartData {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	rng = strings.ToLower(strings.TrimSpace(rng))
	interval = strings.ToLower(strings.TrimSpace(interval))

	data := ChartData{Symbol: symbol, Points: []Point{}}
	if !symbolRe.MatchString(symbol) {
		c.log.Warn("chart: invalid symbol", logger.String("symbol", symbol))
		return data
	}

	key := ChartKey(symbol, rng, interval)
	if cached, ok := c.cache.Get(ctx, key); ok {
		return cached
	}

	source := "rapidapi"
	pts, err := c.fromRapidAPI(ctx, symbol, rng, interval)
	if err != nil {
		c.log.Warn("chart: rapidapi failed", logger.String("symbol", symbol), logger.Error(err))
	}
	if len(pts) == 0 {
		source = "yahoo"
		pts, err = c.fromYahoo(ctx, symbol, rng, interval)
		if err != nil {
			c.log.Warn("chart: yahoo failed", logger.String("symbol", symbol), logger.Error(err))
		}
	}
	if len(pts) == 0 {
		source = "none"
	}

	data.Points = c.trimYTD(rng, pts)
	c.cache.Put(ctx, key, data)
	c.log.Info("chart: fetched",
		logger.String("symbol", symbol), logger.String("range", rng), logger.String("interval", interval),
		logger.Int("points", len(data.Points)), logger.String("via", source))
	return data
}

func (c *ChartFetcher) fromRapidAPI(ctx context.Context, symbol, rng, interval string) ([]Point, error) {
	if c.RapidAPIKey == "" {
		return nil, nil
	}
	wireRange := rng
	if rng == "ytd" {
		wireRange = "1y"
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("range", wireRange)
	params.Set("region", "US")
	headers := map[string]string{
		"X-RapidAPI-Key":  c.RapidAPIKey,
		"X-RapidAPI-Host": rapidAPIHost,
	}

	res, err := getWithParams(ctx, c.client, c.RapidAPIURL, params, headers, chartClientTimeout)
	if err != nil {
		return nil, err
	}
	if res.Status != http.StatusOK {
		return nil, fmt.Errorf("status %d", res.Status)
	}
	return buildPoints(res.Body)
}

func (c *ChartFetcher) fromYahoo(ctx context.Context, symbol, rng, interval string) ([]Point, error) {
	def, ok := chartRangeDefaults[rng]
	if !ok {
		def = chartRangeDefaults["6mo"]
	}
	if interval != "auto" && interval != "" {
		def.interval = interval
	}

	params := url.Values{}
	params.Set("range", def.rng)
	params.Set("interval", def.interval)

	res, err := getWithParams(ctx, c.client, c.YahooURL+url.PathEscape(symbol), params,
		map[string]string{"User-Agent": "Mozilla/5.0"}, chartClientTimeout)
	if err != nil {
		return nil, err
	}
	if res.Status != http.StatusOK {
		return nil, fmt.Errorf("status %d", res.Status)
	}
	return buildPoints(res.Body)
}

// buildPoints 丢弃时间戳或收盘价缺失的点
func buildPoints(body []byte) ([]Point, error) {
	var payload yahooChartResp
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode chart: %w", err)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, nil
	}
	result := payload.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, nil
	}
	q := result.Indicators.Quote[0]

	at := func(vals []*float64, i int) *float64 {
		if i >= len(vals) {
			return nil
		}
		return vals[i]
	}

	pts := make([]Point, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		closeVal := at(q.Close, i)
		if ts == nil || closeVal == nil {
			continue
		}
		pts = append(pts, Point{
			T: *ts * 1000,
			O: at(q.Open, i),
			H: at(q.High, i),
			L: at(q.Low, i),
			C: *closeVal,
			V: at(q.Volume, i),
		})
	}
	return pts, nil
}

// trimYTD ytd 只保留当年 1 月 1 日（UTC）之后的点；返回值总是非 nil
func (c *ChartFetcher) trimYTD(rng string, pts []Point) []Point {
	if pts == nil {
		return []Point{}
	}
	if rng != "ytd" {
		return pts
	}
	now := c.now().UTC()
	jan1 := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	out := make([]Point, 0, len(pts))
	for _, p := range pts {
		if p.T >= jan1 {
			out = append(out, p)
		}
	}
	return out
}
