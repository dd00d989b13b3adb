package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/LJTian/AINewsHub/internal/logger"
	"github.com/LJTian/AINewsHub/internal/news"
	"github.com/LJTian/AINewsHub/internal/processor"
)

const (
	newsdataBaseURL       = "https://newsdata.io/api/1/latest"
	newsdataClientTimeout = 20 * time.Second
	newsdataDefaultTarget = 6
)

var (
	NewsDataTechQueries = []string{
		`AI OR "artificial intelligence"`,
		`"large language model" OR LLM`,
		`OpenAI OR Anthropic OR Mistral`,
		`"Google DeepMind" OR "Agent AI"`,
	}
	NewsDataBusinessQueries = []string{
		`AI earnings`,
		`AI chips OR Nvidia`,
		`Microsoft AND AI`,
		`Google OR Alphabet AND AI`,
		`Meta AND AI`,
		`Amazon AND AI`,
		`AMD AND AI`,
	}
)

type newsdataResponse struct {
	Results  []newsdataResult `json:"results"`
	NextPage string           `json:"nextPage"`
}

type newsdataResult struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	URL         string `json:"url"`
	SourceID    string `json:"source_id"`
	Source      string `json:"source"`
	Description string `json:"description"`
	Content     string `json:"content"`
	ImageURL    string `json:"image_url"`
	Image       string `json:"image"`
	PubDate     string `json:"pubDate"`
	PublishedAt string `json:"published_at"`
}

func (r newsdataResult) raw() processor.RawArticle {
	return processor.RawArticle{
		Title:       strings.TrimSpace(r.Title),
		Summary:     strings.TrimSpace(firstNonEmpty(r.Description, r.Content)),
		URL:         firstNonEmpty(r.Link, r.URL),
		ImageURL:    firstNonEmpty(r.ImageURL, r.Image),
		Source:      strings.TrimSpace(firstNonEmpty(r.SourceID, r.Source, "NewsData")),
		PublishedAt: firstNonEmpty(r.PubDate, r.PublishedAt),
	}
}

// NewsDataFetcher 次数据源，按分类（technology / business）拉取。
// 同一 API Key 下的所有分类共享一个 Cooldown。
type NewsDataFetcher struct {
	BaseURL  string
	APIKey   string
	Category string
	Queries  []string
	Target   int
	Tags     []string

	gate       *Cooldown
	client     *http.Client
	normalizer *processor.Normalizer
	log        logger.Logger
}

func NewNewsDataFetcher(apiKey, category string, queries []string, tags []string, gate *Cooldown, client *http.Client, n *processor.Normalizer, log logger.Logger) *NewsDataFetcher {
	if gate == nil {
		gate = NewCooldown(DefaultCooldown)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &NewsDataFetcher{
		BaseURL:    newsdataBaseURL,
		APIKey:     apiKey,
		Category:   category,
		Queries:    queries,
		Target:     newsdataDefaultTarget,
		Tags:       tags,
		gate:       gate,
		client:     client,
		normalizer: n,
		log:        log.With(logger.String("source", "newsdata"), logger.String("category", category)),
	}
}

// NewNewsDataTechFetcher technology 分类，标签 ai
func NewNewsDataTechFetcher(apiKey string, gate *Cooldown, client *http.Client, n *processor.Normalizer, log logger.Logger) *NewsDataFetcher {
	return NewNewsDataFetcher(apiKey, "technology", NewsDataTechQueries, []string{"ai"}, gate, client, n, log)
}

// NewNewsDataBusinessFetcher business 分类，标签 finance + ai
func NewNewsDataBusinessFetcher(apiKey string, gate *Cooldown, client *http.Client, n *processor.Normalizer, log logger.Logger) *NewsDataFetcher {
	return NewNewsDataFetcher(apiKey, "business", NewsDataBusinessQueries, []string{"finance", "ai"}, gate, client, n, log)
}

func (f *NewsDataFetcher) Name() string {
	return "newsdata_" + f.Category
}

func (f *NewsDataFetcher) Fetch(ctx context.Context) []news.Story {
	collected := make([]news.Story, 0, f.Target)
	if f.APIKey == "" {
		f.log.Debug("newsdata: api key missing, skip")
		return collected
	}

	for _, q := range f.Queries {
		if len(collected) >= f.Target {
			break
		}
		nextPage := ""
		for len(collected) < f.Target {
			params := url.Values{}
			params.Set("apikey", f.APIKey)
			params.Set("category", f.Category)
			params.Set("language", "en")
			params.Set("q", q)
			if nextPage != "" {
				params.Set("page", nextPage)
			}

			data, ok := f.get(ctx, q, params)
			if !ok {
				break
			}
			for _, r := range data.Results {
				raw := r.raw()
				if raw.Title == "" || raw.URL == "" {
					continue
				}
				if s, ok := f.normalizer.Normalize(ctx, raw, f.Tags); ok {
					collected = append(collected, s)
				}
				if len(collected) >= f.Target {
					break
				}
			}

			nextPage = data.NextPage
			if nextPage == "" || len(data.Results) == 0 {
				break
			}
		}
	}

	f.log.Info("newsdata: normalized stories", logger.Int("count", len(collected)))
	return collected
}

// get 经过 Cooldown 的单次调用：冷却中直接跳过；429 开始冷却；其它失败只记录日志
func (f *NewsDataFetcher) get(ctx context.Context, q string, params url.Values) (newsdataResponse, bool) {
	if f.gate.Active() {
		f.log.Info("newsdata: on cooldown, skipping call", logger.Time("until", f.gate.Until()))
		return newsdataResponse{}, false
	}

	res, err := getWithParams(ctx, f.client, f.BaseURL, params, nil, newsdataClientTimeout)
	if err != nil {
		f.log.Warn("newsdata: network error", logger.String("query", q), logger.Error(err))
		return newsdataResponse{}, false
	}

	switch {
	case res.Status == http.StatusTooManyRequests:
		until := f.gate.Trip()
		f.log.Warn("newsdata: rate limited, cooling down",
			logger.String("query", q), logger.Time("until", until))
		return newsdataResponse{}, false
	case res.Status < 200 || res.Status >= 300:
		f.log.Warn("newsdata: unexpected status",
			logger.String("query", q), logger.Int("status", res.Status), logger.String("body", snippet(res.Body, 200)))
		return newsdataResponse{}, false
	}

	var data newsdataResponse
	if err := json.Unmarshal(res.Body, &data); err != nil {
		f.log.Warn("newsdata: failed to parse json", logger.String("query", q), logger.Error(err))
		return newsdataResponse{}, false
	}
	return data, true
}
