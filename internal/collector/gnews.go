package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/LJTian/AINewsHub/internal/logger"
	"github.com/LJTian/AINewsHub/internal/news"
	"github.com/LJTian/AINewsHub/internal/processor"
)

const (
	gnewsBaseURL       = "https://gnews.io/api/v4/search"
	gnewsClientTimeout = 12 * time.Second
	gnewsMaxPerQuery   = 8
	gnewsDefaultTarget = 8
)

// GNewsQueries 按顺序查询，够数即停
var GNewsQueries = []string{
	`"OpenAI" OR Anthropic OR "Google DeepMind"`,
	`AI OR "artificial intelligence" OR LLM`,
	`Nvidia OR "AI chips" OR semiconductor`,
	`Microsoft OR Alphabet OR Google`,
	`Meta OR Amazon OR AMD`,
	`Mistral OR "Agent AI"`,
}

type gnewsResponse struct {
	Articles []gnewsArticle `json:"articles"`
}

type gnewsArticle struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	URL          string `json:"url"`
	Image        string `json:"image"`
	ImageURL     string `json:"image_url"`
	PublishedAt  string `json:"publishedAt"`
	PublishedAt2 string `json:"published_at"`
	Source       struct {
		Name string `json:"name"`
	} `json:"source"`
}

func (a gnewsArticle) raw() processor.RawArticle {
	return processor.RawArticle{
		Title:       a.Title,
		Summary:     a.Description,
		URL:         a.URL,
		ImageURL:    firstNonEmpty(a.Image, a.ImageURL),
		Source:      firstNonEmpty(a.Source.Name, "GNews"),
		PublishedAt: firstNonEmpty(a.PublishedAt, a.PublishedAt2),
	}
}

// GNewsFetcher 主数据源：按多个关键词组合查询 GNews
type GNewsFetcher struct {
	BaseURL string
	APIKey  string
	Queries []string
	Target  int
	Tags    []string

	client     *http.Client
	normalizer *processor.Normalizer
	log        logger.Logger
}

func NewGNewsFetcher(apiKey string, client *http.Client, n *processor.Normalizer, log logger.Logger) *GNewsFetcher {
	if log == nil {
		log = logger.NewNop()
	}
	return &GNewsFetcher{
		BaseURL:    gnewsBaseURL,
		APIKey:     apiKey,
		Queries:    GNewsQueries,
		Target:     gnewsDefaultTarget,
		Tags:       []string{"ai"},
		client:     client,
		normalizer: n,
		log:        log.With(logger.String("source", "gnews")),
	}
}

func (g *GNewsFetcher) Name() string {
	return "gnews"
}

func (g *GNewsFetcher) Fetch(ctx context.Context) []news.Story {
	collected := make([]news.Story, 0, g.Target)
	if g.APIKey == "" {
		g.log.Debug("gnews: api key missing, skip")
		return collected
	}

	for _, q := range g.Queries {
		if len(collected) >= g.Target {
			break
		}
		remaining := g.Target - len(collected)
		for _, a := range g.search(ctx, q, min(gnewsMaxPerQuery, remaining)) {
			if s, ok := g.normalizer.Normalize(ctx, a.raw(), g.Tags); ok {
				collected = append(collected, s)
			}
			if len(collected) >= g.Target {
				break
			}
		}
	}

	g.log.Info("gnews: normalized stories", logger.Int("count", len(collected)))
	return collected
}

func (g *GNewsFetcher) search(ctx context.Context, q string, limit int) []gnewsArticle {
	params := url.Values{}
	params.Set("q", q)
	params.Set("lang", "en")
	params.Set("max", strconv.Itoa(limit))
	params.Set("token", g.APIKey)
	params.Set("sortby", "publishedAt")

	res, err := getWithParams(ctx, g.client, g.BaseURL, params, nil, gnewsClientTimeout)
	if err != nil {
		g.log.Warn("gnews: request failed", logger.String("query", q), logger.Error(err))
		return nil
	}
	if res.Status != http.StatusOK {
		g.log.Warn("gnews: unexpected status",
			logger.String("query", q), logger.Int("status", res.Status), logger.String("body", snippet(res.Body, 140)))
		return nil
	}

	var data gnewsResponse
	if err := json.Unmarshal(res.Body, &data); err != nil {
		g.log.Warn("gnews: decode failed", logger.String("query", q), logger.Error(err))
		return nil
	}
	return data.Articles
}
