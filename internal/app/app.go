// Package app 组装各组件，cmd/api 与 cmd/collect 共用
package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/LJTian/AINewsHub/internal/collector"
	"github.com/LJTian/AINewsHub/internal/config"
	"github.com/LJTian/AINewsHub/internal/logger"
	"github.com/LJTian/AINewsHub/internal/metrics"
	"github.com/LJTian/AINewsHub/internal/pipeline"
	"github.com/LJTian/AINewsHub/internal/processor"
	"github.com/LJTian/AINewsHub/internal/storage"
)

const chartCachePrefix = "ainewshub:chart:"

type App struct {
	Config   *config.Config
	Pipeline *pipeline.Pipeline
	Charts   *collector.ChartFetcher
	Metrics  *metrics.Metrics
}

// New 按配置组装管线与行情服务；缺少 API Key 的数据源仍然注册，调用时直接返回空列表
func New(cfg *config.Config, log logger.Logger) *App {
	log.Info("config loaded",
		logger.String("gnews_key", config.Mask(cfg.GNewsAPIKey)),
		logger.String("newsdata_key", config.Mask(cfg.NewsDataAPIKey)),
		logger.String("google_key", config.Mask(cfg.GoogleAPIKey)),
		logger.String("rapidapi_key", config.Mask(cfg.RapidAPIKey)),
		logger.Bool("translate", cfg.TranslateEnabled && cfg.GoogleAPIKey != ""),
		logger.String("cache_path", cfg.CachePath()),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	client := collector.NewHTTPClient()
	translator := collector.NewGoogleTranslator(cfg.TranslateEnabled, cfg.GoogleAPIKey, client, log)
	normalizer := processor.NewNormalizer(nil, translator)

	// 两个 NewsData 分类共用一个 API Key，也共用限流冷却
	gate := collector.NewCooldown(collector.DefaultCooldown)
	fetchers := []collector.Fetcher{
		collector.NewGNewsFetcher(cfg.GNewsAPIKey, client, normalizer, log),
		collector.NewNewsDataTechFetcher(cfg.NewsDataAPIKey, gate, client, normalizer, log),
		collector.NewNewsDataBusinessFetcher(cfg.NewsDataAPIKey, gate, client, normalizer, log),
	}

	store := storage.NewSnapshotStore(cfg.CachePath(), log)
	p := pipeline.New(pipeline.Options{
		MaxStories:     cfg.MaxStories,
		MaxPerTopic:    cfg.MaxPerTopic,
		DedupThreshold: cfg.DedupThreshold,
		CacheTTL:       cfg.CacheTTL,
		CacheVersion:   cfg.CacheVersion,
	}, fetchers, store, m, log)

	var chartCache storage.Cache[collector.ChartData]
	if cfg.RedisAddr != "" {
		chartCache = storage.NewRedisCache[collector.ChartData](
			storage.NewRedisClient(cfg.RedisAddr, log), chartCachePrefix, storage.DefaultTTL, log)
	} else {
		chartCache = storage.NewMemoryCache[collector.ChartData](storage.DefaultTTL)
	}

	return &App{
		Config:   cfg,
		Pipeline: p,
		Charts:   collector.NewChartFetcher(cfg.RapidAPIKey, client, chartCache, log),
		Metrics:  m,
	}
}
