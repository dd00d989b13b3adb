// Package pipeline 把数据源、去重、排序与快照串成一次完整的刷新
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/LJTian/AINewsHub/internal/collector"
	"github.com/LJTian/AINewsHub/internal/logger"
	"github.com/LJTian/AINewsHub/internal/metrics"
	"github.com/LJTian/AINewsHub/internal/news"
	"github.com/LJTian/AINewsHub/internal/processor"
	"github.com/LJTian/AINewsHub/internal/storage"
)

type Options struct {
	MaxStories     int
	MaxPerTopic    int
	DedupThreshold int
	// CacheTTL 快照在这个时长内视为新鲜，Latest 直接返回而不刷新
	CacheTTL     time.Duration
	CacheVersion int
}

// Pipeline 数据源按固定顺序拼接：构造时传入的 fetchers 顺序即优先级
type Pipeline struct {
	fetchers []collector.Fetcher
	dedup    processor.Deduplicator
	store    *storage.SnapshotStore
	metrics  *metrics.Metrics
	log      logger.Logger

	maxStories int
	cacheTTL   time.Duration
	flightKey  string

	group singleflight.Group
	now   func() time.Time
}

func New(opts Options, fetchers []collector.Fetcher, store *storage.SnapshotStore, m *metrics.Metrics, log logger.Logger) *Pipeline {
	if m == nil {
		m = metrics.New(nil)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Pipeline{
		fetchers:   fetchers,
		dedup:      processor.NewDeduplicator(opts.DedupThreshold, opts.MaxPerTopic),
		store:      store,
		metrics:    m,
		log:        log.With(logger.String("component", "pipeline")),
		maxStories: opts.MaxStories,
		cacheTTL:   opts.CacheTTL,
		flightKey:  "refresh:v" + strconv.Itoa(opts.CacheVersion),
		now:        time.Now,
	}
}

// Run 执行一次完整刷新，永远不返回错误：
// 结果非空时写入快照并返回；结果为空或中途 panic 时退回到上一次的快照。
func (p *Pipeline) Run(ctx context.Context) (result []news.Story) {
	start := time.Now()
	fallback := false
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("pipeline: panic recovered", logger.String("panic", fmt.Sprint(r)))
			result, fallback = p.fromCache(), true
		}
		p.metrics.ObserveRefresh(start, len(result), fallback)
	}()

	batches, err := p.collect(ctx)
	if err != nil {
		p.log.Error("pipeline: collect failed", logger.Error(err))
		fallback = true
		return p.fromCache()
	}

	var combined []news.Story
	for _, b := range batches {
		combined = append(combined, b...)
	}
	p.log.Info("pipeline: before dedup", logger.Int("count", len(combined)))

	deduped, stats := p.dedup.Dedupe(combined)
	p.metrics.ObserveDedup(stats.ExactTitle, stats.ExactURL, stats.Fuzzy, stats.TopicCap)
	p.log.Info("pipeline: after dedup",
		logger.Int("count", len(deduped)),
		logger.Int("exact_title", stats.ExactTitle),
		logger.Int("exact_url", stats.ExactURL),
		logger.Int("fuzzy", stats.Fuzzy),
		logger.Int("topic_cap", stats.TopicCap))

	final := processor.Rank(deduped, p.maxStories)
	p.log.Info("pipeline: final selection", logger.Int("count", len(final)))

	if len(final) == 0 {
		p.log.Warn("pipeline: nothing fetched, serving cached snapshot")
		fallback = true
		return p.fromCache()
	}
	if err := p.store.Save(final); err != nil {
		p.log.Error("pipeline: save snapshot failed", logger.String("path", p.store.Path()), logger.Error(err))
	}
	return final
}

// collect 并发调用各数据源，结果写入与 fetchers 同序的槽位
func (p *Pipeline) collect(ctx context.Context) ([][]news.Story, error) {
	batches := make([][]news.Story, len(p.fetchers))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range p.fetchers {
		i, f := i, f
		g.Go(func() (err error) {
			name := f.Name()
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%s: panic: %v", name, r)
				}
			}()
			items := f.Fetch(gctx)
			batches[i] = items
			p.metrics.ObserveFetch(name, len(items))
			p.log.Info("pipeline: fetched", logger.String("source", name), logger.Int("count", len(items)))
			return nil
		})
	}
	return batches, g.Wait()
}

func (p *Pipeline) fromCache() []news.Story {
	cached := truncate(p.store.Load(), p.maxStories)
	p.log.Info("pipeline: cached snapshot", logger.Int("count", len(cached)))
	return cached
}

// Refresh 强制刷新；并发调用共享同一次 Run
func (p *Pipeline) Refresh(ctx context.Context) []news.Story {
	v, _, _ := p.group.Do(p.flightKey, func() (any, error) {
		// 调用方断开不影响正在进行的刷新
		return p.Run(context.WithoutCancel(ctx)), nil
	})
	return v.([]news.Story)
}

// Latest 快照仍在有效期内时直接返回快照，否则刷新
func (p *Pipeline) Latest(ctx context.Context) []news.Story {
	snap := p.store.LoadSnapshot()
	if len(snap.Stories) > 0 && !snap.CreatedAt.IsZero() && p.now().Sub(snap.CreatedAt) < p.cacheTTL {
		return truncate(snap.Stories, p.maxStories)
	}
	return p.Refresh(ctx)
}

// Flush 删除快照，下一次 Latest 会重新抓取
func (p *Pipeline) Flush() error {
	if err := p.store.Clear(); err != nil {
		return fmt.Errorf("flush snapshot: %w", err)
	}
	return nil
}

func truncate(list []news.Story, n int) []news.Story {
	if n <= 0 {
		return []news.Story{}
	}
	if len(list) > n {
		return list[:n]
	}
	return list
}
