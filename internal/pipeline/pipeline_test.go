package pipeline

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LJTian/AINewsHub/internal/collector"
	"github.com/LJTian/AINewsHub/internal/metrics"
	"github.com/LJTian/AINewsHub/internal/news"
	"github.com/LJTian/AINewsHub/internal/storage"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func mkStory(title, url, source string, age time.Duration) news.Story {
	return news.Story{
		Timestamp:  base.Add(-age),
		Title:      news.Text{news.LangPrimary: title, news.LangSecondary: title},
		Summary:    news.Text{news.LangPrimary: "", news.LangSecondary: ""},
		URL:        url,
		Source:     source,
		Categories: []string{"AI"},
		Tags:       []string{"ai"},
	}
}

type stubFetcher struct {
	name    string
	stories []news.Story
	panics  bool
	block   chan struct{}
	calls   atomic.Int32
}

func (s *stubFetcher) Name() string { return s.name }

func (s *stubFetcher) Fetch(_ context.Context) []news.Story {
	s.calls.Add(1)
	if s.block != nil {
		<-s.block
	}
	if s.panics {
		panic("boom")
	}
	return s.stories
}

func newTestPipeline(t *testing.T, maxStories int, fetchers ...collector.Fetcher) (*Pipeline, *storage.SnapshotStore, *metrics.Metrics) {
	t.Helper()
	store := storage.NewSnapshotStore(filepath.Join(t.TempDir(), "news_cache_5.json"), nil)
	m := metrics.New(nil)
	p := New(Options{
		MaxStories:     maxStories,
		MaxPerTopic:    10,
		DedupThreshold: 92,
		CacheTTL:       45 * time.Minute,
		CacheVersion:   5,
	}, fetchers, store, m, nil)
	return p, store, m
}

func sampleCache() []news.Story {
	return []news.Story{
		mkStory("Cached one about robotics", "https://c.example/1", "cache", time.Hour),
		mkStory("Cached two on quantum compilers", "https://c.example/2", "cache", 2*time.Hour),
		mkStory("Cached three: parliament privacy bill", "https://c.example/3", "cache", 3*time.Hour),
		mkStory("Cached four, satellites and weather", "https://c.example/4", "cache", 4*time.Hour),
	}
}

func TestRunRanksAndSaves(t *testing.T) {
	gnews := &stubFetcher{name: "gnews", stories: []news.Story{
		mkStory("Robotics startup ships warehouse arm", "https://a.example/1", "gnews", 3*time.Hour),
		mkStory("Quantum compiler benchmark published", "https://a.example/2", "gnews", time.Hour),
	}}
	tech := &stubFetcher{name: "newsdata_technology", stories: []news.Story{
		mkStory("Parliament debates data privacy bill", "https://b.example/1", "newsdata", 2*time.Hour),
	}}

	p, store, m := newTestPipeline(t, 12, gnews, tech)
	got := p.Run(context.Background())

	require.Len(t, got, 3)
	assert.Equal(t, "https://a.example/2", got[0].URL)
	assert.Equal(t, "https://b.example/1", got[1].URL)
	assert.Equal(t, "https://a.example/1", got[2].URL)

	saved := store.Load()
	require.Len(t, saved, 3)
	assert.Equal(t, got[0].URL, saved[0].URL)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StoriesFetched.WithLabelValues("gnews")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.StoriesSelected))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CacheFallbacks))
}

func TestRunEarlierSourceWinsDuplicates(t *testing.T) {
	gnews := &stubFetcher{name: "gnews", stories: []news.Story{
		mkStory("OpenAI launches GPT-5", "https://a.example/gpt5", "gnews", time.Hour),
	}}
	tech := &stubFetcher{name: "newsdata_technology", stories: []news.Story{
		mkStory("OpenAI Launches GPT-5!", "https://b.example/gpt5", "newsdata", 0),
	}}

	p, _, m := newTestPipeline(t, 12, gnews, tech)
	got := p.Run(context.Background())

	require.Len(t, got, 1)
	assert.Equal(t, "gnews", got[0].Source)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DedupDropped.WithLabelValues("exact_title")))
}

func TestRunCapsResult(t *testing.T) {
	gnews := &stubFetcher{name: "gnews", stories: sampleCache()}
	p, _, _ := newTestPipeline(t, 2, gnews)
	got := p.Run(context.Background())
	require.Len(t, got, 2)
	assert.Equal(t, "https://c.example/1", got[0].URL)
}

func TestRunEmptyFallsBackToCache(t *testing.T) {
	empty := &stubFetcher{name: "gnews"}
	p, store, m := newTestPipeline(t, 3, empty)
	require.NoError(t, store.Save(sampleCache()))

	got := p.Run(context.Background())
	require.Len(t, got, 3)
	for i, s := range got {
		assert.Equal(t, sampleCache()[i].URL, s.URL, "保持快照中的顺序")
	}
	assert.Len(t, store.Load(), 4, "回退时不覆盖快照")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheFallbacks))
}

func TestRunEmptyWithoutCache(t *testing.T) {
	p, _, _ := newTestPipeline(t, 12, &stubFetcher{name: "gnews"}, &stubFetcher{name: "newsdata_business"})
	got := p.Run(context.Background())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRunRecoversFetcherPanic(t *testing.T) {
	ok := &stubFetcher{name: "gnews", stories: []news.Story{
		mkStory("Fresh robotics story", "https://a.example/1", "gnews", 0),
	}}
	bad := &stubFetcher{name: "newsdata_technology", panics: true}

	p, store, _ := newTestPipeline(t, 12, ok, bad)
	require.NoError(t, store.Save(sampleCache()))

	got := p.Run(context.Background())
	require.Len(t, got, 4)
	assert.Equal(t, "cache", got[0].Source)
}

func TestLatestServesFreshSnapshot(t *testing.T) {
	f := &stubFetcher{name: "gnews", stories: []news.Story{
		mkStory("Fresh robotics story", "https://a.example/1", "gnews", 0),
	}}
	p, store, _ := newTestPipeline(t, 2, f)
	require.NoError(t, store.Save(sampleCache()))

	got := p.Latest(context.Background())
	assert.Len(t, got, 2)
	assert.Equal(t, "cache", got[0].Source)
	assert.EqualValues(t, 0, f.calls.Load())

	// 超过有效期后重新抓取
	p.now = func() time.Time { return time.Now().Add(time.Hour) }
	got = p.Latest(context.Background())
	require.Len(t, got, 1)
	assert.Equal(t, "gnews", got[0].Source)
	assert.EqualValues(t, 1, f.calls.Load())
}

func TestRefreshSharesInFlightRun(t *testing.T) {
	release := make(chan struct{})
	f := &stubFetcher{name: "gnews", block: release, stories: []news.Story{
		mkStory("Fresh robotics story", "https://a.example/1", "gnews", 0),
	}}
	p, _, _ := newTestPipeline(t, 12, f)

	const callers = 5
	var wg sync.WaitGroup
	results := make([][]news.Story, callers)
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = p.Refresh(context.Background())
		}()
	}

	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, f.calls.Load())
	for _, r := range results {
		assert.Len(t, r, 1)
	}
}
