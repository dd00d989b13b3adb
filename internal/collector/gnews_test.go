package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LJTian/AINewsHub/internal/processor"
)

func gnewsBody(n int, prefix string) string {
	body := `{"totalArticles":100,"articles":[`
	for i := 0; i < n; i++ {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf(`{"title":"%s headline %d","description":"desc %d","url":"https://news.example/%s/%d","image":"https://img.example/%d.jpg","publishedAt":"2025-03-01T0%d:00:00Z","source":{"name":"Example Wire"}}`,
			prefix, i, i, prefix, i, i, i)
	}
	return body + `]}`
}

func TestGNewsStopsOnceTargetReached(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		assert.Equal(t, "k", q.Get("token"))
		assert.Equal(t, "en", q.Get("lang"))
		assert.Equal(t, "publishedAt", q.Get("sortby"))
		limit, _ := strconv.Atoi(q.Get("max"))
		fmt.Fprint(w, gnewsBody(limit, "q"))
	}))
	defer srv.Close()

	g := NewGNewsFetcher("k", srv.Client(), processor.NewNormalizer(nil, nil), nil)
	g.BaseURL = srv.URL

	got := g.Fetch(context.Background())
	require.Len(t, got, gnewsDefaultTarget)
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, "Example Wire", got[0].Source)
	assert.Equal(t, "https://img.example/0.jpg", got[0].ImageURL)
	assert.Equal(t, []string{"ai"}, got[0].Tags)
}

func TestGNewsRequestsOnlyRemainingCount(t *testing.T) {
	var limits []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limits = append(limits, r.URL.Query().Get("max"))
		// 每次只返回 3 条，迫使继续下一个查询
		fmt.Fprint(w, gnewsBody(3, strconv.Itoa(len(limits))))
	}))
	defer srv.Close()

	g := NewGNewsFetcher("k", srv.Client(), processor.NewNormalizer(nil, nil), nil)
	g.BaseURL = srv.URL

	got := g.Fetch(context.Background())
	assert.Len(t, got, gnewsDefaultTarget)
	assert.Equal(t, []string{"8", "5", "2"}, limits)
}

func TestGNewsFailuresYieldEmpty(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"errors":["bad token"]}`)
	}))
	defer srv.Close()

	g := NewGNewsFetcher("k", srv.Client(), processor.NewNormalizer(nil, nil), nil)
	g.BaseURL = srv.URL

	got := g.Fetch(context.Background())
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.EqualValues(t, len(GNewsQueries), calls.Load())
}

func TestGNewsMissingKeyMakesNoRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	g := NewGNewsFetcher("", srv.Client(), processor.NewNormalizer(nil, nil), nil)
	g.BaseURL = srv.URL
	assert.Empty(t, g.Fetch(context.Background()))
	assert.EqualValues(t, 0, calls.Load())
	assert.Equal(t, "gnews", g.Name())
}
