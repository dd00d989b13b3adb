package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/AINewsHub/internal/collector"
	"github.com/LJTian/AINewsHub/internal/logger"
	"github.com/LJTian/AINewsHub/internal/news"
	"github.com/LJTian/AINewsHub/internal/processor"
)

// NewsService 新闻列表来源（快照或刷新）
type NewsService interface {
	Latest(ctx context.Context) []news.Story
	Flush() error
}

type ChartService interface {
	History(ctx context.Context, symbol, rng, interval string) collector.ChartData
}

type Server struct {
	news       NewsService
	charts     ChartService
	adminToken string
	metrics    http.Handler
	log        logger.Logger
}

func NewServer(n NewsService, charts ChartService, adminToken string, metrics http.Handler, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	return &Server{news: n, charts: charts, adminToken: adminToken, metrics: metrics, log: log}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}

	api := r.Group("/api")
	{
		api.GET("/news", s.listNews)
		api.GET("/ohlc/:symbol", s.ohlc)
	}

	admin := r.Group("/admin")
	{
		admin.GET("/flush-cache/:token", s.flushCache)
		admin.POST("/flush-cache/:token", s.flushCache)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listNews(c *gin.Context) {
	items := s.news.Latest(c.Request.Context())

	if limitStr := c.Query("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit >= 0 && limit < len(items) {
			items = items[:limit]
		}
	}
	if c.Query("preview") == "1" {
		items = withPreview(items, processor.DefaultPreviewLimit)
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    items,
	})
}

// withPreview 返回截断摘要后的副本；原列表可能被多个请求共享，不能原地修改
func withPreview(items []news.Story, limit int) []news.Story {
	out := make([]news.Story, len(items))
	for i, s := range items {
		summary := make(news.Text, len(s.Summary))
		for lang, text := range s.Summary {
			summary[lang] = processor.Preview(text, limit)
		}
		s.Summary = summary
		out[i] = s
	}
	return out
}

func (s *Server) ohlc(c *gin.Context) {
	symbol := c.Param("symbol")
	rng := c.DefaultQuery("range", "6mo")
	interval := c.DefaultQuery("interval", "1d")

	data := s.charts.History(c.Request.Context(), symbol, rng, interval)

	c.Header("Cache-Control", "public, max-age=300")
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    data,
	})
}

func (s *Server) flushCache(c *gin.Context) {
	token := c.Param("token")
	if s.adminToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    "unauthorized",
			"message": "invalid admin token",
		})
		return
	}
	if err := s.news.Flush(); err != nil {
		s.log.Error("admin: flush cache failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}
	s.log.Info("admin: cache flushed")
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "cache flushed",
	})
}

const authRealm = "AINewsHub"

// BasicAuth 站点级访问密码。/health 以及 exempt 中列出的路径不做认证。
func BasicAuth(user, pass string, exempt ...string) gin.HandlerFunc {
	open := map[string]struct{}{"/health": {}}
	for _, p := range exempt {
		open[p] = struct{}{}
	}
	wantUser, wantPass := []byte(user), []byte(pass)

	return func(c *gin.Context) {
		if _, ok := open[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		u, p, ok := c.Request.BasicAuth()
		// 两项都比较完再判断，耗时与哪一项错误无关
		match := subtle.ConstantTimeCompare([]byte(u), wantUser) & subtle.ConstantTimeCompare([]byte(p), wantPass)
		if !ok || match != 1 {
			c.Header("WWW-Authenticate", `Basic realm="`+authRealm+`", charset="UTF-8"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "unauthorized",
				"message": "authentication required",
			})
			return
		}
		c.Next()
	}
}
