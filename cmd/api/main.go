package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/AINewsHub/internal/api"
	"github.com/LJTian/AINewsHub/internal/app"
	"github.com/LJTian/AINewsHub/internal/config"
	"github.com/LJTian/AINewsHub/internal/logger"
	"github.com/LJTian/AINewsHub/internal/scheduler"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	a := app.New(cfg, log)

	// 后台按 cron 刷新快照，首轮延迟执行
	s, err := scheduler.New(cfg.CronSpec, a.Pipeline, log)
	if err != nil {
		log.Error("init scheduler failed", logger.String("cron", cfg.CronSpec), logger.Error(err))
		os.Exit(1)
	}
	s.Start()
	defer s.Stop()

	r := gin.New()
	r.Use(gin.Recovery())
	// 若配置了全局访问密码，则启用 Basic Auth 保护（/health 与 /metrics 免认证）
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		r.Use(api.BasicAuth(cfg.BasicAuthUser, cfg.BasicAuthPass, "/metrics"))
	}

	api.NewServer(a.Pipeline, a.Charts, cfg.AdminToken, a.Metrics.Handler(), log).RegisterRoutes(r)

	addr := ":" + cfg.AppPort
	log.Info("starting api server", logger.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Error("server exit", logger.Error(err))
		os.Exit(1)
	}
}
