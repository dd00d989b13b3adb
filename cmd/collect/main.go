package main

import (
	"context"
	"fmt"
	"os"

	"github.com/LJTian/AINewsHub/internal/app"
	"github.com/LJTian/AINewsHub/internal/config"
	"github.com/LJTian/AINewsHub/internal/logger"
)

// 一个仅执行一次刷新的命令行入口：适合手动触发采集或在外部 cron 中调用
func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	a := app.New(cfg, log)
	stories := a.Pipeline.Run(context.Background())

	fmt.Printf("%d stories (%s)\n", len(stories), cfg.CachePath())
	for i, s := range stories {
		fmt.Printf("%2d. [%s] %s\n    %s | %s | %s\n",
			i+1, s.PrimaryCategory(), s.TitleText(),
			s.Source, s.Timestamp.UTC().Format("2006-01-02 15:04"), s.URL)
	}
}
