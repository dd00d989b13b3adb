package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/LJTian/AINewsHub/internal/logger"
	"github.com/LJTian/AINewsHub/internal/news"
)

// DefaultStartupDelay 首轮刷新延后执行，避免与首个页面请求争抢资源
const DefaultStartupDelay = 15 * time.Second

// Refresher 一次完整的新闻刷新
type Refresher interface {
	Refresh(ctx context.Context) []news.Story
}

type Scheduler struct {
	cron         *cron.Cron
	refresher    Refresher
	log          logger.Logger
	startupDelay time.Duration
	startTimer   *time.Timer
}

func New(spec string, r Refresher, log logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.NewNop()
	}
	// 上一轮还没结束时跳过本轮，任务内 panic 不影响后续调度
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))

	s := &Scheduler{
		cron:         c,
		refresher:    r,
		log:          log.With(logger.String("component", "scheduler")),
		startupDelay: DefaultStartupDelay,
	}

	if _, err := c.AddFunc(spec, s.runOnce); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.startTimer = time.AfterFunc(s.startupDelay, s.runOnce)
}

// Stop 停止调度并返回一个在正在运行的任务结束后关闭的 context
func (s *Scheduler) Stop() context.Context {
	if s.startTimer != nil {
		s.startTimer.Stop()
	}
	return s.cron.Stop()
}

// RunOnce 对外暴露的单次执行入口，返回本轮结果条数
func (s *Scheduler) RunOnce(ctx context.Context) int {
	start := time.Now()
	s.log.Info("refresh job started")
	stories := s.refresher.Refresh(ctx)
	s.log.Info("refresh job done", logger.Int("stories", len(stories)), logger.Duration("took", time.Since(start)))
	return len(stories)
}

func (s *Scheduler) runOnce() {
	s.RunOnce(context.Background())
}
