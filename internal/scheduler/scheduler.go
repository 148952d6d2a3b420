package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/LJTian/IntelHub/internal/aggregator"
	"github.com/robfig/cron/v3"
)

// WarmFunc 执行一轮聚合并写入缓存
type WarmFunc func(ctx context.Context) aggregator.Report

// Scheduler 按 cron 表达式定期预热 /all 的默认查询，使首个用户请求也能命中缓存
type Scheduler struct {
	cron    *cron.Cron
	warm    WarmFunc
	timeout time.Duration

	// StartupDelay 首轮预热的延迟，避免与服务启动时的首批请求争抢资源
	StartupDelay time.Duration
}

// New spec 为空时返回 nil，表示不启用预热
func New(spec string, warm WarmFunc, timeout time.Duration) (*Scheduler, error) {
	if spec == "" {
		return nil, nil
	}

	c := cron.New()
	s := &Scheduler{
		cron:         c,
		warm:         warm,
		timeout:      timeout,
		StartupDelay: 15 * time.Second,
	}

	if _, err := c.AddFunc(spec, s.runOnce); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	time.AfterFunc(s.StartupDelay, func() {
		go s.runOnce()
	})
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce 对外暴露的单次执行入口，方便手动触发预热
func (s *Scheduler) RunOnce() aggregator.Report {
	return s.run()
}

func (s *Scheduler) runOnce() {
	s.run()
}

func (s *Scheduler) run() aggregator.Report {
	log.Println("start warm job...")

	ctx := context.Background()
	if s.timeout > 0 {
		// 各数据源自身已有超时，这里只是整轮的兜底
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	report := s.warm(ctx)
	failed := 0
	for _, res := range report.Results {
		if !res.OK() {
			failed++
		}
	}
	log.Printf("warm job done, sources=%d failed=%d total=%d", len(report.Results), failed, report.Total)
	return report
}
