package main

import (
	"log"

	"github.com/LJTian/IntelHub/internal/aggregator"
	"github.com/LJTian/IntelHub/internal/api"
	"github.com/LJTian/IntelHub/internal/cache"
	"github.com/LJTian/IntelHub/internal/collector"
	"github.com/LJTian/IntelHub/internal/config"
	"github.com/LJTian/IntelHub/internal/scheduler"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	fetchers := collector.FromConfig(cfg)
	if len(fetchers) == 0 {
		log.Fatalf("no source enabled, check ENABLE_* settings")
	}

	// 缓存在进程启动时创建一次，由所有请求与预热任务共享
	c := cache.New[any](cfg.CacheTTL)
	agg := aggregator.New(fetchers, cfg.FetchTimeout)

	gin.SetMode(cfg.GinMode)
	r := gin.Default()

	apiServer := api.NewServer(agg, c, cfg)
	apiServer.RegisterRoutes(r)

	// 定时预热 /all 的默认查询；WARM_CRON 为空时不启用
	s, err := scheduler.New(cfg.WarmCron, apiServer.Warm, 2*cfg.FetchTimeout)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	if s != nil {
		s.Start()
		defer s.Stop()
	}

	addr := ":" + cfg.AppPort
	log.Printf("starting api server at %s, sources=%v ...", addr, agg.Sources())
	if err := r.Run(addr); err != nil {
		log.Fatalf("server exit: %v", err)
	}
}
