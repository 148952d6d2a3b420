package api

import (
	"net/http"
	"time"

	"github.com/LJTian/IntelHub/internal/aggregator"
	"github.com/LJTian/IntelHub/internal/cache"
	"github.com/LJTian/IntelHub/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/singleflight"
)

const (
	serviceName    = "intelhub"
	serviceVersion = "1.0.0"

	// allEndpoint 聚合接口的路径，同时作为缓存 key 的来源标识
	allEndpoint = "all"
	// repositoryEndpoint 单仓库详情的缓存 key 与指标标识
	repositoryEndpoint = "repository"
)

type Server struct {
	agg   *aggregator.Aggregator
	cache *cache.TTLCache[any]
	cfg   *config.Config
	group singleflight.Group
	now   func() time.Time
}

// NewServer cache 由调用方在进程启动时创建并传入，与 Warmer 共用同一个实例
func NewServer(agg *aggregator.Aggregator, c *cache.TTLCache[any], cfg *config.Config) *Server {
	return &Server{
		agg:   agg,
		cache: c,
		cfg:   cfg,
		now:   time.Now,
	}
}

// WithClock 替换生成缓存 key 时使用的时钟，便于测试跨天行为
func (s *Server) WithClock(now func() time.Time) *Server {
	s.now = now
	return s
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/"+allEndpoint, s.all)
	// 每个已启用的数据源单独暴露一个接口，路径即数据源名称
	for _, name := range s.agg.Sources() {
		r.GET("/"+name, s.single(name))
	}

	// GitHub 仓库搜索的别名与单仓库详情
	if _, ok := s.agg.Fetcher(config.SourceGitHub); ok {
		r.GET("/search", s.single(config.SourceGitHub))
		r.GET("/repositories/:owner/:repo", s.repository)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   serviceName,
		"version":   serviceVersion,
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}
