package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/LJTian/IntelHub/internal/aggregator"
	"github.com/LJTian/IntelHub/internal/cache"
	"github.com/LJTian/IntelHub/internal/collector"
	"github.com/LJTian/IntelHub/internal/config"
	"github.com/LJTian/IntelHub/internal/metrics"
	"github.com/LJTian/IntelHub/internal/processor"
	"github.com/gin-gonic/gin"
)

const (
	maxLimit = 100
	maxHours = 720
)

var (
	// GitHub Trending 支持的时间范围
	trendingSince = map[string]bool{"daily": true, "weekly": true, "monthly": true}
	// 语言作为 Trending 页路径的一段，只接受 slug 形式
	languageSlug = regexp.MustCompile(`^[a-z0-9+#._-]{1,40}$`)
)

// repositoryLookup 支持按 owner/repo 查询单个仓库的数据源
type repositoryLookup interface {
	Repository(ctx context.Context, owner, repo string) (collector.NewsItem, error)
}

// outcome 一次未命中缓存时的处理结果
type outcome struct {
	status    int
	body      any
	cacheable bool
}

func (s *Server) all(c *gin.Context) {
	q, params := s.parseQuery(c)
	key := cache.Key(allEndpoint, s.now(), params)

	s.serve(c, allEndpoint, key, func(ctx context.Context) outcome {
		report := s.agg.Aggregate(ctx, q)
		// 全部数据源失败时不缓存，下次请求重新抓取
		return outcome{status: http.StatusOK, body: report, cacheable: !report.AllFailed()}
	})
}

func (s *Server) single(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, ok := s.agg.Fetcher(name)
		if !ok {
			c.JSON(http.StatusNotFound, collector.Failed(name, fmt.Errorf("unknown source %q", name)))
			return
		}

		q, params := s.parseQuery(c)
		key := cache.Key(name, s.now(), params)

		s.serve(c, name, key, func(ctx context.Context) outcome {
			res := s.agg.FetchOne(ctx, f, q)
			if !res.OK() {
				return outcome{status: http.StatusBadGateway, body: res}
			}
			return outcome{status: http.StatusOK, body: res, cacheable: true}
		})
	}
}

// serve 缓存命中直接返回；未命中时同 key 的并发请求只触发一次抓取
func (s *Server) serve(c *gin.Context, endpoint, key string, miss func(ctx context.Context) outcome) {
	if v, ok := s.cache.Get(key); ok {
		metrics.CacheHit(endpoint)
		c.JSON(http.StatusOK, v)
		return
	}
	metrics.CacheMiss(endpoint)

	// 共享结果不应受某一个客户端断开的影响
	ctx := context.WithoutCancel(c.Request.Context())

	v, err, _ := s.group.Do(key, func() (res any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s: internal error: %v", endpoint, r)
			}
		}()
		out := miss(ctx)
		if out.cacheable {
			s.cache.Set(key, out.body)
		}
		return out, nil
	})
	if err != nil {
		log.Printf("serve %s error: %v", endpoint, err)
		c.JSON(http.StatusOK, s.degraded(endpoint, err))
		return
	}

	out := v.(outcome)
	c.JSON(out.status, out.body)
}

// degraded 统一的降级响应：保持与正常响应相同的结构，只携带错误信息。
// /all 仍为每个已配置的数据源输出一项失败结果。
func (s *Server) degraded(endpoint string, err error) any {
	if endpoint != allEndpoint {
		return collector.Failed(endpoint, err)
	}
	sources := s.agg.Sources()
	results := make([]collector.SourceResult, 0, len(sources))
	for _, name := range sources {
		results = append(results, collector.Failed(name, err))
	}
	return aggregator.Report{Timestamp: s.now(), Results: results, Error: err.Error()}
}

// repository 查询单个 GitHub 仓库详情，响应形状与单源接口一致
func (s *Server) repository(c *gin.Context) {
	f, ok := s.agg.Fetcher(config.SourceGitHub)
	lookup, canLookup := f.(repositoryLookup)
	if !ok || !canLookup {
		c.JSON(http.StatusNotFound, collector.Failed(config.SourceGitHub, errors.New("repository lookup not available")))
		return
	}

	owner, repo := c.Param("owner"), c.Param("repo")
	params := url.Values{}
	params.Set("owner", strings.ToLower(owner))
	params.Set("repo", strings.ToLower(repo))
	key := cache.Key(repositoryEndpoint, s.now(), params)

	s.serve(c, repositoryEndpoint, key, func(ctx context.Context) outcome {
		if s.cfg.FetchTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.cfg.FetchTimeout)
			defer cancel()
		}
		item, err := lookup.Repository(ctx, owner, repo)
		if err != nil {
			log.Printf("repository %s/%s error: %v", owner, repo, err)
			return outcome{status: http.StatusBadGateway, body: collector.Failed(config.SourceGitHub, err)}
		}
		res := collector.Succeeded(config.SourceGitHub, []collector.NewsItem{item})
		return outcome{status: http.StatusOK, body: res, cacheable: true}
	})
}

// Warm 刷新默认参数下的 /all 缓存，供定时任务调用
func (s *Server) Warm(ctx context.Context) aggregator.Report {
	q, params := s.resolveQuery(url.Values{})
	report := s.agg.Aggregate(ctx, q)
	if !report.AllFailed() {
		s.cache.Set(cache.Key(allEndpoint, s.now(), params), report)
	}
	return report
}

func (s *Server) parseQuery(c *gin.Context) (collector.Query, url.Values) {
	return s.resolveQuery(c.Request.URL.Query())
}

// resolveQuery 解析并规范化请求参数；非法值回退到默认值。
// 返回的 params 包含所有影响输出的参数（含默认值），用于生成缓存 key。
func (s *Server) resolveQuery(in url.Values) (collector.Query, url.Values) {
	limit := clampInt(in.Get("limit"), s.cfg.DefaultLimit, 1, maxLimit)
	hours := clampInt(in.Get("hours"), s.cfg.DefaultHours, 0, maxHours)
	// days 是 hours 的按天写法，只在没有给出 hours 时生效
	if strings.TrimSpace(in.Get("hours")) == "" {
		if days := clampInt(in.Get("days"), -1, 0, maxHours/24); days >= 0 {
			hours = days * 24
		}
	}
	minStars := clampInt(in.Get("min_stars"), 0, 0, 1<<30)
	minAmount := 0.0
	if v, err := strconv.ParseFloat(strings.TrimSpace(in.Get("min_amount")), 64); err == nil && v > 0 {
		minAmount = v
	}
	keywords := processor.ParseKeywords(in.Get("keywords"))

	language := strings.ToLower(strings.TrimSpace(in.Get("language")))
	if !languageSlug.MatchString(language) {
		language = ""
	}
	since := strings.ToLower(strings.TrimSpace(in.Get("since")))
	if !trendingSince[since] {
		since = ""
	}
	category := strings.ToLower(strings.TrimSpace(in.Get("category")))

	q := collector.Query{
		Limit:     limit,
		Keywords:  keywords,
		Hours:     hours,
		MinStars:  minStars,
		MinAmount: minAmount,
		Language:  language,
		Since:     since,
		Category:  category,
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("hours", strconv.Itoa(hours))
	params.Set("keywords", strings.Join(keywords, ","))
	params.Set("min_stars", strconv.Itoa(minStars))
	params.Set("min_amount", strconv.FormatFloat(minAmount, 'f', -1, 64))
	// 仅部分数据源使用的参数，非空时才进入 key
	for k, v := range map[string]string{"language": language, "since": since, "category": category} {
		if v != "" {
			params.Set(k, v)
		}
	}
	return q, params
}

func clampInt(raw string, def, lo, hi int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
