package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string
	GinMode string

	// CacheTTL 聚合结果与单源结果的缓存时长（CACHE_TTL，单位秒）
	CacheTTL time.Duration
	// FetchTimeout 单个数据源一次抓取的超时（TIMEOUT，单位毫秒）
	FetchTimeout time.Duration

	DefaultLimit int
	DefaultHours int

	GitHubToken  string
	GitHubAPIURL string

	FundingFeedURL  string
	StartupsFeedURL string

	BrowserPageURL      string
	BrowserItemSelector string

	// Enabled 各数据源开关，key 为数据源名称
	Enabled map[string]bool

	// WarmCron 预热 /all 缓存的 cron 表达式，为空则不预热
	WarmCron string
}

// 数据源名称，同时也是单源接口的路径
const (
	SourceFunding     = "funding"
	SourceLaunches    = "launches"
	SourceGitHub      = "github"
	SourceHackerNews  = "hackernews"
	SourceTrending    = "trending"
	SourceProductHunt = "producthunt"
)

// AllSources 按配置顺序列出全部数据源，聚合结果中的顺序与此一致
var AllSources = []string{
	SourceFunding,
	SourceLaunches,
	SourceGitHub,
	SourceHackerNews,
	SourceTrending,
	SourceProductHunt,
}

func Load() *Config {
	// .env 不存在时忽略，仍以环境变量为准
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:             getEnv("PORT", "3002"),
		GinMode:             getEnv("GIN_MODE", "release"),
		CacheTTL:            time.Duration(getEnvInt("CACHE_TTL", 900)) * time.Second,
		FetchTimeout:        time.Duration(getEnvInt("TIMEOUT", 30000)) * time.Millisecond,
		DefaultLimit:        getEnvInt("DEFAULT_LIMIT", 20),
		DefaultHours:        getEnvInt("DEFAULT_HOURS", 24),
		GitHubToken:         getEnv("GITHUB_TOKEN", ""),
		GitHubAPIURL:        getEnv("GITHUB_API_URL", "https://api.github.com"),
		FundingFeedURL:      getEnv("FUNDING_FEED_URL", "https://techcrunch.com/tag/funding/feed/"),
		StartupsFeedURL:     getEnv("STARTUPS_FEED_URL", "https://techcrunch.com/tag/startups/feed/"),
		BrowserPageURL:      getEnv("BROWSER_PAGE_URL", "https://www.producthunt.com/"),
		BrowserItemSelector: getEnv("BROWSER_ITEM_SELECTOR", "section[data-test^='post-item']"),
		WarmCron:            os.Getenv("WARM_CRON"),
		Enabled:             make(map[string]bool, len(AllSources)),
	}
	if _, ok := os.LookupEnv("WARM_CRON"); !ok {
		cfg.WarmCron = "*/15 * * * *"
	}

	for _, name := range AllSources {
		// 无头浏览器依赖本机 Chrome，默认关闭
		cfg.Enabled[name] = getEnvBool("ENABLE_"+strings.ToUpper(name), name != SourceProductHunt)
	}

	log.Printf("config loaded: port=%s ttl=%s timeout=%s sources=%v", cfg.AppPort, cfg.CacheTTL, cfg.FetchTimeout, cfg.EnabledSources())
	return cfg
}

// EnabledSources 按配置顺序返回已启用的数据源
func (c *Config) EnabledSources() []string {
	out := make([]string, 0, len(AllSources))
	for _, name := range AllSources {
		if c.Enabled[name] {
			out = append(out, name)
		}
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Printf("warn: invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("warn: invalid %s=%q, using %v", key, v, def)
		return def
	}
	return b
}
