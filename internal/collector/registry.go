package collector

import (
	"log"

	"github.com/LJTian/IntelHub/internal/config"
)

// FromConfig 按配置顺序构造所有已启用的数据源
func FromConfig(cfg *config.Config) []Fetcher {
	fetchers := make([]Fetcher, 0, len(config.AllSources))
	for _, name := range cfg.EnabledSources() {
		f := newFetcher(name, cfg)
		if f == nil {
			log.Printf("warn: unknown source %s, skipped", name)
			continue
		}
		fetchers = append(fetchers, f)
	}
	return fetchers
}

func newFetcher(name string, cfg *config.Config) Fetcher {
	switch name {
	case config.SourceFunding:
		return NewFundingFetcher(cfg.FundingFeedURL)
	case config.SourceLaunches:
		return NewLaunchesFetcher(cfg.StartupsFeedURL)
	case config.SourceGitHub:
		return NewGitHubSearchFetcher(cfg.GitHubAPIURL, cfg.GitHubToken)
	case config.SourceHackerNews:
		return &HackerNewsFetcher{}
	case config.SourceTrending:
		return &GitHubTrendingFetcher{}
	case config.SourceProductHunt:
		return NewBrowserFetcher(config.SourceProductHunt, cfg.BrowserPageURL, cfg.BrowserItemSelector)
	}
	return nil
}
