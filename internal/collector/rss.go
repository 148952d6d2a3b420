package collector

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const rssClientTimeout = 15 * time.Second

// RSSFetcher 通过 gofeed 读取 RSS/Atom 源，Enrich 可为条目补充数据源特有字段
type RSSFetcher struct {
	SourceName string
	FeedURL    string
	// Enrich 返回 false 时丢弃该条目（例如金额低于阈值）
	Enrich func(item *NewsItem, q Query) bool
	Client *http.Client
}

// NewFundingFetcher TechCrunch 融资标签，解析金额与轮次
func NewFundingFetcher(feedURL string) *RSSFetcher {
	return &RSSFetcher{SourceName: "funding", FeedURL: feedURL, Enrich: enrichFunding}
}

// NewLaunchesFetcher TechCrunch 创业公司标签，作为产品发布信号
func NewLaunchesFetcher(feedURL string) *RSSFetcher {
	return &RSSFetcher{SourceName: "launches", FeedURL: feedURL, Enrich: enrichLaunch}
}

func (r *RSSFetcher) Name() string {
	return r.SourceName
}

func (r *RSSFetcher) Fetch(ctx context.Context, q Query) ([]NewsItem, error) {
	client := r.Client
	if client == nil {
		client = &http.Client{Timeout: rssClientTimeout}
	}

	fp := gofeed.NewParser()
	fp.Client = client
	fp.UserAgent = "IntelHubBot/1.0"

	feed, err := fp.ParseURLWithContext(r.FeedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: parse feed: %w", r.SourceName, err)
	}
	if len(feed.Items) == 0 {
		return nil, fmt.Errorf("%s: feed has no entries", r.SourceName)
	}

	results := make([]NewsItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry == nil {
			continue
		}

		// 发布时间优先，其次更新时间；都没有则留零值，由 processor 回退为 now
		var published time.Time
		if entry.PublishedParsed != nil {
			published = *entry.PublishedParsed
		} else if entry.UpdatedParsed != nil {
			published = *entry.UpdatedParsed
		}

		summary := entry.Description
		if summary == "" {
			summary = entry.Content
		}

		raw := map[string]any{}
		if entry.Author != nil && entry.Author.Name != "" {
			raw["author"] = entry.Author.Name
		}
		if len(entry.Categories) > 0 {
			raw["category"] = strings.Join(entry.Categories, ", ")
		}

		item := NewsItem{
			Title:       strings.TrimSpace(entry.Title),
			URL:         strings.TrimSpace(entry.Link),
			Source:      r.SourceName,
			Summary:     summary,
			PublishedAt: published,
			RawData:     raw,
		}
		if r.Enrich != nil && !r.Enrich(&item, q) {
			continue
		}
		results = append(results, item)
	}

	if len(results) == 0 {
		log.Printf("%s: no entries after enrichment", r.SourceName)
	}
	return results, nil
}

// enrichLaunch 标记为产品发布；指定 category 时只保留分类中包含该词的条目
func enrichLaunch(item *NewsItem, q Query) bool {
	if want := strings.ToLower(strings.TrimSpace(q.Category)); want != "" {
		category, _ := item.RawData["category"].(string)
		if !strings.Contains(strings.ToLower(category), want) {
			return false
		}
	}
	item.RawData["type"] = "product"
	return true
}
