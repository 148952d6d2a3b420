package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"
)

const (
	hnBaseURL           = "https://hacker-news.firebaseio.com/v0"
	hnMaxItems          = 30
	hnMaxResponseBytes  = 1 << 20 // 1MB
	hnConcurrency       = 10
	hnClientTimeout     = 10 * time.Second
	hnItemClientTimeout = 5 * time.Second
)

// HackerNewsFetcher 通过官方 Firebase API 抓取 Hacker News 热门故事
type HackerNewsFetcher struct {
	BaseURL string
}

func (h *HackerNewsFetcher) Name() string {
	return "hackernews"
}

type hnItem struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Text        string `json:"text"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	By          string `json:"by"`
	Time        int64  `json:"time"`
	Type        string `json:"type"`
}

func (h *HackerNewsFetcher) baseURL() string {
	if h.BaseURL != "" {
		return h.BaseURL
	}
	return hnBaseURL
}

func (h *HackerNewsFetcher) Fetch(ctx context.Context, q Query) ([]NewsItem, error) {
	log.Println("fetch Hacker News Top Stories...")

	client := &http.Client{Timeout: hnClientTimeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL()+"/topstories.json", nil)
	if err != nil {
		return nil, fmt.Errorf("hackernews: build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hackernews: fetch top stories: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hackernews: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, hnMaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("hackernews: read top stories: %w", err)
	}

	var ids []int
	if err := json.Unmarshal(body, &ids); err != nil {
		return nil, fmt.Errorf("hackernews: unmarshal top stories: %w", err)
	}

	// 关键词过滤在截断之前进行，取足够多的候选
	maxItems := hnMaxItems
	if len(q.Keywords) > 0 {
		maxItems = hnMaxItems * 3
	}
	if len(ids) > maxItems {
		ids = ids[:maxItems]
	}

	type indexedItem struct {
		idx  int
		item hnItem
	}

	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		sem   = make(chan struct{}, hnConcurrency)
		items = make([]indexedItem, 0, len(ids))
	)

	itemClient := &http.Client{Timeout: hnItemClientTimeout}

	for i, id := range ids {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx, id int) {
			defer wg.Done()
			defer func() { <-sem }()

			it, err := h.fetchItem(ctx, itemClient, id)
			if err != nil {
				log.Printf("hackernews: fetch item %d: %v", id, err)
				return
			}
			if it.Title == "" || it.Type != "story" {
				return
			}

			mu.Lock()
			items = append(items, indexedItem{idx: idx, item: it})
			mu.Unlock()
		}(i, id)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("hackernews: %w", err)
	}

	// 并发完成顺序不固定，按榜单排名恢复上游顺序
	sort.Slice(items, func(a, b int) bool { return items[a].idx < items[b].idx })

	results := make([]NewsItem, 0, len(items))
	for _, ii := range items {
		it := ii.item

		itemURL := it.URL
		discussURL := fmt.Sprintf("https://news.ycombinator.com/item?id=%d", it.ID)
		if itemURL == "" {
			itemURL = discussURL
		}

		results = append(results, NewsItem{
			Title:       it.Title,
			URL:         itemURL,
			Source:      "hackernews",
			Summary:     it.Text,
			PublishedAt: time.Unix(it.Time, 0),
			HotScore:    float64(it.Score),
			RawData: map[string]any{
				"hn_id":    it.ID,
				"author":   it.By,
				"comments": it.Descendants,
				"score":    it.Score,
				"rank":     ii.idx + 1,
				"discuss":  discussURL,
			},
		})
	}

	if len(results) == 0 {
		log.Println("hackernews: no items fetched")
	}

	return results, nil
}

func (h *HackerNewsFetcher) fetchItem(ctx context.Context, client *http.Client, id int) (hnItem, error) {
	url := fmt.Sprintf("%s/item/%d.json", h.baseURL(), id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return hnItem{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return hnItem{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return hnItem{}, fmt.Errorf("status %d", resp.StatusCode)
	}

	var it hnItem
	if err := json.NewDecoder(io.LimitReader(resp.Body, hnMaxResponseBytes)).Decode(&it); err != nil {
		return hnItem{}, err
	}
	return it, nil
}
