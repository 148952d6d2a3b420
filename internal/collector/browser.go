package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

const browserMaxItems = 60

// BrowserFetcher 使用无头 Chrome 渲染依赖 JS 的列表页，再从 DOM 中提取条目
type BrowserFetcher struct {
	SourceName   string
	PageURL      string
	ItemSelector string
	// AllocOptions 为空时使用 chromedp 默认参数（headless）
	AllocOptions []chromedp.ExecAllocatorOption
}

func NewBrowserFetcher(name, pageURL, selector string) *BrowserFetcher {
	return &BrowserFetcher{SourceName: name, PageURL: pageURL, ItemSelector: selector}
}

func (b *BrowserFetcher) Name() string {
	return b.SourceName
}

// scrapedLink 页面脚本返回的单个条目
type scrapedLink struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Summary string `json:"summary"`
}

func (b *BrowserFetcher) Fetch(ctx context.Context, q Query) ([]NewsItem, error) {
	log.Printf("fetch %s via headless browser...", b.SourceName)

	opts := b.AllocOptions
	if len(opts) == 0 {
		opts = chromedp.DefaultExecAllocatorOptions[:]
	}
	// 每次抓取独立启动浏览器，结束即回收；ctx 的超时同时约束浏览器生命周期
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var raw string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(b.PageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(extractListJS(b.ItemSelector, browserMaxItems), &raw),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: render %s: %w", b.SourceName, b.PageURL, err)
	}

	var links []scrapedLink
	if err := json.Unmarshal([]byte(raw), &links); err != nil {
		return nil, fmt.Errorf("%s: decode scraped items: %w", b.SourceName, err)
	}
	if len(links) == 0 {
		return nil, fmt.Errorf("%s: no items matched %q", b.SourceName, b.ItemSelector)
	}

	return b.toItems(links, time.Now()), nil
}

// toItems 将页面提取结果转换为 NewsItem，相对链接按页面地址补全
func (b *BrowserFetcher) toItems(links []scrapedLink, now time.Time) []NewsItem {
	base, _ := url.Parse(b.PageURL)

	results := make([]NewsItem, 0, len(links))
	for i, l := range links {
		title := collapseSpace(l.Title)
		if title == "" {
			continue
		}
		link := strings.TrimSpace(l.URL)
		if base != nil && link != "" {
			if ref, err := url.Parse(link); err == nil {
				link = base.ResolveReference(ref).String()
			}
		}
		results = append(results, NewsItem{
			Title:       title,
			URL:         link,
			Source:      b.SourceName,
			Summary:     collapseSpace(l.Summary),
			PublishedAt: now,
			RawData: map[string]any{
				"rank": i + 1,
			},
		})
	}
	return results
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// extractListJS 返回一段 JS：在每个匹配 selector 的节点中取第一个链接的文本和地址，
// 以及节点内除标题外最长的一段文字作为摘要。结果序列化为 JSON 字符串返回。
func extractListJS(selector string, max int) string {
	sel, _ := json.Marshal(selector)
	return fmt.Sprintf(`(function () {
  var nodes = Array.prototype.slice.call(document.querySelectorAll(%s));
  var out = [];
  for (var i = 0; i < nodes.length && out.length < %d; i++) {
    var node = nodes[i];
    var a = node.querySelector("a[href]");
    if (!a) continue;
    var title = (a.innerText || a.textContent || "").trim();
    if (!title) {
      var h = node.querySelector("h1, h2, h3, strong");
      title = h ? (h.innerText || "").trim() : "";
    }
    var summary = "";
    var parts = node.querySelectorAll("p, div, span");
    for (var j = 0; j < parts.length; j++) {
      var t = (parts[j].innerText || "").trim();
      if (t && t !== title && t.length > summary.length && t.length < 600) summary = t;
    }
    out.push({ title: title, url: a.getAttribute("href") || "", summary: summary });
  }
  return JSON.stringify(out);
})();`, sel, max)
}
