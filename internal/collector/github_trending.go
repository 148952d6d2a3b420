package collector

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

const (
	ghTrendingURL          = "https://github.com/trending"
	trendingRequestTimeout = 10 * time.Second
)

// GitHubTrendingFetcher 抓取 GitHub Trending 页面，使用页上的仓库介绍（p 标签）作为摘要
type GitHubTrendingFetcher struct {
	PageURL string
}

func (g *GitHubTrendingFetcher) Name() string {
	return "trending"
}

func (g *GitHubTrendingFetcher) Fetch(ctx context.Context, q Query) ([]NewsItem, error) {
	log.Println("fetch GitHub Trending...")

	pageURL, err := g.pageURL(q)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("trending: parse page url: %w", err)
	}
	origin := u.Scheme + "://" + u.Host

	c := colly.NewCollector(
		colly.AllowedDomains(u.Hostname()),
		colly.UserAgent("IntelHubBot/1.0"),
	)
	// colly v2.1 的请求不接收 ctx：用 ctx 剩余时间限制单次请求，并在发出前检查是否已取消
	c.SetRequestTimeout(requestTimeout(ctx, trendingRequestTimeout))
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	results := make([]NewsItem, 0, 25)
	now := time.Now()

	c.OnHTML("article.Box-row", func(e *colly.HTMLElement) {
		repoName, href := trendingRepo(e.DOM)
		if repoName == "" || href == "" {
			return
		}

		starsText := strings.TrimSpace(e.ChildText("a[href$=\"/stargazers\"]"))
		stars := parseStars(starsText)
		if q.MinStars > 0 && stars < q.MinStars {
			return
		}
		todayText := strings.TrimSpace(e.ChildText("span.float-sm-right"))

		// 从 Trending 页抓取仓库简短描述（p 标签）
		desc := strings.TrimSpace(e.ChildText("p"))
		if desc == "" {
			desc = repoName + " · " + starsText + " stars"
		}

		results = append(results, NewsItem{
			Title:       repoName,
			URL:         origin + href,
			Source:      "trending",
			Summary:     desc,
			PublishedAt: now,
			HotScore:    float64(stars),
			RawData: map[string]any{
				"stars":       stars,
				"stars_today": parseStars(strings.Fields(todayText + " 0")[0]),
				"language":    strings.TrimSpace(e.ChildText("span[itemprop=\"programmingLanguage\"]")),
			},
		})
	})

	if err := c.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("trending: visit %s: %w", pageURL, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("trending: %w", err)
	}

	if len(results) == 0 {
		// 页面结构调整时会解析不到任何仓库，视为失败而不是空结果
		return nil, fmt.Errorf("trending: no repositories parsed")
	}

	return results, nil
}

// pageURL 按语言和时间范围拼出 Trending 页地址：/trending/<language>?since=<since>
func (g *GitHubTrendingFetcher) pageURL(q Query) (string, error) {
	base := g.PageURL
	if base == "" {
		base = ghTrendingURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("trending: parse page url: %w", err)
	}
	if lang := strings.ToLower(strings.TrimSpace(q.Language)); lang != "" {
		u = u.JoinPath(lang)
	}
	if q.Since != "" {
		v := u.Query()
		v.Set("since", q.Since)
		u.RawQuery = v.Encode()
	}
	return u.String(), nil
}

// requestTimeout 取 max 与 ctx 剩余时间中较小者
func requestTimeout(ctx context.Context, max time.Duration) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return max
	}
	if left := time.Until(deadline); left < max {
		if left <= 0 {
			return time.Millisecond
		}
		return left
	}
	return max
}

// trendingRepo 从一行中取出 "owner / repo" 名称及其相对链接
func trendingRepo(row *goquery.Selection) (name, href string) {
	titleSel := row.Find("h2 a").First()
	if titleSel.Length() == 0 {
		return "", ""
	}
	name = strings.Join(strings.Fields(titleSel.Text()), "")
	name = strings.ReplaceAll(name, "/", " / ")
	href, _ = titleSel.Attr("href")
	return name, strings.TrimSpace(href)
}

// parseStars 将 GitHub Trending 中“12.3k”之类的文本解析为整数
func parseStars(text string) int {
	text = strings.ReplaceAll(text, ",", "")
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}

	multiplier := 1.0
	if strings.HasSuffix(text, "k") || strings.HasSuffix(text, "K") {
		multiplier = 1000
		text = strings.TrimSuffix(strings.TrimSuffix(text, "k"), "K")
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0
	}
	return int(f * multiplier)
}
