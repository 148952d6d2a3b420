package processor

import (
	"crypto/sha1"
	"encoding/hex"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/LJTian/IntelHub/internal/collector"
	"github.com/microcosm-cc/bluemonday"
)

// SummaryMaxRunes 摘要的最大长度（按 rune 计）
const SummaryMaxRunes = 300

var stripPolicy = bluemonday.StrictPolicy()

// Normalize 做最基础的数据清洗与 ID 生成：
// 去掉空标题、按 URL 去重、摘要转纯文本并截断、无法确定的时间回退为 now。
// 保持上游顺序，不做排序。
func Normalize(source string, items []collector.NewsItem, now time.Time) []collector.NewsItem {
	out := make([]collector.NewsItem, 0, len(items))
	seen := make(map[string]struct{})

	for _, it := range items {
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}

		link := ValidURL(it.URL)
		id := hashURL(link)
		if link == "" {
			// 没有可用链接时按标题区分，避免不同条目互相吞掉
			id = hashURL(source + "\x00" + title)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		summary := Summarize(it.Summary, SummaryMaxRunes)
		if summary == "" {
			summary = title
		}

		published := it.PublishedAt
		if published.IsZero() {
			published = now
		}

		it.ID = id
		it.Title = title
		it.URL = link
		it.Summary = summary
		it.PublishedAt = published
		if it.Source == "" {
			it.Source = source
		}
		out = append(out, it)
	}

	return out
}

// Summarize 将 HTML 片段转换为单行纯文本并按 rune 截断
func Summarize(s string, limit int) string {
	s = stripPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	s = strings.Join(strings.Fields(s), " ")
	return truncateRunes(s, limit)
}

// ValidURL 只接受 http/https 的绝对地址，其余一律视为无效
func ValidURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return raw
}

// truncateRunes 按 rune 截断，超长时追加省略号
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return strings.TrimSpace(string(rs[:limit])) + "…"
}

func hashURL(url string) string {
	h := sha1.New()
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}
