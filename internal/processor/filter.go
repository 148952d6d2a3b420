package processor

import (
	"sort"
	"strings"
	"time"

	"github.com/LJTian/IntelHub/internal/collector"
)

// NormalizeKeywords 去空白、转小写、去重并排序，保证相同关键词集合得到相同的缓存 key
func NormalizeKeywords(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, k := range raw {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ParseKeywords 解析逗号分隔的关键词参数
func ParseKeywords(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return NormalizeKeywords(strings.Split(s, ","))
}

// IsRelevant 标题、摘要或分类（fields.category）中包含任一关键词（忽略大小写）即视为相关；
// 未配置关键词时所有条目都相关。
func IsRelevant(item collector.NewsItem, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	title := strings.ToLower(item.Title)
	summary := strings.ToLower(item.Summary)
	category, _ := item.RawData["category"].(string)
	category = strings.ToLower(category)
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if strings.Contains(title, k) || strings.Contains(summary, k) || strings.Contains(category, k) {
			return true
		}
	}
	return false
}

// FilterRelevant 保留相关条目，保持原有顺序
func FilterRelevant(items []collector.NewsItem, keywords []string) []collector.NewsItem {
	if len(keywords) == 0 {
		return items
	}
	out := make([]collector.NewsItem, 0, len(items))
	for _, it := range items {
		if IsRelevant(it, keywords) {
			out = append(out, it)
		}
	}
	return out
}

// WithinWindow 保留时间落在 [now-hours, now] 内的条目。
// 零值时间无法证明落在窗口内，直接排除。hours <= 0 时不过滤。
func WithinWindow(items []collector.NewsItem, hours int, now time.Time) []collector.NewsItem {
	if hours <= 0 {
		return items
	}
	cutoff := now.Add(-time.Duration(hours) * time.Hour)
	out := make([]collector.NewsItem, 0, len(items))
	for _, it := range items {
		if it.PublishedAt.IsZero() {
			continue
		}
		if it.PublishedAt.Before(cutoff) || it.PublishedAt.After(now) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Truncate 截断到 limit 条；limit <= 0 表示不限制
func Truncate(items []collector.NewsItem, limit int) []collector.NewsItem {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
