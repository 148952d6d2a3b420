package collector

import (
	"context"
	"encoding/json"
	"time"
)

// NewsItem 统一采集后的基础结构，所有数据源都归一成这个形状
type NewsItem struct {
	ID     string `json:"id,omitempty"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Source string `json:"source"`
	// Summary 为纯文本摘要，长度在 processor 中按 rune 截断
	Summary     string    `json:"summary"`
	PublishedAt time.Time `json:"timestamp"`
	HotScore    float64   `json:"hotScore"`
	// RawData 数据源特有字段（作者、分数、star 数等），核心逻辑只透传
	RawData map[string]any `json:"fields,omitempty"`
}

// Query 单次请求中各数据源共同遵守的参数；与自身无关的字段由数据源忽略
type Query struct {
	Limit     int
	Keywords  []string
	Hours     int
	MinStars  int
	MinAmount float64

	// Language/Since 仅用于 GitHub Trending 页面（since 为 daily/weekly/monthly）
	Language string
	Since    string
	// Category 仅用于 launches，按 RSS 分类做子串匹配
	Category string
}

// Fetcher 抽象每一个数据源
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, q Query) ([]NewsItem, error)
}

// SourceResult 单个数据源一次抓取的结果：要么成功带条目，要么失败带错误信息
type SourceResult struct {
	Source string
	Items  []NewsItem
	Error  string
}

// Succeeded 构造成功结果；items 为空表示数据源没有符合条件的条目
func Succeeded(source string, items []NewsItem) SourceResult {
	if items == nil {
		items = []NewsItem{}
	}
	return SourceResult{Source: source, Items: items}
}

// Failed 构造失败结果，失败时 Items 恒为空
func Failed(source string, err error) SourceResult {
	msg := "unknown error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return SourceResult{Source: source, Items: []NewsItem{}, Error: msg}
}

func (r SourceResult) OK() bool {
	return r.Error == ""
}

func (r SourceResult) Count() int {
	return len(r.Items)
}

type sourceResultJSON struct {
	Source   string     `json:"source"`
	Count    int        `json:"count"`
	Articles []NewsItem `json:"articles"`
	Error    string     `json:"error,omitempty"`
}

func (r SourceResult) MarshalJSON() ([]byte, error) {
	items := r.Items
	if items == nil {
		items = []NewsItem{}
	}
	return json.Marshal(sourceResultJSON{
		Source:   r.Source,
		Count:    len(items),
		Articles: items,
		Error:    r.Error,
	})
}

func (r *SourceResult) UnmarshalJSON(data []byte) error {
	var raw sourceResultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Source = raw.Source
	r.Items = raw.Articles
	if r.Items == nil {
		r.Items = []NewsItem{}
	}
	r.Error = raw.Error
	return nil
}
