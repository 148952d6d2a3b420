package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/LJTian/IntelHub/internal/collector"
	"github.com/LJTian/IntelHub/internal/processor"
	"golang.org/x/sync/errgroup"
)

// Report 一轮聚合的结果。Results 的顺序由配置决定，与完成先后无关。
type Report struct {
	Timestamp time.Time
	Results   []collector.SourceResult
	Total     int
	// Error 仅在整体降级时出现（见 api 层）
	Error string
}

// Result 按数据源名称查找结果
func (r Report) Result(source string) (collector.SourceResult, bool) {
	for _, res := range r.Results {
		if res.Source == source {
			return res, true
		}
	}
	return collector.SourceResult{}, false
}

// AllFailed 所有数据源都失败（没有配置数据源时为 false）
func (r Report) AllFailed() bool {
	if len(r.Results) == 0 {
		return false
	}
	for _, res := range r.Results {
		if res.OK() {
			return false
		}
	}
	return true
}

// MarshalJSON 输出 {timestamp, sources: {...}, total}，sources 中的 key 按配置顺序排列
func (r Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	ts, err := json.Marshal(r.Timestamp)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`{"timestamp":`)
	buf.Write(ts)

	buf.WriteString(`,"sources":{`)
	for i, res := range r.Results {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(res.Source)
		if err != nil {
			return nil, err
		}
		body, err := json.Marshal(res)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteString(`},"total":`)
	fmt.Fprintf(&buf, "%d", r.Total)

	if r.Error != "" {
		msg, err := json.Marshal(r.Error)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"error":`)
		buf.Write(msg)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Aggregator 并发调用所有已配置的数据源并合并结果
type Aggregator struct {
	fetchers []collector.Fetcher
	timeout  time.Duration
	now      func() time.Time
}

func New(fetchers []collector.Fetcher, timeout time.Duration) *Aggregator {
	return &Aggregator{
		fetchers: fetchers,
		timeout:  timeout,
		now:      time.Now,
	}
}

// WithClock 替换时间来源，便于测试时间窗口
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// Sources 按配置顺序返回数据源名称
func (a *Aggregator) Sources() []string {
	names := make([]string, 0, len(a.fetchers))
	for _, f := range a.fetchers {
		names = append(names, f.Name())
	}
	return names
}

// Fetcher 按名称查找数据源
func (a *Aggregator) Fetcher(name string) (collector.Fetcher, bool) {
	for _, f := range a.fetchers {
		if f.Name() == name {
			return f, true
		}
	}
	return nil, false
}

// FetchOne 对单个数据源执行一次抓取，并按 hours 做时间窗口过滤
func (a *Aggregator) FetchOne(ctx context.Context, f collector.Fetcher, q collector.Query) collector.SourceResult {
	res := Collect(ctx, f, q, a.timeout)
	if res.OK() {
		res.Items = processor.WithinWindow(res.Items, q.Hours, a.now())
	}
	return res
}

// Aggregate 并发抓取全部数据源，等待所有分支结束（不因某个失败而取消其它分支），
// 然后逐个数据源做时间窗口过滤并统计总数。
func (a *Aggregator) Aggregate(ctx context.Context, q collector.Query) Report {
	results := make([]collector.SourceResult, len(a.fetchers))

	// 不使用 errgroup.WithContext：各分支从不返回 error，也不互相取消
	var g errgroup.Group
	for i, f := range a.fetchers {
		g.Go(func() error {
			results[i] = a.collectSafe(ctx, f, q)
			return nil
		})
	}
	_ = g.Wait()

	now := a.now()
	total := 0
	for i := range results {
		if results[i].OK() {
			results[i].Items = processor.WithinWindow(results[i].Items, q.Hours, now)
		}
		total += results[i].Count()
	}

	report := Report{
		Timestamp: a.now(),
		Results:   results,
		Total:     total,
	}
	log.Printf("aggregate done: sources=%d total=%d", len(results), total)
	return report
}

// collectSafe Collect 本身不会 panic，这里再兜一层，保证每个数据源都有结果
func (a *Aggregator) collectSafe(ctx context.Context, f collector.Fetcher, q collector.Query) (res collector.SourceResult) {
	name := "unknown"
	defer func() {
		if r := recover(); r != nil {
			log.Printf("aggregate %s panic: %v", name, r)
			res = collector.Failed(name, fmt.Errorf("%s: panic: %v", name, r))
		}
	}()
	name = f.Name()
	return Collect(ctx, f, q, a.timeout)
}
