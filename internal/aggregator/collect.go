package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/LJTian/IntelHub/internal/collector"
	"github.com/LJTian/IntelHub/internal/metrics"
	"github.com/LJTian/IntelHub/internal/processor"
)

type fetchOutcome struct {
	items []collector.NewsItem
	err   error
}

// Collect 是数据源的边界：在超时内调用一次 Fetch，
// 把错误、超时和 panic 统一转换成失败的 SourceResult，绝不向上抛出。
// 成功时依次做归一化、关键词过滤，最后截断到 q.Limit。
func Collect(ctx context.Context, f collector.Fetcher, q collector.Query, timeout time.Duration) collector.SourceResult {
	name := f.Name()
	start := time.Now()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	log.Printf("fetch from %s...", name)

	// 带缓冲，超时返回后 goroutine 仍可写入并退出
	done := make(chan fetchOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fetchOutcome{err: fmt.Errorf("%s: panic: %v", name, r)}
			}
		}()
		items, err := f.Fetch(ctx, q)
		done <- fetchOutcome{items: items, err: err}
	}()

	var out fetchOutcome
	select {
	case out = <-done:
	case <-ctx.Done():
		// 数据源没有及时响应 ctx，直接放弃本轮结果
		out = fetchOutcome{err: ctx.Err()}
	}

	if out.err != nil {
		err := out.err
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%s: timed out after %s: %w", name, timeout, err)
		}
		log.Printf("fetch %s error: %v", name, err)
		metrics.ObserveFetch(name, false, time.Since(start))
		return collector.Failed(name, err)
	}

	items := processor.Normalize(name, out.items, time.Now())
	items = processor.FilterRelevant(items, q.Keywords)
	items = processor.Truncate(items, q.Limit)

	// fetched = 上游返回的条数，kept = 过滤截断后保留的条数
	log.Printf("%s done, fetched=%d kept=%d items", name, len(out.items), len(items))
	metrics.ObserveFetch(name, true, time.Since(start))
	return collector.Succeeded(name, items)
}
