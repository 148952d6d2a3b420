package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/LJTian/IntelHub/internal/aggregator"
	"github.com/LJTian/IntelHub/internal/collector"
	"github.com/LJTian/IntelHub/internal/config"
	"github.com/LJTian/IntelHub/internal/processor"
)

// 一个仅执行一轮聚合的命令行入口：适合手动检查各数据源，结果以 JSON 输出到 stdout
func main() {
	cfg := config.Load()

	limit := flag.Int("limit", cfg.DefaultLimit, "max items per source")
	hours := flag.Int("hours", cfg.DefaultHours, "time window in hours, 0 disables the window")
	keywords := flag.String("keywords", "", "comma separated keywords")
	source := flag.String("source", "", "only fetch this source")
	language := flag.String("language", "", "trending: programming language")
	since := flag.String("since", "", "trending: daily, weekly or monthly")
	category := flag.String("category", "", "launches: category filter")
	flag.Parse()

	fetchers := collector.FromConfig(cfg)
	agg := aggregator.New(fetchers, cfg.FetchTimeout)
	q := collector.Query{
		Limit:    *limit,
		Hours:    *hours,
		Keywords: processor.ParseKeywords(*keywords),
		Language: strings.ToLower(*language),
		Since:    strings.ToLower(*since),
		Category: strings.ToLower(*category),
	}

	ctx := context.Background()
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if *source != "" {
		f, ok := agg.Fetcher(*source)
		if !ok {
			log.Fatalf("source %s not enabled, enabled=%v", *source, agg.Sources())
		}
		res := agg.FetchOne(ctx, f, q)
		if err := enc.Encode(res); err != nil {
			log.Fatalf("encode result failed: %v", err)
		}
		if !res.OK() {
			os.Exit(1)
		}
		return
	}

	report := agg.Aggregate(ctx, q)
	if err := enc.Encode(report); err != nil {
		log.Fatalf("encode report failed: %v", err)
	}
	if report.AllFailed() {
		os.Exit(1)
	}
}
