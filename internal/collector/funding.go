package collector

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	fundingAmountRe = regexp.MustCompile(`(?i)\$(\d+(?:\.\d+)?)\s*(billion|million|thousand|[MBK])\b`)
	seriesRe        = regexp.MustCompile(`(?i)series\s+([abc])\b`)
	preSeedRe       = regexp.MustCompile(`(?i)pre-seed`)
	seedRe          = regexp.MustCompile(`(?i)\bseed\b`)
)

// fundingRound 从标题和摘要中提取出的融资信息
type fundingRound struct {
	Company string
	Round   string
	Amount  string
	// Numeric 为 0 表示金额未披露
	Numeric float64
}

func parseFunding(title, summary string) fundingRound {
	content := title + " " + summary
	fr := fundingRound{Round: "Unknown", Amount: "Undisclosed"}

	if m := fundingAmountRe.FindStringSubmatch(content); m != nil {
		if num, err := strconv.ParseFloat(m[1], 64); err == nil {
			switch strings.ToUpper(m[2]) {
			case "B", "BILLION":
				fr.Numeric = num * 1_000_000_000
				fr.Amount = fmt.Sprintf("$%sB", m[1])
			case "M", "MILLION":
				fr.Numeric = num * 1_000_000
				fr.Amount = fmt.Sprintf("$%sM", m[1])
			case "K", "THOUSAND":
				fr.Numeric = num * 1_000
				fr.Amount = fmt.Sprintf("$%sK", m[1])
			}
		}
	}

	// pre-seed 需先于 seed 判断
	switch {
	case seriesRe.MatchString(content):
		fr.Round = "Series " + strings.ToUpper(seriesRe.FindStringSubmatch(content)[1])
	case preSeedRe.MatchString(content):
		fr.Round = "Pre-Seed"
	case seedRe.MatchString(content):
		fr.Round = "Seed"
	}

	name, _, _ := strings.Cut(title, " raises")
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > 200 {
		name = truncateTitle(title, 100)
	}
	fr.Company = name
	return fr
}

func truncateTitle(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n])
}

// enrichFunding 补充融资字段；设置了 MinAmount 时丢弃金额未知或低于阈值的条目
func enrichFunding(item *NewsItem, q Query) bool {
	fr := parseFunding(item.Title, item.Summary)
	if q.MinAmount > 0 && fr.Numeric < q.MinAmount {
		return false
	}

	item.RawData["company"] = fr.Company
	item.RawData["round"] = fr.Round
	item.RawData["amount"] = fr.Amount
	item.RawData["currency"] = "USD"
	if fr.Numeric > 0 {
		item.RawData["amount_numeric"] = fr.Numeric
	}
	item.HotScore = fr.Numeric
	return true
}
