package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	ghMaxResponseBytes = 4 << 20 // 4MB
	ghClientTimeout    = 15 * time.Second
	ghMaxPerPage       = 100
)

// 未指定关键词时用于发现创业相关仓库的默认词
var ghDefaultKeywords = []string{"startup", "saas", "api", "platform"}

// GitHubSearchFetcher 通过 GitHub Search API 查找近期活跃仓库，并附带技术信号分析
type GitHubSearchFetcher struct {
	BaseURL string
	Token   string
	Client  *http.Client
	limiter *rate.Limiter
	now     func() time.Time
}

func NewGitHubSearchFetcher(baseURL, token string) *GitHubSearchFetcher {
	// 无 token 时 GitHub 限制 60 次/小时，有 token 时 5000 次/小时
	perHour := 60
	if token != "" {
		perHour = 5000
	}
	return &GitHubSearchFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  &http.Client{Timeout: ghClientTimeout},
		limiter: rate.NewLimiter(rate.Every(time.Hour/time.Duration(perHour)), 5),
		now:     time.Now,
	}
}

func (g *GitHubSearchFetcher) Name() string {
	return "github"
}

type ghRepo struct {
	Name        string   `json:"name"`
	FullName    string   `json:"full_name"`
	Description string   `json:"description"`
	Language    string   `json:"language"`
	Stars       int      `json:"stargazers_count"`
	Forks       int      `json:"forks_count"`
	HTMLURL     string   `json:"html_url"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
	PushedAt    string   `json:"pushed_at"`
	Topics      []string `json:"topics"`
}

type ghSearchResp struct {
	TotalCount int      `json:"total_count"`
	Items      []ghRepo `json:"items"`
}

func (g *GitHubSearchFetcher) Fetch(ctx context.Context, q Query) ([]NewsItem, error) {
	now := g.now()

	var data ghSearchResp
	if err := g.get(ctx, "/search/repositories?"+g.searchParams(q, now).Encode(), &data); err != nil {
		return nil, fmt.Errorf("github: search repositories: %w", err)
	}

	results := make([]NewsItem, 0, len(data.Items))
	for _, repo := range data.Items {
		if repo.FullName == "" {
			continue
		}
		if q.MinStars > 0 && repo.Stars < q.MinStars {
			continue
		}
		results = append(results, repoItem(repo, now))
	}
	return results, nil
}

// Repository 查询单个仓库详情，返回与搜索结果相同形状的条目
func (g *GitHubSearchFetcher) Repository(ctx context.Context, owner, repo string) (NewsItem, error) {
	owner, repo = strings.TrimSpace(owner), strings.TrimSpace(repo)
	if owner == "" || repo == "" {
		return NewsItem{}, fmt.Errorf("github: owner and repo are required")
	}

	var data ghRepo
	path := "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo)
	if err := g.get(ctx, path, &data); err != nil {
		return NewsItem{}, fmt.Errorf("github: get repository %s/%s: %w", owner, repo, err)
	}
	if data.FullName == "" {
		data.FullName = owner + "/" + repo
	}
	return repoItem(data, g.now()), nil
}

// get 请求 GitHub API 并把 JSON 响应解码到 out，受限流器约束
func (g *GitHubSearchFetcher) get(ctx context.Context, path string, out any) error {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "IntelHubBot/1.0")
	if g.Token != "" {
		req.Header.Set("Authorization", "token "+g.Token)
	}

	client := g.Client
	if client == nil {
		client = &http.Client{Timeout: ghClientTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, ghMaxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func repoItem(repo ghRepo, now time.Time) NewsItem {
	link := repo.HTMLURL
	if link == "" {
		link = "https://github.com/" + repo.FullName
	}

	topics := repo.Topics
	if topics == nil {
		topics = []string{}
	}

	raw := map[string]any{
		"stars":    repo.Stars,
		"forks":    repo.Forks,
		"language": repo.Language,
		"topics":   strings.Join(topics, ","),
	}
	for k, v := range analyzeRepo(repo, now) {
		raw[k] = v
	}

	summary := repo.Description
	if summary == "" {
		summary = "Active repository: " + repo.FullName
	}

	return NewsItem{
		Title:       repo.FullName,
		URL:         link,
		Source:      "github",
		Summary:     summary,
		PublishedAt: parseRFC3339(firstNonEmpty(repo.PushedAt, repo.UpdatedAt)),
		HotScore:    float64(repo.Stars),
		RawData:     raw,
	}
}

func (g *GitHubSearchFetcher) searchParams(q Query, now time.Time) url.Values {
	minStars := q.MinStars
	if minStars <= 0 {
		minStars = 10
	}
	// GitHub 只支持按日期过滤，小时数向上取整为天
	days := 7
	if q.Hours > 0 {
		days = (q.Hours + 23) / 24
	}
	cutoff := now.AddDate(0, 0, -days).UTC().Format("2006-01-02")

	keywords := q.Keywords
	if len(keywords) == 0 {
		keywords = ghDefaultKeywords
	}

	parts := []string{
		"stars:>=" + strconv.Itoa(minStars),
		"pushed:>=" + cutoff,
	}
	parts = append(parts, keywords...)

	perPage := ghMaxPerPage
	if q.Limit > 0 && q.Limit*2 < perPage {
		// 关键词过滤会丢掉部分结果，多取一些
		perPage = q.Limit * 2
	}

	v := url.Values{}
	v.Set("q", strings.Join(parts, " "))
	v.Set("sort", "updated")
	v.Set("order", "desc")
	v.Set("per_page", strconv.Itoa(perPage))
	return v
}

// analyzeRepo 根据描述、topic、star 数和最近更新时间给出创业/技术信号
func analyzeRepo(repo ghRepo, now time.Time) map[string]any {
	description := strings.ToLower(repo.Description)
	topics := strings.ToLower(strings.Join(repo.Topics, " "))

	startup := false
	for _, kw := range []string{"startup", "saas", "product", "app", "platform", "api"} {
		if strings.Contains(description, kw) || strings.Contains(topics, kw) {
			startup = true
			break
		}
	}

	growth := "low"
	switch {
	case repo.Stars > 1000:
		growth = "high"
	case repo.Stars > 100:
		growth = "medium"
	}

	activity := "active"
	if updated := parseRFC3339(repo.UpdatedAt); !updated.IsZero() {
		days := now.Sub(updated).Hours() / 24
		switch {
		case days < 7:
			activity = "very_active"
		case days < 30:
			activity = "active"
		default:
			activity = "inactive"
		}
	}

	signalType := "emerging_technology"
	switch {
	case containsAny(topics, "startup", "saas", "product"):
		signalType = "startup_activity"
	case containsAny(description, "trend", "popular", "growing"):
		signalType = "tech_trend"
	}

	confidence := "low"
	switch {
	case repo.Stars > 500:
		confidence = "high"
	case repo.Stars > 50:
		confidence = "medium"
	}

	return map[string]any{
		"growth_rate":        growth,
		"developer_activity": activity,
		"startup_indicator":  startup,
		"signal_type":        signalType,
		"confidence":         confidence,
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// parseRFC3339 解析失败返回零值，由 processor 回退为抓取时间
func parseRFC3339(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
