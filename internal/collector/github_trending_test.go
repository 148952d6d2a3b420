package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const trendingPage = `<html><body>
<article class="Box-row">
  <h2><a href="/acme/rocket"> acme /
      rocket </a></h2>
  <p> Launch faster with rockets </p>
  <span itemprop="programmingLanguage">Go</span>
  <a href="/acme/rocket/stargazers">12.3k</a>
  <span class="d-inline-block float-sm-right">1,024 stars today</span>
</article>
<article class="Box-row">
  <h2><a href="/acme/tiny">acme / tiny</a></h2>
  <a href="/acme/tiny/stargazers">42</a>
</article>
<article class="Box-row"><p>no title here</p></article>
</body></html>`

func TestGitHubTrendingFetcherParsesRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(trendingPage))
	}))
	defer srv.Close()

	items, err := (&GitHubTrendingFetcher{PageURL: srv.URL + "/trending"}).Fetch(context.Background(), Query{})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 repos, got %d", len(items))
	}

	rocket := items[0]
	if rocket.Title != "acme / rocket" || rocket.URL != srv.URL+"/acme/rocket" {
		t.Fatalf("unexpected repo: %+v", rocket)
	}
	if rocket.HotScore != 12300 || rocket.RawData["stars_today"] != 1024 || rocket.RawData["language"] != "Go" {
		t.Fatalf("unexpected stars: %+v", rocket.RawData)
	}
	if rocket.Summary != "Launch faster with rockets" {
		t.Fatalf("summary = %q", rocket.Summary)
	}
	if items[1].Summary != "acme / tiny · 42 stars" {
		t.Fatalf("fallback summary = %q", items[1].Summary)
	}
}

func TestGitHubTrendingFetcherMinStarsAndEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(trendingPage))
	}))
	defer srv.Close()

	items, err := (&GitHubTrendingFetcher{PageURL: srv.URL}).Fetch(context.Background(), Query{MinStars: 1000})
	if err != nil || len(items) != 1 {
		t.Fatalf("expected 1 repo above min stars, got %d (err=%v)", len(items), err)
	}

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>redesigned</body></html>`))
	}))
	defer empty.Close()
	if _, err := (&GitHubTrendingFetcher{PageURL: empty.URL}).Fetch(context.Background(), Query{}); err == nil {
		t.Fatalf("expected error when no rows parsed")
	}
}

func TestParseStars(t *testing.T) {
	cases := map[string]int{
		"12.3k": 12300,
		"1,234": 1234,
		"2K":    2000,
		"":      0,
		"n/a":   0,
	}
	for in, want := range cases {
		if got := parseStars(in); got != want {
			t.Fatalf("parseStars(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestBrowserFetcherToItemsResolvesLinks(t *testing.T) {
	b := NewBrowserFetcher("producthunt", "https://www.producthunt.com/", "section")
	now := time.Now()

	items := b.toItems([]scrapedLink{
		{Title: "  Rocket   Launcher ", URL: "/posts/rocket", Summary: "Ship\n faster"},
		{Title: "", URL: "/posts/empty"},
		{Title: "Absolute", URL: "https://example.com/x"},
	}, now)

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Title != "Rocket Launcher" || items[0].URL != "https://www.producthunt.com/posts/rocket" {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
	if items[0].Summary != "Ship faster" || !items[0].PublishedAt.Equal(now) {
		t.Fatalf("unexpected summary/time: %+v", items[0])
	}
	if items[1].URL != "https://example.com/x" || items[1].RawData["rank"] != 3 {
		t.Fatalf("unexpected second item: %+v", items[1])
	}
}

func TestGitHubTrendingPageURL(t *testing.T) {
	cases := []struct {
		q    Query
		want string
	}{
		{Query{}, "https://github.com/trending"},
		{Query{Since: "daily"}, "https://github.com/trending?since=daily"},
		{Query{Language: " Go ", Since: "weekly"}, "https://github.com/trending/go?since=weekly"},
		{Query{Language: "rust"}, "https://github.com/trending/rust"},
	}
	g := &GitHubTrendingFetcher{}
	for _, c := range cases {
		got, err := g.pageURL(c.q)
		if err != nil {
			t.Fatalf("pageURL(%+v) error: %v", c.q, err)
		}
		if got != c.want {
			t.Fatalf("pageURL(%+v) = %q, want %q", c.q, got, c.want)
		}
	}
}

func TestGitHubTrendingFetcherRequestsLanguageAndSince(t *testing.T) {
	var gotPath, gotSince string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSince = r.URL.Query().Get("since")
		_, _ = w.Write([]byte(trendingPage))
	}))
	defer srv.Close()

	f := &GitHubTrendingFetcher{PageURL: srv.URL + "/trending"}
	if _, err := f.Fetch(context.Background(), Query{Language: "Go", Since: "monthly"}); err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if gotPath != "/trending/go" || gotSince != "monthly" {
		t.Fatalf("requested path=%q since=%q", gotPath, gotSince)
	}
}

func TestGitHubTrendingFetcherCanceledContext(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte(trendingPage))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&GitHubTrendingFetcher{PageURL: srv.URL}).Fetch(ctx, Query{})
	if err == nil {
		t.Fatalf("expected error for canceled context")
	}
	if hits != 0 {
		t.Fatalf("canceled fetch should not reach the server, hits=%d", hits)
	}
}

func TestRequestTimeoutFollowsDeadline(t *testing.T) {
	if got := requestTimeout(context.Background(), 10*time.Second); got != 10*time.Second {
		t.Fatalf("no deadline: got %s", got)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if got := requestTimeout(ctx, 10*time.Second); got > time.Second || got <= 0 {
		t.Fatalf("with deadline: got %s", got)
	}
}
