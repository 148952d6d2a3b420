package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const fundingFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Funding</title>
  <item>
    <title>Acme raises $10M Series A to build robots</title>
    <link>https://techcrunch.com/acme</link>
    <description><![CDATA[<p>Acme, a robotics <b>startup</b>, closed its round.</p>]]></description>
    <pubDate>Mon, 02 Jan 2026 10:00:00 GMT</pubDate>
    <category>Robotics</category>
  </item>
  <item>
    <title>Tiny Co raises seed funding</title>
    <link>https://techcrunch.com/tiny</link>
    <description>Undisclosed seed round.</description>
    <pubDate>not a date</pubDate>
  </item>
  <item>
    <title>Mega Corp raises $1.5 billion</title>
    <link>https://techcrunch.com/mega</link>
    <description>Huge round.</description>
  </item>
</channel>
</rss>`

func serveString(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFundingFetcherParsesAndEnriches(t *testing.T) {
	srv := serveString(t, fundingFeed)

	items, err := NewFundingFetcher(srv.URL).Fetch(context.Background(), Query{})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}

	acme := items[0]
	if acme.RawData["company"] != "Acme" || acme.RawData["round"] != "Series A" || acme.RawData["amount"] != "$10M" {
		t.Fatalf("unexpected funding fields: %+v", acme.RawData)
	}
	if acme.HotScore != 10_000_000 {
		t.Fatalf("HotScore = %v, want 1e7", acme.HotScore)
	}
	if acme.RawData["category"] != "Robotics" {
		t.Fatalf("category = %v, want Robotics", acme.RawData["category"])
	}
	want := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	if !acme.PublishedAt.Equal(want) {
		t.Fatalf("PublishedAt = %s, want %s", acme.PublishedAt, want)
	}

	// 无法解析的日期保持零值，交给 processor 回退
	if !items[1].PublishedAt.IsZero() {
		t.Fatalf("unparsable date should stay zero, got %s", items[1].PublishedAt)
	}
	if items[1].RawData["round"] != "Seed" || items[1].RawData["amount"] != "Undisclosed" {
		t.Fatalf("unexpected seed fields: %+v", items[1].RawData)
	}
}

func TestFundingFetcherMinAmount(t *testing.T) {
	srv := serveString(t, fundingFeed)

	items, err := NewFundingFetcher(srv.URL).Fetch(context.Background(), Query{MinAmount: 50_000_000})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(items) != 1 || items[0].RawData["company"] != "Mega Corp" {
		t.Fatalf("expected only Mega Corp, got %+v", items)
	}
}

func TestRSSFetcherUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := NewLaunchesFetcher(srv.URL).Fetch(context.Background(), Query{}); err == nil {
		t.Fatalf("expected error for 502 upstream")
	}
}

func TestRSSFetcherMalformedPayload(t *testing.T) {
	srv := serveString(t, "this is not a feed")
	if _, err := NewLaunchesFetcher(srv.URL).Fetch(context.Background(), Query{}); err == nil {
		t.Fatalf("expected error for malformed feed")
	}
}

func TestParseFunding(t *testing.T) {
	cases := []struct {
		title, summary string
		round, amount  string
		numeric        float64
	}{
		{"Foo raises $2.5M in pre-seed", "", "Pre-Seed", "$2.5M", 2_500_000},
		{"Bar raises $300K", "seed stage", "Seed", "$300K", 300_000},
		{"Baz closes Series C", "$120 million round", "Series C", "$120M", 120_000_000},
		{"Qux opens office", "no money here", "Unknown", "Undisclosed", 0},
	}
	for _, c := range cases {
		fr := parseFunding(c.title, c.summary)
		if fr.Round != c.round || fr.Amount != c.amount || fr.Numeric != c.numeric {
			t.Fatalf("parseFunding(%q) = %+v, want round=%s amount=%s numeric=%v", c.title, fr, c.round, c.amount, c.numeric)
		}
	}
}

const launchesFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Startups</title>
  <item>
    <title>Rocket launches a dev platform</title>
    <link>https://techcrunch.com/rocket</link>
    <category>Developer Tools</category>
    <category>AI</category>
  </item>
  <item>
    <title>Shoe brand opens store</title>
    <link>https://techcrunch.com/shoes</link>
    <category>Retail</category>
  </item>
  <item>
    <title>Uncategorized launch</title>
    <link>https://techcrunch.com/none</link>
  </item>
</channel>
</rss>`

func TestLaunchesFetcherCategoryFilter(t *testing.T) {
	srv := serveString(t, launchesFeed)

	all, err := NewLaunchesFetcher(srv.URL).Fetch(context.Background(), Query{})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 launches without category, got %d", len(all))
	}
	if all[0].RawData["category"] != "Developer Tools, AI" || all[0].RawData["type"] != "product" {
		t.Fatalf("unexpected fields: %+v", all[0].RawData)
	}

	tools, err := NewLaunchesFetcher(srv.URL).Fetch(context.Background(), Query{Category: "developer tools"})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(tools) != 1 || tools[0].Title != "Rocket launches a dev platform" {
		t.Fatalf("category filter kept %+v", tools)
	}
}
