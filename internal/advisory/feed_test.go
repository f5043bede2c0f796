package advisory_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iitslamaa/travel-scorer/internal/advisory"
	"github.com/iitslamaa/travel-scorer/internal/upstream"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Travel Advisories</title>
  <item>
    <title>France - Level 2: Exercise Increased Caution</title>
    <link>https://travel.state.gov/content/travel/en/traveladvisories/traveladvisories/destination.fra.html</link>
    <description><![CDATA[<p>Exercise increased caution due to <b>terrorism</b>.</p>]]></description>
    <pubDate>Tue, 10 Jun 2025 12:00:00 -0400</pubDate>
  </item>
  <item>
    <title>Japan - Level 1: Exercise Normal Precautions</title>
    <link>https://travel.state.gov/content/travel/en/traveladvisories/traveladvisories/japan-travel-advisory.html</link>
    <description></description>
    <pubDate>Mon, 02 Jun 2025 09:00:00 -0400</pubDate>
  </item>
  <item>
    <title>Mexico - Level 3: Reconsider Travel</title>
    <link>https://travel.state.gov/content/travel/en/traveladvisories/traveladvisories/destination.mex.html</link>
    <description>Older notice</description>
    <pubDate>Mon, 02 Jun 2025 09:00:00 -0400</pubDate>
  </item>
  <item>
    <title>Mexico - Level 2: Exercise Increased Caution</title>
    <link>https://travel.state.gov/content/travel/en/traveladvisories/traveladvisories/destination.mex.html</link>
    <description>Newer notice</description>
    <pubDate>Fri, 20 Jun 2025 09:00:00 -0400</pubDate>
  </item>
  <item>
    <title>Atlantis - Level 4: Do Not Travel</title>
    <link>https://travel.state.gov/content/travel/en/news/atlantis.html</link>
    <description>Unknown place</description>
  </item>
</channel>
</rss>`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func feedServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func byIdentifier(entries []advisory.RawEntry) map[string]advisory.RawEntry {
	m := make(map[string]advisory.RawEntry, len(entries))
	for _, e := range entries {
		m[e.Identifier] = e
	}
	return m
}

func TestFeedClient_Fetch(t *testing.T) {
	srv := feedServer(t, sampleFeed, http.StatusOK)
	c := advisory.NewFeedClientWithURLs(upstream.NewHTTPClient(0), discardLogger(), srv.URL)

	entries, err := c.Fetch(context.Background())
	require.NoError(t, err)
	got := byIdentifier(entries)

	require.Contains(t, got, "FR")
	assert.Equal(t, 2, got["FR"].Level)
	assert.Equal(t, "Exercise increased caution due to terrorism.", got["FR"].Summary)
	assert.False(t, got["FR"].Updated.IsZero())

	require.Contains(t, got, "JP", "slug link resolves through exact name")
	assert.Equal(t, 1, got["JP"].Level)
	assert.Equal(t, "Japan - Level 1: Exercise Normal Precautions", got["JP"].Summary, "title used when description is empty")

	require.Contains(t, got, "MX")
	assert.Equal(t, 2, got["MX"].Level, "latest entry per country wins")
	assert.Equal(t, "Newer notice", got["MX"].Summary)

	assert.Contains(t, got, "Atlantis - Level 4: Do Not Travel", "unmatched link keeps free text")
	assert.Len(t, entries, 4)
}

func TestFeedClient_Fetch_OneFeedDownOthersUsed(t *testing.T) {
	bad := feedServer(t, "boom", http.StatusInternalServerError)
	good := feedServer(t, sampleFeed, http.StatusOK)
	c := advisory.NewFeedClientWithURLs(upstream.NewHTTPClient(0), discardLogger(), bad.URL, good.URL)

	entries, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Contains(t, byIdentifier(entries), "FR")
}

func TestFeedClient_Fetch_Retries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "flaky", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	c := advisory.NewFeedClientWithURLs(upstream.NewHTTPClient(0), discardLogger(), srv.URL)
	entries, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFeedClient_Fetch_AllFeedsFail(t *testing.T) {
	notRSS := feedServer(t, `{"not":"rss"}`, http.StatusOK)
	down := feedServer(t, "", http.StatusBadGateway)
	c := advisory.NewFeedClientWithURLs(upstream.NewHTTPClient(0), discardLogger(), notRSS.URL, down.URL)

	_, err := c.Fetch(context.Background())
	require.Error(t, err)
}

func TestIdentifierFromLink(t *testing.T) {
	cases := []struct {
		link string
		want string
		ok   bool
	}{
		{"https://travel.state.gov/x/destination.fra.html", "FR", true},
		{"https://travel.state.gov/x/DESTINATION.JPN.html", "JP", true},
		{"https://travel.state.gov/x/destination.zzz.html", "", false},
		{"https://travel.state.gov/x/turkiye-travel-advisory.html", "TR", true},
		{"https://travel.state.gov/x/the-bahamas-travel-advisory.html", "BS", true},
		{"https://travel.state.gov/x/fran-travel-advisory.html", "", false},
		{"https://travel.state.gov/x/news.html", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := advisory.IdentifierFromLink(tc.link)
		assert.Equal(t, tc.ok, ok, tc.link)
		assert.Equal(t, tc.want, got, tc.link)
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, 3, advisory.ParseLevel("Colombia - Level 3: Reconsider Travel"))
	assert.Equal(t, 4, advisory.ParseLevel("level4 do not travel"))
	assert.Equal(t, 0, advisory.ParseLevel("Travel Advisory"))
}
