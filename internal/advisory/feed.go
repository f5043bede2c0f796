package advisory

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/iitslamaa/travel-scorer/internal/country"
	"github.com/iitslamaa/travel-scorer/internal/upstream"
)

// DefaultFeedURLs are the State Department advisory feeds, tried in order.
var DefaultFeedURLs = []string{
	"https://travel.state.gov/_res/rss/TAs.xml",
	"https://travel.state.gov/_res/rss/TAsTWs.xml",
	"https://travel.state.gov/_res/rss/TWs.xml",
	"https://travel.state.gov/content/travel/en/traveladvisories/traveladvisories.xml",
}

const (
	feedTries      = 2
	feedRetryDelay = 300 * time.Millisecond
)

// FeedClient reads advisory RSS feeds.
type FeedClient struct {
	urls       []string
	client     *http.Client
	retryDelay time.Duration
	log        *slog.Logger
}

// NewFeedClient constructs a FeedClient over DefaultFeedURLs.
func NewFeedClient(client *http.Client, log *slog.Logger) *FeedClient {
	return NewFeedClientWithURLs(client, log, DefaultFeedURLs...)
}

// NewFeedClientWithURLs constructs a FeedClient over custom URLs (for tests).
func NewFeedClientWithURLs(client *http.Client, log *slog.Logger, urls ...string) *FeedClient {
	return &FeedClient{urls: urls, client: client, retryDelay: feedRetryDelay, log: log}
}

type rssDocument struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Description string `xml:"description"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
}

// Fetch reads every feed and returns the latest entry per identifier. It
// fails only when no feed could be read at all.
func (c *FeedClient) Fetch(ctx context.Context) ([]RawEntry, error) {
	var items []rssItem
	var errs []error
	read := 0
	for _, u := range c.urls {
		body, err := c.fetchWithRetry(ctx, u)
		if err != nil {
			c.log.Warn("advisory feed fetch failed", "url", u, "err", err)
			errs = append(errs, err)
			continue
		}
		parsed, err := parseFeed(body)
		if err != nil {
			c.log.Warn("advisory feed unreadable", "url", u, "err", err)
			errs = append(errs, err)
			continue
		}
		read++
		items = append(items, parsed...)
	}
	if read == 0 {
		return nil, fmt.Errorf("reading advisory feeds: %w", errors.Join(errs...))
	}
	return latestPerIdentifier(itemsToEntries(items)), nil
}

func (c *FeedClient) fetchWithRetry(ctx context.Context, u string) ([]byte, error) {
	header := http.Header{}
	header.Set("User-Agent", "travel-scorer/1.0")
	header.Set("Accept", "application/rss+xml, application/xml;q=0.9, */*;q=0.8")

	var lastErr error
	for i := 0; i < feedTries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
		body, err := upstream.GetBytes(ctx, c.client, u, header)
		if err == nil {
			return body, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func parseFeed(body []byte) ([]rssItem, error) {
	lower := bytes.ToLower(body)
	if !bytes.Contains(lower, []byte("<rss")) && !bytes.Contains(lower, []byte("<channel")) {
		return nil, errors.New("not an rss document")
	}
	var doc rssDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decoding rss: %w", err)
	}
	return doc.Channel.Items, nil
}

func itemsToEntries(items []rssItem) []RawEntry {
	out := make([]RawEntry, 0, len(items))
	for _, it := range items {
		title := strings.TrimSpace(it.Title)
		description := StripTags(it.Description)
		link := strings.TrimSpace(it.Link)

		id, ok := IdentifierFromLink(link)
		if !ok {
			// Free text; Resolve discards it.
			id = title
		}

		summary := description
		if summary == "" {
			summary = title
		}
		out = append(out, RawEntry{
			Identifier: id,
			Level:      ParseLevel(title + " " + description),
			Summary:    summary,
			URL:        link,
			Updated:    parsePubDate(it.PubDate),
		})
	}
	return out
}

func latestPerIdentifier(entries []RawEntry) []RawEntry {
	latest := make(map[string]int, len(entries))
	out := make([]RawEntry, 0, len(entries))
	for _, e := range entries {
		if i, ok := latest[e.Identifier]; ok {
			if e.Updated.After(out[i].Updated) {
				out[i] = e
			}
			continue
		}
		latest[e.Identifier] = len(out)
		out = append(out, e)
	}
	return out
}

var (
	destinationLink = regexp.MustCompile(`(?i)/destination\.([a-z]{3})\.html`)
	slugLink        = regexp.MustCompile(`(?i)/([a-z0-9-]+)-travel-advisory\.html`)
	levelPattern    = regexp.MustCompile(`(?i)level\s*([1-4])`)
)

// IdentifierFromLink derives an ISO2 code from an advisory page link, either
// destination.<iso3>.html or <country-slug>-travel-advisory.html. The slug
// must match a seeded name or alias exactly after normalization.
func IdentifierFromLink(link string) (string, bool) {
	if link == "" {
		return "", false
	}
	if m := destinationLink.FindStringSubmatch(link); m != nil {
		s, ok := country.ByISO3(m[1])
		return s.ISO2, ok
	}
	if m := slugLink.FindStringSubmatch(link); m != nil {
		s, ok := country.ByExactName(m[1])
		return s.ISO2, ok
	}
	return "", false
}

// ParseLevel returns the first "Level N" in text, or 0 when there is none.
func ParseLevel(text string) int {
	m := levelPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

var pubDateLayouts = []string{time.RFC1123Z, time.RFC1123, time.RFC3339, "Mon, 2 Jan 2006 15:04:05 -0700"}

func parsePubDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
