// Package links turns the blog's sitemap into a single relevant link to
// hand the comment prompt.
package links

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"
)

const cacheTTL = time.Hour

// urlset matches the standard sitemap.org XML layout.
type urlset struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// Chooser fetches blog URLs from a sitemap and picks the most relevant one
// for a given post. A one-hour in-memory cache keeps the scraper and the
// review surface from re-fetching the sitemap on every generation call.
type Chooser struct {
	httpClient *http.Client
	sitemapURL string
	fallback   string

	mu        sync.Mutex
	cached    []string
	fetchedAt time.Time
}

// NewChooser returns a Chooser for the given sitemap. The fallback link is
// returned whenever no slug matches (or the sitemap is unreachable).
func NewChooser(sitemapURL, fallback string) *Chooser {
	return &Chooser{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		sitemapURL: sitemapURL,
		fallback:   fallback,
	}
}

// Links returns the sitemap URLs, fetching them if the cache is stale.
func (c *Chooser) Links(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && time.Since(c.fetchedAt) < cacheTTL {
		return c.cached, nil
	}

	links, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.cached = links
	c.fetchedAt = time.Now()
	return links, nil
}

func (c *Chooser) fetch(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.sitemapURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sitemap: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("sitemap returned %d: %s", resp.StatusCode, string(body))
	}

	var set urlset
	if err := xml.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("failed to parse sitemap xml: %w", err)
	}

	var links []string
	for _, u := range set.URLs {
		if loc := strings.TrimSpace(u.Loc); loc != "" {
			links = append(links, loc)
		}
	}
	return links, nil
}

// BestFor fetches the sitemap and picks the most relevant link for the post
// text. Any fetch failure falls back to the default link; link ranking is a
// convenience, never a reason to fail a generation call.
func (c *Chooser) BestFor(ctx context.Context, title, selftext string) string {
	links, err := c.Links(ctx)
	if err != nil {
		return c.fallback
	}
	return Pick(links, title, selftext, c.fallback)
}

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Pick returns the first link whose slug shares a token of at least four
// characters with the post title or body, else the fallback. One scoring
// rule, applied in sitemap order.
func Pick(links []string, title, selftext, fallback string) string {
	corpus := strings.ToLower(title + " " + selftext)

	for _, link := range links {
		for _, token := range slugTokens(link) {
			if len(token) >= 4 && strings.Contains(corpus, token) {
				return link
			}
		}
	}
	return fallback
}

// slugTokens splits the final path segment of a URL into lowercase tokens.
func slugTokens(link string) []string {
	u, err := url.Parse(link)
	if err != nil {
		return nil
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return nil
	}
	segments := strings.Split(path, "/")
	slug := segments[len(segments)-1]
	return tokenPattern.FindAllString(strings.ToLower(slug), -1)
}
