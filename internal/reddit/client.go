// Package reddit is a small OAuth client for the handful of Reddit API
// calls the bot needs: list new posts, list comment authors, submit a reply
// and identify itself.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const defaultAPIBase = "https://oauth.reddit.com"

// ErrAuth marks a 401/403 from Reddit. Callers should treat it as fatal
// (bad credentials) rather than retriable.
var ErrAuth = errors.New("reddit authentication failed")

// Feed maps the nested structure of Reddit's listing JSON.
type Feed struct {
	Data struct {
		Children []struct {
			Data Post `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Post is the raw payload from Reddit.
type Post struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	SelfText          string  `json:"selftext"`
	URL               string  `json:"url"`
	Permalink         string  `json:"permalink"`
	Author            string  `json:"author"`
	Subreddit         string  `json:"subreddit"`
	CreatedUtc        float64 `json:"created_utc"`
	IsSelf            bool    `json:"is_self"`
	IsGallery         bool    `json:"is_gallery"`
	RemovedByCategory string  `json:"removed_by_category"`

	GalleryData struct {
		Items []struct {
			MediaID string `json:"media_id"`
		} `json:"items"`
	} `json:"gallery_data"`
	MediaMetadata map[string]struct {
		S struct {
			U string `json:"u"`
		} `json:"s"`
	} `json:"media_metadata"`
}

// CreatedAt converts the epoch float Reddit sends into a time.Time.
func (p Post) CreatedAt() time.Time {
	return time.Unix(int64(p.CreatedUtc), 0)
}

// FullURL returns the absolute permalink for the post.
func (p Post) FullURL() string {
	return "https://reddit.com" + p.Permalink
}

// ImageURLs extracts image links from a post: every gallery item for
// gallery posts, or the post URL itself when it links straight to an image.
func (p Post) ImageURLs() []string {
	var urls []string
	if p.IsGallery {
		for _, item := range p.GalleryData.Items {
			meta, ok := p.MediaMetadata[item.MediaID]
			if !ok || meta.S.U == "" {
				continue
			}
			// Reddit HTML-escapes ampersands inside media URLs.
			urls = append(urls, strings.ReplaceAll(meta.S.U, "&amp;", "&"))
		}
		return urls
	}
	if !p.IsSelf {
		lower := strings.ToLower(p.URL)
		for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif"} {
			if strings.HasSuffix(lower, ext) {
				return []string{p.URL}
			}
		}
	}
	return urls
}

// Client talks to the Reddit API using a long-lived refresh token.
type Client struct {
	httpClient   *http.Client
	apiBase      string
	tokenURL     string
	clientID     string
	clientSecret string
	refreshToken string
	userAgent    string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
	username    string
}

// NewClient returns an initialized Client. No network call is made until
// the first request needs an access token.
func NewClient(clientID, clientSecret, refreshToken, userAgent string) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		apiBase:      defaultAPIBase,
		tokenURL:     defaultTokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		refreshToken: refreshToken,
		userAgent:    userAgent,
	}
}

// ensureToken refreshes the access token if the cached one is missing or
// about to expire.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-30*time.Second)) {
		return c.accessToken, nil
	}

	tok, err := refreshAccessToken(ctx, c.httpClient, c.tokenURL, c.refreshToken, c.clientID, c.clientSecret, c.userAgent)
	if err != nil {
		return "", err
	}
	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

func (c *Client) doGet(ctx context.Context, path string, out any) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: reddit returned %d", ErrAuth, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("reddit returned %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode reddit json: %w", err)
	}
	return nil
}

// FetchNewestPosts hits /r/<subreddit>/new.json, skipping AutoModerator
// stickies.
func (c *Client) FetchNewestPosts(ctx context.Context, subreddit string, limit int) ([]Post, error) {
	var feed Feed
	path := fmt.Sprintf("/r/%s/new.json?limit=%d", url.PathEscape(subreddit), limit)
	if err := c.doGet(ctx, path, &feed); err != nil {
		return nil, err
	}

	var posts []Post
	for _, child := range feed.Data.Children {
		if child.Data.Author != "AutoModerator" {
			posts = append(posts, child.Data)
		}
	}
	return posts, nil
}

// ListCommentAuthors returns the author of every top-level comment on a
// post. Used to skip posts the bot already replied to.
func (c *Client) ListCommentAuthors(ctx context.Context, postID string) ([]string, error) {
	// The comments endpoint returns a two-element array: [post listing, comment listing].
	var listings []Feed
	path := fmt.Sprintf("/comments/%s.json?limit=100&depth=1", url.PathEscape(postID))
	if err := c.doGet(ctx, path, &listings); err != nil {
		return nil, err
	}
	if len(listings) < 2 {
		return nil, nil
	}

	var authors []string
	for _, child := range listings[1].Data.Children {
		if child.Data.Author != "" {
			authors = append(authors, child.Data.Author)
		}
	}
	return authors, nil
}

type commentResponse struct {
	JSON struct {
		Errors [][]any `json:"errors"`
		Data   struct {
			Things []struct {
				Data struct {
					ID string `json:"id"`
				} `json:"data"`
			} `json:"things"`
		} `json:"data"`
	} `json:"json"`
}

// Reply submits a comment on the given submission and returns the new
// comment's id.
func (c *Client) Reply(ctx context.Context, submissionID, text string) (string, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("thing_id", "t3_"+submissionID)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/api/comment", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("%w: reddit returned %d", ErrAuth, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("reddit returned %d: %s", resp.StatusCode, string(body))
	}

	var cr commentResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("failed to decode comment response: %w", err)
	}
	if len(cr.JSON.Errors) > 0 {
		return "", fmt.Errorf("reddit rejected comment: %v", cr.JSON.Errors)
	}
	if len(cr.JSON.Data.Things) == 0 {
		return "", errors.New("reddit returned no comment data")
	}
	return cr.JSON.Data.Things[0].Data.ID, nil
}

// Me returns the bot account's username, cached after the first call.
func (c *Client) Me(ctx context.Context) (string, error) {
	c.mu.Lock()
	cached := c.username
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	var me struct {
		Name string `json:"name"`
	}
	if err := c.doGet(ctx, "/api/v1/me", &me); err != nil {
		return "", err
	}
	if me.Name == "" {
		return "", errors.New("reddit returned an empty username")
	}

	c.mu.Lock()
	c.username = me.Name
	c.mu.Unlock()
	return me.Name, nil
}
