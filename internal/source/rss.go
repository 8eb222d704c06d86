package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

const (
	ModeRSS = "rss"

	rssFetchTimeout = 30 * time.Second
	redditPostKind  = "t3_"
)

// RSSClient reads subreddit listings from Reddit's Atom feeds. Feeds carry
// neither flair nor score, so those fields are always empty.
type RSSClient struct {
	baseURL   string
	userAgent string
	client    *http.Client
	throttle  throttle
}

// NewRSS creates a feed-based client. It needs no credentials.
func NewRSS(userAgent, baseURL string, requestDelay time.Duration) *RSSClient {
	if userAgent == "" {
		userAgent = redditUserAgent
	}
	if baseURL == "" {
		baseURL = redditPublicURL
	}
	rc := &RSSClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		throttle: throttle{
			delay: requestDelay,
			now:   time.Now,
			sleep: time.Sleep,
		},
	}
	rc.client = &http.Client{
		Timeout:   rssFetchTimeout,
		Transport: &userAgentTransport{base: http.DefaultTransport, userAgent: userAgent},
	}
	return rc
}

// Fetch returns the newest posts of subreddit from its /new feed.
func (rc *RSSClient) Fetch(ctx context.Context, subreddit string, limit int) ([]Post, error) {
	if strings.TrimSpace(subreddit) == "" {
		return nil, errors.New("rss: subreddit is required")
	}
	limit = clampLimit(limit)

	rc.throttle.wait()

	feedURL := fmt.Sprintf("%s/r/%s/new/.rss?limit=%d", rc.baseURL, url.PathEscape(subreddit), limit)

	fp := gofeed.NewParser()
	fp.Client = rc.client
	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch r/%s feed: %w", subreddit, err)
	}

	posts := postsFromFeed(feed, subreddit)
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

// userAgentTransport injects a User-Agent header into every request.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}

func postsFromFeed(feed *gofeed.Feed, subreddit string) []Post {
	posts := make([]Post, 0, len(feed.Items))
	for _, item := range feed.Items {
		id := itemID(item)
		if id == "" {
			continue
		}
		posts = append(posts, Post{
			ID:        id,
			Subreddit: subreddit,
			Title:     strings.TrimSpace(item.Title),
			Body:      markdownText(item.Content),
			Author:    itemAuthor(item),
			CreatedAt: itemPublishedTime(item),
			Permalink: permalinkPath(item.Link),
		})
	}
	return posts
}

func itemID(item *gofeed.Item) string {
	id := strings.TrimPrefix(item.GUID, redditPostKind)
	if id != "" {
		return id
	}
	return permalinkPath(item.Link)
}

func itemAuthor(item *gofeed.Item) string {
	var name string
	if item.Author != nil {
		name = item.Author.Name
	} else if len(item.Authors) > 0 && item.Authors[0] != nil {
		name = item.Authors[0].Name
	}
	name = strings.TrimPrefix(strings.TrimSpace(name), "/u/")
	return normalizeAuthor(name)
}

func itemPublishedTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC()
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC()
	}
	return time.Time{}
}

func permalinkPath(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Path == "" {
		return link
	}
	return u.Path
}

// markdownText extracts the self text from a feed entry's HTML content.
// Reddit wraps it in <div class="md">; everything outside is boilerplate
// ("submitted by", link/comment anchors).
func markdownText(content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}

	var blocks []string
	doc.Find("div.md").Children().Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})
	if len(blocks) == 0 {
		return strings.TrimSpace(doc.Find("div.md").Text())
	}
	return strings.Join(blocks, "\n\n")
}
