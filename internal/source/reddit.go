package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	ModeOAuth  = "oauth"
	ModePublic = "public"

	redditPublicURL = "https://www.reddit.com"
	redditOAuthURL  = "https://oauth.reddit.com"
	redditTokenPath = "/api/v1/access_token"
	redditTimeout   = 30 * time.Second
	redditUserAgent = "subwatch/1.0"

	// tokenSlack renews the bearer token slightly before Reddit expires it.
	tokenSlack = time.Minute
)

// RedditOptions configures a RedditClient.
type RedditOptions struct {
	Mode         string // ModeOAuth (default) or ModePublic
	ClientID     string
	ClientSecret string
	UserAgent    string
	RequestDelay time.Duration
	BaseURL      string // listing host override
	AuthURL      string // token host override
}

// RedditClient reads subreddit listings from Reddit's JSON API, either
// anonymously or with an application-only OAuth token.
type RedditClient struct {
	mode         string
	clientID     string
	clientSecret string
	userAgent    string
	baseURL      string
	authURL      string
	client       *http.Client
	throttle     throttle

	token       string
	tokenExpiry time.Time
}

// NewReddit creates a Reddit JSON client. OAuth mode requires credentials.
func NewReddit(opts RedditOptions) (*RedditClient, error) {
	mode := opts.Mode
	if mode == "" {
		mode = ModeOAuth
	}

	rc := &RedditClient{
		mode:         mode,
		clientID:     strings.TrimSpace(opts.ClientID),
		clientSecret: strings.TrimSpace(opts.ClientSecret),
		userAgent:    opts.UserAgent,
		baseURL:      opts.BaseURL,
		authURL:      opts.AuthURL,
		client:       &http.Client{Timeout: redditTimeout},
		throttle: throttle{
			delay: opts.RequestDelay,
			now:   time.Now,
			sleep: time.Sleep,
		},
	}
	if rc.userAgent == "" {
		rc.userAgent = redditUserAgent
	}

	switch mode {
	case ModeOAuth:
		if rc.clientID == "" || rc.clientSecret == "" {
			return nil, ErrMissingCredentials
		}
		if rc.baseURL == "" {
			rc.baseURL = redditOAuthURL
		}
		if rc.authURL == "" {
			rc.authURL = redditPublicURL
		}
	case ModePublic:
		if rc.baseURL == "" {
			rc.baseURL = redditPublicURL
		}
	default:
		return nil, fmt.Errorf("reddit: unknown mode %q (want %s or %s)", mode, ModeOAuth, ModePublic)
	}

	return rc, nil
}

// Fetch returns the newest posts of subreddit.
func (rc *RedditClient) Fetch(ctx context.Context, subreddit string, limit int) ([]Post, error) {
	if strings.TrimSpace(subreddit) == "" {
		return nil, errors.New("reddit: subreddit is required")
	}
	limit = clampLimit(limit)

	var (
		endpoint string
		bearer   string
	)
	switch rc.mode {
	case ModeOAuth:
		token, err := rc.accessToken(ctx)
		if err != nil {
			return nil, err
		}
		bearer = token
		endpoint = fmt.Sprintf("%s/r/%s/new?limit=%d&raw_json=1", rc.baseURL, url.PathEscape(subreddit), limit)
	default:
		endpoint = fmt.Sprintf("%s/r/%s/new.json?limit=%d&raw_json=1", rc.baseURL, url.PathEscape(subreddit), limit)
	}

	rc.throttle.wait()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", rc.userAgent)
	if bearer != "" {
		req.Header.Set("Authorization", "bearer "+bearer)
	}

	resp, err := rc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch r/%s: %w", subreddit, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		rc.token = ""
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("r/%s: status %d", subreddit, resp.StatusCode)
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode r/%s: %w", subreddit, err)
	}

	posts := postsFromListing(listing, subreddit)
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (rc *RedditClient) accessToken(ctx context.Context) (string, error) {
	if rc.token != "" && time.Now().Before(rc.tokenExpiry) {
		return rc.token, nil
	}

	rc.throttle.wait()

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rc.authURL+redditTokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.SetBasicAuth(rc.clientID, rc.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", rc.userAgent)

	resp, err := rc.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request token: status %d", resp.StatusCode)
	}

	var tok redditToken
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	if tok.Error != "" {
		return "", fmt.Errorf("request token: %s", tok.Error)
	}
	if tok.AccessToken == "" {
		return "", errors.New("request token: empty access token")
	}

	rc.token = tok.AccessToken
	rc.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - tokenSlack)
	return rc.token, nil
}

func postsFromListing(listing redditListing, subreddit string) []Post {
	posts := make([]Post, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		p := child.Data
		if p.ID == "" {
			continue
		}

		sub := p.Subreddit
		if sub == "" {
			sub = subreddit
		}

		posts = append(posts, Post{
			ID:        p.ID,
			Subreddit: sub,
			Title:     p.Title,
			Body:      p.Selftext,
			Flair:     p.LinkFlairText,
			Author:    normalizeAuthor(p.Author),
			Score:     p.Score,
			CreatedAt: time.Unix(int64(p.CreatedUTC), 0).UTC(),
			Permalink: p.Permalink,
		})
	}
	return posts
}

type redditListing struct {
	Data struct {
		Children []redditChild `json:"children"`
	} `json:"data"`
}

type redditChild struct {
	Data redditPost `json:"data"`
}

type redditPost struct {
	ID            string  `json:"id"`
	Subreddit     string  `json:"subreddit"`
	Title         string  `json:"title"`
	Selftext      string  `json:"selftext"`
	LinkFlairText string  `json:"link_flair_text"`
	Author        string  `json:"author"`
	Score         int     `json:"score"`
	Permalink     string  `json:"permalink"`
	CreatedUTC    float64 `json:"created_utc"`
}

type redditToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Error       string `json:"error"`
}
