package source

import (
	"context"
	"errors"
	"time"
)

// Post is a single subreddit submission as returned by a Client.
type Post struct {
	ID        string    // stable, opaque post id (e.g. "1abc23")
	Subreddit string    // subreddit the post was fetched from
	Title     string    // post title
	Body      string    // self text; empty for link posts
	Flair     string    // link flair text; empty when unset
	Author    string    // author name; empty when removed or deleted
	Score     int       // net votes at fetch time
	CreatedAt time.Time // creation time in UTC
	Permalink string    // path relative to the site root, e.g. /r/x/comments/...
}

// Client fetches the newest posts of a subreddit.
type Client interface {
	// Fetch returns at most limit posts, newest first.
	Fetch(ctx context.Context, subreddit string, limit int) ([]Post, error)
}

// ErrMissingCredentials is returned when an authenticated client is built
// without a client id or secret.
var ErrMissingCredentials = errors.New("reddit: client id and secret are required")

const (
	// DefaultLimit is the fetch window used when none is configured.
	DefaultLimit = 100
	// MaxLimit is the largest page Reddit serves for a listing.
	MaxLimit = 100

	deletedAuthor = "[deleted]"
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func normalizeAuthor(name string) string {
	if name == deletedAuthor {
		return ""
	}
	return name
}

// throttle spaces consecutive requests by at least delay.
type throttle struct {
	delay time.Duration
	last  time.Time
	now   func() time.Time
	sleep func(time.Duration)
}

func (t *throttle) wait() {
	if t.delay <= 0 {
		return
	}
	if !t.last.IsZero() {
		if remaining := t.delay - t.now().Sub(t.last); remaining > 0 {
			t.sleep(remaining)
		}
	}
	t.last = t.now()
}
