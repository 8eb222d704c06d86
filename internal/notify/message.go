package notify

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/subwatch/internal/source"
)

const (
	DefaultExcerptLimit = 500
	DefaultBaseURL      = "https://reddit.com"
	DefaultContent      = "🎁 **New Giveaway Found!**"
	DefaultFooter       = "Reddit Giveaway Alert"

	redditOrange = 0xFF4500
	ellipsis     = "..."
)

// Message is the JSON body of a Discord webhook call.
type Message struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds"`
}

type Embed struct {
	Title       string       `json:"title"`
	URL         string       `json:"url,omitempty"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Fields      []EmbedField `json:"fields"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type EmbedFooter struct {
	Text string `json:"text"`
}

// Formatter renders posts into webhook messages.
type Formatter struct {
	ExcerptLimit int
	BaseURL      string
	Content      string
	Footer       string
	Redact       []*regexp.Regexp
}

// BuildMessage renders post as a single-embed message.
func (f Formatter) BuildMessage(post source.Post) Message {
	base := f.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	limit := f.ExcerptLimit
	if limit <= 0 {
		limit = DefaultExcerptLimit
	}
	content := f.Content
	if content == "" {
		content = DefaultContent
	}
	footer := f.Footer
	if footer == "" {
		footer = DefaultFooter
	}

	author := post.Author
	if author == "" {
		author = "[deleted]"
	}

	fields := []EmbedField{
		{Name: "Author", Value: "u/" + author, Inline: true},
		{Name: "Subreddit", Value: "r/" + post.Subreddit, Inline: true},
		{Name: "Score", Value: strconv.Itoa(post.Score), Inline: true},
	}
	if post.Flair != "" {
		fields = append(fields, EmbedField{Name: "Flair", Value: post.Flair, Inline: true})
	}

	embed := Embed{
		Title:       post.Title,
		URL:         strings.TrimSuffix(base, "/") + post.Permalink,
		Description: excerpt(redact(post.Body, f.Redact), limit),
		Color:       redditOrange,
		Fields:      fields,
		Footer:      &EmbedFooter{Text: footer},
	}
	if !post.CreatedAt.IsZero() {
		embed.Timestamp = post.CreatedAt.UTC().Format(time.RFC3339)
	}

	return Message{Content: content, Embeds: []Embed{embed}}
}

// excerpt truncates text to limit runes and marks the cut with an ellipsis.
func excerpt(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + ellipsis
}
