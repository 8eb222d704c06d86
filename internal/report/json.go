package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/ppiankov/subwatch/internal/scan"
)

type jsonReport struct {
	Meta     jsonMeta      `json:"meta"`
	Counts   jsonCounts    `json:"counts"`
	Matches  []jsonMatch   `json:"matches"`
	Failures []jsonFailure `json:"failures"`
	Dedup    jsonDedup     `json:"dedup"`
	OK       bool          `json:"ok"`
}

type jsonMeta struct {
	RunID      string `json:"run_id"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
	DurationMS int64  `json:"duration_ms"`
}

type jsonCounts struct {
	SourcesTotal     int `json:"sources_total"`
	SourcesProcessed int `json:"sources_processed"`
	SourcesFailed    int `json:"sources_failed"`
	SourcesSkipped   int `json:"sources_skipped"`
	PostsFetched     int `json:"posts_fetched"`
	PostsNew         int `json:"posts_new"`
	Matches          int `json:"matches"`
	Notified         int `json:"notified"`
	NotifySkipped    int `json:"notify_skipped"`
	NotifyFailed     int `json:"notify_failed"`
}

type jsonMatch struct {
	ID        string `json:"id"`
	Subreddit string `json:"subreddit"`
	Title     string `json:"title"`
	Flair     string `json:"flair,omitempty"`
	Author    string `json:"author,omitempty"`
	URL       string `json:"url"`
	CreatedAt string `json:"created_at,omitempty"`
}

type jsonFailure struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

type jsonDedup struct {
	SeenTotal int    `json:"seen_total"`
	LoadError string `json:"load_error,omitempty"`
	SaveError string `json:"save_error,omitempty"`
}

// JSONFormatter formats a summary as JSON.
type JSONFormatter struct {
	opts Options
}

// NewJSON creates a JSON formatter.
func NewJSON(opts Options) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Format writes the summary as JSON to w.
func (f *JSONFormatter) Format(w io.Writer, sum scan.Summary) error {
	out := jsonReport{
		Meta: jsonMeta{
			RunID:      sum.RunID,
			StartedAt:  sum.StartedAt.Format(time.RFC3339),
			FinishedAt: sum.FinishedAt.Format(time.RFC3339),
			DurationMS: sum.Duration().Milliseconds(),
		},
		Counts: jsonCounts{
			SourcesTotal:     sum.SourcesTotal,
			SourcesProcessed: sum.SourcesProcessed,
			SourcesFailed:    sum.SourcesFailed,
			SourcesSkipped:   sum.SourcesSkipped,
			PostsFetched:     sum.PostsFetched,
			PostsNew:         sum.PostsNew,
			Matches:          sum.Matches,
			Notified:         sum.Notified,
			NotifySkipped:    sum.NotifySkipped,
			NotifyFailed:     sum.NotifyFailed,
		},
		Matches:  make([]jsonMatch, 0, len(sum.Matched)),
		Failures: make([]jsonFailure, 0, len(sum.Failures)),
		Dedup:    jsonDedup{SeenTotal: sum.SeenTotal},
		OK:       sum.OK(),
	}

	for _, p := range sum.Matched {
		m := jsonMatch{
			ID:        p.ID,
			Subreddit: p.Subreddit,
			Title:     p.Title,
			Flair:     p.Flair,
			Author:    p.Author,
			URL:       postURL(f.opts.BaseURL, p.Permalink),
		}
		if !p.CreatedAt.IsZero() {
			m.CreatedAt = p.CreatedAt.UTC().Format(time.RFC3339)
		}
		out.Matches = append(out.Matches, m)
	}
	for _, fl := range sum.Failures {
		out.Failures = append(out.Failures, jsonFailure{Source: fl.Source, Error: fl.Err.Error()})
	}
	if sum.DedupLoadErr != nil {
		out.Dedup.LoadError = sum.DedupLoadErr.Error()
	}
	if sum.DedupSaveErr != nil {
		out.Dedup.SaveError = sum.DedupSaveErr.Error()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
