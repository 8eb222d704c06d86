package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/subwatch/internal/scan"
)

// MarkdownFormatter formats a summary as Markdown.
type MarkdownFormatter struct {
	opts Options
}

// NewMarkdown creates a Markdown formatter.
func NewMarkdown(opts Options) *MarkdownFormatter {
	return &MarkdownFormatter{opts: opts}
}

// Format writes the summary as Markdown to w.
func (f *MarkdownFormatter) Format(w io.Writer, sum scan.Summary) error {
	fmt.Fprintf(w, "# subwatch scan\n\n")
	fmt.Fprintf(w, "%d/%d sources, %d posts, %d new, %d matches\n\n",
		sum.SourcesProcessed, sum.SourcesTotal, sum.PostsFetched, sum.PostsNew, sum.Matches)

	if len(sum.Matched) > 0 {
		fmt.Fprintf(w, "## Matches (%d)\n\n", len(sum.Matched))
		for _, p := range sum.Matched {
			fmt.Fprintf(w, "- **r/%s** [%s](%s)", p.Subreddit, escapeMarkdown(p.Title), postURL(f.opts.BaseURL, p.Permalink))
			if p.Flair != "" {
				fmt.Fprintf(w, " `%s`", p.Flair)
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w)
	} else {
		fmt.Fprintf(w, "No new matches.\n\n")
	}

	if len(sum.Failures) > 0 {
		fmt.Fprintf(w, "## Failures (%d)\n\n", len(sum.Failures))
		for _, fl := range sum.Failures {
			fmt.Fprintf(w, "- r/%s: %v\n", fl.Source, fl.Err)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "*Notifications: %d sent, %d skipped, %d failed. Seen: %d posts.*\n",
		sum.Notified, sum.NotifySkipped, sum.NotifyFailed, sum.SeenTotal)
	if sum.DedupLoadErr != nil {
		fmt.Fprintf(w, "\n> Dedup state unreadable, started empty: %v\n", sum.DedupLoadErr)
	}
	if sum.DedupSaveErr != nil {
		fmt.Fprintf(w, "\n> Dedup state not saved: %v\n", sum.DedupSaveErr)
	}
	return nil
}

var markdownEscaper = strings.NewReplacer("[", `\[`, "]", `\]`)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
